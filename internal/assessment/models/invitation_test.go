package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func pendingInvitation(t *testing.T, ttl time.Duration) *Invitation {
	t.Helper()
	inv, err := NewInvitation(id.NewCandidateID(), "role-backend", t0, ttl)
	require.NoError(t, err)
	return inv
}

func TestNewInvitation(t *testing.T) {
	inv := pendingInvitation(t, 48*time.Hour)
	assert.Equal(t, StatusPending, inv.Status)
	assert.Equal(t, t0.Add(48*time.Hour), inv.ExpiresAt)
	assert.Nil(t, inv.LinkOpenedAt)
	assert.NotEmpty(t, inv.Token)
}

func TestNewToken_Unique(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40)
}

func TestRecordOpen(t *testing.T) {
	t.Run("first open advances and stamps", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		changed := inv.RecordOpen(t0.Add(time.Minute))
		assert.True(t, changed)
		assert.Equal(t, StatusOpened, inv.Status)
		require.NotNil(t, inv.LinkOpenedAt)
		assert.Equal(t, t0.Add(time.Minute), *inv.LinkOpenedAt)
	})

	t.Run("repeat open is a no-op", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		inv.RecordOpen(t0.Add(time.Minute))
		changed := inv.RecordOpen(t0.Add(2 * time.Minute))
		assert.False(t, changed)
		assert.Equal(t, t0.Add(time.Minute), *inv.LinkOpenedAt, "linkOpenedAt is set once")
	})

	t.Run("expired open still records linkOpenedAt", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		now := t0.Add(2 * time.Hour)
		changed := inv.RecordOpen(now)
		assert.True(t, changed)
		require.NotNil(t, inv.LinkOpenedAt)
		assert.Equal(t, StatusPending, inv.Status, "RecordOpen never advances an expired invitation")
	})

	t.Run("started invitation keeps status on reload", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		inv.RecordOpen(t0.Add(time.Minute))
		inv.MarkStarted()
		changed := inv.RecordOpen(t0.Add(2 * time.Minute))
		assert.False(t, changed)
		assert.Equal(t, StatusStarted, inv.Status)
	})
}

func TestReconcileExpiry(t *testing.T) {
	t.Run("forces expiry from any non-terminal state", func(t *testing.T) {
		for _, status := range []InvitationStatus{StatusPending, StatusOpened, StatusStarted} {
			inv := pendingInvitation(t, time.Hour)
			inv.Status = status
			assert.True(t, inv.ReconcileExpiry(t0.Add(2*time.Hour)), "from %s", status)
			assert.Equal(t, StatusExpired, inv.Status)
		}
	})

	t.Run("terminal states stay put", func(t *testing.T) {
		for _, status := range []InvitationStatus{StatusCompleted, StatusExpired} {
			inv := pendingInvitation(t, time.Hour)
			inv.Status = status
			assert.False(t, inv.ReconcileExpiry(t0.Add(2*time.Hour)))
			assert.Equal(t, status, inv.Status)
		}
	})

	t.Run("live invitation untouched", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		assert.False(t, inv.ReconcileExpiry(t0.Add(30*time.Minute)))
		assert.Equal(t, StatusPending, inv.Status)
	})
}

func TestCanStart(t *testing.T) {
	t.Run("pending can start", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		assert.NoError(t, inv.CanStart(t0.Add(time.Minute)))
	})

	t.Run("completed wins over expiry", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		inv.Status = StatusCompleted
		assert.ErrorIs(t, inv.CanStart(t0.Add(2*time.Hour)), sentinel.ErrAlreadyCompleted)
	})

	t.Run("expiry precedence over STARTED", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		inv.Status = StatusStarted
		assert.ErrorIs(t, inv.CanStart(t0.Add(2*time.Hour)), sentinel.ErrExpired)
	})

	t.Run("persisted EXPIRED fails regardless of clock", func(t *testing.T) {
		inv := pendingInvitation(t, time.Hour)
		inv.Status = StatusExpired
		assert.ErrorIs(t, inv.CanStart(t0), sentinel.ErrExpired)
	})
}

func TestParseInvitationStatus(t *testing.T) {
	s, err := ParseInvitationStatus("STARTED")
	require.NoError(t, err)
	assert.Equal(t, StatusStarted, s)

	_, err = ParseInvitationStatus("started")
	assert.Error(t, err)
}

func TestMarkCompleted_TerminalGuard(t *testing.T) {
	inv := pendingInvitation(t, time.Hour)
	inv.Status = StatusExpired
	inv.MarkCompleted()
	assert.Equal(t, StatusExpired, inv.Status, "terminal states accept no further transition")
}
