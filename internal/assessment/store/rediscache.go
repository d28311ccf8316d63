package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"talentgate/internal/assessment/models"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/tx"
)

// invitationCacheTTL is deliberately short. The cache only absorbs the
// candidate-facing read burst on the open/start hot path; correctness comes
// from the invalidation on every write.
const invitationCacheTTL = 30 * time.Second

// CachedInvitations is a read-through cache in front of an invitation store.
// Reads inside a transaction bypass the cache entirely: a lifecycle transition
// must see the row it is about to write, not a stale copy.
type CachedInvitations struct {
	next   invitationStorePort
	client redis.Cmdable
	logger *slog.Logger
}

// invitationStorePort mirrors the service-level invitation store interface
// without importing the service package.
type invitationStorePort interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)
	Update(ctx context.Context, inv *models.Invitation) error
}

// NewCachedInvitations wraps next with a redis read-through cache.
func NewCachedInvitations(next invitationStorePort, client redis.Cmdable, logger *slog.Logger) *CachedInvitations {
	return &CachedInvitations{next: next, client: client, logger: logger}
}

// cachedInvitation is the cache wire format. Kept separate from the model so
// cache encoding can change without touching domain types.
type cachedInvitation struct {
	ID           string     `json:"id"`
	Token        string     `json:"token"`
	CandidateID  string     `json:"candidate_id"`
	JobRoleID    string     `json:"job_role_id"`
	Status       string     `json:"status"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LinkOpenedAt *time.Time `json:"link_opened_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func cacheKey(token string) string {
	return "invitation:" + token
}

func (c *CachedInvitations) Create(ctx context.Context, inv *models.Invitation) error {
	if err := c.next.Create(ctx, inv); err != nil {
		return err
	}
	c.invalidate(ctx, inv.Token)
	return nil
}

func (c *CachedInvitations) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	if _, inTx := tx.From(ctx); inTx {
		return c.next.FindByToken(ctx, token)
	}

	if cached, ok := c.get(ctx, token); ok {
		return cached, nil
	}

	inv, err := c.next.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	c.put(ctx, inv)
	return inv, nil
}

func (c *CachedInvitations) Update(ctx context.Context, inv *models.Invitation) error {
	if err := c.next.Update(ctx, inv); err != nil {
		return err
	}
	// Invalidate rather than refresh: when this update runs inside a
	// transaction the new state is not visible to other readers yet.
	c.invalidate(ctx, inv.Token)
	return nil
}

func (c *CachedInvitations) get(ctx context.Context, token string) (*models.Invitation, bool) {
	raw, err := c.client.Get(ctx, cacheKey(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "invitation cache read failed", "error", err)
		}
		return nil, false
	}

	var entry cachedInvitation
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.WarnContext(ctx, "invitation cache entry corrupt, dropping", "error", err)
		c.invalidate(ctx, token)
		return nil, false
	}

	inv, err := entry.toModel()
	if err != nil {
		c.invalidate(ctx, token)
		return nil, false
	}
	return inv, true
}

func (c *CachedInvitations) put(ctx context.Context, inv *models.Invitation) {
	entry := cachedInvitation{
		ID:           inv.ID.String(),
		Token:        inv.Token,
		CandidateID:  inv.CandidateID.String(),
		JobRoleID:    inv.JobRoleID,
		Status:       string(inv.Status),
		ExpiresAt:    inv.ExpiresAt,
		LinkOpenedAt: inv.LinkOpenedAt,
		CreatedAt:    inv.CreatedAt,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(inv.Token), raw, invitationCacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "invitation cache write failed", "error", err)
	}
}

func (c *CachedInvitations) invalidate(ctx context.Context, token string) {
	if err := c.client.Del(ctx, cacheKey(token)).Err(); err != nil {
		c.logger.WarnContext(ctx, "invitation cache invalidation failed", "error", err)
	}
}

func (e *cachedInvitation) toModel() (*models.Invitation, error) {
	invitationID, err := id.ParseInvitationID(e.ID)
	if err != nil {
		return nil, err
	}
	candidateID, err := id.ParseCandidateID(e.CandidateID)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseInvitationStatus(e.Status)
	if err != nil {
		return nil, err
	}
	return &models.Invitation{
		ID:           invitationID,
		Token:        e.Token,
		CandidateID:  candidateID,
		JobRoleID:    e.JobRoleID,
		Status:       status,
		ExpiresAt:    e.ExpiresAt,
		LinkOpenedAt: e.LinkOpenedAt,
		CreatedAt:    e.CreatedAt,
	}, nil
}
