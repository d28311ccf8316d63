package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "talentgate/pkg/domain-errors"
)

func TestAll_OrderedByIndex(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for i, b := range all {
		assert.Equal(t, i, b.Index)
		assert.NotEmpty(t, b.Name)
		assert.NotEmpty(t, b.Constructs)
		assert.Greater(t, b.EstimatedMinutes, 0)
	}
}

func TestByIndex(t *testing.T) {
	b, err := ByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, "Cognitive Reasoning", b.Name)

	_, err = ByIndex(len(All()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = ByIndex(-1)
	require.Error(t, err)
}

func TestItems_EveryBlockHasItems(t *testing.T) {
	for _, b := range All() {
		items, err := Items(b.Index)
		require.NoError(t, err)
		assert.NotEmpty(t, items, "block %d has no items", b.Index)
		for _, item := range items {
			assert.NotEmpty(t, item.ID)
			assert.NotEmpty(t, item.Type)
		}
	}
}

func TestItems_ReturnsCopy(t *testing.T) {
	items, err := Items(0)
	require.NoError(t, err)
	items[0].ID = "mutated"

	again, err := Items(0)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].ID)
}

func TestItemType(t *testing.T) {
	assert.Equal(t, ItemTypeCoding, ItemType("tech-02"))
	assert.Equal(t, ItemTypeLikert, ItemType("style-01"))
	assert.Equal(t, "", ItemType("no-such-item"))
}
