package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/rbac"
)

func TestRegistryOrderAndNav(t *testing.T) {
	reg, err := NewRegistry(codebook.Deps{})
	require.NoError(t, err)

	assert.Equal(t, []string{"yarn-codes", "item-codes", "fabric-codes", "staff-codes", "business-codes", "client-codes"}, reg.Keys())

	nav := Nav(reg)
	require.Len(t, nav, 9)
	assert.Equal(t, "/", nav[0].Path)
	assert.Equal(t, "/console/yarn-codes", nav[1].Path)
	assert.Equal(t, "Yarn Codes", nav[1].Title)
	assert.Equal(t, "/audit", nav[7].Path)
	assert.Equal(t, "/permissions", nav[8].Path)
}

func TestCardsCountEveryBook(t *testing.T) {
	reg, err := NewRegistry(codebook.Deps{})
	require.NoError(t, err)

	h := NewHandler(nil, reg, nil, nil, rbac.Middleware{}, "test")
	cards, err := h.cards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 6)
	assert.Equal(t, "yarn-codes", cards[0].Key)
	assert.Equal(t, 48, cards[0].Count)
	assert.Equal(t, "/console/item-codes", cards[1].Path)
	assert.Equal(t, 12, cards[1].Count)
	for _, c := range cards {
		assert.Positive(t, c.Count, c.Key)
	}
}
