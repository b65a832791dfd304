package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowListStore_ReplaceAndMembership(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllowListStore(pool)
	ctx := context.Background()

	campaign := "CampAllow111111111111111111111111111111111111"
	err := store.Replace(ctx, campaign, "auth", []string{
		"WalletAAA11111111111111111111111111111111111",
		"WalletBBB11111111111111111111111111111111111",
	})
	require.NoError(t, err)

	ok, err := store.IsMember(ctx, campaign, "auth", "WalletAAA11111111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsMember(ctx, campaign, "auth", "WalletCCC11111111111111111111111111111111111")
	require.NoError(t, err)
	assert.False(t, ok)

	// Membership is scoped per group label.
	ok, err = store.IsMember(ctx, campaign, "public", "WalletAAA11111111111111111111111111111111111")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowListStore_ReplaceOverwrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllowListStore(pool)
	ctx := context.Background()

	campaign := "CampAllow222222222222222222222222222222222222"
	require.NoError(t, store.Replace(ctx, campaign, "auth", []string{
		"WalletOld111111111111111111111111111111111111",
	}))
	require.NoError(t, store.Replace(ctx, campaign, "auth", []string{
		"WalletNewA11111111111111111111111111111111111",
		"WalletNewB11111111111111111111111111111111111",
	}))

	members, err := store.GetMembers(ctx, campaign, "auth")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"WalletNewA11111111111111111111111111111111111",
		"WalletNewB11111111111111111111111111111111111",
	}, members)

	ok, err := store.IsMember(ctx, campaign, "auth", "WalletOld111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowListStore_ReplaceDeduplicates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllowListStore(pool)
	ctx := context.Background()

	campaign := "CampAllow333333333333333333333333333333333333"
	wallet := "WalletDup111111111111111111111111111111111111"
	require.NoError(t, store.Replace(ctx, campaign, "auth", []string{wallet, wallet, wallet}))

	members, err := store.GetMembers(ctx, campaign, "auth")
	require.NoError(t, err)
	assert.Equal(t, []string{wallet}, members)
}
