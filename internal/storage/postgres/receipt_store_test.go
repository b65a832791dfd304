package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

func seedReceipts(t *testing.T, store *ReceiptStore, campaign string, n int) []*domain.Receipt {
	t.Helper()

	base := time.Now().UnixMilli()
	receipts := make([]*domain.Receipt, 0, n)
	for i := 0; i < n; i++ {
		label := "public"
		if i%2 == 0 {
			label = "auth"
		}
		r := &domain.Receipt{
			ReceiptID:       fmt.Sprintf("receipt-%s-%03d", campaign[:8], i),
			CampaignAddress: campaign,
			GroupLabel:      label,
			BuyerAddress:    fmt.Sprintf("Buyer%d1111111111111111111111111111111111111", i%3),
			AssetAddress:    fmt.Sprintf("Asset%d1111111111111111111111111111111111111", i),
			TxSignature:     fmt.Sprintf("sig-%03d", i),
			Slot:            int64(1000 + i),
			Timestamp:       base + int64(i)*1000,
		}
		require.NoError(t, store.Insert(context.Background(), r))
		receipts = append(receipts, r)
	}
	return receipts
}

func TestReceiptStore_InsertAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	campaign := "CampRcpt111111111111111111111111111111111111"
	seedReceipts(t, store, campaign, 6)

	got, err := store.List(ctx, campaign, domain.ReceiptFilter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 6)

	// newest first
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Timestamp, got[i].Timestamp)
	}
}

func TestReceiptStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	r := &domain.Receipt{
		ReceiptID:       "receipt-dup",
		CampaignAddress: "CampRcpt222222222222222222222222222222222222",
		GroupLabel:      "public",
		BuyerAddress:    "Buyer1111111111111111111111111111111111111",
		AssetAddress:    "Asset1111111111111111111111111111111111111",
		TxSignature:     "sig-dup",
		Timestamp:       time.Now().UnixMilli(),
	}
	require.NoError(t, store.Insert(ctx, r))

	err := store.Insert(ctx, r)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)
}

func TestReceiptStore_ListFilters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	campaign := "CampRcpt333333333333333333333333333333333333"
	seedReceipts(t, store, campaign, 6)

	byGroup, err := store.List(ctx, campaign, domain.ReceiptFilter{GroupLabel: "auth"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, byGroup, 3)
	for _, r := range byGroup {
		assert.Equal(t, "auth", r.GroupLabel)
	}

	buyer := "Buyer01111111111111111111111111111111111111"
	byBuyer, err := store.List(ctx, campaign, domain.ReceiptFilter{BuyerAddress: buyer}, 0, 0)
	require.NoError(t, err)
	require.Len(t, byBuyer, 2)
	for _, r := range byBuyer {
		assert.Equal(t, buyer, r.BuyerAddress)
	}
}

func TestReceiptStore_ListPagination(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	campaign := "CampRcpt444444444444444444444444444444444444"
	seedReceipts(t, store, campaign, 6)

	page1, err := store.List(ctx, campaign, domain.ReceiptFilter{}, 4, 0)
	require.NoError(t, err)
	require.Len(t, page1, 4)

	page2, err := store.List(ctx, campaign, domain.ReceiptFilter{}, 4, 4)
	require.NoError(t, err)
	require.Len(t, page2, 2)

	// Pages do not overlap.
	assert.Greater(t, page1[len(page1)-1].Timestamp, page2[0].Timestamp)
}

func TestReceiptStore_Counts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	campaign := "CampRcpt555555555555555555555555555555555555"
	seedReceipts(t, store, campaign, 6)

	groupCount, err := store.CountByGroup(ctx, campaign, "public")
	require.NoError(t, err)
	assert.Equal(t, 3, groupCount)

	walletCount, err := store.CountByWallet(ctx, campaign, "auth", "Buyer01111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, 1, walletCount)

	empty, err := store.CountByGroup(ctx, campaign, "vip")
	require.NoError(t, err)
	assert.Equal(t, 0, empty)
}
