package items

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"solana-mint-campaign/internal/campaign"
	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/solana/stub"
	"solana-mint-campaign/internal/storage/memory"
)

const testProgramID = "8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR"

type loaderEnv struct {
	ledger    *stub.LedgerClient
	campaigns *memory.CampaignStore
	authority *solana.Keypair
	loader    *Loader
}

func newLoaderEnv(t *testing.T, capacity int) (*loaderEnv, string) {
	t.Helper()

	ledger := stub.NewLedgerClient()
	groups := memory.NewGroupStore()
	campaigns := memory.NewCampaignStore(groups)

	authority, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("generate authority: %v", err)
	}

	loader, err := NewLoader(Options{
		Ledger:    ledger,
		Campaigns: campaigns,
		Authority: authority,
		ProgramID: testProgramID,
		// Deterministic submission order for scripted failures.
		Concurrency: 1,
	})
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	address := "CktRuQ2mttgRGkXJtyksdKHjUdc2C4TgDzyB98oEzy8"
	c := &domain.Campaign{
		Address:        address,
		Authority:      authority.PublicKey(),
		ItemsAvailable: capacity,
		Groups:         []domain.Group{{Label: domain.PublicGroupLabel}},
	}
	if err := campaigns.Insert(context.Background(), c); err != nil {
		t.Fatalf("insert campaign: %v", err)
	}

	return &loaderEnv{ledger: ledger, campaigns: campaigns, authority: authority, loader: loader}, address
}

func makeItems(n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			Name:   fmt.Sprintf("Item #%d", i),
			URI:    fmt.Sprintf("https://assets.example/%d.json", i),
			Rarity: "common",
		}
	}
	return items
}

func TestLoadItems(t *testing.T) {
	env, address := newLoaderEnv(t, 20)
	ctx := context.Background()

	result, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(20))
	if err != nil {
		t.Fatalf("load items: %v", err)
	}

	if result.ItemsLoaded != 20 || result.TotalLoaded != 20 || !result.FullyLoaded {
		t.Errorf("loaded %d (total %d, full %v), want 20/20/true",
			result.ItemsLoaded, result.TotalLoaded, result.FullyLoaded)
	}
	if len(result.Batches) != 3 {
		t.Fatalf("ran %d batches, want 3", len(result.Batches))
	}
	wantStarts := []int{0, 8, 16}
	for i, b := range result.Batches {
		if !b.Succeeded {
			t.Errorf("batch %d failed: %s", i, b.Error)
		}
		if b.StartIndex != wantStarts[i] {
			t.Errorf("batch %d start = %d, want %d", i, b.StartIndex, wantStarts[i])
		}
	}
	if got := result.Batches[2].Count; got != 4 {
		t.Errorf("tail batch count = %d, want 4", got)
	}

	stored, err := env.campaigns.GetByAddress(ctx, address)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.ItemsLoaded != 20 || !stored.IsFullyLoaded {
		t.Errorf("counters = %d loaded (full %v), want 20/true", stored.ItemsLoaded, stored.IsFullyLoaded)
	}
}

func TestLoadItemsAppendsAfterPreviousLoad(t *testing.T) {
	env, address := newLoaderEnv(t, 20)
	ctx := context.Background()

	if _, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(8)); err != nil {
		t.Fatalf("first load: %v", err)
	}

	result, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(5))
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if result.Batches[0].StartIndex != 8 {
		t.Errorf("second load starts at %d, want 8", result.Batches[0].StartIndex)
	}
	if result.TotalLoaded != 13 || result.FullyLoaded {
		t.Errorf("total = %d (full %v), want 13/false", result.TotalLoaded, result.FullyLoaded)
	}
}

func TestLoadItemsRetriesExpiredBatch(t *testing.T) {
	env, address := newLoaderEnv(t, 20)
	ctx := context.Background()

	// Second batch expires on the first pass; the retry pass lands it.
	env.ledger.SendErrs = []error{nil, solana.ErrBlockhashExpired}

	result, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(16))
	if err != nil {
		t.Fatalf("load items: %v", err)
	}

	if result.ItemsLoaded != 16 {
		t.Errorf("loaded %d items, want 16", result.ItemsLoaded)
	}
	for i, b := range result.Batches {
		if !b.Succeeded {
			t.Errorf("batch %d failed after retry: %s", i, b.Error)
		}
	}

	// Two successful landings, no duplicate for the batch that landed first.
	if got := env.ledger.SentCount(); got != 2 {
		t.Errorf("landed %d transactions, want 2", got)
	}

	stored, err := env.campaigns.GetByAddress(ctx, address)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.ItemsLoaded != 16 {
		t.Errorf("counter = %d, want 16", stored.ItemsLoaded)
	}
}

func TestLoadItemsPartialFailure(t *testing.T) {
	env, address := newLoaderEnv(t, 20)
	ctx := context.Background()

	// A fatal program error is not retried.
	env.ledger.SendErrs = []error{nil, errors.New("custom program error: 0x1771")}

	result, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(16))

	var partial *campaign.PartialLoadError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialLoadError", err)
	}
	if partial.Loaded != 8 || len(partial.Failed) != 1 {
		t.Fatalf("partial = %d loaded, %d failed, want 8/1", partial.Loaded, len(partial.Failed))
	}
	if partial.Failed[0].StartIndex != 8 {
		t.Errorf("failed batch start = %d, want 8", partial.Failed[0].StartIndex)
	}

	if result == nil {
		t.Fatal("manifest missing alongside partial error")
	}
	if !result.Batches[0].Succeeded || result.Batches[1].Succeeded {
		t.Errorf("batch outcomes = %v/%v, want true/false",
			result.Batches[0].Succeeded, result.Batches[1].Succeeded)
	}

	// Only confirmed positions count.
	stored, err := env.campaigns.GetByAddress(ctx, address)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.ItemsLoaded != 8 || stored.IsFullyLoaded {
		t.Errorf("counter = %d (full %v), want 8/false", stored.ItemsLoaded, stored.IsFullyLoaded)
	}
}

func TestLoadItemsRetryFailedEarlyRange(t *testing.T) {
	env, address := newLoaderEnv(t, 16)
	ctx := context.Background()

	// The first range fails fatally while the later one lands, leaving a
	// gap at [0,8) behind the counter.
	env.ledger.SendErrs = []error{errors.New("custom program error: 0x1771"), nil}

	result, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(16))
	var partial *campaign.PartialLoadError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialLoadError", err)
	}
	if partial.Failed[0].StartIndex != 0 {
		t.Fatalf("failed range start = %d, want 0", partial.Failed[0].StartIndex)
	}
	if result.TotalLoaded != 8 || result.FullyLoaded {
		t.Fatalf("total = %d (full %v), want 8/false", result.TotalLoaded, result.FullyLoaded)
	}

	// Refilling the gap targets the failed range's own position, not the
	// counter.
	retry, err := env.loader.LoadItems(ctx, address, partial.Failed[0].StartIndex, makeItems(8))
	if err != nil {
		t.Fatalf("retry failed range: %v", err)
	}
	if got := retry.Batches[0].StartIndex; got != 0 {
		t.Errorf("retry batch start = %d, want 0", got)
	}
	if retry.TotalLoaded != 16 || !retry.FullyLoaded {
		t.Errorf("after retry total = %d (full %v), want 16/true", retry.TotalLoaded, retry.FullyLoaded)
	}

	stored, err := env.campaigns.GetByAddress(ctx, address)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.ItemsLoaded != 16 || !stored.IsFullyLoaded {
		t.Errorf("counter = %d (full %v), want 16/true", stored.ItemsLoaded, stored.IsFullyLoaded)
	}
}

func TestLoadItemsExplicitPositionValidation(t *testing.T) {
	env, address := newLoaderEnv(t, 10)
	ctx := context.Background()

	if _, err := env.loader.LoadItems(ctx, address, -2, makeItems(1)); !errors.Is(err, campaign.ErrValidation) {
		t.Errorf("negative position err = %v, want ErrValidation", err)
	}
	if _, err := env.loader.LoadItems(ctx, address, 8, makeItems(3)); !errors.Is(err, campaign.ErrValidation) {
		t.Errorf("past-capacity position err = %v, want ErrValidation", err)
	}
}

func TestLoadItemsAlreadyFilledIsSuccess(t *testing.T) {
	env, address := newLoaderEnv(t, 20)
	ctx := context.Background()

	env.ledger.SendErrs = []error{nil, errors.New("item positions 8..16 already filled")}

	result, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(16))
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	if result.ItemsLoaded != 16 {
		t.Errorf("loaded %d items, want 16", result.ItemsLoaded)
	}
	if !result.Batches[1].Succeeded {
		t.Error("replayed batch not treated as success")
	}
}

func TestLoadItemsValidation(t *testing.T) {
	env, address := newLoaderEnv(t, 10)
	ctx := context.Background()

	if _, err := env.loader.LoadItems(ctx, address, AppendPosition, nil); !errors.Is(err, campaign.ErrValidation) {
		t.Errorf("empty load err = %v, want ErrValidation", err)
	}
	if _, err := env.loader.LoadItems(ctx, address, AppendPosition, makeItems(11)); !errors.Is(err, campaign.ErrValidation) {
		t.Errorf("over-capacity err = %v, want ErrValidation", err)
	}

	bad := makeItems(2)
	bad[1].URI = ""
	if _, err := env.loader.LoadItems(ctx, address, AppendPosition, bad); !errors.Is(err, campaign.ErrValidation) {
		t.Errorf("bad item err = %v, want ErrValidation", err)
	}

	if _, err := env.loader.LoadItems(ctx, "missing", AppendPosition, makeItems(1)); !errors.Is(err, campaign.ErrNotFound) {
		t.Errorf("missing campaign err = %v, want ErrNotFound", err)
	}
}

func TestLoadItemsUnauthorized(t *testing.T) {
	env, address := newLoaderEnv(t, 10)
	ctx := context.Background()

	other, err := solana.NewKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	intruder, err := NewLoader(Options{
		Ledger:    env.ledger,
		Campaigns: env.campaigns,
		Authority: other,
		ProgramID: testProgramID,
	})
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	if _, err := intruder.LoadItems(ctx, address, AppendPosition, makeItems(1)); !errors.Is(err, campaign.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
