// Package items loads mintable items into a campaign in positional batches.
package items

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"solana-mint-campaign/internal/campaign"
	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/observability"
	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/storage"
)

const (
	// InsertBatchSize is the number of items per insertion transaction.
	// Bounded by the transaction size limit.
	InsertBatchSize = 8

	// DefaultLoadAttempts bounds whole-load passes after blockhash expiry.
	DefaultLoadAttempts = 3

	// DefaultConcurrency bounds parallel batch submissions.
	DefaultConcurrency = 4

	// AppendPosition loads items after the campaign's current loaded count.
	AppendPosition = -1
)

// BatchResult records the outcome of one insertion batch.
type BatchResult struct {
	BatchIndex int    `json:"batchIndex"`
	StartIndex int    `json:"startIndex"`
	Count      int    `json:"count"`
	Succeeded  bool   `json:"succeeded"`
	Error      string `json:"error,omitempty"`

	err error
}

// LoadResult is the manifest of one load call.
type LoadResult struct {
	CampaignAddress string        `json:"campaignAddress"`
	ItemsLoaded     int           `json:"itemsLoaded"`
	TotalLoaded     int           `json:"totalLoaded"`
	FullyLoaded     bool          `json:"fullyLoaded"`
	Batches         []BatchResult `json:"batches"`
}

// Options configures a Loader.
type Options struct {
	Ledger    solana.LedgerClient
	Campaigns storage.CampaignStore

	// Authority signs and pays for every insertion.
	Authority *solana.Keypair

	// ProgramID is the campaign program address.
	ProgramID string

	// MaxLoadAttempts bounds whole-load passes after blockhash expiry.
	MaxLoadAttempts int

	// Concurrency bounds parallel batch submissions.
	Concurrency int

	Verbose bool
}

// Loader inserts items into campaigns in batches of InsertBatchSize,
// sharing one blockhash reference across a pass.
type Loader struct {
	ledger    solana.LedgerClient
	campaigns storage.CampaignStore
	authority *solana.Keypair
	programID string

	maxAttempts int
	concurrency int
	verbose     bool
}

// NewLoader creates an item loader.
func NewLoader(opts Options) (*Loader, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if opts.Campaigns == nil {
		return nil, fmt.Errorf("campaign store is required")
	}
	if opts.Authority == nil {
		return nil, fmt.Errorf("authority keypair is required")
	}
	if opts.ProgramID == "" {
		return nil, fmt.Errorf("program id is required")
	}
	if opts.MaxLoadAttempts <= 0 {
		opts.MaxLoadAttempts = DefaultLoadAttempts
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	return &Loader{
		ledger:      opts.Ledger,
		campaigns:   opts.Campaigns,
		authority:   opts.Authority,
		programID:   opts.ProgramID,
		maxAttempts: opts.MaxLoadAttempts,
		concurrency: opts.Concurrency,
		verbose:     opts.Verbose,
	}, nil
}

// batch is one pending insertion unit.
type batch struct {
	index int
	start int
	items []domain.Item
}

// LoadItems inserts items at an explicit absolute position, or after the
// campaign's current loaded count when startIndex is AppendPosition. Batches
// are submitted concurrently against one shared blockhash; expired batches
// are retried in a fresh pass. Successful batches are never rolled back:
// when some batches remain failed the manifest is returned together with a
// PartialLoadError listing them, and the caller re-invokes LoadItems with
// each failed range's StartIndex to fill the gaps.
func (l *Loader) LoadItems(ctx context.Context, campaignAddress string, startIndex int, items []domain.Item) (*LoadResult, error) {
	c, err := l.campaigns.GetByAddress(ctx, campaignAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("campaign %s: %w", campaignAddress, campaign.ErrNotFound)
		}
		return nil, fmt.Errorf("load campaign %s: %w", campaignAddress, err)
	}
	if c.Authority != l.authority.PublicKey() {
		return nil, fmt.Errorf("campaign %s: %w", campaignAddress, campaign.ErrUnauthorized)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items to load", campaign.ErrValidation)
	}
	if startIndex == AppendPosition {
		if c.ItemsLoaded+len(items) > c.ItemsAvailable {
			return nil, fmt.Errorf("%w: %d items exceed remaining capacity %d",
				campaign.ErrValidation, len(items), c.ItemsAvailable-c.ItemsLoaded)
		}
		startIndex = c.ItemsLoaded
	} else if startIndex < 0 {
		return nil, fmt.Errorf("%w: start index %d is negative", campaign.ErrValidation, startIndex)
	} else if startIndex+len(items) > c.ItemsAvailable {
		return nil, fmt.Errorf("%w: positions %d..%d exceed capacity %d",
			campaign.ErrValidation, startIndex, startIndex+len(items), c.ItemsAvailable)
	}

	// Positions are absolute from startIndex; caller-supplied indices are
	// overwritten so a retried range targets exactly the gap it failed on.
	assigned := make([]domain.Item, len(items))
	for i, it := range items {
		it.Index = startIndex + i
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", campaign.ErrValidation, err)
		}
		assigned[i] = it
	}

	batches := splitBatches(startIndex, assigned)
	results := make([]BatchResult, len(batches))
	pending := batches

	for attempt := 1; attempt <= l.maxAttempts && len(pending) > 0; attempt++ {
		blockhash, err := l.ledger.GetLatestBlockhash(ctx)
		if err != nil {
			return nil, fmt.Errorf("get blockhash: %w", err)
		}

		l.log("pass %d/%d: submitting %d batches for campaign %s",
			attempt, l.maxAttempts, len(pending), campaignAddress)

		l.runPass(ctx, campaignAddress, blockhash, pending, results)

		var retry []batch
		for _, b := range pending {
			r := results[b.index]
			if !r.Succeeded && solana.IsBlockhashNotFound(r.err) {
				retry = append(retry, b)
			}
		}
		pending = retry
	}

	loaded := 0
	var failed []campaign.BatchFailure
	for _, r := range results {
		if r.Succeeded {
			loaded += r.Count
			observability.RecordItemBatch("success", r.Count)
		} else {
			failed = append(failed, campaign.BatchFailure{
				BatchIndex: r.BatchIndex,
				StartIndex: r.StartIndex,
				Err:        r.err,
			})
			observability.RecordItemBatch("failed", r.Count)
		}
	}

	// Positions within one call are disjoint, so confirmed batches advance
	// the mirrored counter by their summed counts. The store clamps at
	// capacity and derives the fully-loaded flag.
	totalLoaded := c.ItemsLoaded
	fullyLoaded := c.IsFullyLoaded
	if loaded > 0 {
		if err := l.campaigns.IncrementCounters(ctx, campaignAddress, loaded, 0); err != nil {
			return nil, fmt.Errorf("update counters for %s: %w", campaignAddress, err)
		}
		updated, err := l.campaigns.GetByAddress(ctx, campaignAddress)
		if err != nil {
			return nil, fmt.Errorf("reload campaign %s: %w", campaignAddress, err)
		}
		totalLoaded = updated.ItemsLoaded
		fullyLoaded = updated.IsFullyLoaded
	}

	result := &LoadResult{
		CampaignAddress: campaignAddress,
		ItemsLoaded:     loaded,
		TotalLoaded:     totalLoaded,
		FullyLoaded:     fullyLoaded,
		Batches:         results,
	}

	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].BatchIndex < failed[j].BatchIndex })
		return result, &campaign.PartialLoadError{Loaded: loaded, Failed: failed}
	}

	l.log("loaded %d items into campaign %s (%d/%d total)",
		loaded, campaignAddress, totalLoaded, c.ItemsAvailable)

	return result, nil
}

// runPass submits the given batches concurrently and records outcomes into
// results, indexed by batch index.
func (l *Loader) runPass(ctx context.Context, campaignAddress string, blockhash *solana.Blockhash, pending []batch, results []BatchResult) {
	sem := make(chan struct{}, l.concurrency)
	var wg sync.WaitGroup

	for _, b := range pending {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[b.index] = l.submitBatch(ctx, campaignAddress, blockhash, b)
		}(b)
	}

	wg.Wait()
}

// submitBatch builds, signs and lands one insertion transaction.
func (l *Loader) submitBatch(ctx context.Context, campaignAddress string, blockhash *solana.Blockhash, b batch) BatchResult {
	result := BatchResult{
		BatchIndex: b.index,
		StartIndex: b.start,
		Count:      len(b.items),
	}

	fail := func(err error) BatchResult {
		// A replayed batch whose positions already landed is complete, not
		// a failure.
		if isAlreadyFilled(err) {
			result.Succeeded = true
			return result
		}
		result.err = err
		result.Error = err.Error()
		return result
	}

	instr := campaign.InsertItemsInstruction(l.programID, campaignAddress, l.authority.PublicKey(), b.start, b.items)

	tx, err := solana.NewTransaction(l.authority.PublicKey(), blockhash.Hash, instr)
	if err != nil {
		return fail(fmt.Errorf("build transaction: %w", err))
	}
	if err := tx.Sign(l.authority); err != nil {
		return fail(fmt.Errorf("sign transaction: %w", err))
	}
	wire, err := tx.Serialize()
	if err != nil {
		return fail(fmt.Errorf("serialize transaction: %w", err))
	}

	sig, err := l.ledger.SendTransaction(ctx, wire)
	if err != nil {
		return fail(fmt.Errorf("send batch at %d: %w", b.start, err))
	}

	if _, err := l.ledger.Confirm(ctx, sig, blockhash.LastValidBlockHeight); err != nil {
		return fail(fmt.Errorf("confirm batch at %d (sig %s): %w", b.start, sig, err))
	}

	result.Succeeded = true
	return result
}

// splitBatches cuts items into InsertBatchSize runs with absolute positions.
func splitBatches(startIndex int, items []domain.Item) []batch {
	var batches []batch
	for off := 0; off < len(items); off += InsertBatchSize {
		end := off + InsertBatchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, batch{
			index: len(batches),
			start: startIndex + off,
			items: items[off:end],
		})
	}
	return batches
}

// isAlreadyFilled matches the program error for positions that landed in an
// earlier attempt.
func isAlreadyFilled(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "already filled")
}

func (l *Loader) log(format string, args ...interface{}) {
	if l.verbose {
		log.Printf("[items] "+format, args...)
	}
}
