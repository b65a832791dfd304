// Package mint performs gated mints and mirrors their receipts.
package mint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-mint-campaign/internal/campaign"
	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/eligibility"
	"solana-mint-campaign/internal/observability"
	"solana-mint-campaign/internal/pda"
	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/storage"
)

// DefaultSubmitAttempts bounds resubmissions after an expired blockhash.
const DefaultSubmitAttempts = 3

var (
	// ErrNotEligible marks a wallet the pre-check rejects for a group.
	ErrNotEligible = errors.New("wallet is not eligible")

	// ErrSoldOut marks a campaign with no items left to mint.
	ErrSoldOut = errors.New("campaign is sold out")
)

// Result describes one confirmed mint.
type Result struct {
	Receipt      *domain.Receipt `json:"receipt"`
	AssetAddress string          `json:"assetAddress"`
	Frozen       bool            `json:"frozen"`
	FreezeExpiry int64           `json:"freezeExpiry,omitempty"`
}

// Options configures a Minter.
type Options struct {
	Ledger       solana.LedgerClient
	Campaigns    storage.CampaignStore
	Receipts     storage.ReceiptStore
	FreezeStates storage.FreezeStateStore

	// Activity receives one analytics point per confirmed mint. Optional;
	// failures are logged and never block a mint.
	Activity storage.MintActivityStore

	Eligibility *eligibility.Engine

	// ProgramID is the campaign program address.
	ProgramID string

	// MaxSubmitAttempts bounds resubmission after blockhash expiry.
	MaxSubmitAttempts int

	Verbose bool
}

// Minter submits mint transactions for custodial buyer wallets and appends
// receipts for everything that confirms.
type Minter struct {
	ledger       solana.LedgerClient
	campaigns    storage.CampaignStore
	receipts     storage.ReceiptStore
	freezeStates storage.FreezeStateStore
	activity     storage.MintActivityStore
	eligibility  *eligibility.Engine
	programID    string

	maxAttempts int
	verbose     bool
}

// NewMinter creates a minter.
func NewMinter(opts Options) (*Minter, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if opts.Campaigns == nil || opts.Receipts == nil || opts.FreezeStates == nil {
		return nil, fmt.Errorf("campaign, receipt and freeze state stores are required")
	}
	if opts.Eligibility == nil {
		return nil, fmt.Errorf("eligibility engine is required")
	}
	if opts.ProgramID == "" {
		return nil, fmt.Errorf("program id is required")
	}
	if opts.MaxSubmitAttempts <= 0 {
		opts.MaxSubmitAttempts = DefaultSubmitAttempts
	}

	return &Minter{
		ledger:       opts.Ledger,
		campaigns:    opts.Campaigns,
		receipts:     opts.Receipts,
		freezeStates: opts.FreezeStates,
		activity:     opts.Activity,
		eligibility:  opts.Eligibility,
		programID:    opts.ProgramID,
		maxAttempts:  opts.MaxSubmitAttempts,
		verbose:      opts.Verbose,
	}, nil
}

// Mint mints one item under the named group for a custodial buyer wallet.
// The eligibility pre-check is advisory; the guard program re-evaluates at
// commit time and failed attempts there pay the bot tax. A retried
// submission uses a fresh asset identity, so a late-landing earlier attempt
// can never collide with the retry.
func (m *Minter) Mint(ctx context.Context, campaignAddress, label string, buyer *solana.Keypair) (*Result, error) {
	c, err := m.campaigns.GetByAddress(ctx, campaignAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("campaign %s: %w", campaignAddress, campaign.ErrNotFound)
		}
		return nil, fmt.Errorf("load campaign %s: %w", campaignAddress, err)
	}

	group := c.Group(label)
	if group == nil {
		return nil, fmt.Errorf("group %q: %w", label, campaign.ErrNotFound)
	}

	if c.ItemsRemaining() <= 0 {
		return nil, fmt.Errorf("campaign %s: %w", campaignAddress, ErrSoldOut)
	}

	eval, err := m.eligibility.Evaluate(ctx, campaignAddress, label, buyer.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("evaluate eligibility: %w", err)
	}
	if !eval.IsEligible {
		reason := "not_allowlisted"
		if group.MintLimit != nil && eval.WalletMintCount >= *group.MintLimit {
			reason = "mint_cap"
		}
		observability.RecordEligibilityRejection(label, reason)
		return nil, fmt.Errorf("wallet %s in group %q (%s): %w", buyer.PublicKey(), label, reason, ErrNotEligible)
	}

	var asset *solana.Keypair
	sig, slot, err := m.submit(ctx, func(blockhash *solana.Blockhash) ([]byte, error) {
		key, err := solana.NewKeypair()
		if err != nil {
			return nil, fmt.Errorf("generate asset keypair: %w", err)
		}
		asset = key

		instr, err := campaign.MintInstruction(m.programID, campaignAddress, buyer.PublicKey(), key.PublicKey(), label)
		if err != nil {
			return nil, err
		}
		tx, err := solana.NewTransaction(buyer.PublicKey(), blockhash.Hash, instr)
		if err != nil {
			return nil, fmt.Errorf("build transaction: %w", err)
		}
		if err := tx.Sign(buyer, key); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		return tx.Serialize()
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	receipt := &domain.Receipt{
		ReceiptID:       pda.ComputeReceiptID(campaignAddress, label, buyer.PublicKey(), asset.PublicKey(), sig),
		CampaignAddress: campaignAddress,
		GroupLabel:      label,
		BuyerAddress:    buyer.PublicKey(),
		AssetAddress:    asset.PublicKey(),
		TxSignature:     sig,
		Slot:            slot,
		Timestamp:       now,
	}
	if err := m.receipts.Insert(ctx, receipt); err != nil {
		return nil, fmt.Errorf("append receipt %s: %w", receipt.ReceiptID, err)
	}

	result := &Result{Receipt: receipt, AssetAddress: asset.PublicKey()}

	if group.FreezeEnabled() {
		expiry := now + group.FreezePeriodSeconds()*1000
		state := &domain.AssetFreezeState{
			AssetAddress:    asset.PublicKey(),
			CampaignAddress: campaignAddress,
			GroupLabel:      label,
			OwnerAddress:    buyer.PublicKey(),
			State:           domain.FreezeStateFrozen,
			FreezeExpiry:    expiry,
			CreatedAt:       now,
		}
		if err := m.freezeStates.Insert(ctx, state); err != nil {
			return nil, fmt.Errorf("record freeze state for %s: %w", asset.PublicKey(), err)
		}
		result.Frozen = true
		result.FreezeExpiry = expiry
		observability.RecordFreeze()
	}

	// Atomic increment: concurrent mints must not lose mirror updates.
	if err := m.campaigns.IncrementCounters(ctx, campaignAddress, 0, 1); err != nil {
		return nil, fmt.Errorf("update counters for %s: %w", campaignAddress, err)
	}

	m.recordActivity(ctx, &domain.MintActivityPoint{
		CampaignAddress: campaignAddress,
		GroupLabel:      label,
		TimestampMs:     now,
		Slot:            slot,
		Lamports:        group.Price,
		MintCount:       1,
	})

	m.log("minted %s for %s in group %q of campaign %s (sig %s)",
		asset.PublicKey(), buyer.PublicKey(), label, campaignAddress, sig)
	observability.RecordMint(label, float64(now)/1000)

	return result, nil
}

// MintMany mints up to count items sequentially for one buyer. It returns
// the results that confirmed before the first failure.
func (m *Minter) MintMany(ctx context.Context, campaignAddress, label string, buyer *solana.Keypair, count int) ([]*Result, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d must be positive", campaign.ErrValidation, count)
	}

	results := make([]*Result, 0, count)
	for i := 0; i < count; i++ {
		res, err := m.Mint(ctx, campaignAddress, label, buyer)
		if err != nil {
			return results, fmt.Errorf("mint %d/%d: %w", i+1, count, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// submit runs the submit-and-confirm loop with a fresh blockhash per
// attempt.
func (m *Minter) submit(ctx context.Context, build func(blockhash *solana.Blockhash) ([]byte, error)) (string, int64, error) {
	var lastErr error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		blockhash, err := m.ledger.GetLatestBlockhash(ctx)
		if err != nil {
			return "", 0, fmt.Errorf("get blockhash: %w", err)
		}

		wire, err := build(blockhash)
		if err != nil {
			return "", 0, err
		}

		sig, err := m.ledger.SendTransaction(ctx, wire)
		if err != nil {
			if solana.IsBlockhashNotFound(err) {
				m.log("mint attempt %d/%d expired before landing, retrying", attempt, m.maxAttempts)
				observability.RecordLedgerSubmission("expired")
				lastErr = err
				continue
			}
			observability.RecordLedgerSubmission("failed")
			return "", 0, &campaign.SubmissionError{Op: "mint", Err: err}
		}

		status, err := m.ledger.Confirm(ctx, sig, blockhash.LastValidBlockHeight)
		if err != nil {
			if solana.IsBlockhashNotFound(err) {
				m.log("mint attempt %d/%d expired before confirmation, retrying", attempt, m.maxAttempts)
				observability.RecordLedgerSubmission("expired")
				lastErr = err
				continue
			}
			observability.RecordLedgerSubmission("failed")
			return "", 0, &campaign.SubmissionError{Op: "mint", Signature: sig, Err: err}
		}

		observability.RecordLedgerSubmission("confirmed")
		return sig, status.Slot, nil
	}

	observability.RecordLedgerSubmission("exhausted")
	return "", 0, &campaign.SubmissionError{Op: "mint", Retryable: true, Err: fmt.Errorf("gave up after %d attempts: %w", m.maxAttempts, lastErr)}
}

// recordActivity is best effort: analytics never block the mint path.
func (m *Minter) recordActivity(ctx context.Context, point *domain.MintActivityPoint) {
	if m.activity == nil {
		return
	}
	if err := m.activity.InsertBulk(ctx, []*domain.MintActivityPoint{point}); err != nil {
		log.Printf("[mint] record activity for %s: %v", point.CampaignAddress, err)
	}
}

func (m *Minter) log(format string, args ...interface{}) {
	if m.verbose {
		log.Printf("[mint] "+format, args...)
	}
}
