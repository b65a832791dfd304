// Package lifecycle drives the freeze lifecycle of minted assets: thawing
// individual assets after their freeze period and unlocking escrowed funds
// to the campaign authority.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-mint-campaign/internal/campaign"
	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/observability"
	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/storage"
)

// DefaultSubmitAttempts bounds resubmissions after an expired blockhash.
const DefaultSubmitAttempts = 3

// UnlockCondition decides whether a group's escrow may be drained. states
// holds every freeze state recorded for the group.
type UnlockCondition func(nowMs int64, states []*domain.AssetFreezeState) bool

// DefaultUnlockCondition permits unlock once every frozen asset is either
// thawed or past its freeze expiry. An escrow with no frozen mints may be
// drained at any time.
func DefaultUnlockCondition(nowMs int64, states []*domain.AssetFreezeState) bool {
	for _, s := range states {
		if s.State == domain.FreezeStateFrozen && !s.Thawable(nowMs) {
			return false
		}
	}
	return true
}

// Options configures a Controller.
type Options struct {
	Ledger       solana.LedgerClient
	Campaigns    storage.CampaignStore
	FreezeStates storage.FreezeStateStore

	// Authority signs and pays for thaw and unlock submissions.
	Authority *solana.Keypair

	// ProgramID is the campaign program address.
	ProgramID string

	// Condition gates UnlockFunds. Defaults to DefaultUnlockCondition.
	Condition UnlockCondition

	// Now reports the current time in ms. Defaults to the wall clock.
	Now func() int64

	// MaxSubmitAttempts bounds resubmission after blockhash expiry.
	MaxSubmitAttempts int

	Verbose bool
}

// Controller performs thaw and unlock-funds operations.
type Controller struct {
	ledger       solana.LedgerClient
	campaigns    storage.CampaignStore
	freezeStates storage.FreezeStateStore
	authority    *solana.Keypair
	programID    string
	condition    UnlockCondition
	now          func() int64

	maxAttempts int
	verbose     bool
}

// NewController creates a lifecycle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if opts.Campaigns == nil || opts.FreezeStates == nil {
		return nil, fmt.Errorf("campaign and freeze state stores are required")
	}
	if opts.Authority == nil {
		return nil, fmt.Errorf("authority keypair is required")
	}
	if opts.ProgramID == "" {
		return nil, fmt.Errorf("program id is required")
	}
	if opts.Condition == nil {
		opts.Condition = DefaultUnlockCondition
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().UnixMilli() }
	}
	if opts.MaxSubmitAttempts <= 0 {
		opts.MaxSubmitAttempts = DefaultSubmitAttempts
	}

	return &Controller{
		ledger:       opts.Ledger,
		campaigns:    opts.Campaigns,
		freezeStates: opts.FreezeStates,
		authority:    opts.Authority,
		programID:    opts.ProgramID,
		condition:    opts.Condition,
		now:          opts.Now,
		maxAttempts:  opts.MaxSubmitAttempts,
		verbose:      opts.Verbose,
	}, nil
}

// Thaw releases the freeze on one minted asset once its freeze period has
// elapsed. Thawing is permissionless on the ledger; here the service
// authority pays the fee. The state transition is one way: a thawed asset
// is never re-frozen.
func (c *Controller) Thaw(ctx context.Context, assetAddress string) (string, error) {
	state, err := c.freezeStates.GetByAsset(ctx, assetAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("asset %s: %w", assetAddress, campaign.ErrNotFound)
		}
		return "", fmt.Errorf("load freeze state for %s: %w", assetAddress, err)
	}

	if state.State == domain.FreezeStateUnlocked {
		return "", fmt.Errorf("asset %s already thawed: %w", assetAddress, campaign.ErrConflict)
	}

	now := c.now()
	if !state.Thawable(now) {
		return "", fmt.Errorf("asset %s frozen until %d (now %d): %w",
			assetAddress, state.FreezeExpiry, now, campaign.ErrTooEarly)
	}

	payer := c.authority.PublicKey()
	sig, _, err := c.submit(ctx, "thaw", func(blockhash *solana.Blockhash) ([]byte, error) {
		instr, err := campaign.ThawInstruction(c.programID, state.CampaignAddress, payer, assetAddress, state.GroupLabel)
		if err != nil {
			return nil, err
		}
		tx, err := solana.NewTransaction(payer, blockhash.Hash, instr)
		if err != nil {
			return nil, fmt.Errorf("build transaction: %w", err)
		}
		if err := tx.Sign(c.authority); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		return tx.Serialize()
	})
	if err != nil {
		return "", err
	}

	if err := c.freezeStates.MarkUnlocked(ctx, assetAddress); err != nil {
		if errors.Is(err, storage.ErrAlreadyUnlocked) {
			return "", fmt.Errorf("asset %s already thawed: %w", assetAddress, campaign.ErrConflict)
		}
		return "", fmt.Errorf("mark %s unlocked: %w", assetAddress, err)
	}

	c.log("thawed asset %s in campaign %s (sig %s)", assetAddress, state.CampaignAddress, sig)
	observability.RecordThaw()

	return sig, nil
}

// ThawBatch thaws every thawable frozen asset of a campaign. Assets still
// inside their freeze period are skipped, not failed.
func (c *Controller) ThawBatch(ctx context.Context, campaignAddress string) (thawed []string, err error) {
	states, err := c.freezeStates.GetByCampaign(ctx, campaignAddress)
	if err != nil {
		return nil, fmt.Errorf("load freeze states for %s: %w", campaignAddress, err)
	}

	now := c.now()
	for _, s := range states {
		if s.State != domain.FreezeStateFrozen || !s.Thawable(now) {
			continue
		}
		if _, err := c.Thaw(ctx, s.AssetAddress); err != nil {
			return thawed, fmt.Errorf("thaw %s: %w", s.AssetAddress, err)
		}
		thawed = append(thawed, s.AssetAddress)
	}
	return thawed, nil
}

// UnlockFunds drains a group's freeze escrow to the campaign authority.
// Only the authority may unlock, and only once the unlock condition holds
// for every frozen mint of the group.
func (c *Controller) UnlockFunds(ctx context.Context, campaignAddress, label string) (string, error) {
	camp, err := c.campaigns.GetByAddress(ctx, campaignAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("campaign %s: %w", campaignAddress, campaign.ErrNotFound)
		}
		return "", fmt.Errorf("load campaign %s: %w", campaignAddress, err)
	}

	// Authority is checked before the condition so a non-authority caller
	// learns nothing about escrow readiness.
	if camp.Authority != c.authority.PublicKey() {
		return "", fmt.Errorf("campaign %s: %w", campaignAddress, campaign.ErrUnauthorized)
	}

	group := camp.Group(label)
	if group == nil {
		return "", fmt.Errorf("group %q: %w", label, campaign.ErrNotFound)
	}
	if !group.FreezeEnabled() {
		return "", fmt.Errorf("group %q has no freeze guard: %w", label, campaign.ErrConflict)
	}

	states, err := c.freezeStates.GetByCampaign(ctx, campaignAddress)
	if err != nil {
		return "", fmt.Errorf("load freeze states for %s: %w", campaignAddress, err)
	}
	groupStates := states[:0:0]
	for _, s := range states {
		if s.GroupLabel == label {
			groupStates = append(groupStates, s)
		}
	}

	if !c.condition(c.now(), groupStates) {
		return "", fmt.Errorf("group %q escrow not releasable yet: %w", label, campaign.ErrPreconditionFailed)
	}

	authority := c.authority.PublicKey()
	sig, _, err := c.submit(ctx, "unlock funds", func(blockhash *solana.Blockhash) ([]byte, error) {
		instr, err := campaign.UnlockFundsInstruction(c.programID, campaignAddress, authority, label)
		if err != nil {
			return nil, err
		}
		tx, err := solana.NewTransaction(authority, blockhash.Hash, instr)
		if err != nil {
			return nil, fmt.Errorf("build transaction: %w", err)
		}
		if err := tx.Sign(c.authority); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		return tx.Serialize()
	})
	if err != nil {
		return "", err
	}

	c.log("unlocked escrow for group %q of campaign %s (sig %s)", label, campaignAddress, sig)
	observability.RecordFundsUnlocked()

	return sig, nil
}

// submit runs the submit-and-confirm loop with a fresh blockhash per
// attempt.
func (c *Controller) submit(ctx context.Context, op string, build func(blockhash *solana.Blockhash) ([]byte, error)) (string, int64, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		blockhash, err := c.ledger.GetLatestBlockhash(ctx)
		if err != nil {
			return "", 0, fmt.Errorf("%s: get blockhash: %w", op, err)
		}

		wire, err := build(blockhash)
		if err != nil {
			return "", 0, fmt.Errorf("%s: %w", op, err)
		}

		sig, err := c.ledger.SendTransaction(ctx, wire)
		if err != nil {
			if solana.IsBlockhashNotFound(err) {
				c.log("%s: attempt %d/%d expired, retrying", op, attempt, c.maxAttempts)
				observability.RecordLedgerSubmission("expired")
				lastErr = err
				continue
			}
			observability.RecordLedgerSubmission("failed")
			return "", 0, &campaign.SubmissionError{Op: op, Err: err}
		}

		status, err := c.ledger.Confirm(ctx, sig, blockhash.LastValidBlockHeight)
		if err != nil {
			if solana.IsBlockhashNotFound(err) {
				c.log("%s: attempt %d/%d expired before confirmation, retrying", op, attempt, c.maxAttempts)
				observability.RecordLedgerSubmission("expired")
				lastErr = err
				continue
			}
			observability.RecordLedgerSubmission("failed")
			return "", 0, &campaign.SubmissionError{Op: op, Signature: sig, Err: err}
		}

		observability.RecordLedgerSubmission("confirmed")
		return sig, status.Slot, nil
	}

	observability.RecordLedgerSubmission("exhausted")
	return "", 0, &campaign.SubmissionError{Op: op, Retryable: true, Err: fmt.Errorf("gave up after %d attempts: %w", c.maxAttempts, lastErr)}
}

func (c *Controller) log(format string, args ...interface{}) {
	if c.verbose {
		log.Printf("[lifecycle] "+format, args...)
	}
}
