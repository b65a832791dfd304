// Package campaign creates campaigns and their guard groups on the ledger
// and mirrors confirmed state into the record stores.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-mint-campaign/internal/allowlist"
	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/notify"
	"solana-mint-campaign/internal/observability"
	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/storage"
)

// DefaultSubmitAttempts bounds resubmissions after an expired blockhash.
const DefaultSubmitAttempts = 3

// GroupConfig is one guard group definition plus its initial allow-list.
// Wallets are ignored for unrestricted groups.
type GroupConfig struct {
	Group   domain.Group
	Wallets []string
}

// CampaignConfig describes a campaign to create.
type CampaignConfig struct {
	ItemsAvailable int
	Groups         []GroupConfig
}

// Options configures a Builder.
type Options struct {
	Ledger     solana.LedgerClient
	Campaigns  storage.CampaignStore
	Groups     storage.GroupStore
	AllowLists *allowlist.Manager

	// Authority signs and pays for every submission.
	Authority *solana.Keypair

	// ProgramID is the campaign program address.
	ProgramID string

	// Notifier is told about each created campaign. Optional.
	Notifier notify.Notifier

	// MaxSubmitAttempts bounds resubmission after blockhash expiry.
	// Defaults to DefaultSubmitAttempts.
	MaxSubmitAttempts int

	Verbose bool
}

// Builder creates campaigns, registers groups and opens freeze escrows.
type Builder struct {
	ledger     solana.LedgerClient
	campaigns  storage.CampaignStore
	groups     storage.GroupStore
	allowLists *allowlist.Manager
	authority  *solana.Keypair
	programID  string
	notifier   notify.Notifier

	maxAttempts int
	verbose     bool
}

// NewBuilder creates a campaign builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if opts.Campaigns == nil || opts.Groups == nil {
		return nil, fmt.Errorf("campaign and group stores are required")
	}
	if opts.AllowLists == nil {
		return nil, fmt.Errorf("allow-list manager is required")
	}
	if opts.Authority == nil {
		return nil, fmt.Errorf("authority keypair is required")
	}
	if opts.ProgramID == "" {
		return nil, fmt.Errorf("program id is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.MaxSubmitAttempts <= 0 {
		opts.MaxSubmitAttempts = DefaultSubmitAttempts
	}

	return &Builder{
		ledger:      opts.Ledger,
		campaigns:   opts.Campaigns,
		groups:      opts.Groups,
		allowLists:  opts.AllowLists,
		authority:   opts.Authority,
		programID:   opts.ProgramID,
		notifier:    opts.Notifier,
		maxAttempts: opts.MaxSubmitAttempts,
		verbose:     opts.Verbose,
	}, nil
}

// Authority returns the builder's authority public key.
func (b *Builder) Authority() string {
	return b.authority.PublicKey()
}

// CreateCampaign creates a campaign account with its full guard group set in
// one transaction, the bot tax armed last. Nothing is persisted unless the
// transaction confirms; a retried submission uses a fresh campaign identity
// so a late-landing earlier attempt can never collide with the retry.
func (b *Builder) CreateCampaign(ctx context.Context, cfg CampaignConfig) (*domain.Campaign, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	authority := b.authority.PublicKey()

	// Roots are computed up front so a bad wallet set fails before any
	// submission.
	roots := make(map[string][]byte, len(cfg.Groups))
	for _, gc := range cfg.Groups {
		if gc.Group.Restricted {
			roots[gc.Group.Label] = allowlist.ComputeRoot(gc.Wallets)
		}
	}

	var campaignKey *solana.Keypair

	sig, slot, err := b.submit(ctx, "create campaign", func(blockhash *solana.Blockhash) ([]byte, error) {
		key, err := solana.NewKeypair()
		if err != nil {
			return nil, fmt.Errorf("generate campaign keypair: %w", err)
		}
		campaignKey = key

		instrs := make([]solana.Instruction, 0, len(cfg.Groups)+2)
		instrs = append(instrs, initCampaignInstruction(b.programID, key.PublicKey(), authority, cfg.ItemsAvailable))

		for _, gc := range cfg.Groups {
			g := gc.Group
			reg, err := registerGroupInstruction(b.programID, key.PublicKey(), authority, g.Label, g.Guards(authority, roots[g.Label]))
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, reg)
		}

		instrs = append(instrs, setBotTaxInstruction(b.programID, key.PublicKey(), authority, domain.BotTaxGuard{
			Lamports:        domain.BotTaxLamports,
			LastInstruction: true,
		}))

		tx, err := solana.NewTransaction(authority, blockhash.Hash, instrs...)
		if err != nil {
			return nil, fmt.Errorf("build transaction: %w", err)
		}
		if err := tx.Sign(b.authority, key); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		return tx.Serialize()
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	campaign := &domain.Campaign{
		Address:        campaignKey.PublicKey(),
		Authority:      authority,
		ItemsAvailable: cfg.ItemsAvailable,
		CreatedAt:      now,
	}
	for _, gc := range cfg.Groups {
		g := gc.Group
		g.CampaignAddress = campaign.Address
		if g.SplToken == "" {
			g.SplToken = domain.WrappedSolMint
		}
		g.CreatedAt = now
		campaign.Groups = append(campaign.Groups, g)
	}

	if err := b.campaigns.Insert(ctx, campaign); err != nil {
		return nil, fmt.Errorf("persist campaign %s: %w", campaign.Address, err)
	}

	for _, gc := range cfg.Groups {
		if !gc.Group.Restricted {
			continue
		}
		if _, err := b.allowLists.SetAllowList(ctx, campaign.Address, gc.Group.Label, gc.Wallets); err != nil {
			return nil, fmt.Errorf("set allow list for %q: %w", gc.Group.Label, err)
		}
		observability.RecordAllowListUpdate()
	}

	b.log("created campaign %s with %d groups (sig %s, slot %d)", campaign.Address, len(campaign.Groups), sig, slot)
	observability.RecordCampaignCreated(len(campaign.Groups))

	go b.notifier.Notify(campaign.Address)

	return campaign, nil
}

// AddGroup registers one more guard group on an existing campaign.
func (b *Builder) AddGroup(ctx context.Context, campaignAddress string, cfg GroupConfig) (*domain.Group, error) {
	campaign, err := b.campaigns.GetByAddress(ctx, campaignAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("campaign %s: %w", campaignAddress, ErrNotFound)
		}
		return nil, fmt.Errorf("load campaign %s: %w", campaignAddress, err)
	}
	if campaign.Authority != b.authority.PublicKey() {
		return nil, fmt.Errorf("campaign %s: %w", campaignAddress, ErrUnauthorized)
	}

	g := cfg.Group
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if campaign.Group(g.Label) != nil {
		return nil, fmt.Errorf("group %q already registered: %w", g.Label, ErrConflict)
	}

	var root []byte
	if g.Restricted {
		root = allowlist.ComputeRoot(cfg.Wallets)
	}

	authority := b.authority.PublicKey()

	sig, slot, err := b.submit(ctx, "add group", func(blockhash *solana.Blockhash) ([]byte, error) {
		reg, err := registerGroupInstruction(b.programID, campaignAddress, authority, g.Label, g.Guards(authority, root))
		if err != nil {
			return nil, err
		}
		tx, err := solana.NewTransaction(authority, blockhash.Hash, reg)
		if err != nil {
			return nil, fmt.Errorf("build transaction: %w", err)
		}
		if err := tx.Sign(b.authority); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		return tx.Serialize()
	})
	if err != nil {
		return nil, err
	}

	g.CampaignAddress = campaignAddress
	if g.SplToken == "" {
		g.SplToken = domain.WrappedSolMint
	}
	g.CreatedAt = time.Now().UnixMilli()

	if err := b.groups.Insert(ctx, &g); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("group %q already registered: %w", g.Label, ErrConflict)
		}
		return nil, fmt.Errorf("persist group %q: %w", g.Label, err)
	}

	if g.Restricted {
		if _, err := b.allowLists.SetAllowList(ctx, campaignAddress, g.Label, cfg.Wallets); err != nil {
			return nil, fmt.Errorf("set allow list for %q: %w", g.Label, err)
		}
		observability.RecordAllowListUpdate()
	}

	b.log("registered group %q on campaign %s (sig %s, slot %d)", g.Label, campaignAddress, sig, slot)
	observability.RecordGroupRegistered()

	return &g, nil
}

// InitializeFreezeEscrow opens the escrow account that holds frozen mint
// payments for one group. The group must carry a freeze guard.
func (b *Builder) InitializeFreezeEscrow(ctx context.Context, campaignAddress, label string) (string, error) {
	campaign, err := b.campaigns.GetByAddress(ctx, campaignAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("campaign %s: %w", campaignAddress, ErrNotFound)
		}
		return "", fmt.Errorf("load campaign %s: %w", campaignAddress, err)
	}
	if campaign.Authority != b.authority.PublicKey() {
		return "", fmt.Errorf("campaign %s: %w", campaignAddress, ErrUnauthorized)
	}

	group := campaign.Group(label)
	if group == nil {
		return "", fmt.Errorf("group %q: %w", label, ErrNotFound)
	}
	if !group.FreezeEnabled() {
		return "", fmt.Errorf("group %q has no freeze guard: %w", label, ErrConflict)
	}

	authority := b.authority.PublicKey()

	sig, slot, err := b.submit(ctx, "init freeze escrow", func(blockhash *solana.Blockhash) ([]byte, error) {
		instr, err := initFreezeEscrowInstruction(b.programID, campaignAddress, authority, label, group.FreezePeriodSeconds())
		if err != nil {
			return nil, err
		}
		tx, err := solana.NewTransaction(authority, blockhash.Hash, instr)
		if err != nil {
			return nil, fmt.Errorf("build transaction: %w", err)
		}
		if err := tx.Sign(b.authority); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		return tx.Serialize()
	})
	if err != nil {
		return "", err
	}

	b.log("initialized freeze escrow for group %q on campaign %s (sig %s, slot %d)", label, campaignAddress, sig, slot)

	return sig, nil
}

// submit runs the submit-and-confirm loop. The build callback produces a
// signed wire transaction for the given blockhash; it runs once per attempt
// so every retry carries a fresh reference point.
func (b *Builder) submit(ctx context.Context, op string, build func(blockhash *solana.Blockhash) ([]byte, error)) (string, int64, error) {
	var lastErr error

	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		blockhash, err := b.ledger.GetLatestBlockhash(ctx)
		if err != nil {
			return "", 0, fmt.Errorf("%s: get blockhash: %w", op, err)
		}

		wire, err := build(blockhash)
		if err != nil {
			return "", 0, fmt.Errorf("%s: %w", op, err)
		}

		sig, err := b.ledger.SendTransaction(ctx, wire)
		if err != nil {
			if solana.IsBlockhashNotFound(err) {
				b.log("%s: attempt %d/%d expired before landing, retrying", op, attempt, b.maxAttempts)
				observability.RecordLedgerSubmission("expired")
				lastErr = err
				continue
			}
			observability.RecordLedgerSubmission("failed")
			return "", 0, &SubmissionError{Op: op, Err: err}
		}

		status, err := b.ledger.Confirm(ctx, sig, blockhash.LastValidBlockHeight)
		if err != nil {
			if solana.IsBlockhashNotFound(err) {
				b.log("%s: attempt %d/%d expired before confirmation, retrying", op, attempt, b.maxAttempts)
				observability.RecordLedgerSubmission("expired")
				lastErr = err
				continue
			}
			observability.RecordLedgerSubmission("failed")
			return "", 0, &SubmissionError{Op: op, Signature: sig, Err: err}
		}

		observability.RecordLedgerSubmission("confirmed")
		return sig, status.Slot, nil
	}

	observability.RecordLedgerSubmission("exhausted")
	return "", 0, &SubmissionError{Op: op, Retryable: true, Err: fmt.Errorf("gave up after %d attempts: %w", b.maxAttempts, lastErr)}
}

func validateConfig(cfg CampaignConfig) error {
	if cfg.ItemsAvailable <= 0 {
		return fmt.Errorf("itemsAvailable %d must be positive", cfg.ItemsAvailable)
	}
	if len(cfg.Groups) == 0 {
		return fmt.Errorf("campaign needs at least one group")
	}
	seen := make(map[string]struct{}, len(cfg.Groups))
	for _, gc := range cfg.Groups {
		if _, dup := seen[gc.Group.Label]; dup {
			return fmt.Errorf("duplicate group label %q", gc.Group.Label)
		}
		seen[gc.Group.Label] = struct{}{}
		if err := gc.Group.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) log(format string, args ...interface{}) {
	if b.verbose {
		log.Printf("[builder] "+format, args...)
	}
}
