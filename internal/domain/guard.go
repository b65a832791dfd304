package domain

import "fmt"

// GuardKind identifies a guard variant.
type GuardKind string

const (
	GuardKindTimeWindow GuardKind = "TIME_WINDOW"
	GuardKindPayment    GuardKind = "PAYMENT"
	GuardKindAllowList  GuardKind = "ALLOW_LIST"
	GuardKindMintCap    GuardKind = "MINT_CAP"
	GuardKindFreeze     GuardKind = "FREEZE"
	GuardKindBotTax     GuardKind = "BOT_TAX"
)

// Guard is one rule within a guard group. The variant set is closed: each
// guard kind is a distinct struct implementing this interface, so guard
// composition is checked at compile time.
type Guard interface {
	Kind() GuardKind
	Validate() error

	// sealed prevents implementations outside this package.
	sealed()
}

// TimeWindowGuard restricts minting to [StartMs, EndMs). A zero bound means
// the window is open on that side.
type TimeWindowGuard struct {
	StartMs int64
	EndMs   int64
}

func (TimeWindowGuard) Kind() GuardKind { return GuardKindTimeWindow }
func (TimeWindowGuard) sealed()         {}

func (g TimeWindowGuard) Validate() error {
	if g.StartMs != 0 && g.EndMs != 0 && g.EndMs <= g.StartMs {
		return fmt.Errorf("time window end %d is not after start %d", g.EndMs, g.StartMs)
	}
	return nil
}

// PaymentGuard charges a flat lamport payment to a destination wallet.
type PaymentGuard struct {
	Lamports    int64
	Destination string
}

func (PaymentGuard) Kind() GuardKind { return GuardKindPayment }
func (PaymentGuard) sealed()         {}

func (g PaymentGuard) Validate() error {
	if g.Lamports < 0 {
		return fmt.Errorf("payment of %d lamports is negative", g.Lamports)
	}
	if g.Destination == "" {
		return fmt.Errorf("payment destination is empty")
	}
	return nil
}

// AllowListGuard gates minting on a Merkle proof against MerkleRoot.
type AllowListGuard struct {
	MerkleRoot []byte
}

func (AllowListGuard) Kind() GuardKind { return GuardKindAllowList }
func (AllowListGuard) sealed()         {}

func (g AllowListGuard) Validate() error {
	if len(g.MerkleRoot) != 32 {
		return fmt.Errorf("allow-list merkle root must be 32 bytes, got %d", len(g.MerkleRoot))
	}
	return nil
}

// MintCapGuard limits mints per wallet, tracked by a counter account keyed
// by ID.
type MintCapGuard struct {
	ID    int
	Limit int
}

func (MintCapGuard) Kind() GuardKind { return GuardKindMintCap }
func (MintCapGuard) sealed()         {}

func (g MintCapGuard) Validate() error {
	if g.Limit <= 0 {
		return fmt.Errorf("mint cap %d must be positive", g.Limit)
	}
	return nil
}

// FreezeGuard charges a payment held in a freeze escrow until the freeze
// period elapses and the asset is thawed.
type FreezeGuard struct {
	Lamports      int64
	Destination   string
	PeriodSeconds int64
}

func (FreezeGuard) Kind() GuardKind { return GuardKindFreeze }
func (FreezeGuard) sealed()         {}

func (g FreezeGuard) Validate() error {
	if g.Lamports < 0 {
		return fmt.Errorf("freeze payment of %d lamports is negative", g.Lamports)
	}
	if g.Destination == "" {
		return fmt.Errorf("freeze destination is empty")
	}
	if g.PeriodSeconds <= 0 {
		return fmt.Errorf("freeze period %d must be positive", g.PeriodSeconds)
	}
	return nil
}

// BotTaxGuard charges a punitive fee on any failed mint attempt. It must be
// the terminal instruction in a submitted guard set, or it cannot intercept
// failed mints.
type BotTaxGuard struct {
	Lamports        int64
	LastInstruction bool
}

func (BotTaxGuard) Kind() GuardKind { return GuardKindBotTax }
func (BotTaxGuard) sealed()         {}

func (g BotTaxGuard) Validate() error {
	if g.Lamports < 0 {
		return fmt.Errorf("bot tax of %d lamports is negative", g.Lamports)
	}
	return nil
}
