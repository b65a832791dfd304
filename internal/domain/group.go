package domain

import "fmt"

// Group represents one labeled guard group within a campaign. Groups are
// immutable once registered except for allow-list membership.
// Corresponds to campaign_groups table in PostgreSQL.
type Group struct {
	CampaignAddress string // owning campaign
	Label           string // unique within campaign
	DisplayLabel    string // human-readable label
	StartDate       *int64 // mint window start (ms), nil = no lower bound
	EndDate         *int64 // mint window end (ms), nil = no upper bound
	Price           int64  // mint price in lamports
	MintLimit       *int   // per-wallet mint cap, nil = uncapped
	Supply          *int   // group-scoped supply cap, nil = uncapped
	SplToken        string // payment token mint address
	Restricted      bool   // requires allow-list membership
	FreezePeriod    *int64 // collateral freeze period (seconds), nil = default
	CreatedAt       int64  // record creation timestamp (ms)
}

// Validate rejects malformed group definitions before any submission.
func (g *Group) Validate() error {
	if g.Label == "" {
		return fmt.Errorf("group label is empty")
	}
	if g.Price < 0 {
		return fmt.Errorf("price %d is negative", g.Price)
	}
	if g.MintLimit != nil && *g.MintLimit <= 0 {
		return fmt.Errorf("mint limit %d must be positive", *g.MintLimit)
	}
	if g.Supply != nil && *g.Supply <= 0 {
		return fmt.Errorf("supply %d must be positive", *g.Supply)
	}
	if g.StartDate != nil && g.EndDate != nil && *g.EndDate <= *g.StartDate {
		return fmt.Errorf("end date %d is not after start date %d", *g.EndDate, *g.StartDate)
	}
	if g.FreezePeriod != nil && *g.FreezePeriod <= 0 {
		return fmt.Errorf("freeze period %d must be positive", *g.FreezePeriod)
	}
	return nil
}

// IsPublic reports whether this is the open group that admits any wallet.
func (g *Group) IsPublic() bool {
	return g.Label == PublicGroupLabel
}

// FreezeEnabled reports whether mints in this group escrow payment under a
// collateral freeze.
func (g *Group) FreezeEnabled() bool {
	return g.FreezePeriod != nil
}

// FreezePeriodSeconds returns the effective freeze period for the group.
func (g *Group) FreezePeriodSeconds() int64 {
	if g.FreezePeriod != nil {
		return *g.FreezePeriod
	}
	return DefaultFreezePeriodDays * DaySeconds
}

// Guards builds the group's guard set in evaluation order. Allow-list guards
// for restricted groups require a Merkle root computed by the allow-list
// manager; callers supply it via root (nil for unrestricted groups).
func (g *Group) Guards(destination string, root []byte) []Guard {
	var guards []Guard

	if g.StartDate != nil || g.EndDate != nil {
		var start, end int64
		if g.StartDate != nil {
			start = *g.StartDate
		}
		if g.EndDate != nil {
			end = *g.EndDate
		}
		guards = append(guards, TimeWindowGuard{StartMs: start, EndMs: end})
	}

	if g.Restricted {
		guards = append(guards, AllowListGuard{MerkleRoot: root})
	}

	if g.FreezeEnabled() {
		// Paid funds stay escrowed until thaw.
		guards = append(guards, FreezeGuard{
			Lamports:      g.Price,
			Destination:   destination,
			PeriodSeconds: g.FreezePeriodSeconds(),
		})
	} else {
		guards = append(guards, PaymentGuard{
			Lamports:    g.Price,
			Destination: destination,
		})
	}

	if g.MintLimit != nil {
		guards = append(guards, MintCapGuard{ID: PublicGroupMintLimitID, Limit: *g.MintLimit})
	}

	return guards
}
