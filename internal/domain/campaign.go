package domain

import "fmt"

// Campaign represents an on-ledger minting campaign and its mirrored
// counters. Corresponds to campaigns table in PostgreSQL.
//
// The record store mirrors ledger truth; the ledger program is the arbiter
// of capacity at commit time.
type Campaign struct {
	Address        string  // PRIMARY KEY, base58 campaign account address
	Authority      string  // base58 authority public key
	ItemsAvailable int     // declared item capacity
	ItemsLoaded    int     // items inserted so far
	ItemsMinted    int     // items minted so far
	IsFullyLoaded  bool    // ItemsLoaded == ItemsAvailable
	Groups         []Group // ordered guard groups, submission order
	CreatedAt      int64   // record creation timestamp (ms)
	DeletedAt      *int64  // soft-delete timestamp (ms), nil if live
}

// ItemsRemaining returns the number of items still mintable.
func (c *Campaign) ItemsRemaining() int {
	return c.ItemsAvailable - c.ItemsMinted
}

// Validate checks the campaign counter invariant:
// ItemsMinted <= ItemsLoaded <= ItemsAvailable.
func (c *Campaign) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("campaign address is empty")
	}
	if c.Authority == "" {
		return fmt.Errorf("campaign authority is empty")
	}
	if c.ItemsAvailable < 0 {
		return fmt.Errorf("itemsAvailable %d is negative", c.ItemsAvailable)
	}
	if c.ItemsMinted > c.ItemsLoaded {
		return fmt.Errorf("itemsMinted %d exceeds itemsLoaded %d", c.ItemsMinted, c.ItemsLoaded)
	}
	if c.ItemsLoaded > c.ItemsAvailable {
		return fmt.Errorf("itemsLoaded %d exceeds itemsAvailable %d", c.ItemsLoaded, c.ItemsAvailable)
	}
	seen := make(map[string]struct{}, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		if _, dup := seen[g.Label]; dup {
			return fmt.Errorf("duplicate group label %q", g.Label)
		}
		seen[g.Label] = struct{}{}
		if err := g.Validate(); err != nil {
			return fmt.Errorf("group %q: %w", g.Label, err)
		}
	}
	return nil
}

// Group finds a group by label. Returns nil if absent.
func (c *Campaign) Group(label string) *Group {
	for i := range c.Groups {
		if c.Groups[i].Label == label {
			return &c.Groups[i]
		}
	}
	return nil
}
