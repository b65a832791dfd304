package domain

import "fmt"

// Item is one mintable entry in a campaign. Indices are 0-based, contiguous
// and unique per campaign; items are immutable once insertion is confirmed.
type Item struct {
	Index  int    // position in the campaign, 0-based
	Name   string // display name
	URI    string // content reference (resolved off-ledger)
	Rarity string // rarity/trait attribute
}

// Validate checks a single item definition.
func (it *Item) Validate() error {
	if it.Index < 0 {
		return fmt.Errorf("item index %d is negative", it.Index)
	}
	if it.Name == "" {
		return fmt.Errorf("item %d has empty name", it.Index)
	}
	if it.URI == "" {
		return fmt.Errorf("item %d has empty uri", it.Index)
	}
	return nil
}

// ValidateItems checks that items form a contiguous 0-based index sequence.
func ValidateItems(items []Item) error {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return err
		}
		if items[i].Index != i {
			return fmt.Errorf("item at position %d has index %d, want %d", i, items[i].Index, i)
		}
	}
	return nil
}
