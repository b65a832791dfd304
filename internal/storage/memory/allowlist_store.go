package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mint-campaign/internal/storage"
)

// AllowListStore is an in-memory implementation of storage.AllowListStore.
type AllowListStore struct {
	mu   sync.RWMutex
	data map[string]map[string]struct{} // group key -> wallet set
}

// NewAllowListStore creates a new in-memory allow-list store.
func NewAllowListStore() *AllowListStore {
	return &AllowListStore{
		data: make(map[string]map[string]struct{}),
	}
}

// Replace atomically replaces the membership set for a group.
func (s *AllowListStore) Replace(_ context.Context, campaignAddress, label string, wallets []string) error {
	if campaignAddress == "" || label == "" {
		return storage.ErrInvalidInput
	}

	set := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		if w == "" {
			return storage.ErrInvalidInput
		}
		set[w] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[groupKey(campaignAddress, label)] = set
	return nil
}

// IsMember reports whether a wallet is in a group's allow-list.
func (s *AllowListStore) IsMember(_ context.Context, campaignAddress, label, wallet string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, exists := s.data[groupKey(campaignAddress, label)]
	if !exists {
		return false, nil
	}
	_, member := set[wallet]
	return member, nil
}

// GetMembers retrieves all wallets for a group, sorted ascending.
func (s *AllowListStore) GetMembers(_ context.Context, campaignAddress, label string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.data[groupKey(campaignAddress, label)]
	members := make([]string, 0, len(set))
	for w := range set {
		members = append(members, w)
	}
	sort.Strings(members)
	return members, nil
}

var _ storage.AllowListStore = (*AllowListStore)(nil)
