// Package allowlist maintains per-group wallet membership and the Merkle
// commitment the ledger program verifies mints against.
package allowlist

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/transparency-dev/merkle/compact"
	"github.com/transparency-dev/merkle/rfc6962"

	"solana-mint-campaign/internal/storage"
)

// ErrGroupNotRestricted is returned when setting an allow-list on a group
// that admits any wallet.
var ErrGroupNotRestricted = errors.New("group is not restricted")

// Manager maintains allow-list membership and its commitment. The stored
// wallet set is the authoritative off-ledger membership source; the
// commitment exists for on-ledger verification only.
type Manager struct {
	groups storage.GroupStore
	lists  storage.AllowListStore
}

// NewManager creates an allow-list manager.
func NewManager(groups storage.GroupStore, lists storage.AllowListStore) *Manager {
	return &Manager{groups: groups, lists: lists}
}

// SetAllowList replaces the membership set for a restricted group and
// returns the new commitment. Past receipts are untouched; a removed
// wallet keeps its receipts but loses future eligibility.
func (m *Manager) SetAllowList(ctx context.Context, campaignAddress, label string, wallets []string) ([]byte, error) {
	group, err := m.groups.GetByLabel(ctx, campaignAddress, label)
	if err != nil {
		return nil, fmt.Errorf("resolve group %q: %w", label, err)
	}

	if !group.Restricted {
		return nil, fmt.Errorf("group %q: %w", label, ErrGroupNotRestricted)
	}

	deduped := dedupeSorted(wallets)

	if err := m.lists.Replace(ctx, campaignAddress, label, deduped); err != nil {
		return nil, fmt.Errorf("replace allow list: %w", err)
	}

	return ComputeRoot(deduped), nil
}

// IsMember reports whether a wallet is in the group's allow-list. This is
// the O(1) membership source for eligibility, not a proof walk.
func (m *Manager) IsMember(ctx context.Context, campaignAddress, label, wallet string) (bool, error) {
	return m.lists.IsMember(ctx, campaignAddress, label, wallet)
}

// Members returns the group's wallet set, sorted. Empty for unrestricted
// groups.
func (m *Manager) Members(ctx context.Context, campaignAddress, label string) ([]string, error) {
	return m.lists.GetMembers(ctx, campaignAddress, label)
}

// Root recomputes the commitment over the currently stored membership.
func (m *Manager) Root(ctx context.Context, campaignAddress, label string) ([]byte, error) {
	members, err := m.lists.GetMembers(ctx, campaignAddress, label)
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	return ComputeRoot(members), nil
}

// ComputeRoot computes the RFC 6962 Merkle root over the deduplicated,
// sorted wallet set. Input order does not affect the result.
func ComputeRoot(wallets []string) []byte {
	sorted := dedupeSorted(wallets)

	if len(sorted) == 0 {
		return rfc6962.DefaultHasher.EmptyRoot()
	}

	rf := compact.RangeFactory{Hash: rfc6962.DefaultHasher.HashChildren}
	r := rf.NewEmptyRange(0)
	for _, w := range sorted {
		// Append never fails with a nil visitor on a fresh range
		if err := r.Append(rfc6962.DefaultHasher.HashLeaf([]byte(w)), nil); err != nil {
			panic(fmt.Sprintf("allowlist: append leaf: %v", err))
		}
	}

	root, err := r.GetRootHash(nil)
	if err != nil {
		panic(fmt.Sprintf("allowlist: compute root: %v", err))
	}
	return root
}

// dedupeSorted collapses duplicates and sorts ascending.
func dedupeSorted(wallets []string) []string {
	seen := make(map[string]struct{}, len(wallets))
	out := make([]string, 0, len(wallets))
	for _, w := range wallets {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
