package allowlist

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
	"solana-mint-campaign/internal/storage/memory"
)

const testCampaign = "Camp1111111111111111111111111111111111111111"

func newTestManager(t *testing.T, restricted bool) *Manager {
	t.Helper()

	groups := memory.NewGroupStore()
	err := groups.Insert(context.Background(), &domain.Group{
		CampaignAddress: testCampaign,
		Label:           "vip",
		DisplayLabel:    "VIP",
		Restricted:      restricted,
	})
	if err != nil {
		t.Fatalf("insert group: %v", err)
	}

	return NewManager(groups, memory.NewAllowListStore())
}

func TestManager_SetAllowList(t *testing.T) {
	m := newTestManager(t, true)
	ctx := context.Background()

	root, err := m.SetAllowList(ctx, testCampaign, "vip", []string{"walletB", "walletA", "walletA"})
	if err != nil {
		t.Fatalf("SetAllowList: %v", err)
	}

	if len(root) != 32 {
		t.Errorf("expected 32-byte root, got %d bytes", len(root))
	}

	ok, err := m.IsMember(ctx, testCampaign, "vip", "walletA")
	if err != nil {
		t.Fatalf("IsMember: %v", err)
	}
	if !ok {
		t.Error("walletA should be a member")
	}

	ok, err = m.IsMember(ctx, testCampaign, "vip", "walletC")
	if err != nil {
		t.Fatalf("IsMember: %v", err)
	}
	if ok {
		t.Error("walletC should not be a member")
	}

	// Duplicates collapsed
	members, err := m.Members(ctx, testCampaign, "vip")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("expected 2 members, got %d", len(members))
	}
}

func TestManager_SetAllowList_GroupNotFound(t *testing.T) {
	m := newTestManager(t, true)

	_, err := m.SetAllowList(context.Background(), testCampaign, "missing", []string{"walletA"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_SetAllowList_UnrestrictedGroup(t *testing.T) {
	m := newTestManager(t, false)

	_, err := m.SetAllowList(context.Background(), testCampaign, "vip", []string{"walletA"})
	if !errors.Is(err, ErrGroupNotRestricted) {
		t.Errorf("expected ErrGroupNotRestricted, got %v", err)
	}
}

func TestManager_ReplacementChangesMembership(t *testing.T) {
	m := newTestManager(t, true)
	ctx := context.Background()

	if _, err := m.SetAllowList(ctx, testCampaign, "vip", []string{"walletA", "walletB"}); err != nil {
		t.Fatalf("SetAllowList: %v", err)
	}

	ok, _ := m.IsMember(ctx, testCampaign, "vip", "walletC")
	if ok {
		t.Error("walletC should not be eligible before replacement")
	}

	if _, err := m.SetAllowList(ctx, testCampaign, "vip", []string{"walletA", "walletB", "walletC"}); err != nil {
		t.Fatalf("SetAllowList: %v", err)
	}

	ok, _ = m.IsMember(ctx, testCampaign, "vip", "walletC")
	if !ok {
		t.Error("walletC should be eligible after replacement")
	}
}

func TestComputeRoot_OrderIndependent(t *testing.T) {
	a := ComputeRoot([]string{"walletA", "walletB", "walletC"})
	b := ComputeRoot([]string{"walletC", "walletA", "walletB"})

	if !bytes.Equal(a, b) {
		t.Error("root must not depend on input order")
	}
}

func TestComputeRoot_DuplicatesCollapse(t *testing.T) {
	a := ComputeRoot([]string{"walletA", "walletB"})
	b := ComputeRoot([]string{"walletA", "walletA", "walletB", "walletB"})

	if !bytes.Equal(a, b) {
		t.Error("duplicates must not change the commitment")
	}
}

func TestComputeRoot_MembershipChangesRoot(t *testing.T) {
	a := ComputeRoot([]string{"walletA", "walletB"})
	b := ComputeRoot([]string{"walletA", "walletB", "walletC"})

	if bytes.Equal(a, b) {
		t.Error("different membership must produce different commitments")
	}
}

func TestComputeRoot_Empty(t *testing.T) {
	root := ComputeRoot(nil)
	if len(root) != 32 {
		t.Errorf("expected 32-byte empty root, got %d bytes", len(root))
	}
}

func TestManager_Root_MatchesSetAllowList(t *testing.T) {
	m := newTestManager(t, true)
	ctx := context.Background()

	setRoot, err := m.SetAllowList(ctx, testCampaign, "vip", []string{"walletB", "walletA"})
	if err != nil {
		t.Fatalf("SetAllowList: %v", err)
	}

	storedRoot, err := m.Root(ctx, testCampaign, "vip")
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	if !bytes.Equal(setRoot, storedRoot) {
		t.Error("recomputed root must match the commitment returned on mutation")
	}
}
