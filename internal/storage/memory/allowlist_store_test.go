package memory

import (
	"context"
	"reflect"
	"testing"
)

func TestAllowListStore_ReplaceDeduplicates(t *testing.T) {
	store := NewAllowListStore()
	ctx := context.Background()

	err := store.Replace(ctx, "cmA", "vip", []string{"walletB", "walletA", "walletB"})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	members, err := store.GetMembers(ctx, "cmA", "vip")
	if err != nil {
		t.Fatalf("GetMembers failed: %v", err)
	}

	want := []string{"walletA", "walletB"}
	if !reflect.DeepEqual(members, want) {
		t.Errorf("Members: got %v, want %v", members, want)
	}
}

func TestAllowListStore_ReplaceIsFullReplacement(t *testing.T) {
	store := NewAllowListStore()
	ctx := context.Background()

	if err := store.Replace(ctx, "cmA", "vip", []string{"walletA", "walletB"}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := store.Replace(ctx, "cmA", "vip", []string{"walletC"}); err != nil {
		t.Fatalf("Second replace failed: %v", err)
	}

	gone, err := store.IsMember(ctx, "cmA", "vip", "walletA")
	if err != nil {
		t.Fatalf("IsMember failed: %v", err)
	}
	if gone {
		t.Error("walletA should have been replaced out of the allow-list")
	}

	kept, _ := store.IsMember(ctx, "cmA", "vip", "walletC")
	if !kept {
		t.Error("walletC should be a member")
	}
}

func TestAllowListStore_EmptyGroup(t *testing.T) {
	store := NewAllowListStore()
	ctx := context.Background()

	member, err := store.IsMember(ctx, "cmA", "vip", "walletA")
	if err != nil {
		t.Fatalf("IsMember failed: %v", err)
	}
	if member {
		t.Error("Expected non-member for unknown group")
	}

	members, err := store.GetMembers(ctx, "cmA", "vip")
	if err != nil {
		t.Fatalf("GetMembers failed: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("Expected empty member list, got %v", members)
	}
}
