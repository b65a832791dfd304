package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-mint-campaign/internal/allowlist"
	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
	"solana-mint-campaign/internal/storage/memory"
)

const testCampaign = "Camp1111111111111111111111111111111111111111"

type testEnv struct {
	engine    *Engine
	groups    *memory.GroupStore
	receipts  *memory.ReceiptStore
	allowList *allowlist.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	groups := memory.NewGroupStore()
	receipts := memory.NewReceiptStore()
	lists := memory.NewAllowListStore()
	manager := allowlist.NewManager(groups, lists)

	ctx := context.Background()
	limit := 2

	mustInsert := func(g *domain.Group) {
		if err := groups.Insert(ctx, g); err != nil {
			t.Fatalf("insert group: %v", err)
		}
	}

	mustInsert(&domain.Group{
		CampaignAddress: testCampaign,
		Label:           domain.PublicGroupLabel,
		DisplayLabel:    "Public",
		MintLimit:       &limit,
	})
	mustInsert(&domain.Group{
		CampaignAddress: testCampaign,
		Label:           "vip",
		DisplayLabel:    "VIP",
		Restricted:      true,
	})

	return &testEnv{
		engine:    NewEngine(groups, receipts, manager),
		groups:    groups,
		receipts:  receipts,
		allowList: manager,
	}
}

func (e *testEnv) addReceipt(t *testing.T, label, wallet string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		err := e.receipts.Insert(context.Background(), &domain.Receipt{
			ReceiptID:       label + wallet + string(rune('a'+i)),
			CampaignAddress: testCampaign,
			GroupLabel:      label,
			BuyerAddress:    wallet,
			AssetAddress:    "Asset" + string(rune('a'+i)),
			Timestamp:       time.Now().UnixMilli(),
		})
		if err != nil {
			t.Fatalf("insert receipt: %v", err)
		}
	}
}

func TestEvaluate_PublicGroupAlwaysEligible(t *testing.T) {
	env := newTestEnv(t)

	eval, err := env.engine.Evaluate(context.Background(), testCampaign, domain.PublicGroupLabel, "walletX")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if !eval.IsEligible {
		t.Error("public group must admit any wallet")
	}
	if eval.DisplayLabel != "Public" {
		t.Errorf("expected display label Public, got %s", eval.DisplayLabel)
	}
	if eval.WalletMintCount != 0 || eval.GroupMintCount != 0 {
		t.Errorf("expected zero counts, got group=%d wallet=%d", eval.GroupMintCount, eval.WalletMintCount)
	}
}

func TestEvaluate_RestrictedGroupRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.allowList.SetAllowList(ctx, testCampaign, "vip", []string{"walletA", "walletB"}); err != nil {
		t.Fatalf("SetAllowList: %v", err)
	}

	evalA, err := env.engine.Evaluate(ctx, testCampaign, "vip", "walletA")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !evalA.IsEligible {
		t.Error("walletA is a member and must be eligible")
	}

	evalC, err := env.engine.Evaluate(ctx, testCampaign, "vip", "walletC")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if evalC.IsEligible {
		t.Error("walletC is not a member and must not be eligible")
	}

	// Adding walletC flips its eligibility
	if _, err := env.allowList.SetAllowList(ctx, testCampaign, "vip", []string{"walletA", "walletB", "walletC"}); err != nil {
		t.Fatalf("SetAllowList: %v", err)
	}

	evalC, err = env.engine.Evaluate(ctx, testCampaign, "vip", "walletC")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !evalC.IsEligible {
		t.Error("walletC must be eligible after allow-list replacement")
	}
}

func TestEvaluate_MintCapTrimsEligibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addReceipt(t, domain.PublicGroupLabel, "walletA", 2)

	eval, err := env.engine.Evaluate(ctx, testCampaign, domain.PublicGroupLabel, "walletA")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if eval.IsEligible {
		t.Error("wallet at cap must not be eligible")
	}
	if eval.WalletMintCount != 2 {
		t.Errorf("expected wallet mint count 2, got %d", eval.WalletMintCount)
	}

	// Another wallet is unaffected
	other, err := env.engine.Evaluate(ctx, testCampaign, domain.PublicGroupLabel, "walletB")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !other.IsEligible {
		t.Error("wallet below cap must stay eligible")
	}
	if other.GroupMintCount != 2 {
		t.Errorf("expected group mint count 2, got %d", other.GroupMintCount)
	}
}

func TestEvaluate_MembershipEqualsEligibilityUnderCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.allowList.SetAllowList(ctx, testCampaign, "vip", []string{"walletA"}); err != nil {
		t.Fatalf("SetAllowList: %v", err)
	}

	for _, wallet := range []string{"walletA", "walletB", "walletC"} {
		member, err := env.allowList.IsMember(ctx, testCampaign, "vip", wallet)
		if err != nil {
			t.Fatalf("IsMember: %v", err)
		}

		eval, err := env.engine.Evaluate(ctx, testCampaign, "vip", wallet)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}

		if eval.IsEligible != member {
			t.Errorf("wallet %s: eligibility %v != membership %v", wallet, eval.IsEligible, member)
		}
	}
}

func TestEvaluate_GroupNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Evaluate(context.Background(), testCampaign, "missing", "walletA")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
