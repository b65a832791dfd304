// Package eligibility answers whether a wallet may currently mint in a
// group and how many mints it has already made. The answer is advisory;
// the ledger program is the arbiter at commit time.
package eligibility

import (
	"context"
	"fmt"

	"solana-mint-campaign/internal/allowlist"
	"solana-mint-campaign/internal/storage"
)

// Evaluation is the result of an eligibility query.
type Evaluation struct {
	IsEligible      bool   `json:"isEligible"`
	DisplayLabel    string `json:"displayLabel"`
	GroupMintCount  int    `json:"groupMintCount"`
	WalletMintCount int    `json:"walletMintCount"`
}

// Engine combines allow-list membership with receipt counts.
type Engine struct {
	groups    storage.GroupStore
	receipts  storage.ReceiptStore
	allowList *allowlist.Manager
}

// NewEngine creates an eligibility engine.
func NewEngine(groups storage.GroupStore, receipts storage.ReceiptStore, allowList *allowlist.Manager) *Engine {
	return &Engine{groups: groups, receipts: receipts, allowList: allowList}
}

// Evaluate computes eligibility for a wallet in a group. The public group
// admits any wallet; restricted groups require allow-list membership; a
// per-wallet cap trims eligibility once reached. Counts may change between
// evaluation and submission, so the mint path re-checks.
func (e *Engine) Evaluate(ctx context.Context, campaignAddress, label, wallet string) (*Evaluation, error) {
	group, err := e.groups.GetByLabel(ctx, campaignAddress, label)
	if err != nil {
		return nil, fmt.Errorf("resolve group %q: %w", label, err)
	}

	eval := &Evaluation{DisplayLabel: group.DisplayLabel}

	if group.IsPublic() {
		eval.IsEligible = true
	} else {
		member, err := e.allowList.IsMember(ctx, campaignAddress, label, wallet)
		if err != nil {
			return nil, fmt.Errorf("allow list lookup: %w", err)
		}
		eval.IsEligible = member
	}

	eval.GroupMintCount, err = e.receipts.CountByGroup(ctx, campaignAddress, label)
	if err != nil {
		return nil, fmt.Errorf("count group mints: %w", err)
	}

	eval.WalletMintCount, err = e.receipts.CountByWallet(ctx, campaignAddress, label, wallet)
	if err != nil {
		return nil, fmt.Errorf("count wallet mints: %w", err)
	}

	if group.MintLimit != nil && eval.WalletMintCount >= *group.MintLimit {
		eval.IsEligible = false
	}

	return eval, nil
}
