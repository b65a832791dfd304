package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-mint-campaign/internal/solana"
)

// LedgerClient implements solana.LedgerClient for testing. Submitted
// transactions confirm immediately unless a failure is scripted.
type LedgerClient struct {
	mu sync.Mutex

	// Blockhash returned by GetLatestBlockhash. Sequence counter makes
	// each call distinct so blockhash refresh is observable.
	blockhashSeq int
	BlockHeight  uint64
	Slot         int64

	// SendErrs scripts per-call SendTransaction failures. A nil entry
	// means success. Once exhausted, all sends succeed.
	SendErrs []error

	// ConfirmErrs scripts per-call Confirm failures, keyed by signature.
	ConfirmErrs map[string]error

	// Accounts maps pubkey to account info for GetAccountInfo.
	Accounts map[string]*solana.AccountInfo

	// RentExemptLamports is returned by GetMinimumBalanceForRentExemption.
	RentExemptLamports uint64

	// Sent records every successfully submitted transaction.
	Sent [][]byte

	sendCount int
	sigSeq    int
	statuses  map[string]*solana.SignatureStatus
}

// NewLedgerClient creates a new stub ledger client.
func NewLedgerClient() *LedgerClient {
	return &LedgerClient{
		BlockHeight: 1000,
		Slot:        5000,
		ConfirmErrs: make(map[string]error),
		Accounts:    make(map[string]*solana.AccountInfo),
		statuses:    make(map[string]*solana.SignatureStatus),
	}
}

// GetLatestBlockhash returns a fresh synthetic blockhash.
func (c *LedgerClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blockhashSeq++
	return &solana.Blockhash{
		// 32 bytes of 0x01 in base58; a syntactically valid hash
		Hash:                 "4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi",
		LastValidBlockHeight: c.BlockHeight + 150,
	}, nil
}

// SendTransaction records the transaction and returns a synthetic
// signature, or the next scripted error.
func (c *LedgerClient) SendTransaction(_ context.Context, signedTx []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	call := c.sendCount
	c.sendCount++

	if call < len(c.SendErrs) && c.SendErrs[call] != nil {
		return "", c.SendErrs[call]
	}

	c.sigSeq++
	sig := fmt.Sprintf("stubsig%06d", c.sigSeq)

	c.Sent = append(c.Sent, signedTx)
	c.statuses[sig] = &solana.SignatureStatus{
		Signature:          sig,
		Slot:               c.Slot,
		ConfirmationStatus: "confirmed",
	}

	return sig, nil
}

// GetSignatureStatuses returns recorded statuses, nil for unknown.
func (c *LedgerClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		statuses[i] = c.statuses[sig]
	}
	return statuses, nil
}

// Confirm returns the recorded status, or the scripted error.
func (c *LedgerClient) Confirm(_ context.Context, signature string, _ uint64) (*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err, ok := c.ConfirmErrs[signature]; ok {
		return nil, err
	}

	status, ok := c.statuses[signature]
	if !ok {
		return nil, fmt.Errorf("unknown signature %s", signature)
	}
	return status, nil
}

// GetAccountInfo retrieves an account from the stub store.
func (c *LedgerClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Accounts[pubkey], nil
}

// GetProgramAccounts returns accounts owned by the program.
func (c *LedgerClient) GetProgramAccounts(_ context.Context, programID string, _ []solana.AccountFilter) ([]solana.ProgramAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var accounts []solana.ProgramAccount
	for pubkey, info := range c.Accounts {
		if info.Owner == programID {
			accounts = append(accounts, solana.ProgramAccount{Pubkey: pubkey, Account: *info})
		}
	}
	return accounts, nil
}

// GetSlot returns the configured slot.
func (c *LedgerClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Slot, nil
}

// GetBlockHeight returns the configured block height.
func (c *LedgerClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.BlockHeight, nil
}

// GetMinimumBalanceForRentExemption returns the configured rent minimum.
func (c *LedgerClient) GetMinimumBalanceForRentExemption(_ context.Context, _ int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.RentExemptLamports, nil
}

// SetAccount registers an account in the stub store.
func (c *LedgerClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Accounts[pubkey] = info
}

// SentCount returns the number of successful submissions.
func (c *LedgerClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.Sent)
}
