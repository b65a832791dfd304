package solana

import "context"

// LedgerClient defines the Solana RPC HTTP interface used by the service.
type LedgerClient interface {
	// GetLatestBlockhash retrieves a recent blockhash and the last block
	// height at which it is still valid.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a signed serialized transaction and returns
	// its signature.
	SendTransaction(ctx context.Context, signedTx []byte) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	// Entries are nil for unknown signatures.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// Confirm blocks until the signature reaches confirmed commitment or
	// the blockhash it was built on expires.
	Confirm(ctx context.Context, signature string, lastValidBlockHeight uint64) (*SignatureStatus, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetProgramAccounts retrieves all accounts owned by a program,
	// optionally narrowed by filters.
	GetProgramAccounts(ctx context.Context, programID string, filters []AccountFilter) ([]ProgramAccount, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockHeight retrieves the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)

	// GetMinimumBalanceForRentExemption returns the lamports needed to
	// keep an account of the given size rent-exempt.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error)
}

// Blockhash is a recent blockhash with its validity horizon.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// SignatureStatus reports the confirmation state of a submitted transaction.
type SignatureStatus struct {
	Signature          string
	Slot               int64
	Confirmations      *int
	ConfirmationStatus string // processed, confirmed, finalized
	Err                interface{}
}

// Confirmed reports whether the transaction reached at least confirmed
// commitment without a ledger error.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || s.Err != nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// ProgramAccount pairs an account with its address in getProgramAccounts
// results.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// AccountFilter narrows getProgramAccounts results.
type AccountFilter struct {
	DataSize *int
	Memcmp   *MemcmpFilter
}

// MemcmpFilter matches accounts whose data at Offset equals Bytes (base58).
type MemcmpFilter struct {
	Offset int
	Bytes  string
}
