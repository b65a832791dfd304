package domain

// Receipt is the immutable record of one completed mint. Receipts are
// append-only and are the sole source of truth for mint accounting.
// Corresponds to mint_receipts table in PostgreSQL.
type Receipt struct {
	ReceiptID       string // PRIMARY KEY, deterministic hash
	CampaignAddress string
	GroupLabel      string
	BuyerAddress    string // buyer wallet
	AssetAddress    string // minted asset mint address
	TxSignature     string // mint transaction signature
	Slot            int64  // ledger slot of the mint
	Timestamp       int64  // Unix timestamp in milliseconds
}

// ReceiptFilter narrows receipt listings. Zero values mean no filter.
type ReceiptFilter struct {
	GroupLabel   string
	BuyerAddress string
}
