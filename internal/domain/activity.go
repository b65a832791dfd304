package domain

// MintActivityPoint is one analytics sample recorded per confirmed mint.
// Corresponds to mint_activity table in ClickHouse.
type MintActivityPoint struct {
	CampaignAddress string
	GroupLabel      string
	TimestampMs     int64
	Slot            int64
	Lamports        int64 // price paid
	MintCount       int   // mints represented by this point
}
