package domain

// AllowListEntry is one (group, wallet) membership pair. Set semantics:
// duplicates collapse on write.
// Corresponds to allow_list_entries table in PostgreSQL.
type AllowListEntry struct {
	CampaignAddress string
	GroupLabel      string
	WalletAddress   string
	CreatedAt       int64 // record creation timestamp (ms)
}
