package domain

// FreezeState represents the collateral state of a minted asset.
type FreezeState string

const (
	FreezeStateFrozen   FreezeState = "FROZEN"
	FreezeStateUnlocked FreezeState = "UNLOCKED"
)

// String returns the string representation of FreezeState.
func (s FreezeState) String() string {
	return string(s)
}

// IsValid checks if the state is a valid value.
func (s FreezeState) IsValid() bool {
	return s == FreezeStateFrozen || s == FreezeStateUnlocked
}

// AssetFreezeState mirrors the custodial freeze state of one minted asset.
// Transitions only forward: FROZEN -> UNLOCKED, never re-frozen.
// Corresponds to asset_freeze_states table in PostgreSQL.
type AssetFreezeState struct {
	AssetAddress    string // PRIMARY KEY, minted asset mint address
	CampaignAddress string
	GroupLabel      string
	OwnerAddress    string
	State           FreezeState
	FreezeExpiry    int64 // mint timestamp + freeze period (ms)
	CreatedAt       int64 // record creation timestamp (ms)
}

// Thawable reports whether the freeze period has elapsed at nowMs.
func (a *AssetFreezeState) Thawable(nowMs int64) bool {
	return nowMs >= a.FreezeExpiry
}
