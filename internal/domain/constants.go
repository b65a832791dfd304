package domain

// Well-known group labels. Every campaign carries an authority group used for
// internal mints and a public group open to any wallet.
const (
	AuthorityGroupLabel = "auth"
	PublicGroupLabel    = "public"
)

// PublicGroupMintLimitID identifies the per-wallet mint counter account for
// the public group's mint cap guard.
const PublicGroupMintLimitID = 1

const (
	// LamportsPerSol is the number of lamports in one SOL.
	LamportsPerSol = 1_000_000_000

	// BotTaxLamports is the punitive fee charged on any failed mint attempt.
	BotTaxLamports = 10_000_000 // 0.01 SOL

	// DefaultFreezePeriodDays is the collateral freeze period applied when a
	// group does not override it.
	DefaultFreezePeriodDays = 30

	// DaySeconds is the number of seconds in a day.
	DaySeconds = 86_400
)

// WrappedSolMint is the mint address of wrapped SOL, the default payment token.
const WrappedSolMint = "So11111111111111111111111111111111111111112"
