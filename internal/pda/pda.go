package pda

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Program-derived address seeds.
const (
	seedFreezeEscrow = "freeze_escrow"
	seedMintCounter  = "mint_limit"
	seedAuthority    = "campaign_authority"

	pdaMarker = "ProgramDerivedAddress"
	maxBump   = 255
)

// FindProgramAddress derives the program address for the given seeds,
// searching bump values from 255 downward until the result falls off the
// ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}
	if len(program) != 32 {
		return "", 0, fmt.Errorf("program id is %d bytes, want 32", len(program))
	}

	for bump := maxBump; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			if len(seed) > 32 {
				return "", 0, fmt.Errorf("seed exceeds 32 bytes")
			}
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))

		candidate := h.Sum(nil)
		if !isOnCurve(candidate) {
			return base58.Encode(candidate), uint8(bump), nil
		}
	}

	return "", 0, fmt.Errorf("no viable bump for seeds")
}

// isOnCurve reports whether the bytes decode to a valid ed25519 point.
// Program addresses must not be valid points, so nobody holds their key.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// FreezeEscrowAddress derives the escrow account holding frozen payment
// funds for one guard group.
func FreezeEscrowAddress(campaignAddress, label, programID string) (string, uint8, error) {
	return FindProgramAddress([][]byte{
		[]byte(seedFreezeEscrow),
		mustDecode(campaignAddress),
		[]byte(label),
	}, programID)
}

// MintCounterAddress derives the per-wallet mint counter account for a
// capped guard group.
func MintCounterAddress(campaignAddress, label string, limitID uint8, wallet, programID string) (string, uint8, error) {
	return FindProgramAddress([][]byte{
		[]byte(seedMintCounter),
		{limitID},
		mustDecode(wallet),
		mustDecode(campaignAddress),
		[]byte(label),
	}, programID)
}

// CampaignAuthorityAddress derives the internal authority that signs item
// management on behalf of the campaign account.
func CampaignAuthorityAddress(campaignAddress, programID string) (string, uint8, error) {
	return FindProgramAddress([][]byte{
		[]byte(seedAuthority),
		mustDecode(campaignAddress),
	}, programID)
}

// mustDecode decodes a base58 address, falling back to the raw bytes for
// malformed input. Derivation then fails later at the program boundary
// instead of panicking here.
func mustDecode(address string) []byte {
	raw, err := base58.Decode(address)
	if err != nil {
		return []byte(address)
	}
	return raw
}
