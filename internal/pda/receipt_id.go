package pda

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeReceiptID computes a deterministic receipt identifier using SHA256.
// Formula: SHA256(campaign|label|buyer|asset|tx_signature)
// Returns hex-encoded hash (64 characters). The same mint observed twice
// collapses onto one receipt.
func ComputeReceiptID(
	campaignAddress string,
	label string,
	buyerAddress string,
	assetAddress string,
	txSignature string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		campaignAddress,
		label,
		buyerAddress,
		assetAddress,
		txSignature,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
