// Package idhash computes deterministic identifiers for tranches and
// distributions. The same creation inputs always produce the same id, so
// replays of the operation log converge on identical state.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"revora-ledger/internal/domain"
)

// TrancheID computes a deterministic tranche id.
// Formula: SHA256(name|symbol|payment_asset|operator|created_seq)
// Returns hex-encoded hash (64 characters).
func TrancheID(name, symbol, paymentAsset string, operator domain.Address, createdSeq uint64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		name,
		symbol,
		paymentAsset,
		operator,
		createdSeq,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// DistributionID computes a deterministic distribution id.
// Formula: SHA256(tranche_id|payment_asset|total_amount|created_seq)
func DistributionID(trancheID, paymentAsset string, totalAmount, createdSeq uint64) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		trancheID,
		paymentAsset,
		totalAmount,
		createdSeq,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
