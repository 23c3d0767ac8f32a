package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position id using SHA256.
// Formula: SHA256(strategy_id|entry_time_ms|sequence)
// Returns hex-encoded hash (64 characters).
func ComputePositionID(
	strategyID string,
	entryTimeMs int64,
	sequence int,
) string {
	data := fmt.Sprintf("%s|%d|%d",
		strategyID,
		entryTimeMs,
		sequence,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
