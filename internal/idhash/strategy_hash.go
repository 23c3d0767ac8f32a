package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"backtest-lab/internal/domain"
)

// ComputeStrategyHash computes a deterministic fingerprint of a strategy
// definition: SHA256 of its JSON encoding. Parameter maps are encoded with
// sorted keys, so equal definitions hash equally regardless of map order.
// Returns hex-encoded hash (64 characters).
func ComputeStrategyHash(def domain.StrategyDef) (string, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
