package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(session_id|symbol|side|strategy_version|entry_time_unix_ms)
// Returns the first 16 bytes hex-encoded (32 characters).
func ComputeTradeID(sessionID, symbol, side, strategyVersion string, entryTime time.Time) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		sessionID,
		symbol,
		side,
		strategyVersion,
		entryTime.UnixMilli(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
