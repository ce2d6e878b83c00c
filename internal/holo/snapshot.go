// snapshot.go - Checkpoint records and the hash chain across segments.

package holo

import (
	"crypto/sha256"
	"encoding/hex"
)

// SnapshotRecord is the value emitted when a segment folds. The accumulator
// retains no snapshot history; the caller persists records and threads each
// SnapshotHash into the next segment's PrevHash. Because SnapshotHash covers
// the caller-supplied PrevHash, tampering with any historical segment
// invalidates every subsequent hash.
type SnapshotRecord struct {
	SegmentID    uint64 `json:"segment_id"`
	FinalT       string `json:"final_t"`
	SnapshotHash string `json:"snapshot_hash"`
	PrevHash     string `json:"prev_hash"`
}

// ChainHash computes the chained digest for a segment:
// SHA256(final_t_decimal || prev_hash), hex encoded.
func ChainHash(finalTDec, prevHash string) string {
	h := sha256.New()
	h.Write([]byte(finalTDec))
	h.Write([]byte(prevHash))
	return hex.EncodeToString(h.Sum(nil))
}
