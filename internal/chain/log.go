// log.go - Append-only snapshot log with chain verification and JSON
// persistence.
//
// The accumulator emits SnapshotRecords but keeps no history; the caller owns
// persistence and threads prev hashes across segments. The Log enforces that
// discipline: every appended record must extend the current head and carry a
// digest that recomputes. It is not thread-safe by itself; use a sync.Mutex
// for concurrent access.

package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"holopass/internal/holo"
)

// GenesisHash seeds the first segment of a fresh chain.
const GenesisHash = "genesis"

var (
	// ErrBrokenChain means a record does not extend the current head or a
	// stored digest fails to recompute.
	ErrBrokenChain = errors.New("snapshot chain broken")

	// ErrDuplicateSegment means the segment id is already present.
	ErrDuplicateSegment = errors.New("duplicate segment id")
)

// Log is the caller-side record of folded segments.
type Log struct {
	Records []holo.SnapshotRecord `json:"records"`
}

// NewLog creates an empty snapshot log.
func NewLog() *Log {
	return &Log{Records: make([]holo.SnapshotRecord, 0)}
}

// Head returns the snapshot hash the next segment must chain from.
func (l *Log) Head() string {
	if len(l.Records) == 0 {
		return GenesisHash
	}
	return l.Records[len(l.Records)-1].SnapshotHash
}

// Append adds a record after checking continuity and digest integrity.
func (l *Log) Append(rec holo.SnapshotRecord) error {
	if rec.PrevHash != l.Head() {
		return fmt.Errorf("%w: segment %d chains from %q, head is %q", ErrBrokenChain, rec.SegmentID, rec.PrevHash, l.Head())
	}
	if rec.SnapshotHash != holo.ChainHash(rec.FinalT, rec.PrevHash) {
		return fmt.Errorf("%w: segment %d digest does not recompute", ErrBrokenChain, rec.SegmentID)
	}
	for _, r := range l.Records {
		if r.SegmentID == rec.SegmentID {
			return fmt.Errorf("%w: %d", ErrDuplicateSegment, rec.SegmentID)
		}
	}
	l.Records = append(l.Records, rec)
	return nil
}

// AppendJSON decodes a snapshot payload emitted by the accumulator and
// appends it.
func (l *Log) AppendJSON(payload string) (holo.SnapshotRecord, error) {
	var rec holo.SnapshotRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return holo.SnapshotRecord{}, fmt.Errorf("invalid snapshot payload: %w", err)
	}
	if err := l.Append(rec); err != nil {
		return holo.SnapshotRecord{}, err
	}
	return rec, nil
}

// Verify rewalks the whole chain. Tampering with any historical segment
// breaks every digest from that point on.
func (l *Log) Verify() error {
	prev := GenesisHash
	for _, rec := range l.Records {
		if rec.PrevHash != prev {
			return fmt.Errorf("%w: segment %d chains from %q, want %q", ErrBrokenChain, rec.SegmentID, rec.PrevHash, prev)
		}
		if rec.SnapshotHash != holo.ChainHash(rec.FinalT, rec.PrevHash) {
			return fmt.Errorf("%w: segment %d digest does not recompute", ErrBrokenChain, rec.SegmentID)
		}
		prev = rec.SnapshotHash
	}
	return nil
}

// HasSnapshotHash reports whether a digest is already in the chain.
func (l *Log) HasSnapshotHash(h string) bool {
	for _, rec := range l.Records {
		if rec.SnapshotHash == h {
			return true
		}
	}
	return false
}

// SaveToFile writes the log as indented JSON, overwriting any existing file.
func (l *Log) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// LoadFromFile reads a log from disk and verifies the chain before returning
// it.
func LoadFromFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var l Log
	if err := json.NewDecoder(f).Decode(&l); err != nil {
		return nil, err
	}
	if err := l.Verify(); err != nil {
		return nil, err
	}
	return &l, nil
}
