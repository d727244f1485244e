package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gofrs/flock"

	trerrors "github.com/trove-dev/trove/internal/errors"
)

// SnapshotName is the well-known snapshot filename at an indexed root. The
// leading dot keeps the file out of its own index.
const SnapshotName = ".trove.json"

// snapshotDocument is the on-disk shape of one document.
type snapshotDocument struct {
	Count        int              `json:"count"`
	TF           map[string]int   `json:"tf"`
	LastModified time.Time        `json:"last_modified"`
	Positions    map[string][]int `json:"positions,omitempty"`
}

// snapshotModel is the on-disk shape of the whole index: documents keyed by
// path plus the document-frequency table. A loaded snapshot is used as-is;
// nothing is rederived.
type snapshotModel struct {
	Docs map[string]snapshotDocument `json:"docs"`
	DF   map[string]int              `json:"df"`
}

// SaveSnapshot writes the index to path as JSON. The write is atomic (temp
// file in the same directory, then rename) and guarded by a sidecar file
// lock so concurrent processes cannot interleave partial writes.
func SaveSnapshot(ix *Index, path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire snapshot lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := ix.encodeSnapshot()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot and rebuilds the index from it. A missing
// file yields a snapshot_missing error (callers may fall back to a fresh
// index where they document it); anything unreadable or undecodable yields
// snapshot_corrupt and must be treated as fatal.
func LoadSnapshot(path string) (*Index, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, trerrors.Wrapf(trerrors.CodeSnapshotMissing, err, "no snapshot at %s", path)
	}

	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("acquire snapshot lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, trerrors.Wrapf(trerrors.CodeSnapshotMissing, err, "no snapshot at %s", path)
		}
		return nil, trerrors.Wrapf(trerrors.CodeSnapshotCorrupt, err, "read snapshot %s", path)
	}

	var model snapshotModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, trerrors.Wrapf(trerrors.CodeSnapshotCorrupt, err, "decode snapshot %s", path)
	}

	ix := New()
	for p, d := range model.Docs {
		doc := &document{
			termCount: d.Count,
			termFreq:  d.TF,
			positions: d.Positions,
			lastMod:   d.LastModified,
		}
		if doc.termFreq == nil {
			doc.termFreq = make(map[string]int)
		}
		if doc.positions == nil {
			doc.positions = make(map[string][]int)
		}
		ix.docs[p] = doc
	}
	if model.DF != nil {
		ix.df = model.DF
	}
	return ix, nil
}

// SnapshotMissing reports whether err means the snapshot file did not exist,
// as opposed to existing but failing to load.
func SnapshotMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// encodeSnapshot marshals the corpus under the read lock so a concurrent
// commit cannot mutate the maps mid-encode.
func (ix *Index) encodeSnapshot() ([]byte, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	model := snapshotModel{
		Docs: make(map[string]snapshotDocument, len(ix.docs)),
		DF:   ix.df,
	}
	for p, d := range ix.docs {
		model.Docs[p] = snapshotDocument{
			Count:        d.termCount,
			TF:           d.termFreq,
			LastModified: d.lastMod,
			Positions:    d.positions,
		}
	}
	return json.Marshal(model)
}
