// Package snapshot persists the last-seen file-hash map and Merkle root for
// a collection, enabling incremental reindexing (spec §4.3).
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	coreerrors "github.com/codeforge-dev/indexcore/internal/errors"
	"github.com/codeforge-dev/indexcore/internal/merkle"
)

// Snapshot is the persisted state for one collection.
type Snapshot struct {
	CodebasePath string              `json:"codebasePath"`
	Timestamp    time.Time           `json:"timestamp"`
	FileHashes   merkle.FileHashes   `json:"fileHashes"`
	MerkleRoot   string              `json:"merkleRoot"`
}

// Store reads and writes snapshots under a per-user application directory,
// one JSON file per collection.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir (e.g. ~/.indexcore/snapshots).
// The directory is created on first Save if it does not exist.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *Store) lockPath(collection string) string {
	return filepath.Join(s.dir, collection+".lock")
}

// Lock acquires the per-collection advisory lock backing "at most one
// indexing orchestration active" (spec §5). The returned unlock func must
// be called when the orchestration finishes. Lock is best-effort: it
// guards cooperating processes, not a hard guarantee.
func (s *Store) Lock(collection string) (unlock func(), err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Lock", collection, err)
	}
	fl := flock.New(s.lockPath(collection))
	if err := fl.Lock(); err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Lock", collection, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Save writes a snapshot atomically: write-to-temp-then-rename, to avoid
// torn reads by a concurrent Load (spec §4.3).
func (s *Store) Save(collection string, snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Save", collection, err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Save", collection, err)
	}

	tmp, err := os.CreateTemp(s.dir, collection+".json.tmp-*")
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Save", collection, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Save", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Save", collection, err)
	}

	if err := os.Rename(tmpPath, s.path(collection)); err != nil {
		os.Remove(tmpPath)
		return coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Save", collection, err)
	}
	return nil
}

// Load reads a snapshot. A missing or corrupt file is treated as absent:
// Load returns (nil, nil) rather than an error (spec §4.3, §7).
func (s *Store) Load(collection string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, coreerrors.Wrap(coreerrors.KindSnapshotMissing, "snapshot.Load", collection, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil // corrupt snapshot treated as absent
	}
	if !s.validate(&snap) {
		return nil, nil
	}
	return &snap, nil
}

// Exists reports whether a (structurally valid) snapshot file is present.
func (s *Store) Exists(collection string) bool {
	snap, err := s.Load(collection)
	return err == nil && snap != nil
}

func (s *Store) validate(snap *Snapshot) bool {
	if snap.FileHashes == nil {
		return false
	}
	return merkle.Build(snap.FileHashes).RootHash() == snap.MerkleRoot || (snap.MerkleRoot == "" && len(snap.FileHashes) == 0)
}

// Delete removes a collection's snapshot file. Missing files are not an
// error.
func (s *Store) Delete(collection string) error {
	err := os.Remove(s.path(collection))
	if err != nil && !os.IsNotExist(err) {
		return coreerrors.Wrap(coreerrors.KindInternal, "snapshot.Delete", collection, err)
	}
	return nil
}

// New builds a Snapshot value from a file-hash map at the given codebase
// path, computing the Merkle root.
func New(codebasePath string, hashes merkle.FileHashes, at time.Time) *Snapshot {
	return &Snapshot{
		CodebasePath: codebasePath,
		Timestamp:    at,
		FileHashes:   hashes,
		MerkleRoot:   merkle.Build(hashes).RootHash(),
	}
}
