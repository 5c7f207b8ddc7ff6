package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/storage"
)

// SchemaVersion is the current snapshot format
const SchemaVersion = 1

// DefaultKey is the storage key the ledger is written under
const DefaultKey = "oaspractice.progress"

var (
	// ErrUnsupportedVersion is returned for snapshots written by a newer release
	ErrUnsupportedVersion = errors.New("unsupported ledger schema version")

	// ErrCorrupt is returned when the stored value cannot be decoded
	ErrCorrupt = errors.New("corrupt ledger snapshot")
)

// Snapshot is the serialized form of a Ledger
type Snapshot struct {
	SchemaVersion  int               `json:"schema_version"`
	Scenarios      map[string]Record `json:"scenarios"`
	TotalPoints    int               `json:"total_points"`
	CompletedCount int               `json:"completed_count"`
	LastActivity   time.Time         `json:"last_activity"`
}

// Marshal encodes a snapshot
func Marshal(snap Snapshot) ([]byte, error) {
	if snap.SchemaVersion == 0 {
		snap.SchemaVersion = SchemaVersion
	}
	if snap.Scenarios == nil {
		snap.Scenarios = map[string]Record{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a snapshot. Values without a schema_version predate
// versioning and are read as version 1.
func Unmarshal(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	switch {
	case snap.SchemaVersion == 0:
		snap.SchemaVersion = SchemaVersion
	case snap.SchemaVersion > SchemaVersion:
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.SchemaVersion)
	}
	if snap.TotalPoints < 0 || snap.CompletedCount < 0 {
		return Snapshot{}, fmt.Errorf("%w: negative totals", ErrCorrupt)
	}
	if snap.Scenarios == nil {
		snap.Scenarios = map[string]Record{}
	}
	return snap, nil
}

// Store persists ledger snapshots under a single key of a KV backend
type Store struct {
	kv  storage.KV
	key string
}

// NewStore creates a store writing to key. An empty key uses DefaultKey.
func NewStore(kv storage.KV, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key}
}

// Key returns the storage key
func (s *Store) Key() string {
	return s.key
}

// Load reads the stored snapshot. A missing key yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{SchemaVersion: SchemaVersion, Scenarios: map[string]Record{}}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load ledger: %w", err)
	}
	return Unmarshal(data)
}

// Persist writes snap, replacing the previous value
func (s *Store) Persist(ctx context.Context, snap Snapshot) error {
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

// Open loads the stored ledger and wires it to write back through store.
// Corrupt or newer snapshots fail rather than being overwritten.
func Open(ctx context.Context, store *Store, opts ...Option) (*Ledger, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	l := New(append(opts, WithPersister(store))...)
	l.restore(snap)
	l.logger.Debug("ledger loaded",
		slog.String("key", store.Key()),
		slog.Int("scenarios", len(snap.Scenarios)),
		slog.Int("total_points", snap.TotalPoints),
	)
	return l, nil
}
