package workspace

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/flowrt/flowrt/cmdexecution"
	"github.com/flowrt/flowrt/ids"
)

// HistoryRecord is one row of a completed CmdExecution, as recorded by
// HistoryIndex. This supplements spec.md (not named there), the way the
// teacher's statemanager package keeps an in-memory operation ledger —
// here backed by bbolt so it survives process restarts.
type HistoryRecord struct {
	RunID     ids.RunId                `json:"run_id"`
	FlowID    ids.FlowId               `json:"flow_id"`
	Profile   ids.Profile              `json:"profile"`
	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
	Outcome   cmdexecution.OutcomeKind `json:"outcome"`
	ItemCount int                      `json:"item_count"`
	ErrCount  int                      `json:"err_count"`
}

const historyBucket = "history"

// HistoryIndex is a bbolt-backed append log of HistoryRecords, one
// database per profile (<profile_history_dir>/history.db), grounded on
// the teacher's db/bolt.DB helper methods (CreateBucket/PutJSON/
// ForEachJSON).
type HistoryIndex struct {
	db *bolt.DB
}

// OpenHistoryIndex opens (creating if absent) the bbolt database under
// historyDir.
func OpenHistoryIndex(historyDir string) (*HistoryIndex, error) {
	db, err := bolt.Open(filepath.Join(historyDir, "history.db"), 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("workspace: opening history index: %w", err)
	}
	idx := &HistoryIndex{db: db}
	if err := idx.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("workspace: creating history bucket: %w", err)
	}
	return idx, nil
}

// Close releases the underlying bbolt database.
func (h *HistoryIndex) Close() error { return h.db.Close() }

// Append records one completed CmdExecution, keyed by its start time in
// RFC3339Nano so ForEach iterates in chronological order (bbolt keeps
// bucket keys sorted). A caller that leaves RunID unset gets one minted
// here, so every stored record carries a stable identifier distinct from
// its (non-unique under clock skew) StartedAt key.
func (h *HistoryIndex) Append(rec HistoryRecord) error {
	if rec.RunID == "" {
		rec.RunID = ids.NewRunId()
	}
	key := rec.StartedAt.UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("workspace: marshaling history record: %w", err)
	}
	return h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		return b.Put([]byte(key), data)
	})
}

// All returns every recorded HistoryRecord in chronological order.
func (h *HistoryIndex) All() ([]HistoryRecord, error) {
	var out []HistoryRecord
	err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		return b.ForEach(func(k, v []byte) error {
			var rec HistoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("workspace: unmarshaling history record %s: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
