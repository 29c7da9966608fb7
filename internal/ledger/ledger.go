// Package ledger persists an audit trail of fault-recovery outcomes and
// scheduler deadline violations to an embedded bbolt database, so an
// operator can inspect recent history without re-parsing CSV (SPEC_FULL.md
// §2.3, §4.9). This is a supplemented feature with no equivalent in the
// distilled spec or the original Rust implementation; it repurposes the
// reference codebase's bucket/schema-version/JSON-entry storage layer
// (internal/storage/bolt.go in the teacher) for this domain.
package ledger

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = "1"

const (
	bucketEvents = "events"
	bucketMeta   = "meta"
)

// EventKind distinguishes the two event families this ledger tracks.
type EventKind string

const (
	EventFaultRecovery     EventKind = "fault_recovery"
	EventDeadlineViolation EventKind = "deadline_violation"
)

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	Subject   string    `json:"subject"` // fault_id or task name
	Detail    string    `json:"detail"`  // free-form detail text
}

// DB wraps a bbolt database with typed accessors for audit entries.
type DB struct {
	db *bolt.DB
}

// Open opens (or creates) the ledger database at path and verifies the
// schema version.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("ledger: bolt.Open(%q): %w", path, err)
	}

	d := &DB{db: bdb}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketEvents, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte("schema_version")) == nil {
			return meta.Put([]byte("schema_version"), []byte(SchemaVersion))
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("ledger: init: %w", err)
	}

	if err := d.checkSchemaVersion(); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) checkSchemaVersion() error {
	return d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketMeta)).Get([]byte("schema_version"))
		if string(v) != SchemaVersion {
			return fmt.Errorf("ledger: schema version mismatch: have %q, want %q", v, SchemaVersion)
		}
		return nil
	})
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// entryKeyLayout is fixed-width (unlike time.RFC3339Nano, which trims
// trailing zeros) so that byte order of keys matches chronological order.
const entryKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

func entryKey(t time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", t.UTC().Format(entryKeyLayout), seq))
}

var seqCounter atomic.Uint64

// Append writes a new audit entry. Safe for concurrent use.
func (d *DB) Append(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("ledger: marshal entry: %w", err)
	}
	key := entryKey(e.Timestamp, seqCounter.Add(1))
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketEvents)).Put(key, data)
	})
}

// Recent returns the n most recently appended entries, newest last.
func (d *DB) Recent(n int) ([]Entry, error) {
	var all []Entry
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketEvents)).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			all = append(all, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// AsyncWriter buffers Append calls on a channel so a slow disk never stalls
// the scheduler or fault injector's hot paths (SPEC_FULL.md §4.9).
type AsyncWriter struct {
	db   *DB
	ch   chan Entry
	done chan struct{}
}

// NewAsyncWriter starts a background goroutine draining appends into db.
func NewAsyncWriter(db *DB, queueCap int, onError func(error)) *AsyncWriter {
	w := &AsyncWriter{db: db, ch: make(chan Entry, queueCap), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for e := range w.ch {
			if err := db.Append(e); err != nil && onError != nil {
				onError(err)
			}
		}
	}()
	return w
}

// Submit enqueues an entry for asynchronous persistence. Drops (rather than
// blocks) if the queue is full.
func (w *AsyncWriter) Submit(e Entry) {
	select {
	case w.ch <- e:
	default:
	}
}

// Close stops accepting new entries and waits for the queue to drain.
func (w *AsyncWriter) Close() {
	close(w.ch)
	<-w.done
}
