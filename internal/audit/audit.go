// Package audit keeps an append-only trail of ledger mutations in a bbolt
// file beside the main database. Recording is best effort: a failed write is
// logged and swallowed, never surfaced to the accounting operation that
// produced it.
package audit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// Outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Event is one recorded mutation, successful or failed.
type Event struct {
	ID       string          `json:"id"`
	Time     time.Time       `json:"time"`
	Actor    string          `json:"actor"`
	Action   string          `json:"action"`
	Entity   string          `json:"entity"`
	EntityID string          `json:"entity_id,omitempty"`
	Outcome  string          `json:"outcome"`
	Detail   string          `json:"detail,omitempty"`
	Before   json.RawMessage `json:"before,omitempty"`
	After    json.RawMessage `json:"after,omitempty"`
}

// Recorder writes events to the audit file. A nil Recorder is valid and
// records nothing.
type Recorder struct {
	db  *bbolt.DB
	log *slog.Logger
}

// Open opens (creating if needed) the audit file at path.
func Open(path string, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit bucket: %w", err)
	}
	return &Recorder{db: db, log: log}, nil
}

// Close closes the audit file.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record appends one event. Missing ID, Time, Actor, and Outcome fields are
// filled in; the actor falls back to the one carried by ctx. Failures are
// logged locally and swallowed.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil || r.db == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	if ev.Actor == "" {
		ev.Actor = Actor(ctx)
	}
	if ev.Outcome == "" {
		ev.Outcome = OutcomeOK
	}

	data, err := json.Marshal(ev)
	if err != nil {
		r.log.Warn("audit event dropped", "action", ev.Action, "error", err)
		return
	}

	err = r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
	if err != nil {
		r.log.Warn("audit event dropped", "action", ev.Action, "error", err)
	}
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	Entity string
	Action string
	Actor  string
	Limit  int
}

// List returns events newest first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Event, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	var events []Event
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("failed to decode audit event: %w", err)
			}
			if f.Entity != "" && ev.Entity != f.Entity {
				continue
			}
			if f.Action != "" && ev.Action != f.Action {
				continue
			}
			if f.Actor != "" && ev.Actor != f.Actor {
				continue
			}
			events = append(events, ev)
			if f.Limit > 0 && len(events) >= f.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// itob returns v as a big-endian 8-byte key so events iterate in insertion
// order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

type actorKey struct{}

// WithActor returns a context carrying the acting user's identifier.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the acting user carried by ctx, or "system".
func Actor(ctx context.Context) string {
	if ctx != nil {
		if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
			return a
		}
	}
	return "system"
}

// JSON marshals v for an event's Before or After snapshot, returning nil on
// failure so a bad snapshot never blocks recording.
func JSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
