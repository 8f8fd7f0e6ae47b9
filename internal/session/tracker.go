// Package session keeps the process-wide "previous access" audit record.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// LastAccessKey is the key under which the record is persisted.
const LastAccessKey = "last_access"

// Access is one successful login.
type Access struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// KV is the optional persistence collaborator.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Tracker records the most recent successful login. Without a KV the record
// lives only in memory; KV failures are logged and the in-memory copy is used.
type Tracker struct {
	mu   sync.Mutex
	kv   KV
	last *Access
}

// NewTracker creates a tracker. kv may be nil.
func NewTracker(kv KV) *Tracker {
	return &Tracker{kv: kv}
}

// Record stores a successful login by name at the given time and returns the
// login that preceded it, or nil if there was none.
func (t *Tracker) Record(ctx context.Context, name string, at time.Time) *Access {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.load(ctx)
	cur := &Access{Name: name, At: at}
	t.last = cur

	if t.kv != nil {
		data, err := json.Marshal(cur)
		if err == nil {
			err = t.kv.Set(ctx, LastAccessKey, string(data))
		}
		if err != nil {
			slog.Warn("failed to persist last access", "error", err)
		}
	}

	return prev
}

// Last returns the most recent successful login, or nil.
func (t *Tracker) Last(ctx context.Context) *Access {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

func (t *Tracker) load(ctx context.Context) *Access {
	if t.kv != nil {
		raw, ok, err := t.kv.Get(ctx, LastAccessKey)
		switch {
		case err != nil:
			slog.Warn("failed to load last access", "error", err)
		case ok:
			var a Access
			if err := json.Unmarshal([]byte(raw), &a); err != nil {
				slog.Warn("discarding malformed last access record", "error", err)
			} else {
				return &a
			}
		}
	}
	return copyAccess(t.last)
}

func copyAccess(a *Access) *Access {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
