// Package engine holds the user directory and the inventory store and is the
// only write path for both. Every operation checks the acting user's
// capabilities itself and runs as one serialized unit.
package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/sinalizacao/internal/auth"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/query"
	"github.com/erazemk/sinalizacao/internal/session"
)

// Journal receives every committed change. A Journal error aborts the
// operation before the in-memory state is touched.
type Journal interface {
	PutItem(ctx context.Context, item model.Item) error
	DeleteItem(ctx context.Context, id string) error
	PutUser(ctx context.Context, user model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// Engine is the inventory and user-record mutation engine.
type Engine struct {
	mu    sync.Mutex
	items []model.Item // newest first
	users []model.User

	verifier auth.Verifier
	tracker  *session.Tracker
	journal  Journal
	now      func() time.Time
	newID    func() string

	// decoy is verified against for unknown user ids.
	decoy struct {
		once   sync.Once
		stored string
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithVerifier sets the credential verifier. Stored secrets passed to New
// must already be in the verifier's stored form.
func WithVerifier(v auth.Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithTracker sets the login audit tracker.
func WithTracker(t *session.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithJournal sets a write-through persistence journal.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New creates an engine over the given users and items (items newest first).
// Exactly one administrator, with id model.AdminID, must be present.
func New(users []model.User, items []model.Item, opts ...Option) (*Engine, error) {
	e := &Engine{
		verifier: auth.PlainVerifier{},
		tracker:  session.NewTracker(nil),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	seen := make(map[string]bool, len(users))
	admins := 0
	for _, u := range users {
		if u.ID == "" {
			return nil, fmt.Errorf("%w: user with empty id", ErrValidation)
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("%w: duplicate user id %q", ErrValidation, u.ID)
		}
		seen[u.ID] = true

		if u.IsAdmin != (u.ID == model.AdminID) {
			return nil, fmt.Errorf("%w: only the %q profile may be the administrator", ErrValidation, model.AdminID)
		}
		if u.IsAdmin {
			admins++
			u.Permissions = model.FullAccess
		}
		e.users = append(e.users, u)
	}
	if admins != 1 {
		return nil, fmt.Errorf("%w: expected exactly one administrator, got %d", ErrValidation, admins)
	}

	seenItems := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" || seenItems[it.ID] {
			return nil, fmt.Errorf("%w: missing or duplicate item id %q", ErrValidation, it.ID)
		}
		seenItems[it.ID] = true
	}
	e.items = slices.Clone(items)

	return e, nil
}

// Items returns a copy of the store, newest first.
func (e *Engine) Items() []model.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.items)
}

// Item returns one item by id.
func (e *Engine) Item(id string) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.itemIndex(id)
	if i < 0 {
		return model.Item{}, fmt.Errorf("%w: item %q", ErrNotFound, id)
	}
	return e.items[i], nil
}

// View returns the filtered, sorted display list of the current store.
func (e *Engine) View(term string, sort *query.Sort) ([]model.Item, error) {
	items, err := query.View(e.Items(), term, sort)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return items, nil
}

// Users returns a copy of every profile.
func (e *Engine) Users() []model.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.users)
}

// ListUsers returns every profile to an actor holding CapManageUsers.
func (e *Engine) ListUsers(actorID string) ([]model.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(actorID, model.CapManageUsers); err != nil {
		return nil, err
	}
	return slices.Clone(e.users), nil
}

// User returns one profile by id.
func (e *Engine) User(id string) (model.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.userIndex(id)
	if i < 0 {
		return model.User{}, fmt.Errorf("%w: user %q", ErrNotFound, id)
	}
	return e.users[i], nil
}

// PreviousAccess returns the most recent successful login.
func (e *Engine) PreviousAccess(ctx context.Context) *session.Access {
	return e.tracker.Last(ctx)
}

func (e *Engine) itemIndex(id string) int {
	return slices.IndexFunc(e.items, func(it model.Item) bool { return it.ID == id })
}

func (e *Engine) userIndex(id string) int {
	return slices.IndexFunc(e.users, func(u model.User) bool { return u.ID == id })
}

// actor resolves the live profile of the acting user. Callers hold e.mu.
func (e *Engine) actor(id string) (model.User, error) {
	i := e.userIndex(id)
	if i < 0 {
		return model.User{}, fmt.Errorf("%w: unknown acting user %q", ErrPermissionDenied, id)
	}
	return e.users[i], nil
}

// require resolves the actor and checks c. Callers hold e.mu.
func (e *Engine) require(actorID string, c model.Capability) (model.User, error) {
	actor, err := e.actor(actorID)
	if err != nil {
		return model.User{}, err
	}
	if !actor.Can(c) {
		return model.User{}, fmt.Errorf("%w: %s requires %s", ErrPermissionDenied, actor.Name, c)
	}
	return actor, nil
}
