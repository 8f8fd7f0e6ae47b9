package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/sinalizacao/internal/auth"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/session"
)

// DefaultResetSecret is set when an administrator resets a password without
// choosing a new one.
const DefaultResetSecret = "1234"

// Authenticate checks a user's secret. On success the login is recorded and
// the login that preceded it is returned. Unknown users and wrong secrets
// produce the same ErrAuth and cost the same verification. The secret is
// verified without holding the engine lock.
func (e *Engine) Authenticate(ctx context.Context, userID, secret string) (model.User, *session.Access, error) {
	e.mu.Lock()
	i := e.userIndex(userID)
	var stored string
	if i >= 0 {
		stored = e.users[i].Pass
	}
	e.mu.Unlock()

	if i < 0 {
		e.verifier.Verify(e.decoyPass(), secret)
		return model.User{}, nil, ErrAuth
	}
	if !e.verifier.Verify(stored, secret) {
		return model.User{}, nil, ErrAuth
	}

	// The profile may have been removed or its secret changed meanwhile.
	e.mu.Lock()
	i = e.userIndex(userID)
	var u model.User
	ok := i >= 0 && e.users[i].Pass == stored
	if ok {
		u = e.users[i]
	}
	e.mu.Unlock()
	if !ok {
		return model.User{}, nil, ErrAuth
	}

	prev := e.tracker.Record(ctx, u.Name, e.now())
	return u, prev, nil
}

// decoyPass returns a stored secret no user holds, in the verifier's form.
func (e *Engine) decoyPass() string {
	e.decoy.once.Do(func() {
		stored, err := e.verifier.Hash("decoy-" + e.newID())
		if err == nil {
			e.decoy.stored = stored
		}
	})
	return e.decoy.stored
}

// hash converts secret to its stored form. Secrets the verifier cannot
// store are validation errors.
func (e *Engine) hash(secret string) (string, error) {
	stored, err := e.verifier.Hash(secret)
	if errors.Is(err, auth.ErrSecretTooLong) {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return stored, err
}

// RequestPasswordReset flags a user as wanting a password reset. It needs no
// authorization and is idempotent.
func (e *Engine) RequestPasswordReset(ctx context.Context, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.userIndex(userID)
	if i < 0 {
		return fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}
	if e.users[i].ResetRequested {
		return nil
	}

	u := e.users[i]
	u.ResetRequested = true
	return e.putUser(ctx, i, u)
}

// AdminResetPassword sets another user's secret and clears their reset
// request. An empty secret resets to DefaultResetSecret. Only the
// administrator may reset the administrator's own secret this way.
func (e *Engine) AdminResetPassword(ctx context.Context, actorID, targetID, newSecret string) error {
	if newSecret == "" {
		newSecret = DefaultResetSecret
	}

	e.mu.Lock()
	_, err := e.resetTarget(actorID, targetID)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if err := model.ValidateSecretSize(newSecret); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	stored, err := e.hash(newSecret)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i, err := e.resetTarget(actorID, targetID)
	if err != nil {
		return err
	}
	return e.storeSecret(ctx, i, stored)
}

// resetTarget authorizes actorID to reset targetID's secret and returns the
// target's index. Callers hold e.mu.
func (e *Engine) resetTarget(actorID, targetID string) (int, error) {
	actor, err := e.require(actorID, model.CapManageUsers)
	if err != nil {
		return -1, err
	}
	i := e.userIndex(targetID)
	if i < 0 {
		return -1, fmt.Errorf("%w: user %q", ErrNotFound, targetID)
	}
	if e.users[i].IsAdmin && !actor.IsAdmin {
		return -1, fmt.Errorf("%w: the administrator profile is protected", ErrPermissionDenied)
	}
	return i, nil
}

// ChangeOwnPassword sets the acting user's secret and clears their reset
// request.
func (e *Engine) ChangeOwnPassword(ctx context.Context, actorID, newSecret string) error {
	if err := model.ValidateSecret(newSecret); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	stored, err := e.hash(newSecret)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.userIndex(actorID)
	if i < 0 {
		return fmt.Errorf("%w: unknown acting user %q", ErrPermissionDenied, actorID)
	}
	return e.storeSecret(ctx, i, stored)
}

// ToggleUserPermission flips one capability of a user. Only the
// administrator may do this, and the administrator's own capabilities are
// fixed.
func (e *Engine) ToggleUserPermission(ctx context.Context, actorID, targetID string, c model.Capability) (model.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	actor, err := e.actor(actorID)
	if err != nil {
		return model.User{}, err
	}
	if !actor.IsAdmin {
		return model.User{}, fmt.Errorf("%w: only the administrator may change permissions", ErrPermissionDenied)
	}
	if _, ok := model.ParseCapability(string(c)); !ok {
		return model.User{}, fmt.Errorf("%w: unknown capability %q", ErrValidation, c)
	}

	i := e.userIndex(targetID)
	if i < 0 {
		return model.User{}, fmt.Errorf("%w: user %q", ErrNotFound, targetID)
	}
	if e.users[i].IsAdmin {
		return e.users[i], fmt.Errorf("%w: administrator permissions are fixed", ErrInvalidOperation)
	}

	u := e.users[i]
	u.Permissions.Toggle(c)
	if err := e.putUser(ctx, i, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// RemoveUser deletes a profile. Nobody may delete themselves or the
// administrator.
func (e *Engine) RemoveUser(ctx context.Context, actorID, targetID string) (model.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if actorID == targetID {
		return model.User{}, fmt.Errorf("%w: cannot delete yourself", ErrInvalidOperation)
	}
	if _, err := e.require(actorID, model.CapManageUsers); err != nil {
		return model.User{}, err
	}

	i := e.userIndex(targetID)
	if i < 0 {
		return model.User{}, fmt.Errorf("%w: user %q", ErrNotFound, targetID)
	}
	removed := e.users[i]
	if removed.IsAdmin {
		return model.User{}, fmt.Errorf("%w: the administrator profile cannot be deleted", ErrPermissionDenied)
	}

	if e.journal != nil {
		if err := e.journal.DeleteUser(ctx, targetID); err != nil {
			return model.User{}, fmt.Errorf("deleting user: %w", err)
		}
	}

	e.users = slices.Delete(e.users, i, i+1)
	return removed, nil
}

// UserInput describes a new operator account.
type UserInput struct {
	Name        string
	Role        string
	Secret      string
	Permissions *model.Permissions
}

// AddUser creates an operator. Capabilities in the input are honored only
// when the actor is the administrator; other managers create view-only
// accounts.
func (e *Engine) AddUser(ctx context.Context, actorID string, in UserInput) (model.User, error) {
	e.mu.Lock()
	_, err := e.require(actorID, model.CapManageUsers)
	e.mu.Unlock()
	if err != nil {
		return model.User{}, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.User{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if err := model.ValidateSecret(in.Secret); err != nil {
		return model.User{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	stored, err := e.hash(in.Secret)
	if err != nil {
		return model.User{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	actor, err := e.require(actorID, model.CapManageUsers)
	if err != nil {
		return model.User{}, err
	}

	u := model.User{
		ID:   e.newID(),
		Name: name,
		Role: strings.TrimSpace(in.Role),
		Pass: stored,
	}
	for u.ID == model.AdminID || e.userIndex(u.ID) >= 0 {
		u.ID = e.newID()
	}
	if in.Permissions != nil && actor.IsAdmin {
		u.Permissions = *in.Permissions
	}

	if e.journal != nil {
		if err := e.journal.PutUser(ctx, u); err != nil {
			return model.User{}, fmt.Errorf("saving user: %w", err)
		}
	}

	e.users = append(e.users, u)
	return u, nil
}

// storeSecret replaces the stored secret of users[i] and clears its reset
// request. Callers hold e.mu.
func (e *Engine) storeSecret(ctx context.Context, i int, stored string) error {
	u := e.users[i]
	u.Pass = stored
	u.ResetRequested = false
	return e.putUser(ctx, i, u)
}

// putUser writes u through the journal and then replaces users[i].
// Callers hold e.mu.
func (e *Engine) putUser(ctx context.Context, i int, u model.User) error {
	if e.journal != nil {
		if err := e.journal.PutUser(ctx, u); err != nil {
			return fmt.Errorf("saving user: %w", err)
		}
	}
	e.users[i] = u
	return nil
}
