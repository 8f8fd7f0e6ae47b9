package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/sinalizacao/internal/auth"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/query"
	"github.com/erazemk/sinalizacao/internal/session"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

type fakeJournal struct {
	items map[string]model.Item
	users map[string]model.User
	fail  bool
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{items: map[string]model.Item{}, users: map[string]model.User{}}
}

var errDiskFull = errors.New("disk full")

func (j *fakeJournal) PutItem(_ context.Context, it model.Item) error {
	if j.fail {
		return errDiskFull
	}
	j.items[it.ID] = it
	return nil
}

func (j *fakeJournal) DeleteItem(_ context.Context, id string) error {
	if j.fail {
		return errDiskFull
	}
	delete(j.items, id)
	return nil
}

func (j *fakeJournal) PutUser(_ context.Context, u model.User) error {
	if j.fail {
		return errDiskFull
	}
	j.users[u.ID] = u
	return nil
}

func (j *fakeJournal) DeleteUser(_ context.Context, id string) error {
	if j.fail {
		return errDiskFull
	}
	delete(j.users, id)
	return nil
}

func seedUsers() []model.User {
	return []model.User{
		{ID: "1", Name: "Ricardo Santos", Role: "Eng. de Segurança", Pass: "1234", Permissions: model.FullAccess},
		{ID: "2", Name: "Ana Paula", Role: "Técnico SST", Pass: "1234", Permissions: model.StandardAccess},
		{ID: "3", Name: "Carlos Oliveira", Role: "Supervisor Logístico", Pass: "1234", Permissions: model.ViewOnly},
		{ID: "4", Name: "Juliana Lima", Role: "Auxiliar de Almoxarifado", Pass: "1234", Permissions: model.Permissions{CanAddItems: true}},
		{ID: model.AdminID, Name: "Administrador", Role: "Diretoria / TI", Pass: "@dm123", IsAdmin: true},
	}
}

func seedItems() []model.Item {
	return []model.Item{
		{ID: "i1", Code: "S001", Description: "ENTRADA PEDESTRE", Entry: 50, Exit: 10, MinStock: 15, MaxStock: 100, CreatedBy: "Ricardo Santos", UpdatedBy: "Ricardo Santos"},
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeJournal) {
	t.Helper()
	j := newFakeJournal()
	clock := &fakeClock{t: time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)}
	n := 0
	base := []Option{
		WithJournal(j),
		WithClock(clock.now),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("gen-%d", n) }),
	}
	e, err := New(seedUsers(), seedItems(), append(base, opts...)...)
	require.NoError(t, err)
	return e, j
}

func TestNewRequiresExactlyOneAdministrator(t *testing.T) {
	users := seedUsers()[:4]
	_, err := New(users, nil)
	assert.ErrorIs(t, err, ErrValidation)

	two := append(seedUsers(), model.User{ID: "x", Name: "Other", IsAdmin: true})
	_, err = New(two, nil)
	assert.ErrorIs(t, err, ErrValidation, "second administrator must be rejected")

	dup := append(seedUsers(), model.User{ID: "1", Name: "Dup"})
	_, err = New(dup, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = New(seedUsers(), []model.Item{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewForcesAdministratorPermissions(t *testing.T) {
	e, _ := newTestEngine(t)
	admin, err := e.User(model.AdminID)
	require.NoError(t, err)
	assert.Equal(t, model.FullAccess, admin.Permissions)
}

func TestAddItem(t *testing.T) {
	e, j := newTestEngine(t)
	ctx := context.Background()

	it, err := e.AddItem(ctx, "2", model.ItemInput{Code: "a005", Description: "saída de emergência", Entry: "20", Exit: "5"})
	require.NoError(t, err)

	assert.Equal(t, "gen-1", it.ID)
	assert.Equal(t, "A005", it.Code)
	assert.Equal(t, "SAÍDA DE EMERGÊNCIA", it.Description)
	assert.Equal(t, model.DefaultClassification, it.Classification)
	assert.Equal(t, model.DefaultMinStock, it.MinStock)
	assert.Equal(t, model.DefaultMaxStock, it.MaxStock)
	assert.Equal(t, "Ana Paula", it.CreatedBy)
	assert.Equal(t, "Ana Paula", it.UpdatedBy)
	assert.False(t, it.UpdatedAt.IsZero())

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, it.ID, items[0].ID, "new items go to the head of the store")
	assert.Equal(t, it, j.items[it.ID])
}

func TestAddOnlyUser(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.EditItem(ctx, "4", "i1", model.ItemInput{Code: "S001"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	it, err := e.AddItem(ctx, "4", model.ItemInput{Code: "P012", Description: "PERIGO"})
	require.NoError(t, err)
	assert.Equal(t, "Juliana Lima", it.CreatedBy)
	assert.Equal(t, "Juliana Lima", it.UpdatedBy)
}

func TestViewOnlyUserCannotMutate(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddItem(ctx, "3", model.ItemInput{Code: "X"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = e.EditItem(ctx, "3", "i1", model.ItemInput{Code: "X"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = e.DeleteItem(ctx, "3", "i1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = e.AddItem(ctx, "ghost", model.ItemInput{Code: "X"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestEditItemPreservesIdentityAndCreator(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	added, err := e.AddItem(ctx, "1", model.ItemInput{Code: "e008", Description: "capacete", Entry: "100"})
	require.NoError(t, err)

	edited, err := e.EditItem(ctx, "2", added.ID, model.ItemInput{Code: "e009", Description: "uso de capacete", Entry: "100", Exit: "20", Color: "AZUL"})
	require.NoError(t, err)

	assert.Equal(t, added.ID, edited.ID)
	assert.Equal(t, "Ricardo Santos", edited.CreatedBy)
	assert.Equal(t, "Ana Paula", edited.UpdatedBy)
	assert.True(t, edited.UpdatedAt.After(added.UpdatedAt))
	assert.Equal(t, "E009", edited.Code)
	assert.Equal(t, "AZUL", edited.Color)
	assert.Equal(t, 80, edited.Balance())

	again, err := e.EditItem(ctx, "1", added.ID, model.ItemInput{Code: "E009"})
	require.NoError(t, err)
	assert.Equal(t, "Ricardo Santos", again.CreatedBy)
	assert.Equal(t, "Ricardo Santos", again.UpdatedBy)
	assert.True(t, again.UpdatedAt.After(edited.UpdatedAt))
	// Full replacement: omitted fields fall back to defaults.
	assert.Equal(t, model.DefaultColor, again.Color)
	assert.Equal(t, 0, again.Entry)

	items := e.Items()
	assert.Equal(t, added.ID, items[0].ID, "editing keeps the item's position")
}

func TestEditItemNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.EditItem(context.Background(), "1", "missing", model.ItemInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteItem(t *testing.T) {
	e, j := newTestEngine(t)
	ctx := context.Background()

	removed, err := e.DeleteItem(ctx, "1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "S001", removed.Code)
	assert.Empty(t, e.Items())
	assert.NotContains(t, j.items, "i1")

	_, err = e.DeleteItem(ctx, "1", "i1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.EditItem(ctx, "1", "i1", model.ItemInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWithoutCapabilityLeavesStoreUnchanged(t *testing.T) {
	e, _ := newTestEngine(t)
	before := e.Items()

	_, err := e.DeleteItem(context.Background(), "2", "i1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, before, e.Items())
}

func TestJournalFailureLeavesStateUnchanged(t *testing.T) {
	e, j := newTestEngine(t)
	ctx := context.Background()
	j.fail = true

	_, err := e.AddItem(ctx, "1", model.ItemInput{Code: "X"})
	assert.ErrorIs(t, err, errDiskFull)
	_, err = e.EditItem(ctx, "1", "i1", model.ItemInput{Code: "CHANGED"})
	assert.ErrorIs(t, err, errDiskFull)
	_, err = e.DeleteItem(ctx, "1", "i1")
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, seedItems(), e.Items())

	err = e.ChangeOwnPassword(ctx, "2", "abcd")
	assert.ErrorIs(t, err, errDiskFull)
	_, _, err = e.Authenticate(ctx, "2", "1234")
	assert.NoError(t, err, "old secret still valid after failed write")
}

func TestCriticalAlertScenario(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	it, err := e.Item("i1")
	require.NoError(t, err)
	assert.Equal(t, 40, it.Balance())
	assert.False(t, it.CriticalAlert())

	it, err = e.EditItem(ctx, "1", "i1", model.ItemInput{
		Code: it.Code, Description: it.Description,
		Entry: model.Num(it.Entry), Exit: model.Num(it.Exit + 30),
		MinStock: model.Num(it.MinStock), MaxStock: model.Num(it.MaxStock),
	})
	require.NoError(t, err)
	assert.Equal(t, 40, it.Exit)
	assert.Equal(t, 10, it.Balance())
	assert.True(t, it.CriticalAlert())
}

func TestView(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AddItem(ctx, "1", model.ItemInput{Code: "A005", Description: "SAÍDA", Entry: "20", Exit: "5"})
	require.NoError(t, err)

	items, err := e.View("", &query.Sort{Key: "balance", Direction: query.Ascending})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A005", items[0].Code)

	items, err = e.View("s00", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "S001", items[0].Code)

	_, err = e.View("", &query.Sort{Key: "nope"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthenticate(t *testing.T) {
	tracker := session.NewTracker(nil)
	e, _ := newTestEngine(t, WithTracker(tracker))
	ctx := context.Background()

	_, _, errGhost := e.Authenticate(ctx, "ghost-id", "anything")
	_, _, errWrong := e.Authenticate(ctx, "1", "wrong-pass")
	require.ErrorIs(t, errGhost, ErrAuth)
	require.ErrorIs(t, errWrong, ErrAuth)
	assert.Equal(t, errGhost.Error(), errWrong.Error())
	assert.Nil(t, tracker.Last(ctx), "failed attempts are not recorded")

	u, prev, err := e.Authenticate(ctx, "1", "1234")
	require.NoError(t, err)
	assert.Equal(t, "Ricardo Santos", u.Name)
	assert.Nil(t, prev)

	_, _, err = e.Authenticate(ctx, model.AdminID, "@DM123")
	assert.ErrorIs(t, err, ErrAuth, "secrets are case-sensitive")

	_, prev, err = e.Authenticate(ctx, model.AdminID, "@dm123")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "Ricardo Santos", prev.Name)
	assert.Equal(t, "Administrador", e.PreviousAccess(ctx).Name)
}

func TestRequestPasswordResetIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RequestPasswordReset(ctx, "3"))
	require.NoError(t, e.RequestPasswordReset(ctx, "3"))
	u, _ := e.User("3")
	assert.True(t, u.ResetRequested)

	stats := e.Stats()
	require.Len(t, stats.ResetRequests, 1)
	assert.Equal(t, "3", stats.ResetRequests[0].ID)

	assert.ErrorIs(t, e.RequestPasswordReset(ctx, "ghost"), ErrNotFound)
}

func TestAdminResetPassword(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.RequestPasswordReset(ctx, "3"))

	err := e.AdminResetPassword(ctx, "2", "3", "nova")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, e.AdminResetPassword(ctx, "1", "3", "nova"))
	u, _ := e.User("3")
	assert.False(t, u.ResetRequested)
	_, _, err = e.Authenticate(ctx, "3", "nova")
	assert.NoError(t, err)

	require.NoError(t, e.AdminResetPassword(ctx, model.AdminID, "3", ""))
	_, _, err = e.Authenticate(ctx, "3", DefaultResetSecret)
	assert.NoError(t, err)

	assert.ErrorIs(t, e.AdminResetPassword(ctx, "1", "ghost", "x"), ErrNotFound)
	assert.ErrorIs(t, e.AdminResetPassword(ctx, "1", model.AdminID, "x"), ErrPermissionDenied)
}

func TestChangeOwnPassword(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.RequestPasswordReset(ctx, "2"))

	err := e.ChangeOwnPassword(ctx, "2", "abc")
	assert.ErrorIs(t, err, ErrValidation)
	u, _ := e.User("2")
	assert.True(t, u.ResetRequested)

	require.NoError(t, e.ChangeOwnPassword(ctx, "2", "abcd"))
	u, _ = e.User("2")
	assert.False(t, u.ResetRequested)
	_, _, err = e.Authenticate(ctx, "2", "abcd")
	assert.NoError(t, err)
	_, _, err = e.Authenticate(ctx, "2", "1234")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestToggleUserPermission(t *testing.T) {
	e, j := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ToggleUserPermission(ctx, "1", "2", model.CapDeleteItems)
	assert.ErrorIs(t, err, ErrPermissionDenied, "full access is not administrator")

	u, err := e.ToggleUserPermission(ctx, model.AdminID, "2", model.CapDeleteItems)
	require.NoError(t, err)
	assert.True(t, u.Permissions.CanDeleteItems)
	assert.True(t, u.Permissions.CanEditItems, "other capabilities untouched")
	assert.True(t, j.users["2"].Permissions.CanDeleteItems)

	_, err = e.DeleteItem(ctx, "2", "i1")
	assert.NoError(t, err, "new capability applies immediately")

	_, err = e.ToggleUserPermission(ctx, model.AdminID, "2", model.Capability("can_fly"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.ToggleUserPermission(ctx, model.AdminID, "ghost", model.CapAddItems)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleAdministratorIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	for _, c := range model.Capabilities {
		_, err := e.ToggleUserPermission(ctx, model.AdminID, model.AdminID, c)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	}
	admin, _ := e.User(model.AdminID)
	assert.Equal(t, model.FullAccess, admin.Permissions)
	assert.Equal(t, model.FullAccess, admin.Effective())
}

func TestRemoveUser(t *testing.T) {
	e, j := newTestEngine(t)
	ctx := context.Background()
	j.users["4"] = model.User{ID: "4"}

	_, err := e.RemoveUser(ctx, "2", "4")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = e.RemoveUser(ctx, "1", model.AdminID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = e.RemoveUser(ctx, "1", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := e.RemoveUser(ctx, "1", "4")
	require.NoError(t, err)
	assert.Equal(t, "Juliana Lima", removed.Name)
	_, err = e.User("4")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, j.users, "4")
}

func TestRemoveSelfIsAlwaysInvalid(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	for _, id := range []string{model.AdminID, "1", "2", "3", "ghost"} {
		_, err := e.RemoveUser(ctx, id, id)
		assert.ErrorIs(t, err, ErrInvalidOperation, "actor %q", id)
	}
	assert.Len(t, e.Users(), 5)
}

func TestAddUser(t *testing.T) {
	e, j := newTestEngine(t)
	ctx := context.Background()
	perms := model.StandardAccess

	u, err := e.AddUser(ctx, model.AdminID, UserInput{Name: " Marta ", Role: "Técnico", Secret: "senha", Permissions: &perms})
	require.NoError(t, err)
	assert.Equal(t, "Marta", u.Name)
	assert.Equal(t, model.StandardAccess, u.Permissions)
	assert.False(t, u.IsAdmin)
	assert.Contains(t, j.users, u.ID)

	_, _, err = e.Authenticate(ctx, u.ID, "senha")
	assert.NoError(t, err)

	// A non-admin manager cannot grant capabilities.
	full := model.FullAccess
	v, err := e.AddUser(ctx, "1", UserInput{Name: "Pedro", Secret: "1234", Permissions: &full})
	require.NoError(t, err)
	assert.Equal(t, model.ViewOnly, v.Permissions)

	_, err = e.AddUser(ctx, "2", UserInput{Name: "X", Secret: "1234"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = e.AddUser(ctx, "1", UserInput{Name: " ", Secret: "1234"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.AddUser(ctx, "1", UserInput{Name: "Y", Secret: "123"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStats(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AddItem(ctx, "1", model.ItemInput{Code: "X003", Entry: "15", Exit: "12", MinStock: "5"})
	require.NoError(t, err)

	s := e.Stats()
	assert.Equal(t, 65, s.TotalEntry)
	assert.Equal(t, 22, s.TotalExit)
	assert.Equal(t, 43, s.Balance)
	assert.Equal(t, 1, s.CriticalCount)
	require.Len(t, s.CriticalItems, 1)
	assert.Equal(t, "X003", s.CriticalItems[0].Code)
	assert.Empty(t, s.ResetRequests)
}

func TestListUsersRequiresManageUsers(t *testing.T) {
	e, _ := newTestEngine(t)

	users, err := e.ListUsers("1")
	require.NoError(t, err)
	assert.Len(t, users, 5)

	_, err = e.ListUsers("2")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = e.ListUsers("ghost")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

// gateVerifier blocks Verify until release is closed.
type gateVerifier struct {
	auth.PlainVerifier
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (v *gateVerifier) Verify(stored, supplied string) bool {
	v.calls.Add(1)
	select {
	case v.entered <- struct{}{}:
	default:
	}
	<-v.release
	return v.PlainVerifier.Verify(stored, supplied)
}

func TestAuthenticateVerifiesOutsideLock(t *testing.T) {
	v := &gateVerifier{entered: make(chan struct{}, 1), release: make(chan struct{})}
	e, _ := newTestEngine(t, WithVerifier(v))
	ctx := context.Background()

	loginDone := make(chan error, 1)
	go func() {
		_, _, err := e.Authenticate(ctx, "1", "wrong-pass")
		loginDone <- err
	}()
	<-v.entered

	readDone := make(chan int, 1)
	go func() { readDone <- len(e.Items()) }()
	select {
	case n := <-readDone:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("reads blocked while a login was verifying")
	}

	close(v.release)
	assert.ErrorIs(t, <-loginDone, ErrAuth)
}

func TestAuthenticateUnknownUserStillVerifies(t *testing.T) {
	v := &gateVerifier{entered: make(chan struct{}, 1), release: make(chan struct{})}
	close(v.release)
	e, _ := newTestEngine(t, WithVerifier(v))

	_, _, err := e.Authenticate(context.Background(), "ghost-id", "anything")
	require.ErrorIs(t, err, ErrAuth)
	assert.EqualValues(t, 1, v.calls.Load())
}

func TestAuthenticateRejectsSecretChangedDuringVerify(t *testing.T) {
	v := &gateVerifier{entered: make(chan struct{}, 1), release: make(chan struct{})}
	e, _ := newTestEngine(t, WithVerifier(v))
	ctx := context.Background()

	loginDone := make(chan error, 1)
	go func() {
		_, _, err := e.Authenticate(ctx, "2", "1234")
		loginDone <- err
	}()
	<-v.entered

	require.NoError(t, e.AdminResetPassword(ctx, "1", "2", "outra"))
	close(v.release)
	assert.ErrorIs(t, <-loginDone, ErrAuth)
}

// shortVerifier refuses to store secrets longer than eight bytes.
type shortVerifier struct{ auth.PlainVerifier }

func (shortVerifier) Hash(secret string) (string, error) {
	if len(secret) > 8 {
		return "", fmt.Errorf("hashing password: %w", auth.ErrSecretTooLong)
	}
	return secret, nil
}

func TestOverlongSecretIsValidationError(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	long := strings.Repeat("a", 80)

	assert.ErrorIs(t, e.ChangeOwnPassword(ctx, "2", long), ErrValidation)
	assert.ErrorIs(t, e.AdminResetPassword(ctx, "1", "3", long), ErrValidation)
	_, err := e.AddUser(ctx, model.AdminID, UserInput{Name: "Marcos", Secret: long})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = e.Authenticate(ctx, "2", "1234")
	assert.NoError(t, err, "failed changes leave the secret intact")

	// Unauthorized callers learn nothing about the secret.
	assert.ErrorIs(t, e.AdminResetPassword(ctx, "3", "2", long), ErrPermissionDenied)
}

func TestVerifierRefusalIsValidationError(t *testing.T) {
	e, _ := newTestEngine(t, WithVerifier(shortVerifier{}))
	ctx := context.Background()

	assert.ErrorIs(t, e.ChangeOwnPassword(ctx, "2", "nine-char"), ErrValidation)
	assert.ErrorIs(t, e.AdminResetPassword(ctx, "1", "3", "nine-char"), ErrValidation)
	_, err := e.AddUser(ctx, model.AdminID, UserInput{Name: "Marcos", Secret: "nine-char"})
	assert.ErrorIs(t, err, ErrValidation)
}
