package members

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"DOJO-backend/internal/platform/crypto"
	"DOJO-backend/internal/students"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAppStore struct {
	mu   sync.Mutex
	apps map[string]*Application
	seq  int

	provisionErr error
}

func newFakeAppStore() *fakeAppStore {
	return &fakeAppStore{apps: make(map[string]*Application)}
}

func (f *fakeAppStore) Insert(_ context.Context, app *Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps[app.ULID] = app
	return nil
}

func (f *fakeAppStore) GetByULID(_ context.Context, ulid string) (*Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apps[ulid], nil
}

func (f *fakeAppStore) List(_ context.Context, status *Status, _, _ int) ([]Application, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Application
	for _, a := range f.apps {
		if status == nil || a.Status == *status {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeAppStore) Approve(_ context.Context, ulid, decidedBy, _ string, year int) (*students.Provisioned, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[ulid]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	if app.Status != StatusPending {
		return nil, ErrAlreadyDecided
	}
	if f.provisionErr != nil {
		// whole transaction rolls back: status stays pending
		return nil, f.provisionErr
	}
	f.seq++
	now := time.Now()
	app.Status = StatusApproved
	app.DecidedAt = &now
	app.DecidedBy = &decidedBy
	return &students.Provisioned{
		AccountULID:     "01FAKEACCOUNT0000000000000",
		AdmissionNumber: students.FormatAdmissionNumber(year, f.seq),
	}, nil
}

func (f *fakeAppStore) Reject(_ context.Context, ulid, decidedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[ulid]
	if !ok {
		return ErrApplicationNotFound
	}
	if app.Status != StatusPending {
		return ErrAlreadyDecided
	}
	now := time.Now()
	app.Status = StatusRejected
	app.DecidedAt = &now
	app.DecidedBy = &decidedBy
	return nil
}

func testService(t *testing.T) (*Service, *fakeAppStore, *crypto.FieldCipher) {
	t.Helper()
	fc, err := crypto.NewFieldCipher(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	store := newFakeAppStore()
	return NewService(store, fc, time.UTC), store, fc
}

func strPtr(s string) *string { return &s }

func apply(t *testing.T, svc *Service) *ApplicationSummary {
	t.Helper()
	res, err := svc.Apply(context.Background(), ApplyRequest{
		FullName:         "Ｙｕｋｉ Ｍｏｒｉ",
		Email:            "yuki@dojo.example",
		Password:         "pw12345678",
		Phone:            strPtr("０８０-２２２２-３３３３"),
		EmergencyContact: strPtr("father 090-4444-5555"),
	})
	require.NoError(t, err)
	return res
}

func TestApplyStoresEncryptedPII(t *testing.T) {
	svc, store, fc := testService(t)
	res := apply(t, svc)

	assert.Equal(t, StatusPending, res.Status)
	assert.Equal(t, "Yuki Mori", res.FullName) // width-folded

	app := store.apps[res.ULID]
	require.NotNil(t, app)
	// never plaintext at rest
	assert.NotEqual(t, "080-2222-3333", app.PhoneEnc)
	assert.Len(t, strings.Split(app.PhoneEnc, ":"), 3)
	phone, err := fc.Decrypt(app.PhoneEnc)
	require.NoError(t, err)
	assert.Equal(t, "080-2222-3333", phone)

	// password stored as bcrypt hash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(app.PasswordHash), []byte("pw12345678")))
}

func TestApplyValidation(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.Apply(context.Background(), ApplyRequest{FullName: "A", Email: "not-an-email", Password: "pw12345678"})
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeInvalidArgument, de.Code)

	_, err = svc.Apply(context.Background(), ApplyRequest{FullName: "A", Email: "a@dojo.example", Password: "short"})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeInvalidArgument, de.Code)
}

func TestGetDecryptsForAuthorizedViewer(t *testing.T) {
	svc, _, _ := testService(t)
	res := apply(t, svc)

	got, err := svc.Get(context.Background(), res.ULID)
	require.NoError(t, err)
	assert.Equal(t, "080-2222-3333", got.Phone)
	assert.Equal(t, "father 090-4444-5555", got.EmergencyContact)
}

func TestApproveTransitionsAndProvisions(t *testing.T) {
	svc, store, _ := testService(t)
	res := apply(t, svc)

	out, err := svc.Approve(context.Background(), res.ULID, "01ADMIN0000000000000000000")
	require.NoError(t, err)
	assert.NotEmpty(t, out.AdmissionNumber)
	assert.Equal(t, StatusApproved, store.apps[res.ULID].Status)
	require.NotNil(t, store.apps[res.ULID].DecidedBy)
	assert.Equal(t, "01ADMIN0000000000000000000", *store.apps[res.ULID].DecidedBy)

	// terminal: second approval conflicts
	_, err = svc.Approve(context.Background(), res.ULID, "01ADMIN0000000000000000000")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeConflict, de.Code)

	// and a rejected application cannot be approved either
	res2 := apply(t, svc)
	require.NoError(t, svc.Reject(context.Background(), res2.ULID, "01ADMIN0000000000000000000"))
	_, err = svc.Approve(context.Background(), res2.ULID, "01ADMIN0000000000000000000")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeConflict, de.Code)
}

func TestApproveProvisionFailureLeavesPending(t *testing.T) {
	svc, store, _ := testService(t)
	res := apply(t, svc)

	store.provisionErr = students.ErrEmailTaken
	_, err := svc.Approve(context.Background(), res.ULID, "01ADMIN0000000000000000000")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeConflict, de.Code)
	// rollback: still pending, approvable once the conflict is resolved
	assert.Equal(t, StatusPending, store.apps[res.ULID].Status)
}

func TestApproveUnknownApplication(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.Approve(context.Background(), "01NOSUCH000000000000000000", "x")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeNotFound, de.Code)
}

func TestListFilter(t *testing.T) {
	svc, _, _ := testService(t)
	a := apply(t, svc)
	_, err := svc.Apply(context.Background(), ApplyRequest{
		FullName: "Second", Email: "second@dojo.example", Password: "pw12345678",
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), a.ULID, "01ADMIN0000000000000000000")
	require.NoError(t, err)

	pending, total, err := svc.List(context.Background(), "pending", 50, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pending, 1)
	assert.Equal(t, "second@dojo.example", pending[0].Email)

	_, _, err = svc.List(context.Background(), "bogus", 50, 0)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeInvalidArgument, de.Code)
}
