package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "cuentas/internal/errors"
	"cuentas/internal/model"
	"cuentas/internal/repository"
	"cuentas/internal/testutil"
)

func newLifecycle(t *testing.T) (AccountService, *repository.Store) {
	t.Helper()
	store := repository.NewStore(testutil.NewDB(t))
	collector := newTestCollector()
	deleter := NewCascadeDeleter(store.Accounts, store, collector, zap.NewNop())
	svc, err := NewAccountService(store.Accounts, deleter, testHasher, nil, collector, zap.NewNop())
	require.NoError(t, err)
	return svc, store
}

func TestLifecycle_CreateConflictDelete(t *testing.T) {
	ctx := context.Background()
	svc, store := newLifecycle(t)

	id, err := svc.Create(ctx, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, uint(1), id)

	dup := validCreateInput()
	dup.Email = "other@x.com"
	_, err = svc.Create(ctx, dup)
	var conflictErr *apperrors.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "username", conflictErr.Field)

	for i := 0; i < 2; i++ {
		require.NoError(t, store.Appointments.Create(ctx, &model.Appointment{AccountID: id, ScheduledAt: time.Now()}))
	}
	require.NoError(t, store.History.Create(ctx, &model.MedicalHistory{AccountID: id, Diagnosis: "flu"}))

	deleted, err := svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted)

	remaining, err := store.Appointments.CountByAccountID(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	_, err = svc.GetByID(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Delete(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLifecycle_UpdateAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLifecycle(t)

	id, err := svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	other := validCreateInput()
	other.Username = "asmith"
	other.Email = "asmith@x.com"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	in := validUpdateInput()
	in.ID = id
	in.Email = "asmith@x.com"
	_, err = svc.Update(ctx, id, in)
	var conflictErr *apperrors.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "email", conflictErr.Field)

	in.Email = "john.doe@x.com"
	in.Password = "rotated-secret"
	updated, err := svc.Update(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, "john.doe@x.com", updated.Email)
	assert.Equal(t, "Johnny", updated.FirstName)
	assert.Equal(t, 31, updated.Age)

	_, err = svc.ValidateCredentials(ctx, "jdoe", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	account, err := svc.ValidateCredentials(ctx, "jdoe", "rotated-secret")
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)
}

func TestLifecycle_ConcurrentCreateSameUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLifecycle(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := validCreateInput()
			in.Email = fmt.Sprintf("jdoe%d@x.com", i)
			_, err := svc.Create(ctx, in)

			mu.Lock()
			defer mu.Unlock()
			switch apperrors.KindOf(err) {
			case apperrors.KindSuccess:
				successes++
			case apperrors.KindConflict:
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	accounts, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}
