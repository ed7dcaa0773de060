package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

func TestLockConcurrentAcquireHasOneWinner(t *testing.T) {
	w := newWorld()
	rec := seedRecharge(w, "ENT-1", models.RechargeSCSubmitted, 20)

	const contenders = 16
	results := make([]*dto.LockResult, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := operator(fmt.Sprintf("ops-%d", i), models.DepartmentOperations, "ENT-1")
			res, err := w.lockSvc.Acquire(context.Background(), actor, models.RequestTypeRecharge, rec.ID, dto.AcquireLockRequest{ModalType: models.ModalProcess})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	winners := 0
	var winner string
	for i, res := range results {
		require.NotNil(t, res)
		if res.Acquired {
			winners++
			winner = fmt.Sprintf("ops-%d", i)
		} else {
			assert.NotEmpty(t, res.Message)
		}
	}
	require.Equal(t, 1, winners)

	ref, err := w.locks.Ref(context.Background(), models.RequestTypeRecharge, rec.ID)
	require.NoError(t, err)
	assert.True(t, ref.ProcessingState.HeldBy(winner))
	assert.Equal(t, models.ModalProcess, ref.ProcessingState.Modal)

	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.lockAttempts.WithLabelValues("recharge", "acquired")))
	assert.Equal(t, float64(contenders-1), testutil.ToFloat64(w.metrics.lockAttempts.WithLabelValues("recharge", "lost")))
}

func TestLockAcquireIsReentrantForHolder(t *testing.T) {
	w := newWorld()
	rec := seedRecharge(w, "ENT-1", models.RechargeSCSubmitted, 20)
	ctx := context.Background()

	// taken just past the ttl, so the next sweep would reclaim it
	won, err := w.locks.TryAcquire(ctx, models.RequestTypeRecharge, rec.ID, opsAgent.UserID, models.ModalProcess, testNow.Add(-11*time.Minute))
	require.NoError(t, err)
	require.True(t, won)

	again, err := w.lockSvc.Acquire(ctx, opsAgent, models.RequestTypeRecharge, rec.ID, dto.AcquireLockRequest{ModalType: models.ModalReject})
	require.NoError(t, err)
	assert.True(t, again.Acquired)
	assert.Equal(t, models.ModalReject, again.ProcessingState.Modal)
	require.NotNil(t, again.ProcessingState.LockedAt)
	assert.Equal(t, testNow, *again.ProcessingState.LockedAt)

	swept, err := w.lockSvc.Sweep(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, swept.Released)

	ref, err := w.locks.Ref(ctx, models.RequestTypeRecharge, rec.ID)
	require.NoError(t, err)
	assert.True(t, ref.ProcessingState.HeldBy(opsAgent.UserID))

	other, err := w.lockSvc.Acquire(ctx, opsAgent2, models.RequestTypeRecharge, rec.ID, dto.AcquireLockRequest{ModalType: models.ModalProcess})
	require.NoError(t, err)
	assert.False(t, other.Acquired)
}

func TestLockAcquireValidation(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	done := seedRecharge(w, "ENT-1", models.RechargeCompleted, 20)
	open := seedRecharge(w, "ENT-1", models.RechargePending, 20)

	_, err := w.lockSvc.Acquire(ctx, opsAgent, models.RequestTypeRecharge, done.ID, dto.AcquireLockRequest{ModalType: models.ModalProcess})
	requireCode(t, err, appErrors.ErrInvalidTransition)

	_, err = w.lockSvc.Acquire(ctx, opsAgent, models.RequestTypeRecharge, open.ID, dto.AcquireLockRequest{ModalType: models.ModalNone})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = w.lockSvc.Acquire(ctx, opsAgent, "bonus", open.ID, dto.AcquireLockRequest{ModalType: models.ModalProcess})
	requireCode(t, err, appErrors.ErrValidation)

	auditor := operator("audit-1", models.DepartmentAudit, "ENT-1")
	_, err = w.lockSvc.Acquire(ctx, auditor, models.RequestTypeRecharge, open.ID, dto.AcquireLockRequest{ModalType: models.ModalProcess})
	requireCode(t, err, appErrors.ErrForbidden)

	_, err = w.lockSvc.Acquire(ctx, opsAgent, models.RequestTypeRecharge, "missing", dto.AcquireLockRequest{ModalType: models.ModalProcess})
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestLockReleaseRules(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	rec := seedRecharge(w, "ENT-1", models.RechargeSCSubmitted, 20)
	lockAs(t, w, models.RequestTypeRecharge, rec.ID, "ops-1")

	_, err := w.lockSvc.Release(ctx, opsAgent2, models.RequestTypeRecharge, rec.ID)
	requireCode(t, err, appErrors.ErrLockHeld)

	admin := &models.JWTClaims{UserID: "admin-1", Department: models.DepartmentAdmin, AllTeams: true}
	res, err := w.lockSvc.Release(ctx, admin, models.RequestTypeRecharge, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingIdle, res.ProcessingState.Status)
	assert.Equal(t, []string{models.AuditActionLockRelease}, w.audit.actions())

	idle, err := w.lockSvc.Release(ctx, opsAgent, models.RequestTypeRecharge, rec.ID)
	require.NoError(t, err)
	assert.False(t, idle.Acquired)

	lockAs(t, w, models.RequestTypeRecharge, rec.ID, "ops-1")
	_, err = w.lockSvc.Release(ctx, opsAgent, models.RequestTypeRecharge, rec.ID)
	require.NoError(t, err)
	assert.Len(t, w.audit.actions(), 1, "self release is not audited")
}

func TestLockSweepReleasesExpired(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	stale := seedRecharge(w, "ENT-1", models.RechargeSCSubmitted, 20)
	fresh := seedRedeem(w, "ENT-1", models.RedeemPending, 90)
	staleRedeem := seedRedeem(w, "ENT-1", models.RedeemQueued, 90)

	_, err := w.locks.TryAcquire(ctx, models.RequestTypeRecharge, stale.ID, "ops-1", models.ModalProcess, testNow.Add(-11*time.Minute))
	require.NoError(t, err)
	_, err = w.locks.TryAcquire(ctx, models.RequestTypeRedeem, staleRedeem.ID, "ops-2", models.ModalPayment, testNow.Add(-time.Hour))
	require.NoError(t, err)
	_, err = w.locks.TryAcquire(ctx, models.RequestTypeRedeem, fresh.ID, "ops-2", models.ModalVerify, testNow.Add(-time.Minute))
	require.NoError(t, err)

	_, err = w.lockSvc.Sweep(ctx, opsAgent)
	requireCode(t, err, appErrors.ErrForbidden)

	result, err := w.lockSvc.Sweep(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Released)
	assert.Equal(t, []string{stale.ID}, result.ByType[models.RequestTypeRecharge])
	assert.Equal(t, []string{staleRedeem.ID}, result.ByType[models.RequestTypeRedeem])
	assert.Equal(t, testNow.Add(-10*time.Minute), result.OlderThan)
	assert.Empty(t, w.audit.actions(), "system sweep is not audited")

	ref, err := w.locks.Ref(ctx, models.RequestTypeRedeem, fresh.ID)
	require.NoError(t, err)
	assert.True(t, ref.ProcessingState.HeldBy("ops-2"))

	assert.Len(t, w.events.all(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.locksSwept.WithLabelValues("redeem")))
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	w := newWorld()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.lockSvc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
