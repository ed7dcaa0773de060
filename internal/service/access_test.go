package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

func TestHasTeamAccess(t *testing.T) {
	support := operator("u1", models.DepartmentSupport, "ENT-1", "ENT-2")
	assert.True(t, HasTeamAccess(support, "ENT-1"))
	assert.False(t, HasTeamAccess(support, "ENT-3"))
	assert.False(t, HasTeamAccess(nil, "ENT-1"))

	admin := &models.JWTClaims{UserID: "a", Department: models.DepartmentAdmin, AllTeams: true}
	assert.True(t, HasTeamAccess(admin, "ENT-9"))
}

func TestScopeFilter(t *testing.T) {
	actor := operator("u1", models.DepartmentOperations, "ENT-1")

	filter := models.RequestFilter{}
	require.NoError(t, scopeFilter(actor, &filter))
	assert.Equal(t, []string{"ENT-1"}, filter.Teams)
	assert.False(t, filter.AllTeams)

	filter = models.RequestFilter{TeamCode: "ENT-2"}
	requireCode(t, scopeFilter(actor, &filter), appErrors.ErrTenantDenied)

	requireCode(t, scopeFilter(nil, &filter), appErrors.ErrUnauthorized)
}

func TestCanPerform(t *testing.T) {
	cases := []struct {
		dept   models.Department
		t      models.RequestType
		action string
		want   bool
	}{
		{models.DepartmentSupport, models.RequestTypeRecharge, ActionCreate, true},
		{models.DepartmentOperations, models.RequestTypeRecharge, ActionCreate, false},
		{models.DepartmentOperations, models.RequestTypeRecharge, string(models.RechargeActionProcess), true},
		{models.DepartmentSupport, models.RequestTypeRecharge, string(models.RechargeActionProcess), false},
		{models.DepartmentVerification, models.RequestTypeRecharge, string(models.RechargeActionResolve), true},
		{models.DepartmentFinance, models.RequestTypeRecharge, string(models.RechargeActionAssign), true},
		{models.DepartmentVerification, models.RequestTypeRedeem, string(models.RedeemActionVerify), true},
		{models.DepartmentSupport, models.RequestTypeRedeem, string(models.RedeemActionApprove), false},
		{models.DepartmentAdmin, models.RequestTypeTransfer, string(models.ReviewActionProcess), true},
		{models.DepartmentAudit, models.RequestTypeTransfer, string(models.ReviewActionProcess), false},
		{models.DepartmentAudit, models.RequestTypeRecharge, ActionLock, false},
		{models.DepartmentSupport, models.RequestTypeRecharge, ActionLock, true},
		{"", models.RequestTypeRecharge, ActionLock, false},
		{models.DepartmentAudit, models.RequestTypeRedeem, ActionExport, true},
		{models.DepartmentAdmin, models.RequestTypeRedeem, ActionExport, true},
		{models.DepartmentSupport, models.RequestTypeRedeem, ActionExport, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanPerform(tc.dept, tc.t, tc.action), "%s %s %s", tc.dept, tc.action, tc.t)
	}
}

// Operators outside a team neither see nor touch its records.
func TestTenantIsolationAcrossServices(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	own := seedRecharge(w, "ENT-1", models.RechargePending, 50)
	foreign := seedRecharge(w, "ENT-2", models.RechargePending, 75)
	foreignRedeem := seedRedeem(w, "ENT-2", models.RedeemPending, 100)

	ops := operator("ops-1", models.DepartmentOperations, "ENT-1")

	list, total, err := w.rechargeSvc.List(ctx, ops, dto.RequestQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)

	_, err = w.rechargeSvc.Get(ctx, ops, foreign.ID)
	requireCode(t, err, appErrors.ErrTenantDenied)

	_, err = w.rechargeSvc.Cancel(ctx, ops, foreign.ID, dto.NoteRequest{})
	requireCode(t, err, appErrors.ErrTenantDenied)

	_, err = w.redeemSvc.Approve(ctx, ops, foreignRedeem.ID, dto.NoteRequest{})
	requireCode(t, err, appErrors.ErrTenantDenied)

	_, err = w.lockSvc.Acquire(ctx, ops, models.RequestTypeRecharge, foreign.ID, dto.AcquireLockRequest{ModalType: models.ModalCancel})
	requireCode(t, err, appErrors.ErrTenantDenied)

	_, _, err = w.rechargeSvc.List(ctx, ops, dto.RequestQuery{TeamCode: "ENT-2"})
	requireCode(t, err, appErrors.ErrTenantDenied)

	stored, err := w.recharges.GetByID(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RechargePending, stored.Status)
	assert.Equal(t, models.ProcessingIdle, stored.ProcessingState.Status)
}
