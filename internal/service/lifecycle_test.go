package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

func requireCode(t *testing.T, err error, want *appErrors.Error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	require.Equal(t, want.Code, appErr.Code, appErr.Message)
	return appErr
}

var allRechargeActions = []models.RechargeAction{
	models.RechargeActionAssign, models.RechargeActionSubmitScreenshot, models.RechargeActionProcess,
	models.RechargeActionReject, models.RechargeActionComplete, models.RechargeActionDispute,
	models.RechargeActionResolve, models.RechargeActionCancel,
}

var allRedeemActions = []models.RedeemAction{
	models.RedeemActionApprove, models.RedeemActionSendToVerification, models.RedeemActionVerify,
	models.RedeemActionFailVerification, models.RedeemActionPay, models.RedeemActionReject, models.RedeemActionCancel,
}

func TestTerminalStatusesAdmitNoActions(t *testing.T) {
	for _, s := range []models.RechargeStatus{models.RechargeCompleted, models.RechargeVerified, models.RechargeCancelled} {
		assert.True(t, RechargeMachine.Terminal(s))
		assert.Empty(t, RechargeMachine.Actions(s))
		for _, a := range allRechargeActions {
			_, err := RechargeMachine.Next(s, a)
			requireCode(t, err, appErrors.ErrInvalidTransition)
		}
	}
	for _, s := range []models.RedeemStatus{models.RedeemCompleted, models.RedeemRejected, models.RedeemCancelled} {
		assert.True(t, RedeemMachine.Terminal(s))
		for _, a := range allRedeemActions {
			_, err := RedeemMachine.Next(s, a)
			requireCode(t, err, appErrors.ErrInvalidTransition)
		}
	}
	for _, s := range []models.ReviewStatus{models.ReviewCompleted, models.ReviewRejected, models.ReviewCancelled} {
		for _, a := range []models.ReviewAction{models.ReviewActionProcess, models.ReviewActionReject, models.ReviewActionCancel} {
			_, err := ReviewMachine.Next(s, a)
			requireCode(t, err, appErrors.ErrInvalidTransition)
		}
	}
}

func TestRechargeHappyPath(t *testing.T) {
	steps := []struct {
		action models.RechargeAction
		want   models.RechargeStatus
	}{
		{models.RechargeActionAssign, models.RechargeAssigned},
		{models.RechargeActionSubmitScreenshot, models.RechargeSCSubmitted},
		{models.RechargeActionReject, models.RechargeSCRejected},
		{models.RechargeActionSubmitScreenshot, models.RechargeSCSubmitted},
		{models.RechargeActionProcess, models.RechargeSCProcessed},
		{models.RechargeActionDispute, models.RechargeDisputed},
	}
	status := models.RechargePending
	for _, step := range steps {
		next, err := RechargeMachine.Next(status, step.action)
		require.NoError(t, err, "%s from %s", step.action, status)
		assert.Equal(t, step.want, next)
		status = next
	}
	assert.NoError(t, RechargeMachine.Check(status, models.RechargeActionResolve, models.RechargeVerified))
	assert.NoError(t, RechargeMachine.Check(status, models.RechargeActionResolve, models.RechargeCompleted))
	requireCode(t, RechargeMachine.Check(status, models.RechargeActionResolve, models.RechargeCancelled), appErrors.ErrInvalidTransition)
}

func TestRechargeRejectsOutOfOrderActions(t *testing.T) {
	_, err := RechargeMachine.Next(models.RechargePending, models.RechargeActionProcess)
	requireCode(t, err, appErrors.ErrInvalidTransition)

	_, err = RechargeMachine.Next(models.RechargeAssigned, models.RechargeActionComplete)
	requireCode(t, err, appErrors.ErrInvalidTransition)
}

func TestRedeemPayTargets(t *testing.T) {
	assert.NoError(t, RedeemMachine.Check(models.RedeemQueued, models.RedeemActionPay, models.RedeemQueuedPartiallyPaid))
	assert.NoError(t, RedeemMachine.Check(models.RedeemQueuedPartiallyPaid, models.RedeemActionPay, models.RedeemCompleted))
	requireCode(t, RedeemMachine.Check(models.RedeemPending, models.RedeemActionPay, models.RedeemCompleted), appErrors.ErrInvalidTransition)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.RequestTypeRecharge, "cancel"))
	assert.False(t, IsTerminal(models.RequestTypeRecharge, "sc_processed"))
	assert.True(t, IsTerminal(models.RequestTypeRedeem, "rejected"))
	assert.False(t, IsTerminal(models.RequestTypeRedeem, "queued_partially_paid"))
	assert.True(t, IsTerminal(models.RequestTypeTransfer, "completed"))
	assert.False(t, IsTerminal(models.RequestTypeResetPassword, "pending"))
}

func TestAllowPanicsOnTerminalSource(t *testing.T) {
	assert.Panics(t, func() {
		NewMachine[models.ReviewStatus, models.ReviewAction](models.ReviewCompleted).
			Allow(models.ReviewActionCancel, []models.ReviewStatus{models.ReviewCompleted}, models.ReviewCancelled)
	})
}
