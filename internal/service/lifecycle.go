package service

import (
	"fmt"

	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

// Machine is a status transition table. Terminal statuses admit no action.
type Machine[S ~string, A ~string] struct {
	edges    map[S]map[A][]S
	terminal map[S]bool
}

// NewMachine creates an empty machine with the given terminal statuses.
func NewMachine[S ~string, A ~string](terminal ...S) *Machine[S, A] {
	m := &Machine[S, A]{edges: make(map[S]map[A][]S), terminal: make(map[S]bool, len(terminal))}
	for _, s := range terminal {
		m.terminal[s] = true
	}
	return m
}

// Allow registers action as moving each of from to one of targets. The first
// target is the default returned by Next.
func (m *Machine[S, A]) Allow(action A, from []S, targets ...S) *Machine[S, A] {
	for _, s := range from {
		if m.terminal[s] {
			panic(fmt.Sprintf("lifecycle: terminal status %s cannot have outgoing %s", s, action))
		}
		if m.edges[s] == nil {
			m.edges[s] = make(map[A][]S)
		}
		m.edges[s][action] = append(m.edges[s][action], targets...)
	}
	return m
}

// Terminal reports whether s is a final status.
func (m *Machine[S, A]) Terminal(s S) bool {
	return m.terminal[s]
}

// Next returns the default target of action from current.
func (m *Machine[S, A]) Next(current S, action A) (S, error) {
	targets, err := m.targets(current, action)
	if err != nil {
		return "", err
	}
	return targets[0], nil
}

// Check verifies that action may move current to target.
func (m *Machine[S, A]) Check(current S, action A, target S) error {
	targets, err := m.targets(current, action)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if t == target {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("%s cannot move a %s request to %s", action, current, target))
}

// Actions lists what can be done from current.
func (m *Machine[S, A]) Actions(current S) []A {
	actions := make([]A, 0, len(m.edges[current]))
	for a := range m.edges[current] {
		actions = append(actions, a)
	}
	return actions
}

func (m *Machine[S, A]) targets(current S, action A) ([]S, error) {
	if m.terminal[current] {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request is %s and can no longer change", current))
	}
	targets := m.edges[current][action]
	if len(targets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s a request in status %s", action, current))
	}
	return targets, nil
}

var (
	rechargeOpen = []models.RechargeStatus{
		models.RechargePending, models.RechargeAssigned, models.RechargeSCSubmitted,
		models.RechargeSCProcessed, models.RechargeSCRejected, models.RechargeDisputed,
	}
	redeemOpen = []models.RedeemStatus{
		models.RedeemPending, models.RedeemVerificationPending, models.RedeemVerificationFailed,
		models.RedeemQueued, models.RedeemQueuedPartiallyPaid,
	}
)

// RechargeMachine is the recharge lifecycle.
var RechargeMachine = NewMachine[models.RechargeStatus, models.RechargeAction](
	models.RechargeCompleted, models.RechargeVerified, models.RechargeCancelled,
).
	Allow(models.RechargeActionAssign, []models.RechargeStatus{models.RechargePending}, models.RechargeAssigned).
	Allow(models.RechargeActionSubmitScreenshot, []models.RechargeStatus{models.RechargeAssigned, models.RechargeSCRejected}, models.RechargeSCSubmitted).
	Allow(models.RechargeActionProcess, []models.RechargeStatus{models.RechargeSCSubmitted}, models.RechargeSCProcessed).
	Allow(models.RechargeActionReject, []models.RechargeStatus{models.RechargeSCSubmitted}, models.RechargeSCRejected).
	Allow(models.RechargeActionComplete, []models.RechargeStatus{models.RechargeSCProcessed}, models.RechargeCompleted).
	Allow(models.RechargeActionDispute, []models.RechargeStatus{models.RechargeSCProcessed}, models.RechargeDisputed).
	Allow(models.RechargeActionResolve, []models.RechargeStatus{models.RechargeDisputed}, models.RechargeVerified, models.RechargeCompleted).
	Allow(models.RechargeActionCancel, rechargeOpen, models.RechargeCancelled)

// RedeemMachine is the redeem lifecycle.
var RedeemMachine = NewMachine[models.RedeemStatus, models.RedeemAction](
	models.RedeemCompleted, models.RedeemRejected, models.RedeemCancelled,
).
	Allow(models.RedeemActionApprove, []models.RedeemStatus{models.RedeemPending}, models.RedeemQueued).
	Allow(models.RedeemActionSendToVerification, []models.RedeemStatus{models.RedeemPending, models.RedeemVerificationFailed}, models.RedeemVerificationPending).
	Allow(models.RedeemActionVerify, []models.RedeemStatus{models.RedeemVerificationPending}, models.RedeemQueued).
	Allow(models.RedeemActionFailVerification, []models.RedeemStatus{models.RedeemVerificationPending}, models.RedeemVerificationFailed).
	Allow(models.RedeemActionPay, []models.RedeemStatus{models.RedeemQueued, models.RedeemQueuedPartiallyPaid}, models.RedeemQueuedPartiallyPaid, models.RedeemCompleted).
	Allow(models.RedeemActionReject, redeemOpen, models.RedeemRejected).
	Allow(models.RedeemActionCancel, redeemOpen, models.RedeemCancelled)

// ReviewMachine is the single-step lifecycle of transfers and password resets.
var ReviewMachine = NewMachine[models.ReviewStatus, models.ReviewAction](
	models.ReviewCompleted, models.ReviewRejected, models.ReviewCancelled,
).
	Allow(models.ReviewActionProcess, []models.ReviewStatus{models.ReviewPending}, models.ReviewCompleted).
	Allow(models.ReviewActionReject, []models.ReviewStatus{models.ReviewPending}, models.ReviewRejected).
	Allow(models.ReviewActionCancel, []models.ReviewStatus{models.ReviewPending}, models.ReviewCancelled)

// IsTerminal reports whether status is final for requests of type t.
func IsTerminal(t models.RequestType, status string) bool {
	switch t {
	case models.RequestTypeRecharge:
		return RechargeMachine.Terminal(models.RechargeStatus(status))
	case models.RequestTypeRedeem:
		return RedeemMachine.Terminal(models.RedeemStatus(status))
	default:
		return ReviewMachine.Terminal(models.ReviewStatus(status))
	}
}
