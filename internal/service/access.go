package service

import (
	"fmt"

	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

// HasTeamAccess reports whether the operator may see records of team.
func HasTeamAccess(actor *models.JWTClaims, team string) bool {
	if actor == nil {
		return false
	}
	if actor.AllTeams {
		return true
	}
	for _, t := range actor.TeamAccess {
		if t == team {
			return true
		}
	}
	return false
}

func ensureTeamAccess(actor *models.JWTClaims, team string) error {
	if !HasTeamAccess(actor, team) {
		return appErrors.Clone(appErrors.ErrTenantDenied, fmt.Sprintf("no access to team %s", team))
	}
	return nil
}

// scopeFilter restricts a list filter to the operator's teams. A requested
// team outside the operator's access yields an authorization error.
func scopeFilter(actor *models.JWTClaims, filter *models.RequestFilter) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if filter.TeamCode != "" {
		if err := ensureTeamAccess(actor, filter.TeamCode); err != nil {
			return err
		}
	}
	filter.AllTeams = actor.AllTeams
	filter.Teams = append([]string(nil), actor.TeamAccess...)
	return nil
}

// Generic request actions used by the permission table.
const (
	ActionCreate = "create"
	ActionLock   = "lock"
	ActionExport = "export"
)

var departmentPermissions = map[models.RequestType]map[string][]models.Department{
	models.RequestTypeRecharge: {
		ActionCreate:                                  {models.DepartmentSupport},
		string(models.RechargeActionAssign):           {models.DepartmentFinance, models.DepartmentOperations},
		string(models.RechargeActionSubmitScreenshot): {models.DepartmentSupport, models.DepartmentFinance},
		string(models.RechargeActionProcess):          {models.DepartmentOperations},
		string(models.RechargeActionReject):           {models.DepartmentOperations},
		string(models.RechargeActionComplete):         {models.DepartmentVerification},
		string(models.RechargeActionDispute):          {models.DepartmentVerification},
		string(models.RechargeActionResolve):          {models.DepartmentVerification},
		string(models.RechargeActionCancel):           {models.DepartmentSupport, models.DepartmentOperations},
	},
	models.RequestTypeRedeem: {
		ActionCreate:                                  {models.DepartmentSupport},
		string(models.RedeemActionApprove):            {models.DepartmentOperations},
		string(models.RedeemActionSendToVerification): {models.DepartmentOperations},
		string(models.RedeemActionVerify):             {models.DepartmentVerification},
		string(models.RedeemActionFailVerification):   {models.DepartmentVerification},
		string(models.RedeemActionReject):             {models.DepartmentOperations, models.DepartmentVerification},
		string(models.RedeemActionCancel):             {models.DepartmentSupport, models.DepartmentOperations},
		string(models.RedeemActionPay):                {models.DepartmentOperations},
	},
	models.RequestTypeTransfer: {
		ActionCreate:                       {models.DepartmentSupport},
		string(models.ReviewActionProcess): {models.DepartmentOperations},
		string(models.ReviewActionReject):  {models.DepartmentOperations},
		string(models.ReviewActionCancel):  {models.DepartmentSupport, models.DepartmentOperations},
	},
	models.RequestTypeResetPassword: {
		ActionCreate:                       {models.DepartmentSupport},
		string(models.ReviewActionProcess): {models.DepartmentOperations},
		string(models.ReviewActionReject):  {models.DepartmentOperations},
		string(models.ReviewActionCancel):  {models.DepartmentSupport, models.DepartmentOperations},
	},
}

// CanPerform reports whether a department may run action on requests of type t.
// Admin may do everything; Audit is read-only apart from exports.
func CanPerform(dept models.Department, t models.RequestType, action string) bool {
	switch action {
	case ActionLock:
		return dept != models.DepartmentAudit && dept != ""
	case ActionExport:
		return dept == models.DepartmentAudit || dept == models.DepartmentAdmin
	}
	if dept == models.DepartmentAdmin {
		return true
	}
	for _, d := range departmentPermissions[t][action] {
		if d == dept {
			return true
		}
	}
	return false
}

func ensurePermission(actor *models.JWTClaims, t models.RequestType, action string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !CanPerform(actor.Department, t, action) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s cannot %s %s requests", actor.Department, action, t))
	}
	return nil
}
