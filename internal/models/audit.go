package models

import (
	"strings"
	"time"
)

// Audit actions. Request transitions use "<TYPE>_<ACTION>" built by RequestAuditAction.
const (
	AuditActionLogin       = "LOGIN"
	AuditActionLoginFailed = "LOGIN_FAILED"
	AuditActionRefresh     = "TOKEN_REFRESH"
	AuditActionTokenReuse  = "TOKEN_REUSE"
	AuditActionLogout      = "LOGOUT"
	AuditActionUserCreate  = "USER_CREATE"
	AuditActionLockSweep   = "LOCK_SWEEP"
	AuditActionLockRelease = "LOCK_RELEASE"
	AuditActionPlayerBan   = "PLAYER_BAN"
	AuditActionExport      = "EXPORT"
)

// RequestAuditAction builds the audit action name for a request transition.
func RequestAuditAction(t RequestType, action string) string {
	return strings.ToUpper(string(t) + "_" + action)
}

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
