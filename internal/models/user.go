package models

import (
	"time"

	"github.com/lib/pq"
)

// Department groups operators by the part of the workflow they own.
type Department string

const (
	DepartmentSupport      Department = "Support"
	DepartmentOperations   Department = "Operations"
	DepartmentVerification Department = "Verification"
	DepartmentFinance      Department = "Finance"
	DepartmentAdmin        Department = "Admin"
	DepartmentAudit        Department = "Audit"
)

// UserRole is the seniority of an operator within a department.
type UserRole string

const (
	RoleAgent         UserRole = "agent"
	RoleManager       UserRole = "manager"
	RoleAdmin         UserRole = "admin"
	RoleExecutive     UserRole = "executive"
	RoleShiftIncharge UserRole = "shift_incharge"
)

// User is a back-office operator stored in the users table.
type User struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FullName     string         `db:"full_name" json:"full_name"`
	Department   Department     `db:"department" json:"department"`
	Role         UserRole       `db:"role" json:"role"`
	TeamAccess   pq.StringArray `db:"team_access" json:"team_access"`
	AllTeams     bool           `db:"all_teams" json:"all_teams"`
	Active       bool           `db:"active" json:"active"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users. Team keeps the
// operators who can see that team, all-teams operators included.
type UserFilter struct {
	Department *Department
	Team       string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
