package domain

import "time"

// AuditLog represents an audit event. UserID is empty when the event never resolved an account.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Audited actions.
const (
	ActionRegister      = "register"
	ActionLogin         = "login"
	ActionLoginFailure  = "login_failure"
	ActionLogout        = "logout"
	ActionInvalidate    = "invalidate"
	ActionPasswordReset = "password_reset"
)

// Audited resources.
const (
	ResourceUser    = "user"
	ResourceSession = "session"
)
