// Package reqcontext carries the multi-tenant query scope — allowed AWS
// account ids, organization, and active saved view — and exposes the
// account-filter SQL every generated query must respect (spec §4.4).
package reqcontext

import (
	"regexp"
	"strings"
	"time"
)

var accountIDRe = regexp.MustCompile(`^\d{12}$`)

// SavedView is a caller-managed bundle of account ids, default time range,
// and default filters that overrides orchestrator defaults for one tenant
// (spec Glossary).
type SavedView struct {
	ID                string
	Name              string
	AccountIDs        []string
	DefaultTimeRange  string
	Filters           map[string]any
	IsPersonal        bool
	ExpiresAt         *time.Time
}

// Context is RequestContext from spec §3/§4.4.
type Context struct {
	UserID             string
	UserEmail          string
	IsAdmin            bool
	OrganizationID     string
	OrganizationName   string
	OrgRole            string
	AllowedAccountIDs  []string
	ActiveSavedView    *SavedView
}

// HasAccountAccess reports whether id is reachable by this context. Admins
// bypass all checks (spec §4.4).
func (c *Context) HasAccountAccess(id string) bool {
	if c.IsAdmin {
		return true
	}
	for _, a := range c.AllowedAccountIDs {
		if a == id {
			return true
		}
	}
	return false
}

// FilterAccounts returns the subset of ids this context may access. Admins
// pass everything through unfiltered.
func (c *Context) FilterAccounts(ids []string) []string {
	if c.IsAdmin {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if c.HasAccountAccess(id) {
			out = append(out, id)
		}
	}
	return out
}

// GetAccountFilterSQL returns an IN-clause predicate fragment restricting
// line_item_usage_account_id to the allowed set, or "" for admins (spec
// §4.4).
func (c *Context) GetAccountFilterSQL() string {
	if c.IsAdmin {
		return ""
	}
	valid := validAccountIDs(c.AllowedAccountIDs)
	if len(valid) == 0 {
		return ""
	}
	quoted := make([]string, len(valid))
	for i, id := range valid {
		quoted[i] = "'" + id + "'"
	}
	return "line_item_usage_account_id IN (" + strings.Join(quoted, ", ") + ")"
}

// ScopeDict serializes the effective scope for the response envelope's
// metadata.scope and for audit logging.
func (c *Context) ScopeDict() map[string]any {
	return map[string]any{
		"organization_id": c.OrganizationID,
		"account_ids":     c.AllowedAccountIDs,
		"is_admin":        c.IsAdmin,
	}
}

// AuditDict is a minimal per-request audit record.
func (c *Context) AuditDict() map[string]any {
	return map[string]any{
		"user_id":         c.UserID,
		"organization_id": c.OrganizationID,
		"is_admin":        c.IsAdmin,
	}
}

func validAccountIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if accountIDRe.MatchString(id) {
			out = append(out, id)
		}
	}
	return out
}
