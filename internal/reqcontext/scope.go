package reqcontext

import (
	"log/slog"
	"regexp"
	"strings"
)

const accountFilterColumn = "line_item_usage_account_id"

var (
	accountFilterRefRe = regexp.MustCompile(`(?i)` + accountFilterColumn)
	quotedAccountLitRe = regexp.MustCompile(`'(\d{12})'`)
	whereRe            = regexp.MustCompile(`(?i)\bWHERE\b`)
	fromTableRe        = regexp.MustCompile(`(?i)\bFROM\s+[a-zA-Z0-9_\.]+`)
)

// ScopeEnforcer injects and verifies the per-tenant account filter on any
// SQL string, run both after LLM generation and immediately before Athena
// submission (spec §4.4).
type ScopeEnforcer struct {
	logger *slog.Logger
}

func NewScopeEnforcer(logger *slog.Logger) *ScopeEnforcer {
	return &ScopeEnforcer{logger: logger}
}

// Enforce injects `line_item_usage_account_id IN (...)` into sql when the
// column isn't already referenced, using only allowlist entries that pass
// the 12-digit format check. Returns the (possibly unchanged) SQL and
// whether a modification was made.
func (e *ScopeEnforcer) Enforce(sql string, allowed []string) (string, bool) {
	if accountFilterRefRe.MatchString(sql) {
		return sql, false
	}

	valid := validAccountIDs(allowed)
	if len(valid) == 0 {
		if e.logger != nil {
			e.logger.Warn("no valid account ids to enforce, leaving SQL unchanged")
		}
		return sql, false
	}

	quoted := make([]string, len(valid))
	for i, id := range valid {
		quoted[i] = "'" + id + "'"
	}
	clause := accountFilterColumn + " IN (" + strings.Join(quoted, ", ") + ")"

	if loc := whereRe.FindStringIndex(sql); loc != nil {
		insertAt := loc[1]
		return sql[:insertAt] + " " + clause + " AND" + sql[insertAt:], true
	}

	if loc := fromTableRe.FindStringIndex(sql); loc != nil {
		insertAt := loc[1]
		return sql[:insertAt] + " WHERE " + clause + sql[insertAt:], true
	}

	if e.logger != nil {
		e.logger.Warn("could not locate FROM clause to enforce account scope")
	}
	return sql, false
}

// Validate extracts every 12-digit quoted literal from sql and denies the
// request if any falls outside allowed. When no literal is present, the
// column itself must appear (i.e. Enforce would have injected it).
func (e *ScopeEnforcer) Validate(sql string, allowed []string) (bool, string) {
	allowedSet := make(map[string]bool, len(allowed))
	for _, id := range validAccountIDs(allowed) {
		allowedSet[id] = true
	}

	matches := quotedAccountLitRe.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		if !accountFilterRefRe.MatchString(sql) {
			return false, "account scope filter is missing from the generated SQL"
		}
		return true, ""
	}

	var denied []string
	for _, m := range matches {
		id := m[1]
		if !allowedSet[id] {
			denied = append(denied, id)
		}
	}
	if len(denied) > 0 {
		return false, "Access denied to accounts: " + strings.Join(denied, ", ")
	}
	return true, ""
}
