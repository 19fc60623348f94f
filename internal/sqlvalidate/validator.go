// Package sqlvalidate enforces the "read-only, one table, no stacked
// statements" policy that every generated SQL string must pass before it is
// stored, logged, or submitted to Athena (spec §4.2).
package sqlvalidate

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError is returned on rejection; its Reason is safe to log and
// surface, but the offending SQL itself must never be echoed to the caller
// (spec §7's "SQL authorization" error class).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

var (
	denylistKeywords = []string{
		"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "TRUNCATE",
		"CREATE", "REPLACE", "GRANT", "REVOKE", "EXEC", "EXECUTE",
		"MERGE", "CALL",
	}
	schemaInspectionKeywords = []string{"EXPLAIN", "DESCRIBE", "SHOW"}

	systemSchemas = []string{"information_schema", "pg_catalog", "sys", "mysql"}

	leadingCommentRe = regexp.MustCompile(`(?s)^(\s*(--[^\n]*\n|/\*.*?\*/)\s*)*`)
	standaloneDescRe = regexp.MustCompile(`(?i)\bdesc\b`)
	orderByDescRe    = regexp.MustCompile(`(?i)order\s+by[^;]*\bdesc\b`)

	fromJoinRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z0-9_\.]+)`)
	cteNameRe   = regexp.MustCompile(`(?i)\bwith\s+([a-zA-Z0-9_]+)\s+as\s*\(`)
	cteChainRe  = regexp.MustCompile(`(?i),\s*([a-zA-Z0-9_]+)\s+as\s*\(`)

	stackedSelectRe = regexp.MustCompile(`(?i)select.*?;.*?select`)
	unionSelectRe   = regexp.MustCompile(`(?i)\bunion\s+select\b`)
)

// Validator checks SQL strings against the CUR table and CTE-name allowlist.
type Validator struct {
	curTable string
}

// New constructs a Validator scoped to a single CUR table name (e.g.
// "cur_database.cur_table"), the only table real FROM/JOIN references may
// name.
func New(curTable string) *Validator {
	return &Validator{curTable: strings.ToLower(curTable)}
}

// Validate runs all of spec §4.2's rules in order, returning a
// *ValidationError describing the first failure.
func (v *Validator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	trimmed = strings.TrimSuffix(trimmed, ";")

	if err := v.checkSingleStatement(trimmed); err != nil {
		return err
	}
	if err := v.checkDenylist(trimmed); err != nil {
		return err
	}
	if err := v.checkSchemaInspection(trimmed); err != nil {
		return err
	}
	if err := v.checkStartsWithSelectOrWith(trimmed); err != nil {
		return err
	}
	if err := v.checkTableAllowlist(trimmed); err != nil {
		return err
	}
	v.logSuspiciousPatterns(trimmed)
	return nil
}

func (v *Validator) checkSingleStatement(sql string) error {
	if strings.Contains(sql, ";") {
		return &ValidationError{Reason: "multiple SQL statements are not allowed"}
	}
	return nil
}

func (v *Validator) checkDenylist(sql string) error {
	for _, kw := range denylistKeywords {
		if wordBoundaryMatch(sql, kw) {
			return &ValidationError{Reason: fmt.Sprintf("statement contains a disallowed keyword: %s", kw)}
		}
	}
	return nil
}

func (v *Validator) checkSchemaInspection(sql string) error {
	for _, kw := range schemaInspectionKeywords {
		if wordBoundaryMatch(sql, kw) {
			return &ValidationError{Reason: fmt.Sprintf("schema-inspection statements are not allowed: %s", kw)}
		}
	}
	if standaloneDescRe.MatchString(sql) && !orderByDescRe.MatchString(sql) {
		return &ValidationError{Reason: "standalone DESC statements are not allowed"}
	}
	return nil
}

func (v *Validator) checkStartsWithSelectOrWith(sql string) error {
	stripped := leadingCommentRe.ReplaceAllString(sql, "")
	stripped = strings.TrimSpace(stripped)
	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return &ValidationError{Reason: "statement must start with SELECT or WITH"}
	}
	return nil
}

func (v *Validator) checkTableAllowlist(sql string) error {
	cteNames := map[string]bool{}
	for _, m := range cteNameRe.FindAllStringSubmatch(sql, -1) {
		cteNames[strings.ToLower(m[1])] = true
	}
	for _, m := range cteChainRe.FindAllStringSubmatch(sql, -1) {
		cteNames[strings.ToLower(m[1])] = true
	}

	for _, m := range fromJoinRe.FindAllStringSubmatch(sql, -1) {
		table := strings.ToLower(m[1])
		for _, sys := range systemSchemas {
			if strings.HasPrefix(table, sys+".") || table == sys {
				return &ValidationError{Reason: fmt.Sprintf("access to system tables is not allowed: %s", table)}
			}
		}
		if table == v.curTable || cteNames[table] {
			continue
		}
		return &ValidationError{Reason: fmt.Sprintf("access to table %q is not allowed", table)}
	}
	return nil
}

// SuspiciousPatterns flags patterns that are notable but not fatal (spec
// §4.2 rule 6): callers may hook a logger around Validate to observe these
// via a wrapped Validator; kept here as a pure detector for testability.
func (v *Validator) SuspiciousPatterns(sql string) []string {
	var found []string
	if stackedSelectRe.MatchString(sql) {
		found = append(found, "stacked_select")
	}
	if unionSelectRe.MatchString(sql) {
		found = append(found, "union_select")
	}
	if strings.Contains(sql, "--") {
		found = append(found, "line_comment")
	}
	if strings.Contains(sql, "/*") {
		found = append(found, "block_comment")
	}
	return found
}

func (v *Validator) logSuspiciousPatterns(sql string) {
	// Detection only; the caller's logger (wired in TextToSQLGenerator)
	// decides how to record SuspiciousPatterns(sql). No side effects here.
	_ = v.SuspiciousPatterns(sql)
}

func wordBoundaryMatch(sql, keyword string) bool {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	return re.MatchString(sql)
}
