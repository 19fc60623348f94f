// Package textsql implements TextToSQLGenerator (spec §4.5): prompt
// construction, tolerant LLM response parsing, SQL validation, and
// account-scope enforcement for one user turn.
package textsql

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/llm"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/sqlvalidate"
)

// Status classifies the outcome of one generation attempt.
type Status string

const (
	StatusOK               Status = "ok"
	StatusLLMError         Status = "llm_error"
	StatusValidationFailed Status = "validation_failed"
)

// Result is what TextToSQLGenerator.Generate returns for one turn.
type Result struct {
	SQL                   string
	Explanation           string
	ResultColumns         []string
	QueryType             string
	Status                Status
	Clarification         []string
	GeneratedVia          string
	AccountFilterEnforced bool
	Metadata              map[string]any
}

// Generator wires an llm.Client, sqlvalidate.Validator, and
// reqcontext.ScopeEnforcer into the single Generate operation spec §4.5
// describes.
type Generator struct {
	client    llm.Client
	validator *sqlvalidate.Validator
	enforcer  *reqcontext.ScopeEnforcer
	prompts   *promptBuilder
	logger    *slog.Logger
	maxTokens int
}

func New(client llm.Client, validator *sqlvalidate.Validator, enforcer *reqcontext.ScopeEnforcer, curTable string, logger *slog.Logger) *Generator {
	return &Generator{
		client:    client,
		validator: validator,
		enforcer:  enforcer,
		prompts:   newPromptBuilder(curTable),
		logger:    logger,
		maxTokens: 2048,
	}
}

// Generate runs the full pipeline described in spec §4.5: build prompt, call
// LLM, tolerant-parse, validate, enforce account scope, enrich metadata.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	prompt := g.prompts.build(req)

	raw, err := g.client.Call(ctx, prompt.User, llm.CallOptions{
		SystemPrompt: prompt.System,
		MaxTokens:    g.maxTokens,
		ExpectJSON:   true,
	})
	if err != nil {
		if g.logger != nil {
			g.logger.Error("llm call failed", "error", err)
		}
		return Result{
			Status:        StatusLLMError,
			Clarification: []string{"The assistant could not reach the language model. Please try again."},
		}
	}

	parsed, ok := parseLLMResponse(raw)
	if !ok {
		if g.logger != nil {
			g.logger.Warn("llm response could not be parsed by any of the three passes")
		}
		return Result{
			Status:        StatusLLMError,
			Clarification: []string{"The assistant's response could not be understood. Please rephrase your question."},
		}
	}

	resp := parsed.Response
	if strings.TrimSpace(resp.SQL) == "" {
		return Result{
			Status:        StatusOK,
			Explanation:   resp.Explanation,
			QueryType:     resp.QueryType,
			Clarification: []string{resp.Explanation},
			GeneratedVia:  parsed.GeneratedVia,
		}
	}

	if suspicious := g.validator.SuspiciousPatterns(resp.SQL); len(suspicious) > 0 && g.logger != nil {
		g.logger.Warn("suspicious SQL pattern detected", "patterns", suspicious)
	}

	if err := g.validator.Validate(resp.SQL); err != nil {
		if g.logger != nil {
			g.logger.Warn("generated SQL rejected by validator", "reason", err.Error())
		}
		return Result{
			Status:        StatusValidationFailed,
			Clarification: []string{"The generated query did not pass validation: " + err.Error()},
		}
	}

	sql := resp.SQL
	enforced := false
	if req.RequestCtx != nil && !req.RequestCtx.IsAdmin {
		var modified bool
		sql, modified = g.enforcer.Enforce(sql, req.RequestCtx.AllowedAccountIDs)
		enforced = modified || accountFilterPresent(sql)
	}

	metadata := map[string]any{
		"generated_via": parsed.GeneratedVia,
	}
	if enforced {
		metadata["account_filter_enforced"] = true
	}
	for k, v := range extractTimePeriod(sql) {
		metadata[k] = v
	}
	metadata["scope"] = inferScope(sql)
	for k, v := range inferFilters(sql) {
		metadata[k] = v
	}

	return Result{
		SQL:                   sql,
		Explanation:           resp.Explanation,
		ResultColumns:         resp.ResultColumns,
		QueryType:             resp.QueryType,
		Status:                StatusOK,
		GeneratedVia:          parsed.GeneratedVia,
		AccountFilterEnforced: enforced,
		Metadata:              metadata,
	}
}

var accountFilterColumnRe = regexp.MustCompile(`(?i)line_item_usage_account_id`)

func accountFilterPresent(sql string) bool {
	return accountFilterColumnRe.MatchString(sql)
}

var (
	dateLiteralRe  = regexp.MustCompile(`DATE\s+'([^']+)'`)
	intervalRe     = regexp.MustCompile(`(?i)INTERVAL\s+'(\d+)'\s+(MONTH|DAY|YEAR)`)
	resourceColRe  = regexp.MustCompile(`(?i)line_item_resource_id`)
	serviceColRe   = regexp.MustCompile(`(?i)line_item_product_code`)
	regionColRe    = regexp.MustCompile(`(?i)product_region`)
	accountColRe   = regexp.MustCompile(`(?i)line_item_usage_account_id`)
	singleEqualsRe = regexp.MustCompile(`(?i)(line_item_product_code|product_region|line_item_usage_account_id)\s*=\s*'([^']*)'`)
)

// extractTimePeriod does a best-effort regex scan over DATE '...' literals
// and INTERVAL '...' MONTH|DAY|YEAR expressions in the final SQL (spec
// §4.5's metadata enrichment).
func extractTimePeriod(sql string) map[string]any {
	out := map[string]any{}
	if dates := dateLiteralRe.FindAllStringSubmatch(sql, -1); len(dates) > 0 {
		lits := make([]string, len(dates))
		for i, m := range dates {
			lits[i] = m[1]
		}
		out["date_literals"] = lits
	}
	if m := intervalRe.FindStringSubmatch(sql); m != nil {
		n, _ := strconv.Atoi(m[1])
		out["interval_value"] = n
		out["interval_unit"] = strings.ToUpper(m[2])
	}
	return out
}

// inferScope classifies the query as resource/service/region/account scoped
// based on which dimension columns it references, in that priority order.
func inferScope(sql string) string {
	switch {
	case resourceColRe.MatchString(sql):
		return "resource"
	case serviceColRe.MatchString(sql):
		return "service"
	case regionColRe.MatchString(sql):
		return "region"
	case accountColRe.MatchString(sql):
		return "account"
	default:
		return "unscoped"
	}
}

// inferFilters picks out single-value equality filters over service/region/
// account columns for the metadata's filter-inference field.
func inferFilters(sql string) map[string]any {
	filters := map[string]any{}
	for _, m := range singleEqualsRe.FindAllStringSubmatch(sql, -1) {
		col, val := m[1], m[2]
		switch {
		case serviceColRe.MatchString(col):
			filters["filter_service"] = val
		case regionColRe.MatchString(col):
			filters["filter_region"] = val
		case accountColRe.MatchString(col):
			filters["filter_account"] = val
		}
	}
	return filters
}
