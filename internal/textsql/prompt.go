package textsql

import (
	"fmt"
	"strings"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
)

// schemaBlob enumerates the CUR columns, effective-cost expression, and the
// query-pattern library the LLM is taught to reuse (spec §4.5 (i)).
const schemaBlob = `CUR TABLE COLUMNS (one table only):
  line_item_usage_account_id, line_item_product_code, line_item_usage_type,
  line_item_operation, line_item_resource_id, line_item_usage_start_date,
  line_item_usage_end_date, product_region, line_item_unblended_cost,
  reservation_effective_cost, savings_plan_savings_plan_effective_cost

EFFECTIVE COST EXPRESSION (always use this instead of a bare cost column):
  COALESCE(
    NULLIF(savings_plan_savings_plan_effective_cost, 0),
    NULLIF(reservation_effective_cost, 0),
    line_item_unblended_cost
  )

COMMON PATTERNS:
  - top-N: ORDER BY total_cost DESC LIMIT N
  - breakdown: GROUP BY the requested dimension
  - daily series: GROUP BY CAST(line_item_usage_start_date AS DATE)
  - per-resource: GROUP BY line_item_resource_id
  - ARN filter: WHERE line_item_resource_id = '<arn>'
  - CASE-in-GROUP-BY: repeat the full CASE expression in GROUP BY, never an alias
  - ECS/EKS rewrite: map "ECS"/"EKS" phrases to line_item_product_code =
    'AmazonECS' / 'AmazonEKS', not a usage_type guess

DATE HANDLING: always CAST(line_item_usage_start_date AS DATE) BETWEEN
  DATE '<start>' AND DATE '<end>'.

GROUPING RULES: every non-aggregated selected column must appear in GROUP BY.

MULTI-SERVICE COMPARISON: one row per service via GROUP BY line_item_product_code,
  not a UNION of per-service queries.

FILTER INHERITANCE: inherit a filter from the prior turn only when the new
  utterance is implicit or relational ("break it down further", "what about
  last month"), never when it names a different service/dimension.`

// Prompt is the fully assembled set of inputs sent to the LLM for one turn.
type Prompt struct {
	System string
	User   string
}

// promptBuilder assembles the TextToSQLGenerator prompt from spec §4.5's six
// ingredients.
type promptBuilder struct {
	curTable string
}

func newPromptBuilder(curTable string) *promptBuilder {
	return &promptBuilder{curTable: curTable}
}

func (b *promptBuilder) build(req Request) Prompt {
	var sb strings.Builder

	sb.WriteString(schemaBlob)
	sb.WriteString("\n\nCUR TABLE NAME: ")
	sb.WriteString(b.curTable)

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	fmt.Fprintf(&sb, "\n\nCURRENT DATE: %s\n30 DAYS AGO: %s",
		now.Format("2006-01-02"), now.AddDate(0, 0, -30).Format("2006-01-02"))

	if len(req.ChatHistory) > 0 {
		sb.WriteString("\n\nRECENT CONVERSATION:\n")
		history := req.ChatHistory
		if len(history) > 6 {
			history = history[len(history)-6:]
		}
		for _, m := range history {
			fmt.Fprintf(&sb, "  %s: %s\n", m.Role, m.Content)
		}
	}

	if req.PreviousContext != nil {
		sb.WriteString("\nPREVIOUS CONTEXT:")
		if req.PreviousContext.LastService != "" {
			fmt.Fprintf(&sb, " last_service=%s", req.PreviousContext.LastService)
		}
		if req.PreviousContext.TimeRange != nil {
			fmt.Fprintf(&sb, " last_time_range=%s..%s",
				req.PreviousContext.TimeRange.StartDate(), req.PreviousContext.TimeRange.EndDate())
		}
	}

	if req.RequestCtx != nil && !req.RequestCtx.IsAdmin {
		sb.WriteString(accountScopingBlock(req.RequestCtx))
	}

	sb.WriteString("\n\nRespond with strict JSON only: ")
	sb.WriteString(`{"sql": "...", "explanation": "...", "result_columns": [...], "query_type": "..."}`)
	sb.WriteString("\nIf the request is underspecified, return an empty sql and a clarifying explanation.")

	sb.WriteString("\n\nUSER QUERY: ")
	sb.WriteString(req.Query)

	return Prompt{
		System: "You are a FinOps text-to-SQL assistant for AWS Cost and Usage Reports. You emit one read-only SELECT statement against a single CUR table, nothing else.",
		User:   sb.String(),
	}
}

func accountScopingBlock(rc *reqcontext.Context) string {
	if len(rc.AllowedAccountIDs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nACCOUNT SCOPE: this caller may only see accounts [")
	sb.WriteString(strings.Join(rc.AllowedAccountIDs, ", "))
	sb.WriteString("]. The SQL MUST include a `line_item_usage_account_id IN (...)` " +
		"clause restricted to exactly this set.")
	return sb.String()
}

// ChatMessage is one turn of caller-supplied conversation history.
type ChatMessage struct {
	Role    string
	Content string
}

// Request bundles everything the generator needs for one turn (spec §4.5).
type Request struct {
	Query           string
	ChatHistory     []ChatMessage
	PreviousContext *queryspec.ConversationContext
	RequestCtx      *reqcontext.Context
	Now             time.Time
}
