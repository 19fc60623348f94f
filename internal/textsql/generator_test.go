package textsql

import (
	"context"
	"testing"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/llm"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/sqlvalidate"
)

type stubClient struct {
	response string
	err      error
}

func (s *stubClient) Call(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	return s.response, s.err
}

func newGenerator(resp string) *Generator {
	return New(&stubClient{response: resp}, sqlvalidate.New("cur_db.cur_table"),
		reqcontext.NewScopeEnforcer(nil), "cur_db.cur_table", nil)
}

func TestGenerate_DirectJSONSuccess(t *testing.T) {
	g := newGenerator(`{"sql": "SELECT line_item_product_code, SUM(line_item_unblended_cost) AS total_cost FROM cur_db.cur_table WHERE CAST(line_item_usage_start_date AS DATE) BETWEEN DATE '2026-01-01' AND DATE '2026-01-31' GROUP BY line_item_product_code", "explanation": "**Summary:** costs by service", "result_columns": ["line_item_product_code", "total_cost"], "query_type": "breakdown"}`)

	res := g.Generate(context.Background(), Request{Query: "break down costs by service last month"})
	if res.Status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", res.Status)
	}
	if res.QueryType != "breakdown" {
		t.Errorf("expected breakdown query_type, got %q", res.QueryType)
	}
	if res.Metadata["scope"] != "service" {
		t.Errorf("expected service scope, got %v", res.Metadata["scope"])
	}
}

func TestGenerate_CodeFencedJSON(t *testing.T) {
	g := newGenerator("```json\n{\"sql\": \"SELECT 1 AS total_cost FROM cur_db.cur_table\", \"explanation\": \"ok\", \"query_type\": \"other\"}\n```")
	res := g.Generate(context.Background(), Request{Query: "x"})
	if res.Status != StatusOK {
		t.Fatalf("expected StatusOK, got %v status=%v clar=%v", res.SQL, res.Status, res.Clarification)
	}
}

func TestGenerate_EmptySQLReturnsClarification(t *testing.T) {
	g := newGenerator(`{"sql": "", "explanation": "Which service do you mean?"}`)
	res := g.Generate(context.Background(), Request{Query: "how much did it cost"})
	if res.Status != StatusOK {
		t.Fatalf("expected StatusOK with empty sql, got %v", res.Status)
	}
	if len(res.Clarification) == 0 || res.Clarification[0] == "" {
		t.Error("expected a clarification message")
	}
}

func TestGenerate_UnparseableResponseIsLLMError(t *testing.T) {
	g := newGenerator("not json and no salvageable sql field at all")
	res := g.Generate(context.Background(), Request{Query: "x"})
	if res.Status != StatusLLMError {
		t.Fatalf("expected StatusLLMError, got %v", res.Status)
	}
}

func TestGenerate_RejectedSQLNeverReturnsOffendingSQL(t *testing.T) {
	g := newGenerator(`{"sql": "DROP TABLE cur_db.cur_table", "explanation": "oops"}`)
	res := g.Generate(context.Background(), Request{Query: "x"})
	if res.Status != StatusValidationFailed {
		t.Fatalf("expected StatusValidationFailed, got %v", res.Status)
	}
	if res.SQL != "" {
		t.Error("rejected SQL must never be returned to the caller")
	}
}

func TestGenerate_NonAdminEnforcesAccountScope(t *testing.T) {
	g := newGenerator(`{"sql": "SELECT SUM(line_item_unblended_cost) AS total_cost FROM cur_db.cur_table WHERE line_item_product_code = 'AmazonEC2'", "explanation": "ok"}`)
	rc := &reqcontext.Context{AllowedAccountIDs: []string{"111111111111"}}
	res := g.Generate(context.Background(), Request{Query: "ec2 cost", RequestCtx: rc})
	if res.Status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", res.Status)
	}
	if !res.AccountFilterEnforced {
		t.Error("expected account_filter_enforced to be true for a non-admin context")
	}
	if !accountFilterColumnRe.MatchString(res.SQL) {
		t.Errorf("expected account filter column injected into SQL, got %q", res.SQL)
	}
}

func TestGenerate_AdminContextSkipsScopeEnforcement(t *testing.T) {
	g := newGenerator(`{"sql": "SELECT SUM(line_item_unblended_cost) AS total_cost FROM cur_db.cur_table", "explanation": "ok"}`)
	rc := &reqcontext.Context{IsAdmin: true}
	res := g.Generate(context.Background(), Request{Query: "total cost", RequestCtx: rc})
	if res.AccountFilterEnforced {
		t.Error("admin context should not trigger account filter enforcement")
	}
}

func TestGenerate_RegexSalvageInfersQueryType(t *testing.T) {
	raw := `garbled preamble "sql": "SELECT line_item_product_code, SUM(x) AS total_cost FROM cur_db.cur_table GROUP BY line_item_product_code" trailing junk "explanation": "partial"`
	g := newGenerator(raw)
	res := g.Generate(context.Background(), Request{Query: "x"})
	if res.Status != StatusOK {
		t.Fatalf("expected StatusOK via salvage, got %v", res.Status)
	}
	if res.GeneratedVia != "text_to_sql_llm_partial" {
		t.Errorf("expected salvage provenance, got %q", res.GeneratedVia)
	}
	if res.QueryType != "breakdown" {
		t.Errorf("expected inferred breakdown query_type, got %q", res.QueryType)
	}
}
