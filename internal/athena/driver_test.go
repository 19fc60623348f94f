package athena

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
)

type fakeClient struct {
	states  []athenatypes.QueryExecutionState
	reason  string
	pages   [][]athenatypes.Row
	started int
}

func (f *fakeClient) StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	f.started++
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("q-1")}, nil
}

func (f *fakeClient) GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	idx := 0
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	state := f.states[idx]
	f.states = f.states[1:]
	out := &athena.GetQueryExecutionOutput{
		QueryExecution: &athenatypes.QueryExecution{
			Status: &athenatypes.QueryExecutionStatus{State: state},
		},
	}
	if state == athenatypes.QueryExecutionStateFailed {
		out.QueryExecution.Status.StateChangeReason = aws.String(f.reason)
	}
	return out, nil
}

func (f *fakeClient) GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error) {
	page := f.pages[0]
	f.pages = f.pages[1:]
	out := &athena.GetQueryResultsOutput{ResultSet: &athenatypes.ResultSet{Rows: page}}
	if len(f.pages) > 0 {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func varcharRow(vs ...string) athenatypes.Row {
	data := make([]athenatypes.Datum, len(vs))
	for i, v := range vs {
		if v != "" {
			data[i] = athenatypes.Datum{VarCharValue: aws.String(v)}
		} else {
			data[i] = athenatypes.Datum{}
		}
	}
	return athenatypes.Row{Data: data}
}

func TestDriver_FetchHappyPath(t *testing.T) {
	fc := &fakeClient{
		states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateSucceeded},
		pages: [][]athenatypes.Row{
			{varcharRow("service", "total_cost"), varcharRow("AmazonEC2", "12.5"), varcharRow("AmazonS3", "3")},
		},
	}
	d := New(fc, "db", "s3://bucket/out", "cur_db.cur_table", nil, nil)

	spec := queryspec.NewQuerySpec()
	spec.Intent = queryspec.IntentTopNRanking
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}

	res, err := d.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded() || res.RowCount() != 2 {
		t.Fatalf("expected 2 rows, got %d rows err=%q", res.RowCount(), res.Err)
	}
	if res.Data[0]["total_cost"].Kind != queryspec.CellFloat {
		t.Errorf("expected total_cost to coerce to float")
	}
}

func TestDriver_FiltersMetaServiceRows(t *testing.T) {
	fc := &fakeClient{
		states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateSucceeded},
		pages: [][]athenatypes.Row{
			{varcharRow("service", "total_cost"), varcharRow("Cost Explorer", "1"), varcharRow("AmazonEC2", "2")},
		},
	}
	d := New(fc, "db", "s3://bucket/out", "cur_db.cur_table", nil, nil)
	spec := queryspec.NewQuerySpec()
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}

	res, _ := d.Fetch(context.Background(), spec)
	if res.RowCount() != 1 {
		t.Fatalf("expected meta-service row filtered out, got %d rows", res.RowCount())
	}
	if res.Data[0]["service"].Str != "AmazonEC2" {
		t.Errorf("expected remaining row to be AmazonEC2, got %v", res.Data[0]["service"])
	}
}

func TestDriver_FetchFailedQueryReturnsReasonError(t *testing.T) {
	fc := &fakeClient{
		states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateFailed},
		reason: "SYNTAX_ERROR: line 1",
		pages:  [][]athenatypes.Row{},
	}
	d := New(fc, "db", "s3://bucket/out", "cur_db.cur_table", nil, nil)
	spec := queryspec.NewQuerySpec()
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}

	res, err := d.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if res.Succeeded() {
		t.Fatal("expected failed query to produce a non-succeeded result")
	}
	if res.Err != "SYNTAX_ERROR: line 1" {
		t.Errorf("expected StateChangeReason propagated, got %q", res.Err)
	}
}

func TestCoerceCell_NumericAndStringAndNull(t *testing.T) {
	cases := map[string]queryspec.CellKind{
		"":       queryspec.CellNull,
		"42":     queryspec.CellInt,
		"3.14":   queryspec.CellFloat,
		"-2":     queryspec.CellInt,
		"1e3":    queryspec.CellFloat,
		"hello":  queryspec.CellString,
		"AmazonEC2": queryspec.CellString,
	}
	for input, want := range cases {
		got := coerceCell(input)
		if got.Kind != want {
			t.Errorf("coerceCell(%q) kind = %v, want %v", input, got.Kind, want)
		}
	}
}

func TestDriver_NonAdminWithNoAllowedAccountsFailsClosed(t *testing.T) {
	fc := &fakeClient{}
	d := New(fc, "db", "s3://bucket/out", "cur_db.cur_table", reqcontext.NewScopeEnforcer(nil), nil)
	spec := queryspec.NewQuerySpec()
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}

	res, err := d.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if res.Succeeded() {
		t.Fatal("expected unscoped query for a non-admin with no allowed accounts to fail closed")
	}
	if fc.started != 0 {
		t.Errorf("expected the query to never reach StartQueryExecution, got %d submissions", fc.started)
	}
}

func TestDriver_NonAdminScopeInjectsAccountFilterBeforeSubmission(t *testing.T) {
	fc := &fakeClient{
		states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateSucceeded},
		pages: [][]athenatypes.Row{
			{varcharRow("service", "total_cost"), varcharRow("AmazonEC2", "12.5")},
		},
	}
	d := New(fc, "db", "s3://bucket/out", "cur_db.cur_table", reqcontext.NewScopeEnforcer(nil), nil)
	spec := queryspec.NewQuerySpec()
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}
	spec.Accounts = []string{"123456789012"}

	res, err := d.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("expected scoped query to succeed, got err=%q", res.Err)
	}
	if fc.started != 1 {
		t.Errorf("expected exactly one submission, got %d", fc.started)
	}
}

func TestDriver_AdminBypassesScopeGuard(t *testing.T) {
	fc := &fakeClient{
		states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateSucceeded},
		pages: [][]athenatypes.Row{
			{varcharRow("service", "total_cost"), varcharRow("AmazonEC2", "12.5")},
		},
	}
	d := New(fc, "db", "s3://bucket/out", "cur_db.cur_table", reqcontext.NewScopeEnforcer(nil), nil)
	spec := queryspec.NewQuerySpec()
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}
	spec.IsAdmin = true

	res, err := d.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("expected admin query to succeed unscoped, got err=%q", res.Err)
	}
}

func TestArnPatterns_DerivesServiceAndAccountFragments(t *testing.T) {
	arn := "arn:aws:ecs:us-east-1:123456789012:task/my-cluster/abcd1234"
	p1, p2 := arnPatterns(arn)
	if p1 == "" || p2 == "" {
		t.Fatal("expected non-empty derived patterns")
	}
}
