package drilldown

import (
	"context"
	"testing"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/sqlvalidate"
)

type fakeSource struct {
	result *queryspec.QueryResult
	err    error
}

func (f *fakeSource) Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error) {
	return f.result, f.err
}

func testSpec() *queryspec.QuerySpec {
	s := queryspec.NewQuerySpec()
	s.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}
	return s
}

func TestApply_ReplacesSingleRowWithDrillDown(t *testing.T) {
	followUp := &queryspec.QueryResult{
		Data: []queryspec.Row{
			{"usage_type": queryspec.StringCell("BoxUsage"), "total_cost": queryspec.FloatCell(10)},
			{"usage_type": queryspec.StringCell("DataTransfer"), "total_cost": queryspec.FloatCell(2)},
		},
	}
	d := New(&fakeSource{result: followUp}, sqlvalidate.New("cur_db.cur_table"), "cur_db.cur_table", nil)

	original := &queryspec.QueryResult{Data: []queryspec.Row{{"service": queryspec.StringCell("AmazonEC2")}}}
	got := d.Apply(context.Background(), testSpec(), original)

	if got.RowCount() != 2 {
		t.Fatalf("expected drill-down result with 2 rows, got %d", got.RowCount())
	}
	if got.Metadata.Extra["drilled_down"] != true {
		t.Error("expected drilled_down=true in metadata")
	}
	if got.Metadata.Extra["original_service"] != "AmazonEC2" {
		t.Errorf("expected original_service=AmazonEC2, got %v", got.Metadata.Extra["original_service"])
	}
}

func TestApply_LeavesMultiRowResultUnchanged(t *testing.T) {
	d := New(&fakeSource{}, sqlvalidate.New("cur_db.cur_table"), "cur_db.cur_table", nil)
	original := &queryspec.QueryResult{Data: []queryspec.Row{{"x": queryspec.IntCell(1)}, {"x": queryspec.IntCell(2)}}}
	got := d.Apply(context.Background(), testSpec(), original)
	if got != original {
		t.Error("expected multi-row result to pass through unchanged")
	}
}

func TestApply_SwallowsFollowUpFailure(t *testing.T) {
	d := New(&fakeSource{err: context.DeadlineExceeded}, sqlvalidate.New("cur_db.cur_table"), "cur_db.cur_table", nil)
	original := &queryspec.QueryResult{Data: []queryspec.Row{{"service": queryspec.StringCell("AmazonEC2")}}}
	got := d.Apply(context.Background(), testSpec(), original)
	if got != original {
		t.Error("expected original result on follow-up fetch failure")
	}
}

func TestApply_SkipsWhenNoLabelColumnPresent(t *testing.T) {
	d := New(&fakeSource{}, sqlvalidate.New("cur_db.cur_table"), "cur_db.cur_table", nil)
	original := &queryspec.QueryResult{Data: []queryspec.Row{{"total_cost": queryspec.FloatCell(5)}}}
	got := d.Apply(context.Background(), testSpec(), original)
	if got != original {
		t.Error("expected no drill-down attempt without a service/resource-like column")
	}
}

func TestApply_SingleRowFollowUpLeavesOriginal(t *testing.T) {
	followUp := &queryspec.QueryResult{Data: []queryspec.Row{{"usage_type": queryspec.StringCell("BoxUsage")}}}
	d := New(&fakeSource{result: followUp}, sqlvalidate.New("cur_db.cur_table"), "cur_db.cur_table", nil)
	original := &queryspec.QueryResult{Data: []queryspec.Row{{"service": queryspec.StringCell("AmazonEC2")}}}
	got := d.Apply(context.Background(), testSpec(), original)
	if got != original {
		t.Error("expected original result when follow-up yields fewer than 2 rows")
	}
}
