package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

type fakeSource struct {
	results []*queryspec.QueryResult
	calls   []*queryspec.QuerySpec
	err     error
}

func (f *fakeSource) Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error) {
	f.calls = append(f.calls, spec)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.calls) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

func TestExecute_AppliesTopNDefault(t *testing.T) {
	primary := &fakeSource{results: []*queryspec.QueryResult{{Data: []queryspec.Row{{}}}}}
	o := New(primary, nil, nil)
	spec := queryspec.NewQuerySpec()
	spec.Intent = queryspec.IntentTopNRanking
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -5), End: time.Now()}

	if _, err := o.Execute(context.Background(), spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Metadata["top_n"] != defaultTopN {
		t.Errorf("expected default top_n=%d, got %v", defaultTopN, spec.Metadata["top_n"])
	}
}

func TestExecute_AppliesDefaultTimeRangeWhenMissing(t *testing.T) {
	primary := &fakeSource{results: []*queryspec.QueryResult{{Data: []queryspec.Row{{}}}}}
	o := New(primary, nil, nil)
	spec := queryspec.NewQuerySpec()

	o.Execute(context.Background(), spec)
	if spec.TimeRange.Start.IsZero() || spec.TimeRange.Source != queryspec.SourceDefault {
		t.Error("expected a default last-30-days time range to be installed")
	}
}

func TestExecute_ARNRescueTriggersOnSuccessfulEmptyResult(t *testing.T) {
	empty := &queryspec.QueryResult{Data: nil}
	rescued := &queryspec.QueryResult{Data: []queryspec.Row{{"resource_type_group": queryspec.StringCell("EC2 Instance")}}}
	primary := &fakeSource{results: []*queryspec.QueryResult{empty, rescued}}
	o := New(primary, nil, nil)

	spec := queryspec.NewQuerySpec()
	spec.ARN = "arn:aws:ec2:us-east-1:123456789012:instance/i-0123"
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -5), End: time.Now()}

	res, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Metadata.ARNFallback {
		t.Error("expected arn_fallback=true on rescued result")
	}
	if res.Metadata.OriginalARN != spec.ARN {
		t.Errorf("expected original_arn preserved, got %q", res.Metadata.OriginalARN)
	}
	if len(primary.calls) != 2 {
		t.Fatalf("expected 2 primary calls (original + rescue), got %d", len(primary.calls))
	}
	rescueCall := primary.calls[1]
	if rescueCall.Intent != queryspec.IntentCostBreakdown || len(rescueCall.Dimensions) != 1 || rescueCall.Dimensions[0] != "resource_type" {
		t.Errorf("expected rescue spec to request resource_type breakdown, got %+v", rescueCall)
	}
}

func TestExecute_NoARNRescueWhenResultHasData(t *testing.T) {
	hasData := &queryspec.QueryResult{Data: []queryspec.Row{{"x": queryspec.IntCell(1)}}}
	primary := &fakeSource{results: []*queryspec.QueryResult{hasData}}
	o := New(primary, nil, nil)

	spec := queryspec.NewQuerySpec()
	spec.ARN = "arn:aws:ec2:us-east-1:123456789012:instance/i-0123"
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -5), End: time.Now()}

	o.Execute(context.Background(), spec)
	if len(primary.calls) != 1 {
		t.Errorf("expected no rescue call when primary result has data, got %d calls", len(primary.calls))
	}
}

func TestExecute_CrossSourceFallbackWhenEligible(t *testing.T) {
	empty := &queryspec.QueryResult{Data: nil}
	primary := &fakeSource{results: []*queryspec.QueryResult{empty}}
	fallback := &fakeSource{results: []*queryspec.QueryResult{{Data: []queryspec.Row{{"service": queryspec.StringCell("AmazonEC2")}}}}}
	o := New(primary, fallback, nil)

	spec := queryspec.NewQuerySpec()
	spec.Intent = queryspec.IntentCostBreakdown
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -5), End: time.Now()}

	res, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Metadata.CostExplorerFallback {
		t.Error("expected cost_explorer_fallback=true")
	}
	if len(fallback.calls) != 1 {
		t.Error("expected fallback source to be called once")
	}
}

func TestExecute_FallbackIneligibleWithServiceFilter(t *testing.T) {
	empty := &queryspec.QueryResult{Data: nil}
	primary := &fakeSource{results: []*queryspec.QueryResult{empty}}
	fallback := &fakeSource{results: []*queryspec.QueryResult{{Data: []queryspec.Row{{}}}}}
	o := New(primary, fallback, nil)

	spec := queryspec.NewQuerySpec()
	spec.Intent = queryspec.IntentCostBreakdown
	spec.Services = []string{"AmazonEC2"}
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -5), End: time.Now()}

	o.Execute(context.Background(), spec)
	if len(fallback.calls) != 0 {
		t.Error("expected fallback to be skipped when a service filter is present")
	}
}

func TestExecute_NilFallbackIsNoOp(t *testing.T) {
	empty := &queryspec.QueryResult{Data: nil}
	primary := &fakeSource{results: []*queryspec.QueryResult{empty}}
	o := New(primary, nil, nil)

	spec := queryspec.NewQuerySpec()
	spec.Intent = queryspec.IntentCostBreakdown
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -5), End: time.Now()}

	res, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metadata.CostExplorerFallback {
		t.Error("nil fallback must never report cost_explorer_fallback=true")
	}
}
