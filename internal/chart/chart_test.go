package chart

import (
	"testing"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

func TestRecommend_NoChartPhraseSuppressesCharts(t *testing.T) {
	specs := Recommend("show me costs, no chart please", queryspec.IntentCostBreakdown, nil, queryspec.ResultMetadata{})
	if specs != nil {
		t.Errorf("expected nil specs, got %v", specs)
	}
}

func TestRecommend_ARNFallbackReturnsPieOverResourceType(t *testing.T) {
	specs := Recommend("show related resources", queryspec.IntentCostBreakdown, nil, queryspec.ResultMetadata{ARNFallback: true})
	if len(specs) != 1 || specs[0].Type != TypePie || specs[0].Dimension != "resource_type" {
		t.Fatalf("expected one pie/resource_type spec, got %+v", specs)
	}
}

func TestRecommend_UsageTypeColumnPrefersPie(t *testing.T) {
	rows := []queryspec.Row{
		{"usage_type": queryspec.StringCell("BoxUsage")},
		{"usage_type": queryspec.StringCell("DataTransfer")},
	}
	specs := Recommend("breakdown", queryspec.IntentCostBreakdown, rows, queryspec.ResultMetadata{})
	if len(specs) != 1 || specs[0].Type != TypePie || specs[0].Dimension != "usage_type" {
		t.Fatalf("expected pie over usage_type, got %+v", specs)
	}
}

func TestRecommend_TopNRankingMapsToColumnPrimary(t *testing.T) {
	rows := []queryspec.Row{{"service": queryspec.StringCell("AmazonEC2"), "total_cost": queryspec.FloatCell(5)}}
	specs := Recommend("top services", queryspec.IntentTopNRanking, rows, queryspec.ResultMetadata{})
	if len(specs) == 0 || specs[0].Type != TypeColumn {
		t.Fatalf("expected column primary chart, got %+v", specs)
	}
}

func TestRecommend_SecondaryChartAddedForLargeDataset(t *testing.T) {
	rows := make([]queryspec.Row, 6)
	for i := range rows {
		rows[i] = queryspec.Row{"service": queryspec.StringCell("svc"), "total_cost": queryspec.FloatCell(float64(i))}
	}
	specs := Recommend("top services", queryspec.IntentTopNRanking, rows, queryspec.ResultMetadata{})
	if len(specs) != 2 {
		t.Fatalf("expected primary+secondary chart for >=5 rows, got %d", len(specs))
	}
}

func TestBuildBar_TopFivePlusOthersAggregation(t *testing.T) {
	rows := make([]queryspec.Row, 8)
	for i := range rows {
		rows[i] = queryspec.Row{"dimension_value": queryspec.StringCell(string(rune('a' + i))), "total_cost": queryspec.FloatCell(float64(8 - i))}
	}
	convCtx := &queryspec.ConversationContext{}
	b := NewBuilder()
	rendered := b.Build(Spec{Type: TypeColumn, Dimension: "dimension_value"}, rows, false, convCtx)

	if !rendered.Aggregated {
		t.Fatal("expected aggregation for an 8-item top-level query")
	}
	if len(rendered.Series[0].Points) != topBarItems+1 {
		t.Errorf("expected %d points (5 + Others), got %d", topBarItems+1, len(rendered.Series[0].Points))
	}
	if rendered.OthersCount != 3 {
		t.Errorf("expected 3 hidden items, got %d", rendered.OthersCount)
	}
	if !convCtx.LastChartAggregated {
		t.Error("expected conversation_context.last_chart_aggregated=true")
	}
	if len(convCtx.LastHiddenItems) != 3 {
		t.Errorf("expected 3 last_hidden_items, got %d", len(convCtx.LastHiddenItems))
	}
}

func TestBuildBar_BreakdownQueryCapsAtFifteenNoAggregation(t *testing.T) {
	rows := make([]queryspec.Row, 20)
	for i := range rows {
		rows[i] = queryspec.Row{"dimension_value": queryspec.StringCell(string(rune('a' + i))), "total_cost": queryspec.FloatCell(float64(20 - i))}
	}
	b := NewBuilder()
	rendered := b.Build(Spec{Type: TypeColumn, Dimension: "dimension_value"}, rows, true, nil)

	if rendered.Aggregated {
		t.Error("breakdown queries must not aggregate into Others")
	}
	if len(rendered.Series[0].Points) != breakdownCap {
		t.Errorf("expected %d points capped, got %d", breakdownCap, len(rendered.Series[0].Points))
	}
}

func TestBuildPie_CapsAtTenSlices(t *testing.T) {
	rows := make([]queryspec.Row, 15)
	for i := range rows {
		rows[i] = queryspec.Row{"dimension_value": queryspec.StringCell(string(rune('a' + i))), "total_cost": queryspec.FloatCell(float64(15 - i))}
	}
	b := NewBuilder()
	rendered := b.Build(Spec{Type: TypePie, Dimension: "dimension_value"}, rows, false, nil)
	if len(rendered.Series[0].Points) != pieCap {
		t.Errorf("expected %d pie slices, got %d", pieCap, len(rendered.Series[0].Points))
	}
}

func TestBuildClusteredBar_PivotsCurrentAndPreviousPeriod(t *testing.T) {
	rows := []queryspec.Row{
		{"month": queryspec.StringCell("Jan"), "current_period_cost": queryspec.FloatCell(10), "previous_period_cost": queryspec.FloatCell(8)},
	}
	b := NewBuilder()
	rendered := b.Build(Spec{Type: TypeClusteredBar}, rows, false, nil)
	if len(rendered.Series) != 2 {
		t.Fatalf("expected 2 series (current/previous), got %d", len(rendered.Series))
	}
}

func TestBuildLine_AggregatesDuplicateXAndPadsBuffer(t *testing.T) {
	rows := []queryspec.Row{
		{"month": queryspec.StringCell("2026-01"), "total_cost": queryspec.FloatCell(5)},
		{"month": queryspec.StringCell("2026-01"), "total_cost": queryspec.FloatCell(3)},
		{"month": queryspec.StringCell("2026-02"), "total_cost": queryspec.FloatCell(7)},
	}
	b := NewBuilder()
	rendered := b.Build(Spec{Type: TypeLine, Dimension: "month"}, rows, false, nil)
	points := rendered.Series[0].Points
	if len(points) != 4 {
		t.Fatalf("expected 2 data points + 2 buffer points, got %d", len(points))
	}
	if points[1].Y != 8 {
		t.Errorf("expected duplicate x-values summed to 8, got %v", points[1].Y)
	}
	if points[0].X != "2025-12" {
		t.Errorf("expected leading buffer point labeled one month before the first real point, got %q", points[0].X)
	}
	if points[3].X != "2026-03" {
		t.Errorf("expected trailing buffer point labeled one month after the last real point, got %q", points[3].X)
	}
}

func TestBuildLine_NonDateDimensionBufferReusesXLabel(t *testing.T) {
	rows := []queryspec.Row{
		{"dimension_value": queryspec.StringCell("us-east-1"), "total_cost": queryspec.FloatCell(5)},
	}
	b := NewBuilder()
	rendered := b.Build(Spec{Type: TypeLine, Dimension: "dimension_value"}, rows, false, nil)
	points := rendered.Series[0].Points
	if len(points) != 3 {
		t.Fatalf("expected 1 data point + 2 buffer points, got %d", len(points))
	}
	if points[0].X != "us-east-1" || points[2].X != "us-east-1" {
		t.Errorf("expected buffer points to fall back to the unparsable x value, got %q/%q", points[0].X, points[2].X)
	}
}
