package response

import (
	"strings"
	"testing"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

func rowsForTopN() []queryspec.Row {
	return []queryspec.Row{
		{"service": queryspec.StringCell("AmazonEC2"), "total_cost": queryspec.FloatCell(600)},
		{"service": queryspec.StringCell("AmazonS3"), "total_cost": queryspec.FloatCell(300)},
		{"service": queryspec.StringCell("AmazonRDS"), "total_cost": queryspec.FloatCell(100)},
	}
}

func TestBuild_TopNRankingSummary(t *testing.T) {
	result := &queryspec.QueryResult{Data: rowsForTopN()}
	out := Build(Input{Intent: queryspec.IntentTopNRanking, Result: result})
	if !strings.Contains(out.Summary, "AmazonEC2") {
		t.Errorf("expected summary to name the leading service, got %q", out.Summary)
	}
	if !strings.Contains(out.Message, "**Summary:**") {
		t.Errorf("expected rendered message to contain a Summary section, got %q", out.Message)
	}
}

func TestBuild_EmptyResultProducesNoDriversMessage(t *testing.T) {
	result := &queryspec.QueryResult{}
	out := Build(Input{Intent: queryspec.IntentTopNRanking, Result: result})
	if !strings.Contains(out.Summary, "No cost drivers") {
		t.Errorf("expected empty-result fallback summary, got %q", out.Summary)
	}
}

func TestBuild_DataAvailabilityWarningTriggersOnShortSpan(t *testing.T) {
	rows := []queryspec.Row{
		{"date": queryspec.StringCell("2026-07-25"), "total_cost": queryspec.FloatCell(10)},
		{"date": queryspec.StringCell("2026-07-26"), "total_cost": queryspec.FloatCell(10)},
	}
	result := &queryspec.QueryResult{Data: rows}
	out := Build(Input{
		Intent:         queryspec.IntentCostBreakdown,
		Result:         result,
		RequestedStart: "2026-07-01",
		RequestedEnd:   "2026-07-31",
	})
	if !strings.Contains(out.Message, "Data Availability Warning") {
		t.Errorf("expected a data availability warning section, got %q", out.Message)
	}
}

func TestBuild_NoWarningWhenSpanCoversRequestedRange(t *testing.T) {
	rows := []queryspec.Row{
		{"date": queryspec.StringCell("2026-07-01"), "total_cost": queryspec.FloatCell(10)},
		{"date": queryspec.StringCell("2026-07-31"), "total_cost": queryspec.FloatCell(10)},
	}
	result := &queryspec.QueryResult{Data: rows}
	out := Build(Input{
		Intent:         queryspec.IntentCostBreakdown,
		Result:         result,
		RequestedStart: "2026-07-01",
		RequestedEnd:   "2026-07-31",
	})
	if strings.Contains(out.Message, "Data Availability Warning") {
		t.Errorf("did not expect a warning when the span fully covers the requested range, got %q", out.Message)
	}
}

func TestBuild_BreakdownTableRenderedForCostBreakdown(t *testing.T) {
	result := &queryspec.QueryResult{Data: rowsForTopN()}
	out := Build(Input{Intent: queryspec.IntentCostBreakdown, Result: result})
	if !strings.Contains(out.Message, "| Rank | Dimension | Cost | % of Total |") {
		t.Errorf("expected a breakdown table in the Results section, got %q", out.Message)
	}
}

func TestBuild_MethodologyOnlyWhenExplanationRequested(t *testing.T) {
	result := &queryspec.QueryResult{Data: rowsForTopN()}
	withExplanation := Build(Input{Intent: queryspec.IntentCostBreakdown, Result: result, ExplanationRequest: true})
	if !strings.Contains(withExplanation.Message, "Methodology") {
		t.Errorf("expected a Methodology section when ExplanationRequest=true")
	}

	without := Build(Input{Intent: queryspec.IntentCostBreakdown, Result: result})
	if strings.Contains(without.Message, "Methodology") {
		t.Errorf("did not expect a Methodology section when ExplanationRequest=false")
	}
}

func TestBuild_NextStepsLimitedAndPopulated(t *testing.T) {
	result := &queryspec.QueryResult{Data: rowsForTopN()}
	out := Build(Input{Intent: queryspec.IntentTopNRanking, Result: result})
	if len(out.NextSteps) == 0 || len(out.NextSteps) > 2 {
		t.Errorf("expected 1-2 next steps, got %d", len(out.NextSteps))
	}
}

func TestSubstitutePlaceholders_ResolvesKnownTokens(t *testing.T) {
	rows := rowsForTopN()
	result := &queryspec.QueryResult{Data: rows}
	got := substitutePlaceholders("Top item is ${TopItem} at ${TopCost} (${TopPct}) of ${TotalCost}", rows, result.TotalCost())
	if strings.Contains(got, "${") {
		t.Errorf("expected all placeholders resolved, got %q", got)
	}
	if !strings.Contains(got, "AmazonEC2") {
		t.Errorf("expected TopItem to resolve to AmazonEC2, got %q", got)
	}
}

func TestSubstitutePlaceholders_DoubleBraceFormAlsoResolves(t *testing.T) {
	rows := rowsForTopN()
	got := substitutePlaceholders("Driven by ${{TopItem}}", rows, 1000)
	if strings.Contains(got, "${{") {
		t.Errorf("expected double-brace placeholder resolved, got %q", got)
	}
}

func TestSubstitutePlaceholders_TwoRowPeriodComparisonAddsTrendTokens(t *testing.T) {
	rows := []queryspec.Row{
		{"month": queryspec.StringCell("June"), "total_cost": queryspec.FloatCell(100)},
		{"month": queryspec.StringCell("July"), "total_cost": queryspec.FloatCell(150)},
	}
	got := substitutePlaceholders("Trend: ${TrendDirection}, diff ${Difference}, from ${Period1Cost} to ${Period2Cost}", rows, 250)
	if strings.Contains(got, "${") {
		t.Errorf("expected trend placeholders resolved, got %q", got)
	}
	if !strings.Contains(got, "increased") {
		t.Errorf("expected an increasing trend direction, got %q", got)
	}
}

func TestSubstitutePlaceholders_NoTokensLeavesExplanationUnchanged(t *testing.T) {
	got := substitutePlaceholders("plain explanation with no tokens", nil, 0)
	if got != "plain explanation with no tokens" {
		t.Errorf("expected unchanged passthrough, got %q", got)
	}
}

func TestComparativeSummary_HandlesCreditDrivenNegativeCosts(t *testing.T) {
	rows := []queryspec.Row{
		{"current_period_cost": queryspec.FloatCell(-50), "previous_period_cost": queryspec.FloatCell(-20)},
	}
	got := comparativeSummary(rows)
	if !strings.Contains(got, "credit-driven") {
		t.Errorf("expected credit-driven wording for all-negative costs, got %q", got)
	}
}
