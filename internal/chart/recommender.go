// Package chart implements ChartRecommender and ChartBuilder (spec §4.9,
// §4.10): choosing 0-2 chart specs for a result and rendering render-ready
// chart objects from rows.
package chart

import (
	"strings"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

// Type is a chart rendering kind.
type Type string

const (
	TypeLine        Type = "line"
	TypeColumn      Type = "column"
	TypeBar         Type = "bar"
	TypePie         Type = "pie"
	TypeScatter     Type = "scatter"
	TypeClusteredBar Type = "clustered_bar"
)

// Spec is one recommended chart, before ChartBuilder renders it.
type Spec struct {
	Type      Type
	Dimension string
	Rationale string
}

var noChartPhrases = []string{"no chart", "no graph", "text only"}

// intentChartTable maps a normalized intent to its primary/alternative chart
// types (spec §4.9).
var intentChartTable = map[queryspec.Intent]struct{ Primary, Alternative Type }{
	queryspec.IntentTopNRanking:     {TypeColumn, TypePie},
	queryspec.IntentCostBreakdown:   {TypeColumn, TypePie},
	queryspec.IntentCostTrend:       {TypeLine, TypeScatter},
	queryspec.IntentAnomalyAnalysis: {TypeLine, TypeScatter},
	queryspec.IntentComparative:     {TypeClusteredBar, TypeLine},
	queryspec.IntentUtilization:     {TypeScatter, TypeBar},
	queryspec.IntentOptimization:    {TypeColumn, TypePie},
	queryspec.IntentDataMetadata:    {TypeLine, TypeLine},
}

// Recommend implements spec §4.9's rule chain.
func Recommend(queryText string, intent queryspec.Intent, rows []queryspec.Row, metadata queryspec.ResultMetadata) []Spec {
	lower := strings.ToLower(queryText)
	for _, phrase := range noChartPhrases {
		if strings.Contains(lower, phrase) {
			return nil
		}
	}

	if metadata.ARNFallback {
		return []Spec{{Type: TypePie, Dimension: "resource_type", Rationale: "ARN fallback breaks down by resource type"}}
	}

	if hasColumn(rows, "usage_type") && len(rows) >= 2 {
		return []Spec{{Type: TypePie, Dimension: "usage_type", Rationale: "usage-type breakdown"}}
	}

	if metadata.TopServiceBreakdown {
		dim := metadata.BreakdownDimension
		if dim == "" {
			dim = "dimension_value"
		}
		return []Spec{{Type: TypePie, Dimension: dim, Rationale: "top-service breakdown"}}
	}

	entry, ok := intentChartTable[intent]
	if !ok {
		return nil
	}

	var specs []Spec
	if intent == queryspec.IntentComparative {
		if isTwoPeriodComparison(rows) {
			specs = []Spec{{Type: TypeClusteredBar, Rationale: "two-period comparison"}}
		} else {
			specs = []Spec{{Type: TypeLine, Rationale: "monthly trend over a long span"}}
		}
	} else {
		dim := primaryDimension(rows, intent)
		specs = []Spec{{Type: entry.Primary, Dimension: dim, Rationale: "primary chart for intent"}}
	}

	if shouldAddSecondary(lower, rows) {
		entry, ok := intentChartTable[intent]
		if ok {
			specs = append(specs, Spec{Type: entry.Alternative, Dimension: specs[0].Dimension, Rationale: "secondary chart, large dataset"})
		}
	}

	return specs
}

func hasColumn(rows []queryspec.Row, col string) bool {
	if len(rows) == 0 {
		return false
	}
	_, ok := rows[0][col]
	return ok
}

func isTwoPeriodComparison(rows []queryspec.Row) bool {
	if len(rows) == 0 {
		return false
	}
	_, hasCurrent := rows[0]["current_period_cost"]
	_, hasPrevious := rows[0]["previous_period_cost"]
	return hasCurrent && hasPrevious
}

// primaryDimension prefers an explicit dimension_value column for
// cost_breakdown queries, else classifies columns by name heuristics.
func primaryDimension(rows []queryspec.Row, intent queryspec.Intent) string {
	if len(rows) == 0 {
		return ""
	}
	if intent == queryspec.IntentCostBreakdown {
		if _, ok := rows[0]["dimension_value"]; ok {
			return "dimension_value"
		}
	}
	for col := range rows[0] {
		switch classifyColumn(col) {
		case "dimension":
			return col
		}
	}
	return ""
}

// classifyColumn buckets a column name into dimension/metric/time by
// naming heuristics (spec §4.9's "infer axes from data structure").
func classifyColumn(col string) string {
	lower := strings.ToLower(col)
	switch {
	case strings.Contains(lower, "cost") || strings.Contains(lower, "total") || strings.Contains(lower, "count"):
		return "metric"
	case strings.Contains(lower, "month") || strings.Contains(lower, "date") || strings.Contains(lower, "period") || strings.Contains(lower, "time"):
		return "time"
	default:
		return "dimension"
	}
}

func shouldAddSecondary(lowerQuery string, rows []queryspec.Row) bool {
	if len(rows) >= 5 {
		return true
	}
	return strings.Contains(lowerQuery, "multiple view") || strings.Contains(lowerQuery, "different chart")
}
