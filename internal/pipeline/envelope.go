package pipeline

import (
	"strings"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/chart"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/response"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/textsql"
	"github.com/amitkumar0206/finops-orchestrator-sub000/pkg/api"
)

// clarificationResponse builds an envelope for an underspecified request or
// an LLM/validation failure: no SQL ran, results are empty, suggestions
// carry the clarifying question(s) (spec §7).
func clarificationResponse(gen textsql.Result, timeResult queryspec.TimeRangeResult) *api.UnifiedResponse {
	summary := strings.Join(gen.Clarification, " ")
	return &api.UnifiedResponse{
		Summary:     summary,
		Message:     summary,
		Insights:    []api.InsightPayload{},
		Results:     []map[string]any{},
		Charts:      []api.ChartPayload{},
		Suggestions: gen.Clarification,
		AthenaQuery: nil,
		Metadata: api.ResponseMetadata{
			Error: string(gen.Status),
		},
		Context: api.ConversationState{
			TimeRange: timeRangeMap(timeResult.Primary),
		},
	}
}

// errorResponse builds an envelope for a data-source failure classified per
// spec §7: empty data, the classified reason in metadata.error.
func errorResponse(spec *queryspec.QuerySpec, reason string) *api.UnifiedResponse {
	return &api.UnifiedResponse{
		Summary:     reason,
		Message:     reason,
		Insights:    []api.InsightPayload{},
		Results:     []map[string]any{},
		Charts:      []api.ChartPayload{},
		Suggestions: []string{"Try rephrasing the question or narrowing the time range."},
		AthenaQuery: nil,
		Metadata: api.ResponseMetadata{
			QueryID: spec.QueryID,
			Error:   reason,
			Scope:   api.ScopeMetadata{TimeRange: timeRangeMap(spec.TimeRange)},
		},
		Context: api.ConversationState{
			TimeRange: timeRangeMap(spec.TimeRange),
		},
	}
}

// classifyDataSourceError implements spec §7's "classify the error string"
// rule for Athena/data-source failures.
func classifyDataSourceError(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "column") && strings.Contains(lower, "not found"):
		return "The query referenced a column that does not exist in the cost and usage data."
	case strings.Contains(lower, "syntax"):
		return "The generated query had a syntax error; please rephrase your question."
	case strings.Contains(lower, "permission") || strings.Contains(lower, "access denied"):
		return "The query could not run due to a permissions issue with the underlying data."
	case strings.Contains(lower, "timeout"):
		return "The query took too long to complete; try narrowing the time range."
	default:
		return "The query could not be completed: " + reason
	}
}

func buildEnvelope(spec *queryspec.QuerySpec, result *queryspec.QueryResult, out response.Output, rendered []chart.Rendered, convCtx *queryspec.ConversationContext) *api.UnifiedResponse {
	sqlCopy := result.Metadata.SQLQuery
	var athenaQuery *string
	if sqlCopy != "" {
		athenaQuery = &sqlCopy
	}

	recs := make([]api.RecommendationPayload, 0, len(out.Recommendations))
	for _, r := range out.Recommendations {
		recs = append(recs, api.RecommendationPayload{Action: r.Action, Description: r.Description})
	}
	insights := make([]api.InsightPayload, 0, len(out.Insights))
	for _, i := range out.Insights {
		insights = append(insights, api.InsightPayload{Category: i.Category, Description: i.Description})
	}

	charts := make([]api.ChartPayload, 0, len(rendered))
	for _, r := range rendered {
		charts = append(charts, chartToPayload(r))
	}

	results := make([]map[string]any, 0, len(result.Data))
	for _, row := range result.Data {
		results = append(results, rowToMap(row))
	}

	scope := api.ScopeMetadata{TimeRange: timeRangeMap(spec.TimeRange)}

	return &api.UnifiedResponse{
		Summary:         out.Summary,
		Message:         out.Message,
		Insights:        insights,
		Recommendations: recs,
		Results:         results,
		Charts:          charts,
		Suggestions:     out.NextSteps,
		AthenaQuery:     athenaQuery,
		Metadata: api.ResponseMetadata{
			QueryID:              spec.QueryID,
			DataSource:           result.Metadata.DataSource,
			ExecutionTimeMS:      result.Metadata.ExecutionTimeMS,
			RowCount:             result.RowCount(),
			TotalCost:            result.TotalCost(),
			ARNFallback:          result.Metadata.ARNFallback,
			OriginalARN:          result.Metadata.OriginalARN,
			CostExplorerFallback: result.Metadata.CostExplorerFallback,
			Scope:                scope,
		},
		Context: api.ConversationState{
			TimeRange:           timeRangeMap(spec.TimeRange),
			LastQuery:           convCtx.LastQuery,
			LastSQL:             convCtx.LastSQL,
			LastService:         convCtx.LastService,
			LastQueryType:       convCtx.LastQueryType,
			LastShownTopItems:   convCtx.LastShownTopItems,
			LastHiddenItems:     convCtx.LastHiddenItems,
			LastChartAggregated: convCtx.LastChartAggregated,
		},
	}
}



func chartToPayload(r chart.Rendered) api.ChartPayload {
	data := api.ChartData{}
	if len(r.Series) > 0 {
		for _, s := range r.Series {
			values := make([]float64, len(s.Points))
			labels := make([]string, len(s.Points))
			for i, p := range s.Points {
				values[i] = p.Y
				labels[i] = p.X
			}
			if len(data.Labels) == 0 {
				data.Labels = labels
			}
			data.Datasets = append(data.Datasets, api.ChartSeries{Name: s.Name, Values: values})
		}
	}
	payload := api.ChartPayload{Type: string(r.Type), Data: data}
	if r.Aggregated {
		payload.Options = map[string]any{"others_count": r.OthersCount, "aggregated": true}
	}
	return payload
}

func rowToMap(row queryspec.Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, cell := range row {
		switch cell.Kind {
		case queryspec.CellNull:
			out[k] = nil
		case queryspec.CellInt:
			out[k] = cell.Int
		case queryspec.CellFloat:
			out[k] = cell.Float
		default:
			out[k] = cell.Str
		}
	}
	return out
}

func timeRangeMap(tr queryspec.TimeRange) map[string]any {
	if tr.Start.IsZero() && tr.End.IsZero() {
		return nil
	}
	return map[string]any{
		"start":       tr.StartDate(),
		"end":         tr.EndDate(),
		"granularity": string(tr.Granularity),
		"description": tr.Description,
		"source":      string(tr.Source),
		"period_type": string(tr.PeriodType),
	}
}
