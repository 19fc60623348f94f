package api

// InsightPayload is one insights[] entry in the response envelope (spec §6).
type InsightPayload struct {
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
}

// RecommendationPayload is one recommendations[] entry.
type RecommendationPayload struct {
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// ChartData holds the labels/datasets shape most charting clients expect.
type ChartData struct {
	Labels   []string      `json:"labels,omitempty"`
	Datasets []ChartSeries `json:"datasets"`
}

// ChartSeries is one named series of values within ChartData.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartPayload is one charts[] entry.
type ChartPayload struct {
	Type    string    `json:"type"`
	Title   string    `json:"title,omitempty"`
	X       string    `json:"x,omitempty"`
	Y       string    `json:"y,omitempty"`
	Series  []string  `json:"series,omitempty"`
	Data    ChartData `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

// ScopeMetadata mirrors reqcontext.Context.ScopeDict plus the effective
// time range for the request.
type ScopeMetadata struct {
	TimeRange      map[string]any `json:"time_range,omitempty"`
	AccountIDs     []string       `json:"account_ids,omitempty"`
	OrganizationID string         `json:"organization_id,omitempty"`
}

// ResponseMetadata is the metadata{} block of the response envelope.
type ResponseMetadata struct {
	QueryID               string        `json:"query_id"`
	DataSource            string        `json:"data_source,omitempty"`
	ExecutionTimeMS       int64         `json:"execution_time_ms"`
	RowCount              int           `json:"row_count"`
	TotalCost             float64       `json:"total_cost"`
	ARNFallback           bool          `json:"arn_fallback,omitempty"`
	OriginalARN           string        `json:"original_arn,omitempty"`
	CostExplorerFallback  bool          `json:"cost_explorer_fallback,omitempty"`
	Scope                 ScopeMetadata `json:"scope"`
	AccountFilterEnforced  bool         `json:"account_filter_enforced,omitempty"`
	Error                  string       `json:"error,omitempty"`
}

// ConversationState is the context{} block threaded back to the caller so it
// can be supplied as previous_context on the next turn.
type ConversationState struct {
	TimeRange           map[string]any `json:"time_range,omitempty"`
	LastQuery           string         `json:"last_query,omitempty"`
	LastSQL             string         `json:"last_sql,omitempty"`
	LastService         string         `json:"last_service,omitempty"`
	LastQueryType       string         `json:"last_query_type,omitempty"`
	LastShownTopItems   []string       `json:"last_shown_top_items,omitempty"`
	LastHiddenItems     []string       `json:"last_hidden_items,omitempty"`
	LastChartAggregated bool           `json:"last_chart_aggregated,omitempty"`
}

// UnifiedResponse is the exact response envelope spec §6 requires at the API
// boundary.
type UnifiedResponse struct {
	Summary         string                  `json:"summary"`
	Message         string                  `json:"message"`
	Insights        []InsightPayload        `json:"insights"`
	Recommendations []RecommendationPayload `json:"recommendations"`
	Results         []map[string]any        `json:"results"`
	Charts          []ChartPayload          `json:"charts"`
	Suggestions     []string                `json:"suggestions"`
	AthenaQuery     *string                 `json:"athena_query"`
	Metadata        ResponseMetadata        `json:"metadata"`
	Context         ConversationState       `json:"context"`
}
