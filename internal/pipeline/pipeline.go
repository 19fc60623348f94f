// Package pipeline wires TimeRangeResolver, TextToSQLGenerator,
// QueryOrchestrator, AutoDrillDown, ChartRecommender/Builder, and
// ResponseFormatter behind the single Entrypoint.Execute operation spec
// §4.12 describes.
package pipeline

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/chart"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/drilldown"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/orchestrator"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/response"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/serviceresolver"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/textsql"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/timerange"
	"github.com/amitkumar0206/finops-orchestrator-sub000/pkg/api"
)

// Request is one user turn handed to Entrypoint.Execute.
type Request struct {
	Query           string
	ChatHistory     []textsql.ChatMessage
	PreviousContext *queryspec.ConversationContext
	RequestCtx      *reqcontext.Context
	Now             time.Time
}

// Entrypoint is spec §2's "Entrypoint (query pipeline)" component: the
// single execute(query, ctx) -> Response operation.
type Entrypoint struct {
	resolver     *timerange.Resolver
	generator    *textsql.Generator
	orchestrator *orchestrator.Orchestrator
	drilldown    *drilldown.DrillDown
	services     *serviceresolver.Resolver
	logger       *slog.Logger
}

// New wires the pipeline. services may be nil, in which case the
// TextToSQLGenerator's own service phrase (if any) is used unresolved.
func New(resolver *timerange.Resolver, generator *textsql.Generator, orch *orchestrator.Orchestrator, dd *drilldown.DrillDown, services *serviceresolver.Resolver, logger *slog.Logger) *Entrypoint {
	return &Entrypoint{resolver: resolver, generator: generator, orchestrator: orch, drilldown: dd, services: services, logger: logger}
}

// Execute runs one full turn: resolve time range, generate SQL, orchestrate
// fetch + rescue, drill down, recommend/build charts, format the response.
func (e *Entrypoint) Execute(ctx context.Context, req Request) (*api.UnifiedResponse, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	var prevRange *queryspec.TimeRange
	if req.PreviousContext != nil {
		prevRange = req.PreviousContext.TimeRange
	}
	timeResult := e.resolver.Merge(prevRange, req.Query)

	genResult := e.generator.Generate(ctx, textsql.Request{
		Query:           req.Query,
		ChatHistory:     req.ChatHistory,
		PreviousContext: req.PreviousContext,
		RequestCtx:      req.RequestCtx,
		Now:             now,
	})

	if genResult.Status != textsql.StatusOK {
		return clarificationResponse(genResult, timeResult), nil
	}
	if len(genResult.Clarification) > 0 {
		return clarificationResponse(genResult, timeResult), nil
	}

	intent := classifyIntent(req.Query, genResult.QueryType)
	spec := queryspec.NewQuerySpec()
	spec.Intent = intent
	spec.TimeRange = timeResult.Primary
	spec.ARN = extractARN(genResult.SQL)
	if req.RequestCtx != nil {
		spec.IsAdmin = req.RequestCtx.IsAdmin
		spec.Accounts = req.RequestCtx.AllowedAccountIDs
	}
	if svc, ok := genResult.Metadata["filter_service"].(string); ok && svc != "" {
		spec.Services = []string{e.canonicalService(ctx, svc)}
	}
	if region, ok := genResult.Metadata["filter_region"].(string); ok {
		spec.Regions = []string{region}
	}
	if scope, ok := genResult.Metadata["scope"].(string); ok && scope != "unscoped" {
		spec.Dimensions = []string{scope}
	}
	spec.Metadata["sql"] = genResult.SQL
	spec.Metadata["explanation_request"] = isExplanationRequest(req.Query)
	for k, v := range genResult.Metadata {
		spec.Metadata[k] = v
	}

	result, err := e.orchestrator.Execute(ctx, spec)
	if err != nil {
		return errorResponse(spec, classifyDataSourceError(err.Error())), nil
	}
	if !result.Succeeded() {
		return errorResponse(spec, classifyDataSourceError(result.Err)), nil
	}

	if e.drilldown != nil {
		result = e.drilldown.Apply(ctx, spec, result)
	}

	convCtx := req.PreviousContext
	if convCtx == nil {
		convCtx = &queryspec.ConversationContext{}
	}

	chartSpecs := chart.Recommend(req.Query, intent, result.Data, result.Metadata)
	isBreakdown := intent == queryspec.IntentCostBreakdown && result.Metadata.Extra["related_resources_query"] != true
	builder := chart.NewBuilder()
	var rendered []chart.Rendered
	for _, cs := range chartSpecs {
		rendered = append(rendered, builder.Build(cs, result.Data, isBreakdown, convCtx))
	}

	explanationRequest, _ := spec.Metadata["explanation_request"].(bool)
	out := response.Build(response.Input{
		Intent:              intent,
		Query:               req.Query,
		Explanation:         genResult.Explanation,
		Result:              result,
		Charts:              chartSpecs,
		RequestedStart:      spec.TimeRange.StartDate(),
		RequestedEnd:        spec.TimeRange.EndDate(),
		Filters:             filtersFromSpec(spec),
		ExplanationRequest:  explanationRequest,
	})

	convCtx.LastQuery = req.Query
	convCtx.LastSQL = genResult.SQL
	convCtx.LastQueryType = genResult.QueryType
	tr := spec.TimeRange
	convCtx.TimeRange = &tr
	if len(spec.Services) > 0 {
		convCtx.LastService = spec.Services[0]
	}

	return buildEnvelope(spec, result, out, rendered, convCtx), nil
}

var arnEqualsRe = regexp.MustCompile(`(?i)line_item_resource_id\s*=\s*'([^']+)'`)

func extractARN(sql string) string {
	if m := arnEqualsRe.FindStringSubmatch(sql); m != nil {
		return m[1]
	}
	return ""
}

var explanationPhrases = []string{"explain", "why is", "why are", "how is this calculated", "how was this calculated", "methodology"}

func isExplanationRequest(query string) bool {
	lower := strings.ToLower(query)
	for _, p := range explanationPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifyIntent maps the TextToSQLGenerator's query_type plus keyword
// heuristics to the normalized Intent enum (spec §3/§4.5's query_type
// inference feeds this, but the mapping to an Intent is this pipeline's
// responsibility since intent classification is not itself a component).
func classifyIntent(query, queryType string) queryspec.Intent {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "anomal") || strings.Contains(lower, "spike") || strings.Contains(lower, "unusual"):
		return queryspec.IntentAnomalyAnalysis
	case strings.Contains(lower, "optimiz") || strings.Contains(lower, "saving") || strings.Contains(lower, "recommend"):
		return queryspec.IntentOptimization
	case strings.Contains(lower, "utiliz") || strings.Contains(lower, "idle") || strings.Contains(lower, "underutilized"):
		return queryspec.IntentUtilization
	case strings.Contains(lower, "compliance") || strings.Contains(lower, "policy") || strings.Contains(lower, "governance"):
		return queryspec.IntentGovernance
	case strings.Contains(lower, "what data") || strings.Contains(lower, "available columns") || strings.Contains(lower, "schema"):
		return queryspec.IntentDataMetadata
	case strings.Contains(lower, "compare") || strings.Contains(lower, " vs ") || strings.Contains(lower, "versus") || strings.Contains(lower, "month over month") || strings.Contains(lower, "year over year"):
		return queryspec.IntentComparative
	}

	switch queryType {
	case "top_services":
		return queryspec.IntentTopNRanking
	case "time_series":
		return queryspec.IntentCostTrend
	case "comparison":
		return queryspec.IntentComparative
	case "breakdown":
		return queryspec.IntentCostBreakdown
	default:
		return queryspec.IntentCostBreakdown
	}
}

// canonicalService resolves a free-text service phrase to its CUR
// line_item_product_code via the dict -> fuzzy -> LLM pipeline, falling
// back to the phrase unchanged when no resolver is configured or the
// resolution needs clarification (spec §4.3).
func (e *Entrypoint) canonicalService(ctx context.Context, phrase string) string {
	if e.services == nil {
		return phrase
	}
	result := e.services.Resolve(ctx, phrase)
	if result.NeedsClarification || result.ProductCode == "" {
		return phrase
	}
	return result.ProductCode
}

func filtersFromSpec(spec *queryspec.QuerySpec) map[string]string {
	out := map[string]string{}
	if len(spec.Services) > 0 {
		out["service"] = spec.Services[0]
	}
	if len(spec.Regions) > 0 {
		out["region"] = spec.Regions[0]
	}
	if spec.ARN != "" {
		out["arn"] = spec.ARN
	}
	return out
}
