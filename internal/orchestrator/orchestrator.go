// Package orchestrator implements QueryOrchestrator (spec §4.7): default
// application, primary fetch, ARN rescue, and cross-source fallback. It
// never formats — it hands the caller a QueryResult unchanged.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

const defaultTopN = 5

// DataSource is the dispatch target for both the primary and fallback
// source, matching internal/datasource.DataSource without importing it (the
// orchestrator stays agnostic to the concrete backend).
type DataSource interface {
	Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error)
}

// Orchestrator coordinates a primary DataSource and an optional fallback.
type Orchestrator struct {
	primary  DataSource
	fallback DataSource
	logger   *slog.Logger
}

// New constructs an Orchestrator. fallback may be nil, per SPEC_FULL.md's
// Open Question resolution: a nil fallback is how a caller disables the
// Cost Explorer fallback for one organization, without a separate flag.
func New(primary, fallback DataSource, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{primary: primary, fallback: fallback, logger: logger}
}

// Execute runs the full pipeline described in spec §4.7.
func (o *Orchestrator) Execute(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error) {
	if spec.Metadata == nil {
		spec.Metadata = map[string]any{}
	}
	o.applyDefaults(spec)

	result, err := o.primary.Fetch(ctx, spec)
	if err != nil {
		return nil, err
	}

	if result.Succeeded() && result.IsEmpty() && spec.ARN != "" {
		rescueSpec := o.relatedResourcesSpec(spec)
		rescued, rerr := o.primary.Fetch(ctx, rescueSpec)
		if rerr == nil && rescued.HasData() {
			rescued.Metadata.ARNFallback = true
			rescued.Metadata.OriginalARN = spec.ARN
			result = rescued
		}
	}

	if result.IsEmpty() && o.fallback != nil && o.isFallbackEligible(spec) {
		fallbackResult, ferr := o.fallback.Fetch(ctx, spec)
		if ferr == nil && fallbackResult != nil {
			fallbackResult.Metadata.CostExplorerFallback = true
			result = fallbackResult
		} else if o.logger != nil && ferr != nil {
			o.logger.Warn("cost explorer fallback failed", "error", ferr)
		}
	}

	return result, nil
}

// applyDefaults installs top_n=5 for an unset top_n_ranking query and a
// last-30-days time range when none was resolved (spec §4.7 step 2).
func (o *Orchestrator) applyDefaults(spec *queryspec.QuerySpec) {
	if spec.Intent == queryspec.IntentTopNRanking {
		if _, ok := spec.Metadata["top_n"]; !ok {
			spec.Metadata["top_n"] = defaultTopN
		}
	}
	if !spec.TimeRange.Valid() || spec.TimeRange.Start.IsZero() {
		now := time.Now().UTC()
		spec.TimeRange = queryspec.TimeRange{
			Start:       now.AddDate(0, 0, -30),
			End:         now,
			Granularity: queryspec.GranularityDaily,
			Source:      queryspec.SourceDefault,
			Description: "last 30 days",
		}
	}
}

// relatedResourcesSpec builds the ARN-rescue spec: intent cost_breakdown,
// dimensions [resource_type], preserving ARN and filters (spec §4.7 step 4).
func (o *Orchestrator) relatedResourcesSpec(spec *queryspec.QuerySpec) *queryspec.QuerySpec {
	rescue := spec.Clone()
	rescue.Intent = queryspec.IntentCostBreakdown
	rescue.Dimensions = []string{"resource_type"}
	rescue.Metadata["related_resources_query"] = true
	rescue.Metadata["resource_type_explanation"] = resourceTypeExplanation(spec.ARN)
	return rescue
}

func resourceTypeExplanation(arn string) string {
	lower := strings.ToLower(arn)
	switch {
	case strings.Contains(lower, ":cluster/"):
		return "cluster"
	case strings.Contains(lower, ":vpc"):
		return "VPC"
	case strings.Contains(lower, ":security-group/"):
		return "security group"
	default:
		return "generic"
	}
}

// isFallbackEligible implements spec §4.7 step 5's eligibility rule: no
// ARN, intent in {cost_breakdown, top_n_ranking}, no specific service
// filter, no dimensions beyond "service".
func (o *Orchestrator) isFallbackEligible(spec *queryspec.QuerySpec) bool {
	if spec.ARN != "" {
		return false
	}
	if spec.Intent != queryspec.IntentCostBreakdown && spec.Intent != queryspec.IntentTopNRanking {
		return false
	}
	if len(spec.Services) > 0 {
		return false
	}
	for _, d := range spec.Dimensions {
		if d != "service" {
			return false
		}
	}
	return true
}
