// Package costexplorer implements the Cost Explorer fallback DataSource
// (spec §4.7 step 5): a coarser, slower-to-reflect but always-on source
// consulted only when Athena returns nothing and the query is eligible.
package costexplorer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

// Client is the subset of *costexplorer.Client this source calls.
type Client interface {
	GetCostAndUsage(ctx context.Context, in *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Source wraps the Cost Explorer GetCostAndUsage API as a DataSource,
// grouping by SERVICE and reporting cost_explorer_fallback=true.
type Source struct {
	client Client
	logger *slog.Logger
}

func New(client Client, logger *slog.Logger) *Source {
	return &Source{client: client, logger: logger}
}

func (s *Source) Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(spec.TimeRange.StartDate()),
			End:   aws.String(spec.TimeRange.EndDate()),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
	}

	out, err := s.client.GetCostAndUsage(ctx, input)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("cost explorer fallback failed", "error", err)
		}
		return nil, fmt.Errorf("cost explorer get cost and usage: %w", err)
	}

	var rows []queryspec.Row
	for _, byTime := range out.ResultsByTime {
		for _, group := range byTime.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			metric, ok := group.Metrics["UnblendedCost"]
			if !ok || metric.Amount == nil {
				continue
			}
			cost, _ := strconv.ParseFloat(*metric.Amount, 64)
			rows = append(rows, queryspec.Row{
				"service":    queryspec.StringCell(group.Keys[0]),
				"total_cost": queryspec.FloatCell(cost),
			})
		}
	}

	return &queryspec.QueryResult{
		Data: rows,
		Metadata: queryspec.ResultMetadata{
			DataSource:           "cost_explorer",
			QueryID:              spec.QueryID,
			CostExplorerFallback: true,
		},
	}, nil
}
