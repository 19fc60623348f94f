package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	athenasdk "github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/collector"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/models"
)

const (
	pollInterval = time.Second
	maxAttempts  = 30
)

// Client is the subset of *athenasdk.Client this collector calls, narrowed
// the same way internal/athena.Driver narrows it, for testability with a
// fake.
type Client interface {
	StartQueryExecution(ctx context.Context, in *athenasdk.StartQueryExecutionInput, optFns ...func(*athenasdk.Options)) (*athenasdk.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athenasdk.GetQueryExecutionInput, optFns ...func(*athenasdk.Options)) (*athenasdk.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, in *athenasdk.GetQueryResultsInput, optFns ...func(*athenasdk.Options)) (*athenasdk.GetQueryResultsOutput, error)
}

// AWSCollector periodically pulls AWS Cost and Usage Report rows into
// models.CostRecord via Athena, independently of the natural-language query
// pipeline's internal/athena.Driver: this collector backfills the
// cost_records table the scheduler persists to, while the Driver answers
// one-off chat queries directly against the CUR table. Both submit/poll/page
// the same way because both are driving the same Athena API.
type AWSCollector struct {
	client Client
	logger *slog.Logger
}

// New constructs a collector. client is nil until an *athenasdk.Client for
// the scheduler's own AWS config is wired in by cmd/finopsqueryd/main.go;
// with a nil client Collect reports every source as unconfigured rather
// than panicking, so the scheduler can still run with AWS collection
// disabled (e.g. local dev without AWS credentials).
func New(client Client, logger *slog.Logger) *AWSCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &AWSCollector{client: client, logger: logger}
}

func (c *AWSCollector) Type() string {
	return "aws"
}

func (c *AWSCollector) Validate(_ context.Context, config json.RawMessage) error {
	var cfg models.AWSConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return fmt.Errorf("invalid AWS config: %w", err)
	}
	if cfg.AccountID == "" {
		return fmt.Errorf("accountId is required")
	}
	if cfg.RoleARN == "" {
		return fmt.Errorf("roleArn is required")
	}
	return nil
}

// Collect runs one Athena CUR query scoped to source's own account/table and
// maps each result row into a models.CostRecord (spec-adjacent to the query
// pipeline's internal/athena.Driver.Fetch, but writing rows to the store
// instead of returning a QueryResult).
func (c *AWSCollector) Collect(ctx context.Context, source *models.CostSource, window collector.TimeWindow) ([]*models.CostRecord, error) {
	var cfg models.AWSConfig
	if err := json.Unmarshal(source.Config, &cfg); err != nil {
		return nil, fmt.Errorf("parse AWS config: %w", err)
	}

	c.logger.Info("collecting AWS costs via Athena",
		"account", cfg.AccountID,
		"database", cfg.AthenaDatabase,
		"table", cfg.AthenaTable,
		"window", window,
	)

	if c.client == nil {
		c.logger.Warn("AWS Athena client not configured, skipping collection", "account", cfg.AccountID)
		return nil, nil
	}

	table := cfg.AthenaDatabase + "." + cfg.AthenaTable
	if cfg.AthenaDatabase == "" || cfg.AthenaTable == "" {
		return nil, fmt.Errorf("cost source %s is missing athenaDatabase/athenaTable", source.Name)
	}

	sql := buildAthenaQuery(table, window)

	queryID, err := c.submit(ctx, sql, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.poll(ctx, queryID); err != nil {
		return nil, err
	}
	rows, err := c.page(ctx, queryID)
	if err != nil {
		return nil, err
	}

	records := make([]*models.CostRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, athenaRowToRecord(source, row))
	}
	return records, nil
}

// buildAthenaQuery groups CUR rows by day/resource/account/service/usage
// type/region, summing unblended cost as list cost, net unblended cost
// (falling back to unblended) as net cost, and unblended plus reservation and
// Savings Plans effective cost as amortized cost. It does not use the chat
// query path's effectiveCostExpr.
func buildAthenaQuery(table string, window collector.TimeWindow) string {
	start := window.Start.Format("2006-01-02")
	end := window.End.Format("2006-01-02")

	return fmt.Sprintf(`SELECT
		DATE(line_item_usage_start_date) as usage_date,
		line_item_resource_id,
		line_item_usage_account_id,
		product_product_name,
		line_item_usage_type,
		product_region_code,
		product_availability_zone,
		SUM(line_item_unblended_cost) as list_cost,
		SUM(COALESCE(line_item_net_unblended_cost, line_item_unblended_cost)) as net_cost,
		SUM(COALESCE(reservation_effective_cost, 0) + COALESCE(savings_plan_savings_plan_effective_cost, 0) + line_item_unblended_cost) as amortized_cost
	FROM %s
	WHERE line_item_usage_start_date >= '%s'
	  AND line_item_usage_start_date < '%s'
	  AND line_item_line_item_type != 'Credit'
	GROUP BY 1,2,3,4,5,6,7`, table, start, end)
}

func (c *AWSCollector) submit(ctx context.Context, sql string, cfg models.AWSConfig) (string, error) {
	input := &athenasdk.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(cfg.AthenaDatabase),
		},
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(cfg.AthenaBucket),
		},
	}
	if cfg.AthenaWorkgroup != "" {
		input.WorkGroup = aws.String(cfg.AthenaWorkgroup)
	}
	out, err := c.client.StartQueryExecution(ctx, input)
	if err != nil {
		return "", fmt.Errorf("athena start query execution: %w", err)
	}
	return aws.ToString(out.QueryExecutionId), nil
}

func (c *AWSCollector) poll(ctx context.Context, queryID string) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := c.client.GetQueryExecution(ctx, &athenasdk.GetQueryExecutionInput{
			QueryExecutionId: aws.String(queryID),
		})
		if err != nil {
			return fmt.Errorf("athena get query execution: %w", err)
		}

		switch out.QueryExecution.Status.State {
		case athenatypes.QueryExecutionStateSucceeded:
			return nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			reason := aws.ToString(out.QueryExecution.Status.StateChangeReason)
			c.logger.Error("athena collection query failed", "query_id", queryID, "reason", reason)
			return errors.New(reason)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return errors.New("athena collection query timed out")
}

func (c *AWSCollector) page(ctx context.Context, queryID string) ([]map[string]string, error) {
	var headers []string
	var rows []map[string]string
	var token *string
	first := true

	for {
		out, err := c.client.GetQueryResults(ctx, &athenasdk.GetQueryResultsInput{
			QueryExecutionId: aws.String(queryID),
			NextToken:        token,
		})
		if err != nil {
			return nil, fmt.Errorf("athena get query results: %w", err)
		}

		resultRows := out.ResultSet.Rows
		start := 0
		if first {
			if len(resultRows) == 0 {
				return nil, nil
			}
			headers = rowStrings(resultRows[0])
			start = 1
			first = false
		}

		for _, r := range resultRows[start:] {
			values := rowStrings(r)
			row := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(values) {
					row[h] = values[i]
				}
			}
			rows = append(rows, row)
		}

		if out.NextToken == nil {
			break
		}
		token = out.NextToken
	}

	return rows, nil
}

func rowStrings(row athenatypes.Row) []string {
	out := make([]string, len(row.Data))
	for i, d := range row.Data {
		if d.VarCharValue != nil {
			out[i] = *d.VarCharValue
		}
	}
	return out
}

func athenaRowToRecord(source *models.CostSource, row map[string]string) *models.CostRecord {
	usageDate, _ := time.Parse("2006-01-02", row["usage_date"])
	return &models.CostRecord{
		ProjectID:        source.ProjectID,
		CostSourceID:     source.ID,
		Provider:         "aws",
		ProviderID:       row["line_item_resource_id"],
		AccountID:        row["line_item_usage_account_id"],
		Service:          row["product_product_name"],
		Category:         categorizeAWSService(row["product_product_name"]),
		Region:           row["product_region_code"],
		AvailabilityZone: row["product_availability_zone"],
		StartTime:        usageDate,
		EndTime:          usageDate.Add(24 * time.Hour),
		ListCost:         parseFloat(row["list_cost"]),
		NetCost:          parseFloat(row["net_cost"]),
		AmortizedCost:    parseFloat(row["amortized_cost"]),
		Currency:         "USD",
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func categorizeAWSService(product string) string {
	switch product {
	case "AmazonEC2", "AmazonEKS", "AWSLambda":
		return "Compute"
	case "AmazonS3", "AmazonEBS", "AmazonEFS":
		return "Storage"
	case "AmazonVPC", "AmazonCloudFront", "AWSDataTransfer":
		return "Network"
	case "AmazonRDS", "AmazonDynamoDB", "AmazonElastiCache":
		return "Database"
	default:
		return "Other"
	}
}
