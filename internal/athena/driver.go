// Package athena implements AthenaDriver (spec §4.6), the default
// DataSource: SQL composition, query submission, polling, paginated result
// retrieval, cell-type coercion, and the ARN empty-result rescue.
package athena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
)

const (
	pollInterval = time.Second
	maxAttempts  = 30
)

var metaServices = map[string]bool{
	"aws cost explorer": true,
	"cost explorer":     true,
	"support":           true,
}

// Client is the subset of *athena.Client the driver calls, narrowed for
// testability with a fake.
type Client interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Driver is the default DataSource: AWS Athena over one configured CUR
// table and output location.
type Driver struct {
	client       Client
	database     string
	outputBucket string
	curTable     string
	enforcer     *reqcontext.ScopeEnforcer
	logger       *slog.Logger
}

// New constructs a Driver. enforcer may be nil, in which case no
// account-scope guard runs before submission — callers that skip it are
// responsible for scoping spec.Accounts themselves (tests only; production
// wiring always passes the shared reqcontext.ScopeEnforcer).
func New(client Client, database, outputBucket, curTable string, enforcer *reqcontext.ScopeEnforcer, logger *slog.Logger) *Driver {
	return &Driver{client: client, database: database, outputBucket: outputBucket, curTable: curTable, enforcer: enforcer, logger: logger}
}

// Fetch composes (if not already set in metadata), submits, polls, and
// retrieves a query for spec, then runs the ARN empty-result rescue when
// applicable.
func (d *Driver) Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error) {
	sql, _ := spec.Metadata["sql"].(string)
	if sql == "" {
		sql = Compose(d.curTable, spec)
	}

	started := time.Now()
	result, err := d.run(ctx, sql, spec)
	if err != nil {
		return nil, err
	}
	result.Metadata.QueryID = spec.QueryID
	result.Metadata.SQLQuery = sql
	result.Metadata.DataSource = "athena"
	result.Metadata.ExecutionTimeMS = time.Since(started).Milliseconds()

	if spec.ARN != "" && result.Succeeded() && result.IsEmpty() {
		rescueSQL := ComposeARNRescue(d.curTable, spec, spec.TimeRange.StartDate(), spec.TimeRange.EndDate())
		rescued, rerr := d.run(ctx, rescueSQL, spec)
		if rerr == nil && rescued.HasData() {
			rescued.Metadata.DataSource = "athena"
			rescued.Metadata.SQLQuery = rescueSQL
			rescued.Metadata.QueryID = spec.QueryID
			rescued.Metadata.ARNFallback = true
			rescued.Metadata.OriginalARN = spec.ARN
			rescued.Metadata.ResourceTypeExplanation = resourceTypeExplanation(spec.ARN)
			return rescued, nil
		}
	}

	return result, nil
}

// enforceScope re-runs the tenant account-scope guard immediately before
// submission (spec §4.4's "double-guard is deliberate": once after LLM SQL
// generation in TextToSQLGenerator, once here right before Athena sees the
// string, since this path also covers every programmatically composed query
// — top-N, breakdown, trend, anomaly, per-resource, ARN rescue — that never
// goes through the generator at all). Admins bypass scoping entirely; a
// non-admin spec with no allowed accounts fails closed rather than
// submitting an unscoped query.
func (d *Driver) enforceScope(sql string, spec *queryspec.QuerySpec) (string, error) {
	if d.enforcer == nil || spec.IsAdmin {
		return sql, nil
	}
	scoped, _ := d.enforcer.Enforce(sql, spec.Accounts)
	if ok, reason := d.enforcer.Validate(scoped, spec.Accounts); !ok {
		return "", fmt.Errorf("account scope enforcement failed: %s", reason)
	}
	return scoped, nil
}

// run executes one SQL string end to end: scope, submit, poll, page, coerce,
// filter.
func (d *Driver) run(ctx context.Context, sql string, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error) {
	scopedSQL, err := d.enforceScope(sql, spec)
	if err != nil {
		return &queryspec.QueryResult{Err: err.Error()}, nil
	}

	queryID, err := d.submit(ctx, scopedSQL)
	if err != nil {
		return nil, err
	}

	if err := d.poll(ctx, queryID); err != nil {
		return &queryspec.QueryResult{Err: err.Error()}, nil
	}

	rows, err := d.page(ctx, queryID)
	if err != nil {
		return &queryspec.QueryResult{Err: err.Error()}, nil
	}

	return &queryspec.QueryResult{Data: filterMetaServices(rows)}, nil
}

func (d *Driver) submit(ctx context.Context, sql string) (string, error) {
	out, err := d.client.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(d.database),
		},
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(d.outputBucket),
		},
	})
	if err != nil {
		return "", fmt.Errorf("athena start query execution: %w", err)
	}
	return aws.ToString(out.QueryExecutionId), nil
}

// poll checks query state at 1-second intervals up to maxAttempts (spec
// §4.6 step 3).
func (d *Driver) poll(ctx context.Context, queryID string) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := d.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(queryID),
		})
		if err != nil {
			return fmt.Errorf("athena get query execution: %w", err)
		}

		state := out.QueryExecution.Status.State
		switch state {
		case athenatypes.QueryExecutionStateSucceeded:
			return nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			reason := aws.ToString(out.QueryExecution.Status.StateChangeReason)
			if d.logger != nil {
				d.logger.Error("athena query failed", "query_id", queryID, "reason", reason)
			}
			return errors.New(reason)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return errors.New("Query timeout")
}

// page follows pagination tokens; the first page's first row is the header,
// later pages reuse it (spec §4.6 step 4).
func (d *Driver) page(ctx context.Context, queryID string) ([]queryspec.Row, error) {
	var headers []string
	var rows []queryspec.Row
	var token *string
	first := true

	for {
		out, err := d.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
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
			rows = append(rows, coerceRow(headers, rowStrings(r)))
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

var numberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// coerceRow builds one typed Row from a header/value pair, converting each
// cell per spec §4.6 step 5.
func coerceRow(headers, values []string) queryspec.Row {
	row := make(queryspec.Row, len(headers))
	for i, h := range headers {
		if i >= len(values) {
			row[h] = queryspec.NullCell()
			continue
		}
		row[h] = coerceCell(values[i])
	}
	return row
}

func coerceCell(raw string) queryspec.Cell {
	if raw == "" {
		return queryspec.NullCell()
	}
	if !numberRe.MatchString(raw) {
		return queryspec.StringCell(raw)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return queryspec.IntCell(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return queryspec.FloatCell(f)
	}
	return queryspec.StringCell(raw)
}

// filterMetaServices drops rows whose "service" column names a non-service
// meta-entry (spec §4.6 step 6).
func filterMetaServices(rows []queryspec.Row) []queryspec.Row {
	out := make([]queryspec.Row, 0, len(rows))
	for _, row := range rows {
		cell, ok := row["service"]
		if ok && metaServices[strings.ToLower(cell.Str)] {
			continue
		}
		out = append(out, row)
	}
	return out
}

// resourceTypeExplanation derives a one-line explanation of the ARN's shape
// for the related-resources rescue (spec §4.7 step 4).
func resourceTypeExplanation(arn string) string {
	lower := strings.ToLower(arn)
	switch {
	case strings.Contains(lower, ":cluster/"):
		return "This ARN refers to a cluster; showing related resources within it."
	case strings.Contains(lower, ":vpc/") || strings.Contains(lower, ":vpc-"):
		return "This ARN refers to a VPC; showing related network resources."
	case strings.Contains(lower, ":security-group/"):
		return "This ARN refers to a security group; showing related resources."
	default:
		return "Showing resources related to this resource identifier."
	}
}
