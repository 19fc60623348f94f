package aws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	athenasdk "github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/collector"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/models"
)

type fakeClient struct {
	states []athenatypes.QueryExecutionState
	pages  [][]athenatypes.Row
}

func (f *fakeClient) StartQueryExecution(ctx context.Context, in *athenasdk.StartQueryExecutionInput, optFns ...func(*athenasdk.Options)) (*athenasdk.StartQueryExecutionOutput, error) {
	return &athenasdk.StartQueryExecutionOutput{QueryExecutionId: aws.String("q-1")}, nil
}

func (f *fakeClient) GetQueryExecution(ctx context.Context, in *athenasdk.GetQueryExecutionInput, optFns ...func(*athenasdk.Options)) (*athenasdk.GetQueryExecutionOutput, error) {
	state := f.states[0]
	f.states = f.states[1:]
	return &athenasdk.GetQueryExecutionOutput{
		QueryExecution: &athenatypes.QueryExecution{
			Status: &athenatypes.QueryExecutionStatus{State: state},
		},
	}, nil
}

func (f *fakeClient) GetQueryResults(ctx context.Context, in *athenasdk.GetQueryResultsInput, optFns ...func(*athenasdk.Options)) (*athenasdk.GetQueryResultsOutput, error) {
	page := f.pages[0]
	f.pages = f.pages[1:]
	return &athenasdk.GetQueryResultsOutput{ResultSet: &athenatypes.ResultSet{Rows: page}}, nil
}

func varcharRow(vs ...string) athenatypes.Row {
	data := make([]athenatypes.Datum, len(vs))
	for i, v := range vs {
		data[i] = athenatypes.Datum{VarCharValue: aws.String(v)}
	}
	return athenatypes.Row{Data: data}
}

func sourceWithConfig(t *testing.T, cfg models.AWSConfig) *models.CostSource {
	t.Helper()
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return &models.CostSource{ID: "src-1", ProjectID: "proj-1", Type: models.CostSourceAWS, Name: "prod", Config: raw}
}

func TestCollect_NilClientSkipsWithoutError(t *testing.T) {
	c := New(nil, nil)
	source := sourceWithConfig(t, models.AWSConfig{AccountID: "123456789012", RoleARN: "arn:aws:iam::123456789012:role/x", AthenaDatabase: "cur_db", AthenaTable: "cur_table"})

	records, err := c.Collect(context.Background(), source, collector.TimeWindow{Start: time.Now().AddDate(0, 0, -1), End: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records with no client configured, got %d", len(records))
	}
}

func TestCollect_HappyPathMapsRowsToRecords(t *testing.T) {
	fc := &fakeClient{
		states: []athenatypes.QueryExecutionState{athenatypes.QueryExecutionStateSucceeded},
		pages: [][]athenatypes.Row{
			{
				varcharRow("usage_date", "line_item_resource_id", "line_item_usage_account_id", "product_product_name", "line_item_usage_type", "product_region_code", "product_availability_zone", "list_cost", "net_cost", "amortized_cost"),
				varcharRow("2026-07-01", "i-abc123", "123456789012", "AmazonEC2", "BoxUsage", "us-east-1", "us-east-1a", "12.50", "12.50", "10.00"),
			},
		},
	}
	c := New(fc, nil)
	source := sourceWithConfig(t, models.AWSConfig{AccountID: "123456789012", RoleARN: "arn:aws:iam::123456789012:role/x", AthenaDatabase: "cur_db", AthenaTable: "cur_table", AthenaBucket: "s3://out"})

	records, err := c.Collect(context.Background(), source, collector.TimeWindow{Start: time.Now().AddDate(0, 0, -1), End: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Service != "AmazonEC2" || r.Category != "Compute" || r.AccountID != "123456789012" {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.ListCost != 12.5 || r.AmortizedCost != 10.0 {
		t.Errorf("expected cost fields parsed, got list=%v amortized=%v", r.ListCost, r.AmortizedCost)
	}
}

func TestCollect_MissingAthenaTableErrors(t *testing.T) {
	c := New(&fakeClient{}, nil)
	source := sourceWithConfig(t, models.AWSConfig{AccountID: "123456789012", RoleARN: "arn:aws:iam::123456789012:role/x"})

	if _, err := c.Collect(context.Background(), source, collector.TimeWindow{Start: time.Now().AddDate(0, 0, -1), End: time.Now()}); err == nil {
		t.Fatal("expected error for missing athena database/table config")
	}
}

func TestValidate_RequiresAccountAndRole(t *testing.T) {
	c := New(nil, nil)
	if err := c.Validate(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected validation error for empty config")
	}
}
