package athena

import (
	"strings"
	"testing"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

func specWithRange() *queryspec.QuerySpec {
	spec := queryspec.NewQuerySpec()
	spec.TimeRange = queryspec.TimeRange{Start: time.Now().AddDate(0, 0, -30), End: time.Now()}
	return spec
}

func TestCompose_NonAdminAccountsAreInjectedIntoEveryPath(t *testing.T) {
	accounts := []string{"123456789012", "210987654321"}

	cases := []func(*queryspec.QuerySpec){
		func(s *queryspec.QuerySpec) { s.Intent = queryspec.IntentTopNRanking },
		func(s *queryspec.QuerySpec) { s.Intent = queryspec.IntentCostBreakdown; s.Dimensions = []string{"region"} },
		func(s *queryspec.QuerySpec) { s.Intent = queryspec.IntentCostTrend },
		func(s *queryspec.QuerySpec) { s.Intent = queryspec.IntentAnomalyAnalysis },
		func(s *queryspec.QuerySpec) { s.ARN = "arn:aws:ec2:us-east-1:123456789012:instance/i-abc" },
	}

	for i, mutate := range cases {
		spec := specWithRange()
		spec.Accounts = accounts
		mutate(spec)

		sql := Compose("cur_db.cur_table", spec)
		if !strings.Contains(sql, "line_item_usage_account_id IN ('123456789012', '210987654321')") {
			t.Errorf("case %d: expected account filter in composed SQL, got: %s", i, sql)
		}
	}
}

func TestCompose_AdminOmitsAccountFilter(t *testing.T) {
	spec := specWithRange()
	spec.Intent = queryspec.IntentTopNRanking
	spec.IsAdmin = true
	spec.Accounts = []string{"123456789012"}

	sql := Compose("cur_db.cur_table", spec)
	if strings.Contains(sql, "line_item_usage_account_id") {
		t.Errorf("expected admin query to omit account filter, got: %s", sql)
	}
}

func TestCompose_NonAdminWithNoAccountsOmitsFilter(t *testing.T) {
	spec := specWithRange()
	spec.Intent = queryspec.IntentTopNRanking

	sql := Compose("cur_db.cur_table", spec)
	if strings.Contains(sql, "line_item_usage_account_id") {
		t.Errorf("expected no account filter when Accounts is empty, got: %s", sql)
	}
}
