package athena

import (
	"fmt"
	"strings"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

// effectiveCostExpr is spec §4.6's cost expression, used by every templated
// query path instead of a bare cost column.
const effectiveCostExpr = `COALESCE(
    NULLIF(savings_plan_savings_plan_effective_cost, 0),
    NULLIF(reservation_effective_cost, 0),
    line_item_unblended_cost
  )`

// dimensionColumn maps a breakdown dimension name to its CUR column.
var dimensionColumn = map[string]string{
	"region":     "product_region",
	"account":    "line_item_usage_account_id",
	"usage_type": "line_item_usage_type",
	"operation":  "line_item_operation",
	"arn":        "line_item_resource_id",
}

func dateFilter(start, end string) string {
	return fmt.Sprintf("CAST(line_item_usage_start_date AS DATE) BETWEEN DATE '%s' AND DATE '%s'", start, end)
}

// Compose builds the SQL for a QuerySpec that wasn't generated by the
// TextToSQLGenerator: one templated path per spec §4.6 step 1.
func Compose(curTable string, spec *queryspec.QuerySpec) string {
	start, end := spec.TimeRange.StartDate(), spec.TimeRange.EndDate()

	switch {
	case spec.ARN != "" && hasDimension(spec.Dimensions, "resource_type"):
		return composeRelatedResources(curTable, spec, start, end)
	case spec.ARN != "":
		return composePerResource(curTable, spec, start, end)
	case len(spec.Dimensions) > 0 && spec.Intent == queryspec.IntentCostBreakdown:
		return composeBreakdown(curTable, spec, start, end)
	case spec.Intent == queryspec.IntentTopNRanking:
		return composeTopN(curTable, spec, start, end)
	case spec.Intent == queryspec.IntentCostTrend:
		return composeMonthlyTrend(curTable, spec, start, end)
	case spec.Intent == queryspec.IntentAnomalyAnalysis:
		return composeAnomalyZScore(curTable, spec, start, end)
	default:
		return composeTopN(curTable, spec, start, end)
	}
}

func hasDimension(dims []string, want string) bool {
	for _, d := range dims {
		if d == want {
			return true
		}
	}
	return false
}

func serviceFilter(services []string) string {
	if len(services) == 0 {
		return ""
	}
	quoted := make([]string, len(services))
	for i, s := range services {
		quoted[i] = "'" + s + "'"
	}
	return fmt.Sprintf(" AND line_item_product_code IN (%s)", strings.Join(quoted, ", "))
}

// accountFilter restricts every templated query to spec.Accounts up front,
// the same tenant scope reqcontext.ScopeEnforcer re-verifies right before
// submission (spec §4.4's double-guard). Admin specs carry no Accounts
// restriction and compose unscoped, same as an explicit "all accounts"
// saved view.
func accountFilter(spec *queryspec.QuerySpec) string {
	if spec.IsAdmin || len(spec.Accounts) == 0 {
		return ""
	}
	quoted := make([]string, len(spec.Accounts))
	for i, a := range spec.Accounts {
		quoted[i] = "'" + a + "'"
	}
	return fmt.Sprintf(" AND line_item_usage_account_id IN (%s)", strings.Join(quoted, ", "))
}

func composeTopN(curTable string, spec *queryspec.QuerySpec, start, end string) string {
	topN := 5
	if n, ok := spec.Metadata["top_n"].(int); ok && n > 0 {
		topN = n
	}
	return fmt.Sprintf(`SELECT line_item_product_code AS service, SUM(%s) AS total_cost
FROM %s
WHERE %s%s%s
GROUP BY line_item_product_code
ORDER BY total_cost DESC
LIMIT %d`, effectiveCostExpr, curTable, dateFilter(start, end), serviceFilter(spec.Services), accountFilter(spec), topN)
}

func composeBreakdown(curTable string, spec *queryspec.QuerySpec, start, end string) string {
	dim := spec.Dimensions[0]
	col, ok := dimensionColumn[dim]
	if !ok {
		col = "line_item_product_code"
	}
	return fmt.Sprintf(`SELECT %s AS dimension_value, SUM(%s) AS total_cost
FROM %s
WHERE %s%s%s
GROUP BY %s
ORDER BY total_cost DESC`, col, effectiveCostExpr, curTable, dateFilter(start, end), serviceFilter(spec.Services), accountFilter(spec), col)
}

func composePerResource(curTable string, spec *queryspec.QuerySpec, start, end string) string {
	return fmt.Sprintf(`SELECT line_item_resource_id AS resource_id, SUM(%s) AS total_cost
FROM %s
WHERE %s AND line_item_resource_id = '%s'%s
GROUP BY line_item_resource_id
ORDER BY total_cost DESC`, effectiveCostExpr, curTable, dateFilter(start, end), spec.ARN, accountFilter(spec))
}

func composeMonthlyTrend(curTable string, spec *queryspec.QuerySpec, start, end string) string {
	return fmt.Sprintf(`SELECT DATE_TRUNC('month', CAST(line_item_usage_start_date AS DATE)) AS month, SUM(%s) AS total_cost
FROM %s
WHERE %s%s%s
GROUP BY DATE_TRUNC('month', CAST(line_item_usage_start_date AS DATE))
ORDER BY month`, effectiveCostExpr, curTable, dateFilter(start, end), serviceFilter(spec.Services), accountFilter(spec))
}

func composeAnomalyZScore(curTable string, spec *queryspec.QuerySpec, start, end string) string {
	return fmt.Sprintf(`WITH daily_cost AS (
  SELECT CAST(line_item_usage_start_date AS DATE) AS usage_date, SUM(%s) AS total_cost
  FROM %s
  WHERE %s%s%s
  GROUP BY CAST(line_item_usage_start_date AS DATE)
), stats AS (
  SELECT AVG(total_cost) AS mean_cost, STDDEV(total_cost) AS stddev_cost FROM daily_cost
)
SELECT usage_date, total_cost,
  CASE WHEN stats.stddev_cost = 0 THEN 0 ELSE (total_cost - stats.mean_cost) / stats.stddev_cost END AS z_score
FROM daily_cost, stats
ORDER BY usage_date`, effectiveCostExpr, curTable, dateFilter(start, end), serviceFilter(spec.Services), accountFilter(spec))
}

func composeRelatedResources(curTable string, spec *queryspec.QuerySpec, start, end string) string {
	return fmt.Sprintf(`SELECT %s AS resource_type_group, SUM(%s) AS total_cost
FROM %s
WHERE %s AND line_item_resource_id = '%s'%s
GROUP BY %s
ORDER BY total_cost DESC`, resourceTypeCaseExpr(), effectiveCostExpr, curTable, dateFilter(start, end), spec.ARN, accountFilter(spec), resourceTypeCaseExpr())
}

// resourceTypeCaseExpr classifies a resource id into the families spec
// §4.6 names for the ARN rescue path.
func resourceTypeCaseExpr() string {
	return `CASE
    WHEN line_item_resource_id LIKE '%:task/%' THEN 'ECS Task'
    WHEN line_item_resource_id LIKE '%:service/%' THEN 'ECS Service'
    WHEN line_item_resource_id LIKE '%:instance/%' THEN 'EC2 Instance'
    WHEN line_item_resource_id LIKE '%:db:%' THEN 'RDS Database'
    WHEN line_item_resource_id LIKE '%:loadbalancer/%' THEN 'Load Balancer'
    WHEN line_item_resource_id LIKE '%:function:%' THEN 'Lambda Function'
    WHEN line_item_resource_id LIKE '%:natgateway/%' THEN 'NAT Gateway'
    ELSE 'Resource'
  END`
}

// arnPatterns derives the two LIKE-match patterns spec §4.6's ARN-empty-
// result rescue uses: a service+resource-name fragment, and a
// service+region+account fragment.
func arnPatterns(arn string) (serviceResourceFragment, serviceRegionAccountFragment string) {
	// arn:partition:service:region:account:resource
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 {
		return "%" + arn + "%", "%" + arn + "%"
	}
	service, region, account, resource := parts[2], parts[3], parts[4], parts[5]
	resourceName := resource
	if idx := strings.IndexAny(resource, "/:"); idx >= 0 {
		resourceName = resource[idx+1:]
	}
	return fmt.Sprintf("%%%s%%%s%%", service, resourceName), fmt.Sprintf("%%%s%%%s%%%s%%", service, region, account)
}

// ComposeARNRescue builds the fallback SQL for spec §4.6's ARN empty-result
// rescue: LIKE-match two derived patterns of the original ARN, excluding it.
func ComposeARNRescue(curTable string, spec *queryspec.QuerySpec, start, end string) string {
	p1, p2 := arnPatterns(spec.ARN)
	return fmt.Sprintf(`SELECT line_item_resource_id AS resource_id, %s AS resource_type, SUM(%s) AS total_cost
FROM %s
WHERE %s AND line_item_resource_id != '%s' AND (line_item_resource_id LIKE '%s' OR line_item_resource_id LIKE '%s')%s
GROUP BY line_item_resource_id, %s
ORDER BY total_cost DESC`,
		resourceTypeCaseExpr(), effectiveCostExpr, curTable, dateFilter(start, end), spec.ARN, p1, p2, accountFilter(spec), resourceTypeCaseExpr())
}
