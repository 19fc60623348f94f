// Package drilldown implements AutoDrillDown (spec §4.8): when a primary
// result collapses to a single row exposing a service- or resource-like
// column, synthesize and run a usage-type breakdown follow-up query.
package drilldown

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/sqlvalidate"
)

var serviceLikeColumns = []string{"service", "line_item_product_code", "dimension_value"}
var resourceLikeColumns = []string{"resource_id", "line_item_resource_id"}

// DataSource is the narrow dependency AutoDrillDown needs to run its
// follow-up query.
type DataSource interface {
	Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error)
}

// DrillDown wires a DataSource and a SQLValidator to validate the
// synthesized follow-up query before it is ever run (spec §4.8).
type DrillDown struct {
	source    DataSource
	validator *sqlvalidate.Validator
	curTable  string
	logger    *slog.Logger
}

func New(source DataSource, validator *sqlvalidate.Validator, curTable string, logger *slog.Logger) *DrillDown {
	return &DrillDown{source: source, validator: validator, curTable: curTable, logger: logger}
}

// Apply inspects result; on a single-row result with a service/resource-like
// column it runs a usage_type breakdown and, on success with >=2 rows,
// returns the replacement. Any failure is swallowed and the original result
// returned unchanged.
func (d *DrillDown) Apply(ctx context.Context, spec *queryspec.QuerySpec, result *queryspec.QueryResult) *queryspec.QueryResult {
	if result == nil || result.RowCount() != 1 {
		return result
	}

	row := result.Data[0]
	label, column, isService := detectLabelColumn(row)
	if column == "" {
		return result
	}

	sql := d.buildSQL(spec, column, label)
	if err := d.validator.Validate(sql); err != nil {
		if d.logger != nil {
			d.logger.Warn("drill-down SQL failed validation, leaving original result", "error", err.Error())
		}
		return result
	}

	followUpSpec := spec.Clone()
	followUpSpec.Metadata["sql"] = sql

	followUp, err := d.source.Fetch(ctx, followUpSpec)
	if err != nil || followUp == nil || !followUp.Succeeded() || followUp.RowCount() < 2 {
		if err != nil && d.logger != nil {
			d.logger.Warn("drill-down fetch failed, leaving original result", "error", err)
		}
		return result
	}

	followUp.Metadata.DataSource = result.Metadata.DataSource
	followUp.Metadata.Extra = mergeExtra(followUp.Metadata.Extra, map[string]any{
		"drilled_down": true,
	})
	if isService {
		followUp.Metadata.Extra["original_service"] = label
	} else {
		followUp.Metadata.Extra["original_resource"] = label
	}
	followUp.Metadata.ResourceTypeExplanation = fmt.Sprintf("Breakdown by Usage Type for %s", label)

	return followUp
}

func detectLabelColumn(row queryspec.Row) (label, column string, isService bool) {
	for _, col := range serviceLikeColumns {
		if cell, ok := row[col]; ok && cell.Kind == queryspec.CellString {
			return cell.Str, col, true
		}
	}
	for _, col := range resourceLikeColumns {
		if cell, ok := row[col]; ok && cell.Kind == queryspec.CellString {
			return cell.Str, col, false
		}
	}
	return "", "", false
}

func (d *DrillDown) buildSQL(spec *queryspec.QuerySpec, filterColumn, filterValue string) string {
	return fmt.Sprintf(`SELECT line_item_usage_type AS usage_type, SUM(line_item_unblended_cost) AS total_cost
FROM %s
WHERE CAST(line_item_usage_start_date AS DATE) BETWEEN DATE '%s' AND DATE '%s' AND %s = '%s'
GROUP BY line_item_usage_type
ORDER BY total_cost DESC`, d.curTable, spec.TimeRange.StartDate(), spec.TimeRange.EndDate(), filterColumn, filterValue)
}

func mergeExtra(extra map[string]any, add map[string]any) map[string]any {
	if extra == nil {
		extra = map[string]any{}
	}
	for k, v := range add {
		extra[k] = v
	}
	return extra
}
