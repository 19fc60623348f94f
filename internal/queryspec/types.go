// Package queryspec holds the normalized, typed request/response shapes that
// flow between the query pipeline's components: QuerySpec in, QueryResult out,
// and the conversation state that is threaded across turns by the caller.
package queryspec

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Intent classifies what kind of question the user asked, driving defaults,
// chart selection, and response wording throughout the pipeline.
type Intent string

const (
	IntentCostBreakdown   Intent = "cost_breakdown"
	IntentTopNRanking     Intent = "top_n_ranking"
	IntentCostTrend       Intent = "cost_trend"
	IntentComparative     Intent = "comparative"
	IntentAnomalyAnalysis Intent = "anomaly_analysis"
	IntentOptimization    Intent = "optimization"
	IntentGovernance      Intent = "governance"
	IntentDataMetadata    Intent = "data_metadata"
	IntentUtilization     Intent = "utilization"
	IntentOther           Intent = "other"
)

// Granularity is auto-derived from a TimeRange's span; see DeriveGranularity.
type Granularity string

const (
	GranularityHourly    Granularity = "hourly"
	GranularityDaily     Granularity = "daily"
	GranularityWeekly    Granularity = "weekly"
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYearly    Granularity = "yearly"
)

// TimeRangeSource records how a TimeRange was produced.
type TimeRangeSource string

const (
	SourceExplicit  TimeRangeSource = "explicit"
	SourceInherited TimeRangeSource = "inherited"
	SourceDefault   TimeRangeSource = "default"
	SourceComparison TimeRangeSource = "comparison"
)

// PeriodType further classifies the shape of a TimeRange for comparison-period
// derivation and for prose ("full month" vs "partial").
type PeriodType string

const (
	PeriodSingleDay             PeriodType = "single_day"
	PeriodRolling                PeriodType = "rolling"
	PeriodCalendarMonthFull      PeriodType = "calendar_month_full"
	PeriodCalendarMonthPartial   PeriodType = "calendar_month_partial"
	PeriodCalendarQuarterFull    PeriodType = "calendar_quarter_full"
	PeriodCalendarQuarterPartial PeriodType = "calendar_quarter_partial"
	PeriodCalendarYearFull       PeriodType = "calendar_year_full"
	PeriodCalendarYearPartial    PeriodType = "calendar_year_partial"
	PeriodSpecificDate           PeriodType = "specific_date"
	PeriodSpecificRange          PeriodType = "specific_range"
	PeriodComparison             PeriodType = "comparison"
)

const dateLayout = "2006-01-02"

// TimeRange is an absolute window with whole-day boundaries, always expressed
// in the caller's timezone once resolved.
type TimeRange struct {
	Start       time.Time
	End         time.Time
	Granularity Granularity
	Description string
	Source      TimeRangeSource
	PeriodType  PeriodType
}

// StartDate renders Start as YYYY-MM-DD.
func (t TimeRange) StartDate() string { return t.Start.Format(dateLayout) }

// EndDate renders End as YYYY-MM-DD.
func (t TimeRange) EndDate() string { return t.End.Format(dateLayout) }

// Valid checks the start<=end invariant from spec §3.
func (t TimeRange) Valid() bool { return !t.Start.After(t.End) }

// DeriveGranularity implements spec §3's span-length rule: ≤2d hourly,
// ≤90d daily, ≤365d monthly, else monthly.
func DeriveGranularity(start, end time.Time) Granularity {
	days := end.Sub(start).Hours() / 24
	switch {
	case days <= 2:
		return GranularityHourly
	case days <= 90:
		return GranularityDaily
	case days <= 365:
		return GranularityMonthly
	default:
		return GranularityMonthly
	}
}

// TimeRangeResult is TimeRangeResolver.merge's return shape.
type TimeRangeResult struct {
	Primary             TimeRange
	Comparison          *TimeRange
	IsComparisonRequest bool
}

// QuerySpec is the normalized, typed representation of a request handed to
// data sources (spec §3).
type QuerySpec struct {
	QueryID    string
	Intent     Intent
	TimeRange  TimeRange
	Dimensions []string
	Services   []string
	Regions    []string
	Accounts   []string
	// IsAdmin mirrors reqcontext.Context.IsAdmin for the caller that issued
	// this spec: admins bypass account scoping everywhere Accounts would
	// otherwise be enforced (spec §3/§4.4).
	IsAdmin  bool
	ARN      string
	Metadata map[string]any
}

// NewQuerySpec assigns a fresh QueryID, matching the teacher's newID()
// convention in internal/store/sql.go.
func NewQuerySpec() *QuerySpec {
	return &QuerySpec{
		QueryID:  uuid.New().String(),
		Metadata: map[string]any{},
	}
}

// Clone produces an independent copy suitable for drill-down/ARN-fallback
// specs that must not mutate the original (spec §3 lifecycle note).
func (q *QuerySpec) Clone() *QuerySpec {
	cp := *q
	cp.Dimensions = append([]string(nil), q.Dimensions...)
	cp.Services = append([]string(nil), q.Services...)
	cp.Regions = append([]string(nil), q.Regions...)
	cp.Accounts = append([]string(nil), q.Accounts...)
	cp.Metadata = make(map[string]any, len(q.Metadata))
	for k, v := range q.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

// Cell is the tagged-variant scalar a single result cell can hold, matching
// spec §9's "dynamic typing -> tagged variants" design note.
type Cell struct {
	IsNull bool
	Int    int64
	Float  float64
	Str    string
	Kind   CellKind
}

// CellKind tags which field of Cell is populated.
type CellKind int

const (
	CellNull CellKind = iota
	CellInt
	CellFloat
	CellString
)

func NullCell() Cell          { return Cell{IsNull: true, Kind: CellNull} }
func IntCell(v int64) Cell    { return Cell{Int: v, Kind: CellInt} }
func FloatCell(v float64) Cell { return Cell{Float: v, Kind: CellFloat} }
func StringCell(v string) Cell { return Cell{Str: v, Kind: CellString} }

// Float64 returns the cell's numeric value (0 for strings/null), used by
// total-cost summation and percentage math.
func (c Cell) Float64() float64 {
	switch c.Kind {
	case CellInt:
		return float64(c.Int)
	case CellFloat:
		return c.Float
	default:
		return 0
	}
}

// String renders the cell for table/markdown output.
func (c Cell) String() string {
	switch c.Kind {
	case CellNull:
		return ""
	case CellInt:
		return strconv.FormatInt(c.Int, 10)
	case CellFloat:
		return strconv.FormatFloat(c.Float, 'f', -1, 64)
	default:
		return c.Str
	}
}

// Row is a single result row keyed by column name.
type Row map[string]Cell

// ResultMetadata carries the provenance and classification flags a data
// source attaches to its QueryResult (spec §3).
type ResultMetadata struct {
	DataSource               string
	ExecutionTimeMS           int64
	QueryID                   string
	SQLQuery                  string
	ARNFallback               bool
	OriginalARN               string
	CostExplorerFallback      bool
	BreakdownDimension        string
	BreakdownDimensionLabel   string
	TopServiceBreakdown       bool
	ResourceTypeExplanation   string
	Extra                     map[string]any
}

// QueryResult is the standardized output from any DataSource (spec §3).
type QueryResult struct {
	Data     []Row
	Metadata ResultMetadata
	Err      string
}

func (r *QueryResult) RowCount() int { return len(r.Data) }
func (r *QueryResult) IsEmpty() bool { return r.RowCount() == 0 }
func (r *QueryResult) Succeeded() bool { return r.Err == "" }
func (r *QueryResult) HasData() bool { return !r.IsEmpty() && r.Succeeded() }

// costColumns are checked, in order of preference, when auto-summing total cost.
var costColumns = []string{"cost_usd", "total_cost", "cost", "unblended_cost"}

// TotalCost auto-sums the first present cost-like column across all rows,
// per spec §3's "Derived" note.
func (r *QueryResult) TotalCost() float64 {
	for _, col := range costColumns {
		found := false
		var sum float64
		for _, row := range r.Data {
			if cell, ok := row[col]; ok {
				found = true
				sum += cell.Float64()
			}
		}
		if found {
			return sum
		}
	}
	return 0
}

// ConversationContext is consumed but externally owned (spec §3); the
// pipeline reads it for inheritance and ChartBuilder mutates the
// last_*-fields before the response returns.
type ConversationContext struct {
	LastQuery           string
	LastSQL             string
	LastService         string
	LastQueryType        string
	TimeRange            *TimeRange
	LastShownTopItems    []string
	LastHiddenItems      []string
	LastChartAggregated  bool
}
