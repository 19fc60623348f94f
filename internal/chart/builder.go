package chart

import (
	"fmt"
	"sort"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

const (
	topBarItems     = 5
	breakdownCap    = 15
	pieCap          = 10
	seriesCap       = 10
)

// Point is one rendered {x,y} coordinate.
type Point struct {
	X     string
	Y     float64
	Label string
}

// Series is one named line/bar series.
type Series struct {
	Name   string
	Points []Point
}

// Rendered is a render-ready chart object: one of Series (line/bar/pie) or
// Scatter (raw points), depending on Type.
type Rendered struct {
	Type          Type
	Series        []Series
	OthersCount   int
	Aggregated    bool
	HiddenItems   []string
}

// Builder transforms recommended specs and rows into Rendered objects,
// mutating the caller-owned ConversationContext per spec §4.10.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

// Build renders one Spec against rows. isBreakdownQuery controls the
// Top-5-plus-Others vs 15-item-cap bar/column rule (spec §4.10).
func (b *Builder) Build(spec Spec, rows []queryspec.Row, isBreakdownQuery bool, convCtx *queryspec.ConversationContext) Rendered {
	switch spec.Type {
	case TypeLine:
		return b.buildLine(spec, rows)
	case TypePie:
		return b.buildPie(spec, rows)
	case TypeClusteredBar:
		return b.buildClusteredBar(rows)
	case TypeScatter:
		return b.buildScatter(rows)
	default:
		return b.buildBar(spec, rows, isBreakdownQuery, convCtx)
	}
}

func xValue(row queryspec.Row, dim string) string {
	if dim != "" {
		if c, ok := row[dim]; ok {
			return c.String()
		}
	}
	for _, k := range []string{"dimension_value", "service", "month", "usage_date", "resource_id"} {
		if c, ok := row[k]; ok {
			return c.String()
		}
	}
	return ""
}

func yValue(row queryspec.Row) float64 {
	for _, k := range []string{"total_cost", "cost_usd", "cost", "unblended_cost"} {
		if c, ok := row[k]; ok {
			return c.Float64()
		}
	}
	return 0
}

// buildLine aggregates duplicate x-values by summing y, sorts by x, and
// pads with zero-value buffer points at each edge (spec §4.10). Buffer
// points carry the adjacent month's label (one month before the first real
// point, one month after the last) so axis rendering never shows a blank
// tick at the edge of the canvas.
func (b *Builder) buildLine(spec Spec, rows []queryspec.Row) Rendered {
	sums := map[string]float64{}
	order := []string{}
	for _, row := range rows {
		x := xValue(row, spec.Dimension)
		if _, seen := sums[x]; !seen {
			order = append(order, x)
		}
		sums[x] += yValue(row)
	}
	sort.Strings(order)

	points := make([]Point, 0, len(order)+2)
	points = append(points, Point{X: adjacentMonth(firstOr(order, ""), -1), Y: 0})
	for _, x := range order {
		points = append(points, Point{X: x, Y: sums[x]})
	}
	points = append(points, Point{X: adjacentMonth(lastOr(order, ""), 1), Y: 0})

	return Rendered{Type: TypeLine, Series: []Series{{Name: "total_cost", Points: points}}}
}

func firstOr(xs []string, fallback string) string {
	if len(xs) == 0 {
		return fallback
	}
	return xs[0]
}

func lastOr(xs []string, fallback string) string {
	if len(xs) == 0 {
		return fallback
	}
	return xs[len(xs)-1]
}

// adjacentMonth shifts x by delta months, matching whichever of the
// month-ish layouts the x value was rendered in. If x doesn't parse as a
// date, it's returned unchanged so a buffer point never loses its label.
func adjacentMonth(x string, delta int) string {
	layouts := []string{"2006-01-02", "2006-01", "January 2006", "Jan 2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, x); err == nil {
			return t.AddDate(0, delta, 0).Format(layout)
		}
	}
	return x
}

// buildBar implements the central Top-5-plus-Others rule: top-level queries
// with >5 items get 5 items plus one "Others (N items)" bar; breakdown
// queries get up to 15 items with no aggregation.
func (b *Builder) buildBar(spec Spec, rows []queryspec.Row, isBreakdownQuery bool, convCtx *queryspec.ConversationContext) Rendered {
	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		points = append(points, Point{X: xValue(row, spec.Dimension), Y: yValue(row)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Y > points[j].Y })

	if isBreakdownQuery {
		if len(points) > breakdownCap {
			points = points[:breakdownCap]
		}
		return Rendered{Type: spec.Type, Series: []Series{{Name: "total_cost", Points: points}}}
	}

	if len(points) <= topBarItems {
		return Rendered{Type: spec.Type, Series: []Series{{Name: "total_cost", Points: points}}}
	}

	top := points[:topBarItems]
	rest := points[topBarItems:]

	var othersSum float64
	hidden := make([]string, 0, len(rest))
	for _, p := range rest {
		othersSum += p.Y
		hidden = append(hidden, p.X)
	}

	shown := append([]Point{}, top...)
	shown = append(shown, Point{X: fmt.Sprintf("Others (%d items)", len(rest)), Y: othersSum})

	if convCtx != nil {
		shownNames := make([]string, len(top))
		for i, p := range top {
			shownNames[i] = p.X
		}
		convCtx.LastShownTopItems = shownNames
		convCtx.LastHiddenItems = hidden
		convCtx.LastChartAggregated = true
	}

	return Rendered{Type: spec.Type, Series: []Series{{Name: "total_cost", Points: shown}}, OthersCount: len(rest), Aggregated: true, HiddenItems: hidden}
}

// buildPie caps slices to the top 10 by value.
func (b *Builder) buildPie(spec Spec, rows []queryspec.Row) Rendered {
	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		points = append(points, Point{X: xValue(row, spec.Dimension), Y: yValue(row)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Y > points[j].Y })
	if len(points) > pieCap {
		points = points[:pieCap]
	}
	return Rendered{Type: TypePie, Series: []Series{{Name: spec.Dimension, Points: points}}}
}

// buildClusteredBar pivots period-over-period rows into two parallel series,
// one per period, with period-labeled legends (spec §4.10).
func (b *Builder) buildClusteredBar(rows []queryspec.Row) Rendered {
	var current, previous []Point
	for _, row := range rows {
		x := xValue(row, "")
		if c, ok := row["current_period_cost"]; ok {
			current = append(current, Point{X: x, Y: c.Float64()})
		}
		if p, ok := row["previous_period_cost"]; ok {
			previous = append(previous, Point{X: x, Y: p.Float64()})
		}
	}
	return Rendered{Type: TypeClusteredBar, Series: []Series{
		{Name: "Current period", Points: current},
		{Name: "Previous period", Points: previous},
	}}
}

func (b *Builder) buildScatter(rows []queryspec.Row) Rendered {
	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		points = append(points, Point{X: xValue(row, ""), Y: yValue(row)})
	}
	return Rendered{Type: TypeScatter, Series: []Series{{Name: "points", Points: points}}}
}
