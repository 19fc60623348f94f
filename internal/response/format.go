// Package response implements ResponseFormatter (spec §4.11): the final
// markdown/structured payload assembled from a QueryResult, its charts, and
// the LLM's free-text explanation.
package response

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/chart"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

// Section names, in the fixed rendering order spec §4.11 requires.
const (
	sectionSummary    = "Summary"
	sectionWarning    = "Data Availability Warning"
	sectionInsights   = "Insights"
	sectionResults    = "Results"
	sectionMethodology = "Methodology"
	sectionScope      = "Scope"
	sectionNextSteps  = "Next Steps"
)

// Insight is one bullet with an optional category, matching the typed API
// payload's insights[{category, description}] shape.
type Insight struct {
	Category    string
	Description string
}

// Recommendation is one numbered recommendation item.
type Recommendation struct {
	Action      string
	Description string
}

// Input bundles everything ResponseFormatter.Build needs for one turn.
type Input struct {
	Intent          queryspec.Intent
	Query           string
	Explanation     string
	Result          *queryspec.QueryResult
	Charts          []chart.Spec
	RequestedStart  string
	RequestedEnd    string
	Filters         map[string]string
	ExplanationRequest bool
	CallerInsights  []string
}

// Output is the formatted response: the raw markdown plus a structured
// payload. Summary and Insights are filled from the same generated text the
// markdown sections are built from, not re-parsed from Message; Build never
// fills Recommendations.
type Output struct {
	Message         string
	Summary         string
	Insights        []Insight
	Recommendations []Recommendation
	NextSteps       []string
}

var costColumns = []string{"cost_usd", "total_cost", "cost", "unblended_cost"}

func costOf(row queryspec.Row) float64 {
	for _, c := range costColumns {
		if cell, ok := row[c]; ok {
			return cell.Float64()
		}
	}
	return 0
}

// dimensionColumn returns the first non-cost, non-time column name in row,
// used as the "leading driver" label across summary/insight generation.
func dimensionColumn(row queryspec.Row) string {
	excluded := map[string]bool{
		"pct_of_total": true, "date": true, "usage_date": true, "month": true,
		"week": true, "day": true, "year": true, "time": true, "timestamp": true, "period": true,
	}
	for _, c := range costColumns {
		excluded[c] = true
	}
	for k := range row {
		if !excluded[k] {
			return k
		}
	}
	return ""
}

// Build assembles the 7 ordered sections and runs placeholder substitution
// (spec §4.11). It does not parse the assembled markdown back into
// sections, and it leaves Output.Recommendations empty.
func Build(in Input) Output {
	rows := in.Result.Data
	total := in.Result.TotalCost()

	explanation := substitutePlaceholders(in.Explanation, rows, total)

	var sb strings.Builder
	addSection := func(title, content string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		fmt.Fprintf(&sb, "**%s:**\n%s\n\n", title, content)
	}

	summary := summaryFor(in, rows, total, explanation)
	addSection(sectionSummary, summary)

	if warning := dataAvailabilityWarning(rows, in.RequestedStart, in.RequestedEnd); warning != "" {
		addSection(sectionWarning, warning)
	}

	insights := insightsFor(in, rows, total)
	addSection(sectionInsights, formatInsights(insights))

	addSection(sectionResults, resultsSection(in, rows))

	if in.ExplanationRequest {
		addSection(sectionMethodology, methodologySection(in, rows, total))
	}

	addSection(sectionScope, scopeSection(in))

	nextSteps := nextStepsFor(in.Intent, rows)
	addSection(sectionNextSteps, formatNextSteps(nextSteps))

	message := strings.TrimSpace(sb.String())

	return Output{
		Message:   message,
		Summary:   summary,
		Insights:  toInsightStructs(insights),
		NextSteps: nextSteps,
	}
}

func toInsightStructs(lines []string) []Insight {
	out := make([]Insight, 0, len(lines))
	for _, l := range lines {
		out = append(out, Insight{Description: l})
	}
	return out
}

// summaryFor implements spec §4.11 section 1's per-intent branching.
func summaryFor(in Input, rows []queryspec.Row, total float64, llmExplanation string) string {
	if strings.TrimSpace(llmExplanation) != "" {
		return llmExplanation
	}

	sorted := sortedByCost(rows)
	switch in.Intent {
	case queryspec.IntentTopNRanking:
		if len(sorted) == 0 {
			return "No cost drivers were found for this period."
		}
		leader := dimensionColumn(sorted[0])
		leaderName := sorted[0][leader].String()
		leaderCost := costOf(sorted[0])
		pct := pctOf(leaderCost, total)
		return fmt.Sprintf("Your top %d cost drivers total $%s, with %s leading at $%s (%.0f%%)",
			len(sorted), money(total), leaderName, money(leaderCost), pct)
	case queryspec.IntentCostBreakdown:
		dim := "dimension"
		if len(sorted) > 0 {
			dim = dimensionColumn(sorted[0])
		}
		if in.Result.Metadata.ARNFallback {
			return fmt.Sprintf("The requested resource had no direct cost; showing a breakdown of %d related %ss totaling $%s instead",
				len(sorted), dim, money(total))
		}
		return fmt.Sprintf("Cost breakdown across %d %ss totals $%s", len(sorted), dim, money(total))
	case queryspec.IntentAnomalyAnalysis:
		count, maxZ := anomalyStats(rows)
		return fmt.Sprintf("Found %d anomalies with |z| > 2; the largest deviation had a z-score of %.2f", count, maxZ)
	case queryspec.IntentCostTrend:
		if len(rows) < 2 {
			return "Not enough data points to establish a trend."
		}
		first, last := costOf(rows[0]), costOf(rows[len(rows)-1])
		direction := trendDirection(first, last)
		return fmt.Sprintf("Cost %s from $%s to $%s over the period", direction, money(first), money(last))
	case queryspec.IntentComparative:
		return comparativeSummary(rows)
	case queryspec.IntentOptimization:
		if len(sorted) == 0 {
			return "No optimization opportunities were identified."
		}
		leader := dimensionColumn(sorted[0])
		return fmt.Sprintf("Identified $%s in potential savings, led by %s", money(total), sorted[0][leader].String())
	default:
		return ""
	}
}

func anomalyStats(rows []queryspec.Row) (count int, maxZ float64) {
	for _, row := range rows {
		if z, ok := row["z_score"]; ok {
			v := z.Float64()
			if abs(v) > 2 {
				count++
			}
			if abs(v) > abs(maxZ) {
				maxZ = v
			}
		}
	}
	return
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func trendDirection(first, last float64) string {
	switch {
	case last > first:
		return "increased"
	case last < first:
		return "decreased"
	default:
		return "remained stable"
	}
}

func comparativeSummary(rows []queryspec.Row) string {
	if len(rows) == 0 {
		return ""
	}
	row := rows[0]
	current, hasCurrent := row["current_period_cost"]
	previous, hasPrevious := row["previous_period_cost"]
	if !hasCurrent || !hasPrevious {
		return ""
	}
	cur, prev := current.Float64(), previous.Float64()
	delta := cur - prev
	pct := pctOf(delta, prev)
	direction := "an increase"
	if delta < 0 {
		direction = "a decrease"
		pct = -pct
	}
	if prev < 0 && cur < 0 {
		return fmt.Sprintf("Current period cost is $%s versus $%s previously, a credit-driven comparison", money(cur), money(prev))
	}
	return fmt.Sprintf("Current period cost is $%s versus $%s previously, %s of $%s (%.1f%%)",
		money(cur), money(prev), direction, money(abs(delta)), pct)
}

func sortedByCost(rows []queryspec.Row) []queryspec.Row {
	out := append([]queryspec.Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return costOf(out[i]) > costOf(out[j]) })
	return out
}

func pctOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// dataAvailabilityWarning implements spec §4.11 section 2: warn when the
// actual date span covers <30% of the requested span or starts >7 days
// after the requested start.
func dataAvailabilityWarning(rows []queryspec.Row, requestedStart, requestedEnd string) string {
	minDate, maxDate, ok := actualDateSpan(rows)
	if !ok || requestedStart == "" || requestedEnd == "" {
		return ""
	}

	reqSpanDays := daysBetween(requestedStart, requestedEnd)
	actualSpanDays := daysBetween(minDate, maxDate)
	if reqSpanDays <= 0 {
		return ""
	}

	coverage := float64(actualSpanDays) / float64(reqSpanDays)
	lateStart := daysBetween(requestedStart, minDate)

	if coverage < 0.30 || lateStart > 7 {
		return fmt.Sprintf("Data is only available from %s to %s, which is less complete than the requested period of %s to %s.",
			minDate, maxDate, requestedStart, requestedEnd)
	}
	return ""
}

var dateColumnNames = []string{"date", "usage_date", "month", "period"}

func actualDateSpan(rows []queryspec.Row) (min, max string, ok bool) {
	for _, row := range rows {
		for _, col := range dateColumnNames {
			if cell, exists := row[col]; exists && cell.Kind == queryspec.CellString {
				v := cell.Str
				if min == "" || v < min {
					min = v
				}
				if max == "" || v > max {
					max = v
				}
				ok = true
			}
		}
	}
	return
}

func daysBetween(a, b string) int {
	ta, errA := parseDateLoose(a)
	tb, errB := parseDateLoose(b)
	if errA != nil || errB != nil {
		return 0
	}
	diff := tb.Sub(ta).Hours() / 24
	if diff < 0 {
		diff = -diff
	}
	return int(diff)
}

// insightsFor renders caller-supplied insights verbatim (bullet-normalized)
// or generates intent-specific defaults (spec §4.11 section 3).
func insightsFor(in Input, rows []queryspec.Row, total float64) []string {
	if len(in.CallerInsights) > 0 {
		return in.CallerInsights
	}

	sorted := sortedByCost(rows)
	var out []string

	if len(sorted) >= 2 {
		top2 := costOf(sorted[0]) + costOf(sorted[1])
		out = append(out, fmt.Sprintf("Top 2 items account for %.0f%% of total cost", pctOf(top2, total)))
	}
	if len(sorted) > 0 {
		dim := dimensionColumn(sorted[0])
		out = append(out, fmt.Sprintf("%s is the leading cost driver at $%s", sorted[0][dim].String(), money(costOf(sorted[0]))))
	}

	switch in.Intent {
	case queryspec.IntentAnomalyAnalysis:
		count, _ := anomalyStats(rows)
		out = append(out, fmt.Sprintf("%d outliers detected beyond 2 standard deviations", count))
	case queryspec.IntentCostTrend:
		if len(rows) >= 2 {
			first, last := costOf(rows[0]), costOf(rows[len(rows)-1])
			growth := pctOf(last-first, first)
			out = append(out, fmt.Sprintf("Overall growth rate of %.1f%% across the period", growth))
		}
	}

	return out
}

var bulletRe = regexp.MustCompile(`^[-*•]\s*`)

func formatInsights(insights []string) string {
	lines := make([]string, 0, len(insights))
	for _, i := range insights {
		normalized := bulletRe.ReplaceAllString(strings.TrimSpace(i), "")
		lines = append(lines, "- "+normalized)
	}
	return strings.Join(lines, "\n")
}

// resultsSection renders a markdown table when no charts accompany the
// result, else a brief prose recap; cost_breakdown with <=20 items always
// gets a rank/dimension/cost/percentage table (spec §4.11 section 4).
func resultsSection(in Input, rows []queryspec.Row) string {
	if in.Intent == queryspec.IntentCostBreakdown && len(rows) <= 20 {
		return breakdownTable(rows, in.Result.TotalCost())
	}
	if hasMonthAndService(rows) {
		return pivotTable(rows)
	}
	if len(in.Charts) > 0 {
		return fmt.Sprintf("See the accompanying chart(s) for a visual breakdown of %d rows.", len(rows))
	}
	return genericTable(rows)
}

func hasMonthAndService(rows []queryspec.Row) bool {
	if len(rows) == 0 {
		return false
	}
	_, hasMonth := rows[0]["month"]
	_, hasService := rows[0]["service"]
	return hasMonth && hasService
}

func breakdownTable(rows []queryspec.Row, total float64) string {
	sorted := sortedByCost(rows)
	var sb strings.Builder
	sb.WriteString("| Rank | Dimension | Cost | % of Total |\n|---|---|---|---|\n")
	for i, row := range sorted {
		dim := dimensionColumn(row)
		cost := costOf(row)
		fmt.Fprintf(&sb, "| %d | %s | $%s | %.1f%% |\n", i+1, row[dim].String(), money(cost), pctOf(cost, total))
	}
	return sb.String()
}

func pivotTable(rows []queryspec.Row) string {
	months := map[string]bool{}
	services := map[string]map[string]float64{}
	var orderedMonths []string
	for _, row := range rows {
		m := row["month"].String()
		s := row["service"].String()
		if !months[m] {
			months[m] = true
			orderedMonths = append(orderedMonths, m)
		}
		if services[s] == nil {
			services[s] = map[string]float64{}
		}
		services[s][m] += costOf(row)
	}
	sort.Strings(orderedMonths)

	var sb strings.Builder
	sb.WriteString("| Service |")
	for _, m := range orderedMonths {
		sb.WriteString(" " + m + " |")
	}
	sb.WriteString("\n|---|")
	for range orderedMonths {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for s, byMonth := range services {
		sb.WriteString("| " + s + " |")
		for _, m := range orderedMonths {
			fmt.Fprintf(&sb, " $%s |", money(byMonth[m]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func genericTable(rows []queryspec.Row) string {
	if len(rows) == 0 {
		return "No data was returned for this query."
	}
	cols := columnOrder(rows[0])
	var sb strings.Builder
	sb.WriteString("|")
	for _, c := range cols {
		sb.WriteString(" " + humanizeColumn(c) + " |")
	}
	sb.WriteString("\n|")
	for range cols {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString("|")
		for _, c := range cols {
			fmt.Fprintf(&sb, " %s |", formatCellValue(c, row[c]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func columnOrder(row queryspec.Row) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// humanizeColumn converts snake_case into Title Case for table headers.
func humanizeColumn(col string) string {
	words := strings.Split(col, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatCellValue renders a cell per its column-name heuristics: money,
// percentage, signed delta, or plain numeric/string (supplemented from
// the dropped _format_cell_value behavior).
func formatCellValue(col string, cell queryspec.Cell) string {
	if cell.Kind == queryspec.CellNull {
		return "-"
	}
	lower := strings.ToLower(col)
	switch {
	case strings.Contains(lower, "cost") || strings.Contains(lower, "amount") || strings.Contains(lower, "saving"):
		v := cell.Float64()
		if v < 0 {
			return fmt.Sprintf("$(%.2f)", -v)
		}
		return fmt.Sprintf("$%.2f", v)
	case strings.Contains(lower, "pct") || strings.Contains(lower, "percent"):
		return fmt.Sprintf("%.1f%%", cell.Float64())
	case strings.Contains(lower, "change") || strings.Contains(lower, "delta"):
		v := cell.Float64()
		if v > 0 {
			return fmt.Sprintf("+%.2f", v)
		}
		return fmt.Sprintf("%.2f", v)
	default:
		return cell.String()
	}
}

// methodologySection renders only when metadata.explanation_request=true
// (spec §4.11 section 5).
func methodologySection(in Input, rows []queryspec.Row, total float64) string {
	sorted := sortedByCost(rows)
	var sb strings.Builder
	sb.WriteString("This result aggregates the effective cost expression " +
		"(savings-plan or reservation effective cost where available, otherwise unblended cost), ")
	if len(rows) > 0 {
		dim := dimensionColumn(rows[0])
		fmt.Fprintf(&sb, "grouped by %s. ", humanizeColumn(dim))
	}
	top := sorted
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) > 0 {
		sb.WriteString("Top contributors: ")
		parts := make([]string, len(top))
		for i, row := range top {
			dim := dimensionColumn(row)
			parts[i] = fmt.Sprintf("%s ($%s)", row[dim].String(), money(costOf(row)))
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(".")
	}
	return sb.String()
}

// scopeSection renders the effective period and filters (spec §4.11
// section 6).
func scopeSection(in Input) string {
	var sb strings.Builder
	if in.RequestedStart != "" && in.RequestedEnd != "" {
		fmt.Fprintf(&sb, "Period: %s to %s\n", in.RequestedStart, in.RequestedEnd)
	}
	if len(in.Filters) > 0 {
		keys := make([]string, 0, len(in.Filters))
		for k := range in.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Filters: ")
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, in.Filters[k])
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	return strings.TrimSpace(sb.String())
}

// nextStepsFor generates up to 2 intent/data-driven suggestions (spec
// §4.11 section 7).
func nextStepsFor(intent queryspec.Intent, rows []queryspec.Row) []string {
	switch intent {
	case queryspec.IntentTopNRanking, queryspec.IntentCostBreakdown:
		if len(rows) > 0 {
			dim := dimensionColumn(rows[0])
			return []string{
				fmt.Sprintf("Drill into %s for a usage-type breakdown", rows[0][dim].String()),
				"Compare this period against the prior one",
			}
		}
	case queryspec.IntentAnomalyAnalysis:
		return []string{"Investigate the largest deviation's resource-level detail"}
	case queryspec.IntentCostTrend:
		return []string{"Break the trend down by service to find the driver"}
	}
	return nil
}

func formatNextSteps(steps []string) string {
	if len(steps) == 0 {
		return ""
	}
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}
