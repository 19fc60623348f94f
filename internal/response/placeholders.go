package response

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

var placeholderDateLayouts = []string{"2006-01-02", "2006-01", "January 2006", "Jan 2006"}

var leftoverPlaceholderRe = regexp.MustCompile(`\$\{\{?\w+\}?\}`)

func parseDateLoose(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range placeholderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// substitutePlaceholders replaces ${Var} and ${{Var}} tokens in the LLM's
// explanation with values computed from rows and total (spec §4.11's
// placeholder substitution). Unresolvable tokens fall through to "N/A";
// failures here are non-fatal.
func substitutePlaceholders(explanation string, rows []queryspec.Row, total float64) string {
	if explanation == "" || !strings.Contains(explanation, "${") {
		return explanation
	}

	values := placeholderValues(rows, total)

	out := explanation
	for name, val := range values {
		out = strings.ReplaceAll(out, "${"+name+"}", val)
		out = strings.ReplaceAll(out, "${{"+name+"}}", val)
	}
	return leftoverPlaceholderRe.ReplaceAllString(out, "N/A")
}

func placeholderValues(rows []queryspec.Row, total float64) map[string]string {
	sorted := sortedByCost(rows)

	values := map[string]string{
		"TotalCost": "$" + money(total),
		"NumItems":  fmt.Sprintf("%d", len(rows)),
		"TopItem":   "N/A",
		"TopCost":   "$0.00",
		"TopPct":    "0%",
		"Top2Pct":   "0%",
		"Top3Pct":   "0%",
		"Top5Pct":   "0%",
		"Item1":     "N/A",
		"Item2":     "N/A",
		"Item3":     "N/A",
	}

	if len(sorted) > 0 {
		dim := dimensionColumn(sorted[0])
		topCost := costOf(sorted[0])
		values["TopItem"] = sorted[0][dim].String()
		values["TopCost"] = "$" + money(topCost)
		values["TopPct"] = fmt.Sprintf("%.0f%%", pctOf(topCost, total))
		values["Item1"] = sorted[0][dim].String()
	}
	if len(sorted) > 1 {
		dim := dimensionColumn(sorted[1])
		values["Item2"] = sorted[1][dim].String()
		top2 := costOf(sorted[0]) + costOf(sorted[1])
		values["Top2Pct"] = fmt.Sprintf("%.0f%%", pctOf(top2, total))
	}
	if len(sorted) > 2 {
		dim := dimensionColumn(sorted[2])
		values["Item3"] = sorted[2][dim].String()
		top3 := costOf(sorted[0]) + costOf(sorted[1]) + costOf(sorted[2])
		values["Top3Pct"] = fmt.Sprintf("%.0f%%", pctOf(top3, total))
	}
	if len(sorted) >= 5 {
		var top5 float64
		for _, r := range sorted[:5] {
			top5 += costOf(r)
		}
		values["Top5Pct"] = fmt.Sprintf("%.0f%%", pctOf(top5, total))
	}

	if len(rows) == 2 {
		if p1, p2, name1, name2, ok := twoPeriodComparison(rows); ok {
			diffPct := 0.0
			if p1 > 0 {
				diffPct = (p2 - p1) / p1 * 100
			}
			values["Difference"] = fmt.Sprintf("%.1f", abs(diffPct))
			values["TrendDirection"] = trendDirection(p1, p2)
			values["Period1Cost"] = "$" + money(p1)
			values["Period2Cost"] = "$" + money(p2)
			values["FirstPeriod"] = name1
			values["SecondPeriod"] = name2
		}
	}

	return values
}

func twoPeriodComparison(rows []queryspec.Row) (p1, p2 float64, name1, name2 string, ok bool) {
	for _, col := range []string{"date", "month", "period"} {
		if _, exists := rows[0][col]; exists {
			p1, p2 = costOf(rows[0]), costOf(rows[1])
			name1, name2 = labelOr(rows[0], col, "Period 1"), labelOr(rows[1], col, "Period 2")
			return p1, p2, name1, name2, true
		}
	}
	return 0, 0, "", "", false
}

func labelOr(row queryspec.Row, col, fallback string) string {
	if cell, ok := row[col]; ok {
		return cell.String()
	}
	return fallback
}
