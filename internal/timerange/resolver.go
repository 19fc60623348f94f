// Package timerange parses natural-language time expressions into absolute
// TimeRanges and merges them across conversation turns, per spec §4.1.
package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

// handler builds a TimeRange from a regex match against the lowercased
// input text. now is the caller's current instant in the resolved timezone.
type handler func(now time.Time, m []string) queryspec.TimeRange

type patternEntry struct {
	re      *regexp.Regexp
	handler handler
}

// patterns is the ordered (pattern, handler) table from spec §4.1 / §9.
// Ordering is semantically significant: specific dates before month-day-year
// before month-year before relative phrases, matching the source table.
var patterns = []patternEntry{
	{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})\s*(?:to|through|-)\s*(\d{4})-(\d{2})-(\d{2})`), parseDateRange},
	{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`), parseSingleDate},

	{regexp.MustCompile(`(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\s*,?\s*(\d{4})`), parseMonthDayYear},
	{regexp.MustCompile(`(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})`), parseMonthYear},
	{regexp.MustCompile(`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+(\d{4})`), parseMonthYear},

	{regexp.MustCompile(`\btoday\b`), parseToday},
	{regexp.MustCompile(`\byesterday\b`), parseYesterday},
	{regexp.MustCompile(`last\s+(\d+)\s+days?`), parseLastNDays},
	{regexp.MustCompile(`past\s+(\d+)\s+days?`), parseLastNDays},
	{regexp.MustCompile(`last\s+(\d+)\s+months?`), parseLastNMonths},
	{regexp.MustCompile(`past\s+(\d+)\s+months?`), parseLastNMonths},
	{regexp.MustCompile(`last\s+(\d+)\s+weeks?`), parseLastNWeeks},
	{regexp.MustCompile(`past\s+(\d+)\s+weeks?`), parseLastNWeeks},
	{regexp.MustCompile(`last\s+(\d+)\s+years?`), parseLastNYears},
	{regexp.MustCompile(`past\s+(\d+)\s+years?`), parseLastNYears},

	{regexp.MustCompile(`this\s+month`), parseThisMonth},
	{regexp.MustCompile(`current\s+month`), parseThisMonth},
	{regexp.MustCompile(`last\s+month`), parseLastMonth},
	{regexp.MustCompile(`previous\s+month`), parseLastMonth},
	{regexp.MustCompile(`this\s+week`), parseThisWeek},
	{regexp.MustCompile(`current\s+week`), parseThisWeek},
	{regexp.MustCompile(`last\s+week`), parseLastWeek},
	{regexp.MustCompile(`previous\s+week`), parseLastWeek},
	{regexp.MustCompile(`this\s+quarter`), parseThisQuarter},
	{regexp.MustCompile(`current\s+quarter`), parseThisQuarter},
	{regexp.MustCompile(`last\s+quarter`), parseLastQuarter},
	{regexp.MustCompile(`previous\s+quarter`), parseLastQuarter},
	{regexp.MustCompile(`q([1-4])\s+(\d{4})`), parseSpecificQuarter},
	{regexp.MustCompile(`q([1-4])\b`), parseQuarterCurrentYear},
	{regexp.MustCompile(`this\s+year`), parseThisYear},
	{regexp.MustCompile(`current\s+year`), parseThisYear},
	{regexp.MustCompile(`last\s+year`), parseLastYear},
	{regexp.MustCompile(`previous\s+year`), parseLastYear},
	{regexp.MustCompile(`(?:ytd|year[\s-]to[\s-]date)`), parseYTD},
	{regexp.MustCompile(`(?:mtd|month[\s-]to[\s-]date)`), parseMTD},
	{regexp.MustCompile(`(?:wtd|week[\s-]to[\s-]date)`), parseWTD},

	{regexp.MustCompile(`(?:whole|entire|full)\s+year\s*(\d{4})?`), parseFullYear},
}

var comparisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`compar(?:e|ed|ing)\s+(?:to|with)\s+(?:the\s+)?(?:previous|prior|last)\s+(?:period|month|week|quarter|year)`),
	regexp.MustCompile(`(?:vs|versus|against)\s+(?:previous|prior|last)\s+(?:period|month|week|quarter|year)`),
	regexp.MustCompile(`(?:month|week|quarter|year)[\s-]over[\s-](?:month|week|quarter|year)`),
	regexp.MustCompile(`(?:mom|wow|qoq|yoy)\b`),
	regexp.MustCompile(`period[\s-]over[\s-]period`),
	regexp.MustCompile(`compare\s+periods?`),
}

var monthMap = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Resolver parses and merges time ranges in a fixed timezone.
type Resolver struct {
	loc *time.Location
}

// New constructs a Resolver for the named IANA timezone, defaulting to UTC
// on an unknown zone (mirrors pytz.timezone's behavior of always resolving).
func New(tz string) *Resolver {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

func (r *Resolver) now() time.Time { return time.Now().In(r.loc) }

// Parse scans the lowercased text against the ordered pattern table and
// returns the first matching handler's TimeRange, or the default 30-day
// rolling window if nothing matches (spec §4.1).
func (r *Resolver) Parse(text string) queryspec.TimeRange {
	lower := strings.ToLower(strings.TrimSpace(text))
	now := r.now()
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		return p.handler(now, m)
	}
	return r.defaultRange(now)
}

func (r *Resolver) defaultRange(now time.Time) queryspec.TimeRange {
	end := dateOnly(now)
	start := end.AddDate(0, 0, -30)
	return r.makeRange(start, end, "Last 30 days (default)", queryspec.SourceDefault, queryspec.PeriodRolling, "")
}

// IsComparisonRequest reports whether text asks for a period-over-period
// comparison (spec §4.1's separate comparison regex pass).
func (r *Resolver) IsComparisonRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range comparisonPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// Merge implements spec §4.1's merge(prev_context, new_text, tz) precedence:
// explicit text overrides, else inherited context, else default; followed by
// a separate comparison-period derivation pass.
func (r *Resolver) Merge(prev *queryspec.TimeRange, newText string) queryspec.TimeRangeResult {
	now := r.now()
	lower := strings.ToLower(newText)

	var primary queryspec.TimeRange
	matched := false
	for _, p := range patterns {
		if p.re.MatchString(lower) {
			primary = r.Parse(newText)
			primary.Source = queryspec.SourceExplicit
			matched = true
			break
		}
	}

	if !matched {
		if prev != nil {
			primary = *prev
			primary.Source = queryspec.SourceInherited
		} else {
			primary = r.defaultRange(now)
		}
	}

	result := queryspec.TimeRangeResult{Primary: primary}

	if r.IsComparisonRequest(newText) {
		comp := r.deriveComparisonPeriod(primary)
		result.Comparison = &comp
		result.IsComparisonRequest = true
	}

	return result
}

// deriveComparisonPeriod implements spec §4.1's per-period_type comparison
// derivation rules.
func (r *Resolver) deriveComparisonPeriod(primary queryspec.TimeRange) queryspec.TimeRange {
	days := daysInclusive(primary.Start, primary.End)

	var start, end time.Time
	var description string

	switch primary.PeriodType {
	case queryspec.PeriodCalendarMonthFull:
		end = firstOfMonth(primary.Start).AddDate(0, 0, -1)
		start = firstOfMonth(end)
		description = fmt.Sprintf("%s (comparison)", start.Format("January 2006"))
	case queryspec.PeriodCalendarQuarterFull:
		q, y := quarterOf(primary.Start)
		pq, py := q-1, y
		if q == 1 {
			pq, py = 4, y-1
		}
		start, end = quarterBounds(py, pq)
		description = fmt.Sprintf("Q%d %d (comparison)", pq, py)
	case queryspec.PeriodCalendarYearFull:
		py := primary.Start.Year() - 1
		start = time.Date(py, time.January, 1, 0, 0, 0, 0, r.loc)
		end = time.Date(py, time.December, 31, 0, 0, 0, 0, r.loc)
		description = fmt.Sprintf("%d (comparison)", py)
	default:
		end = primary.Start.AddDate(0, 0, -1)
		start = end.AddDate(0, 0, -(days - 1))
		description = fmt.Sprintf("Previous %d days (comparison)", days)
	}

	return r.makeRangeWithGranularity(start, end, description, queryspec.SourceComparison, queryspec.PeriodComparison, "", primary.Granularity)
}

// --- handlers ---

func (r *Resolver) makeRange(start, end time.Time, desc string, source queryspec.TimeRangeSource, pt queryspec.PeriodType, extra string) queryspec.TimeRange {
	return r.makeRangeWithGranularity(start, end, desc, source, pt, extra, queryspec.DeriveGranularity(start, end))
}

func (r *Resolver) makeRangeWithGranularity(start, end time.Time, desc string, source queryspec.TimeRangeSource, pt queryspec.PeriodType, extra string, gran queryspec.Granularity) queryspec.TimeRange {
	_ = extra
	return queryspec.TimeRange{
		Start:       dateOnly(start),
		End:         dateOnly(end),
		Granularity: gran,
		Description: desc,
		Source:      source,
		PeriodType:  pt,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysInclusive(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func quarterOf(t time.Time) (quarter, year int) {
	return (int(t.Month())-1)/3 + 1, t.Year()
}

func quarterBounds(year, quarter int) (start, end time.Time) {
	startMonth := time.Month((quarter-1)*3 + 1)
	start = time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 3, -1)
	return start, end
}

func parseToday(now time.Time, _ []string) queryspec.TimeRange {
	t := dateOnly(now)
	return queryspec.TimeRange{Start: t, End: t, Granularity: queryspec.GranularityHourly, Description: "Today", Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodSingleDay}
}

func parseYesterday(now time.Time, _ []string) queryspec.TimeRange {
	t := dateOnly(now).AddDate(0, 0, -1)
	return queryspec.TimeRange{Start: t, End: t, Granularity: queryspec.GranularityHourly, Description: "Yesterday", Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodSingleDay}
}

func parseLastNDays(now time.Time, m []string) queryspec.TimeRange {
	n, _ := strconv.Atoi(m[1])
	end := dateOnly(now)
	start := end.AddDate(0, 0, -n)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("Last %d days", n), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodRolling}
}

func parseLastNWeeks(now time.Time, m []string) queryspec.TimeRange {
	n, _ := strconv.Atoi(m[1])
	end := dateOnly(now)
	start := end.AddDate(0, 0, -7*n)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("Last %d weeks", n), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodRolling}
}

// parseLastNMonths implements the "N complete calendar months" rule from
// spec §4.1: the current partial month is excluded.
func parseLastNMonths(now time.Time, m []string) queryspec.TimeRange {
	n, _ := strconv.Atoi(m[1])
	firstOfCurrent := firstOfMonth(dateOnly(now))
	end := firstOfCurrent.AddDate(0, 0, -1)
	start := firstOfMonth(end).AddDate(0, -(n - 1), 0)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("Last %d complete calendar months", n), Source: queryspec.SourceExplicit, PeriodType: "calendar_months"}
}

func parseLastNYears(now time.Time, m []string) queryspec.TimeRange {
	n, _ := strconv.Atoi(m[1])
	end := dateOnly(now)
	start := end.AddDate(-n, 0, 0)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.GranularityMonthly, Description: fmt.Sprintf("Last %d years", n), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodRolling}
}

func parseThisMonth(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	start := firstOfMonth(today)
	return queryspec.TimeRange{Start: start, End: today, Granularity: queryspec.DeriveGranularity(start, today), Description: fmt.Sprintf("%s (month-to-date)", start.Format("January 2006")), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarMonthPartial}
}

func parseLastMonth(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	end := firstOfMonth(today).AddDate(0, 0, -1)
	start := firstOfMonth(end)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("%s (full month)", start.Format("January 2006")), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarMonthFull}
}

func weekdayMondayOffset(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 6
	}
	return wd - 1
}

func parseThisWeek(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	start := today.AddDate(0, 0, -weekdayMondayOffset(today))
	return queryspec.TimeRange{Start: start, End: today, Granularity: queryspec.DeriveGranularity(start, today), Description: "This week (week-to-date)", Source: queryspec.SourceExplicit, PeriodType: "calendar_week_partial"}
}

func parseLastWeek(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	thisMonday := today.AddDate(0, 0, -weekdayMondayOffset(today))
	lastSunday := thisMonday.AddDate(0, 0, -1)
	lastMonday := lastSunday.AddDate(0, 0, -6)
	return queryspec.TimeRange{Start: lastMonday, End: lastSunday, Granularity: queryspec.DeriveGranularity(lastMonday, lastSunday), Description: "Last week (full week)", Source: queryspec.SourceExplicit, PeriodType: "calendar_week_full"}
}

func parseThisQuarter(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	q, y := quarterOf(today)
	start, _ := quarterBounds(y, q)
	return queryspec.TimeRange{Start: start, End: today, Granularity: queryspec.DeriveGranularity(start, today), Description: fmt.Sprintf("Q%d %d (quarter-to-date)", q, y), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarQuarterPartial}
}

func parseLastQuarter(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	q, y := quarterOf(today)
	pq, py := q-1, y
	if q == 1 {
		pq, py = 4, y-1
	}
	start, end := quarterBounds(py, pq)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("Q%d %d (full quarter)", pq, py), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarQuarterFull}
}

func parseSpecificQuarter(now time.Time, m []string) queryspec.TimeRange {
	q, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	start, end := quarterBounds(y, q)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("Q%d %d", q, y), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarQuarterFull}
}

func parseQuarterCurrentYear(now time.Time, m []string) queryspec.TimeRange {
	q, _ := strconv.Atoi(m[1])
	y := now.Year()
	start, end := quarterBounds(y, q)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("Q%d %d", q, y), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarQuarterFull}
}

func parseThisYear(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	return queryspec.TimeRange{Start: start, End: today, Granularity: queryspec.GranularityMonthly, Description: fmt.Sprintf("%d (year-to-date)", today.Year()), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarYearPartial}
}

func parseLastYear(now time.Time, _ []string) queryspec.TimeRange {
	y := now.Year() - 1
	start := time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	end := time.Date(y, time.December, 31, 0, 0, 0, 0, now.Location())
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.GranularityMonthly, Description: fmt.Sprintf("%d (full year)", y), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarYearFull}
}

func parseYTD(now time.Time, m []string) queryspec.TimeRange {
	r := parseThisYear(now, m)
	r.Description = fmt.Sprintf("Year-to-date %d", now.Year())
	return r
}

func parseMTD(now time.Time, _ []string) queryspec.TimeRange {
	today := dateOnly(now)
	start := firstOfMonth(today)
	return queryspec.TimeRange{Start: start, End: today, Granularity: queryspec.DeriveGranularity(start, today), Description: fmt.Sprintf("Month-to-date (%s)", today.Format("January 2006")), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarMonthPartial}
}

func parseWTD(now time.Time, _ []string) queryspec.TimeRange {
	r := parseThisWeek(now, nil)
	r.Description = "Week-to-date"
	return r
}

func parseFullYear(now time.Time, m []string) queryspec.TimeRange {
	y := now.Year() - 1
	if m[1] != "" {
		y, _ = strconv.Atoi(m[1])
	}
	start := time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	end := time.Date(y, time.December, 31, 0, 0, 0, 0, now.Location())
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.GranularityMonthly, Description: fmt.Sprintf("%d (full year)", y), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarYearFull}
}

func parseMonthYear(now time.Time, m []string) queryspec.TimeRange {
	month := monthMap[m[1]]
	year, _ := strconv.Atoi(m[2])
	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, -1)
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("%s (full month)", start.Format("January 2006")), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodCalendarMonthFull}
}

func parseMonthDayYear(now time.Time, m []string) queryspec.TimeRange {
	month := monthMap[m[1]]
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return queryspec.TimeRange{Start: d, End: d, Granularity: queryspec.GranularityHourly, Description: d.Format("January 2, 2006"), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodSpecificDate}
}

func parseDateRange(now time.Time, m []string) queryspec.TimeRange {
	start := mustDate(m[1], m[2], m[3], now.Location())
	end := mustDate(m[4], m[5], m[6], now.Location())
	return queryspec.TimeRange{Start: start, End: end, Granularity: queryspec.DeriveGranularity(start, end), Description: fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02")), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodSpecificRange}
}

func parseSingleDate(now time.Time, m []string) queryspec.TimeRange {
	d := mustDate(m[1], m[2], m[3], now.Location())
	return queryspec.TimeRange{Start: d, End: d, Granularity: queryspec.GranularityHourly, Description: d.Format("January 2, 2006"), Source: queryspec.SourceExplicit, PeriodType: queryspec.PeriodSpecificDate}
}

func mustDate(ys, ms, ds string, loc *time.Location) time.Time {
	y, _ := strconv.Atoi(ys)
	mo, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
}
