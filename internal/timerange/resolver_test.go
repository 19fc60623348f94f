package timerange

import (
	"testing"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

func TestParse_LastNDays(t *testing.T) {
	r := New("UTC")
	tr := r.Parse("show me costs for the last 30 days")
	if tr.PeriodType != queryspec.PeriodRolling {
		t.Errorf("expected rolling period type, got %q", tr.PeriodType)
	}
	if !tr.Valid() {
		t.Errorf("expected start <= end, got %v..%v", tr.Start, tr.End)
	}
	if got := tr.End.Sub(tr.Start).Hours() / 24; got != 30 {
		t.Errorf("expected 30 day span, got %v", got)
	}
}

func TestParse_Default(t *testing.T) {
	r := New("UTC")
	tr := r.Parse("what are my costs")
	if tr.Source != queryspec.SourceDefault {
		t.Errorf("expected default source for unmatched text, got %q", tr.Source)
	}
}

func TestParse_SpecificMonth(t *testing.T) {
	r := New("UTC")
	tr := r.Parse("November 2025 costs by service")
	if tr.PeriodType != queryspec.PeriodCalendarMonthFull {
		t.Errorf("expected calendar_month_full, got %q", tr.PeriodType)
	}
	if tr.StartDate() != "2025-11-01" || tr.EndDate() != "2025-11-30" {
		t.Errorf("expected November 2025 bounds, got %s..%s", tr.StartDate(), tr.EndDate())
	}
}

func TestParse_DateRangeTakesPrecedenceOverSingleDate(t *testing.T) {
	r := New("UTC")
	tr := r.Parse("2025-01-01 to 2025-01-31")
	if tr.PeriodType != queryspec.PeriodSpecificRange {
		t.Errorf("expected specific_range when a range is present, got %q", tr.PeriodType)
	}
	if tr.StartDate() != "2025-01-01" || tr.EndDate() != "2025-01-31" {
		t.Errorf("unexpected bounds: %s..%s", tr.StartDate(), tr.EndDate())
	}
}

func TestMerge_ExplicitOverridesContext(t *testing.T) {
	r := New("UTC")
	prev := r.Parse("October 2025")
	result := r.Merge(&prev, "November 2025 costs by service")
	if result.Primary.Source != queryspec.SourceExplicit {
		t.Errorf("expected explicit source to win, got %q", result.Primary.Source)
	}
	if result.Primary.StartDate() != "2025-11-01" {
		t.Errorf("expected November bounds, got %s", result.Primary.StartDate())
	}
}

func TestMerge_InheritsWhenNoExplicitTime(t *testing.T) {
	r := New("UTC")
	prev := r.Parse("November 2025")
	result := r.Merge(&prev, "break it down by region")
	if result.Primary.Source != queryspec.SourceInherited {
		t.Errorf("expected inherited source, got %q", result.Primary.Source)
	}
	if result.Primary.StartDate() != prev.StartDate() || result.Primary.EndDate() != prev.EndDate() {
		t.Errorf("expected inherited bounds to match prior turn")
	}
}

func TestMerge_DefaultWhenNothingAvailable(t *testing.T) {
	r := New("UTC")
	result := r.Merge(nil, "tell me about costs")
	if result.Primary.Source != queryspec.SourceDefault {
		t.Errorf("expected default source, got %q", result.Primary.Source)
	}
}

func TestMerge_ComparisonDerivesPriorCalendarMonth(t *testing.T) {
	r := New("UTC")
	result := r.Merge(nil, "November 2025 costs compared to previous month")
	if !result.IsComparisonRequest {
		t.Fatal("expected comparison request to be detected")
	}
	if result.Comparison == nil {
		t.Fatal("expected a derived comparison period")
	}
	if result.Comparison.StartDate() != "2025-10-01" || result.Comparison.EndDate() != "2025-10-31" {
		t.Errorf("expected October 2025 comparison bounds, got %s..%s", result.Comparison.StartDate(), result.Comparison.EndDate())
	}
}

func TestIsComparisonRequest(t *testing.T) {
	r := New("UTC")
	cases := map[string]bool{
		"compare to previous month": true,
		"costs vs previous quarter": true,
		"month-over-month trend":    true,
		"what is my total spend":    false,
	}
	for text, want := range cases {
		if got := r.IsComparisonRequest(text); got != want {
			t.Errorf("IsComparisonRequest(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestLastNMonths_ExcludesCurrentPartialMonth(t *testing.T) {
	r := New("UTC")
	tr := r.Parse("last 3 months")
	if tr.End.AddDate(0, 0, 1).Day() != 1 {
		t.Errorf("expected end to be the last day of a complete month, got %v", tr.End)
	}
	if tr.Start.Day() != 1 {
		t.Errorf("expected start to be the first day of a month, got %v", tr.Start)
	}
}
