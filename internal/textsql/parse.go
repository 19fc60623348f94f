package textsql

import (
	"encoding/json"
	"regexp"
	"strings"
)

// llmResponse is the strict JSON shape the generator asks the model for
// (spec §4.5).
type llmResponse struct {
	SQL           string   `json:"sql"`
	Explanation   string   `json:"explanation"`
	ResultColumns []string `json:"result_columns"`
	QueryType     string   `json:"query_type"`
}

var (
	codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	salvageSQLRe         = regexp.MustCompile(`(?s)"sql"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	salvageExplanationRe = regexp.MustCompile(`(?s)"explanation"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	salvageQueryTypeRe   = regexp.MustCompile(`"query_type"\s*:\s*"([^"]*)"`)

	dateTruncGroupByRe = regexp.MustCompile(`(?i)date_trunc.*group\s+by`)
	limitSmallNRe      = regexp.MustCompile(`(?i)\blimit\s+(\d+)\b`)
	groupByRe          = regexp.MustCompile(`(?i)\bgroup\s+by\b`)
)

// parseResult is what the three-pass parser recovers, plus how.
type parseResult struct {
	Response   llmResponse
	GeneratedVia string
	Recovered  bool
}

// parseLLMResponse runs spec §4.5's three-pass tolerant parse. ok is false
// only when all three passes fail to recover a usable response.
func parseLLMResponse(raw string) (parseResult, bool) {
	stripped := stripCodeFences(raw)

	if resp, ok := tryDirectParse(stripped); ok {
		return parseResult{Response: resp, GeneratedVia: "text_to_sql_llm", Recovered: true}, true
	}

	sanitized := sanitize(stripped)
	if resp, ok := tryDirectParse(sanitized); ok {
		return parseResult{Response: resp, GeneratedVia: "text_to_sql_llm_sanitized", Recovered: true}, true
	}

	if resp, ok := salvage(sanitized); ok {
		return parseResult{Response: resp, GeneratedVia: "text_to_sql_llm_partial", Recovered: true}, true
	}

	return parseResult{}, false
}

func stripCodeFences(raw string) string {
	if m := codeFenceRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return strings.TrimSpace(raw)
}

func tryDirectParse(s string) (llmResponse, bool) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return llmResponse{}, false
	}
	return resp, true
}

// sanitize normalizes line endings and drops control characters outside tab,
// newline, and the printable ASCII range (spec §4.5 pass 2).
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' {
			b.WriteRune(r)
			continue
		}
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
			continue
		}
		if r > 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// salvage extracts the sql/explanation/query_type fields by regex when the
// payload isn't valid JSON at all (spec §4.5 pass 3), inferring query_type
// from SQL features when the model omitted it.
func salvage(s string) (llmResponse, bool) {
	sqlMatch := salvageSQLRe.FindStringSubmatch(s)
	if sqlMatch == nil {
		return llmResponse{}, false
	}

	resp := llmResponse{SQL: unescapeJSONString(sqlMatch[1])}
	if m := salvageExplanationRe.FindStringSubmatch(s); m != nil {
		resp.Explanation = unescapeJSONString(m[1])
	}
	if m := salvageQueryTypeRe.FindStringSubmatch(s); m != nil {
		resp.QueryType = m[1]
	}

	if resp.QueryType == "" {
		resp.QueryType = inferQueryType(resp.SQL)
	}

	return resp, true
}

func unescapeJSONString(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// inferQueryType implements spec §4.5 pass 3's SQL-feature inference:
// DATE_TRUNC+GROUP BY -> time_series/comparison, LIMIT with a small N ->
// top_services, any remaining GROUP BY -> breakdown.
func inferQueryType(sql string) string {
	if dateTruncGroupByRe.MatchString(sql) {
		if strings.Contains(strings.ToLower(sql), "comparison") {
			return "comparison"
		}
		return "time_series"
	}
	if m := limitSmallNRe.FindStringSubmatch(sql); m != nil {
		if len(m[1]) <= 2 {
			return "top_services"
		}
	}
	if groupByRe.MatchString(sql) {
		return "breakdown"
	}
	return ""
}
