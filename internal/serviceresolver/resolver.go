// Package serviceresolver maps free-text AWS service phrases to canonical
// CUR line_item_product_code values via a dictionary -> fuzzy -> LLM
// pipeline with short-circuit on confidence (spec §4.3).
package serviceresolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sahilm/fuzzy"
)

// Method records which pipeline stage produced a ResolutionResult.
type Method string

const (
	MethodDict      Method = "dict"
	MethodFuzzy     Method = "fuzzy"
	MethodLLM       Method = "llm"
	MethodAmbiguous Method = "ambiguous"
	MethodFallback  Method = "fallback"
)

// Candidate is a scored product-code guess from the fuzzy stage.
type Candidate struct {
	Code  string
	Score int
}

// ResolutionResult is the resolution artifact from spec §3.
type ResolutionResult struct {
	ProductCode        string
	Method             Method
	Confidence         float64
	Candidates         []Candidate
	Original           string
	Normalized         string
	NeedsClarification bool
}

// Arbitrator is the narrow LLM dependency ServiceResolver needs: given the
// phrase and the top fuzzy candidates, pick one or report none fits.
type Arbitrator interface {
	Arbitrate(ctx context.Context, phrase string, candidates []string) (productCode string, err error)
}

const (
	fuzzyThreshold     = 80
	fuzzyMarginPoints  = 3
	cacheRefreshPeriod = 6 * time.Hour
)

var (
	resolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finops_service_resolution_total",
		Help: "Count of ServiceResolver resolutions by method.",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(resolutionsTotal)
}

// Resolver implements the dict -> fuzzy -> LLM -> fallback pipeline. The
// product-code cache is the one process-global mutable state spec §9 permits,
// protected by an RWMutex for concurrent query loads.
type Resolver struct {
	mu           sync.RWMutex
	productCodes []string
	lastRefresh  time.Time

	llmMu    sync.Mutex
	llmCache map[string]string

	arbitrator Arbitrator
	logger     *slog.Logger
}

// New constructs a Resolver. arbitrator may be nil, in which case stage 3
// (LLM arbitration) is skipped: phrases whose top two fuzzy candidates are
// within the margin resolve to MethodAmbiguous, and other unresolved phrases
// fall through to MethodFallback.
func New(arbitrator Arbitrator, logger *slog.Logger) *Resolver {
	return &Resolver{
		productCodes: append([]string(nil), knownProductCodes...),
		lastRefresh:  time.Now(),
		llmCache:     map[string]string{},
		arbitrator:   arbitrator,
		logger:       logger,
	}
}

// RefreshProductCodes replaces the cached distinct product-code set, e.g.
// from a live `SELECT DISTINCT line_item_product_code` query. Safe for
// concurrent callers.
func (r *Resolver) RefreshProductCodes(codes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.productCodes = append([]string(nil), codes...)
	r.lastRefresh = time.Now()
}

func (r *Resolver) shouldRefresh() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Since(r.lastRefresh) > cacheRefreshPeriod
}

func (r *Resolver) codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.productCodes
}

// Resolve runs the full pipeline for one phrase.
func (r *Resolver) Resolve(ctx context.Context, phrase string) ResolutionResult {
	normalized := normalize(phrase)

	if code, ok := synonyms[normalized]; ok {
		resolutionsTotal.WithLabelValues(string(MethodDict)).Inc()
		return ResolutionResult{
			ProductCode: code,
			Method:      MethodDict,
			Confidence:  1.0,
			Original:    phrase,
			Normalized:  normalized,
		}
	}

	if r.shouldRefresh() && r.logger != nil {
		r.logger.Warn("service resolver product-code cache is stale", "last_refresh", r.lastRefresh)
	}

	candidates := r.fuzzyMatch(normalized)

	if len(candidates) > 0 {
		best := candidates[0]
		if best.Score >= fuzzyThreshold {
			if len(candidates) == 1 || best.Score-candidates[1].Score >= fuzzyMarginPoints {
				resolutionsTotal.WithLabelValues(string(MethodFuzzy)).Inc()
				return ResolutionResult{
					ProductCode: best.Code,
					Method:      MethodFuzzy,
					Confidence:  float64(best.Score) / 100,
					Candidates:  candidates,
					Original:    phrase,
					Normalized:  normalized,
				}
			}
		}
	}

	if len(candidates) > 0 && r.arbitrator != nil {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Code
		}
		if code, err := r.arbitrateCached(ctx, phrase, names); err == nil && code != "" {
			resolutionsTotal.WithLabelValues(string(MethodLLM)).Inc()
			return ResolutionResult{
				ProductCode: code,
				Method:      MethodLLM,
				Confidence:  0.9,
				Candidates:  candidates,
				Original:    phrase,
				Normalized:  normalized,
			}
		} else if r.logger != nil && err != nil {
			r.logger.Warn("LLM service arbitration failed", "phrase", phrase, "error", err)
		}
	}

	if len(candidates) > 0 {
		best, second := candidates[0], candidates[0]
		if len(candidates) > 1 {
			second = candidates[1]
		}
		if best.Score-second.Score < fuzzyMarginPoints {
			resolutionsTotal.WithLabelValues(string(MethodAmbiguous)).Inc()
			return ResolutionResult{
				Method:             MethodAmbiguous,
				Candidates:         candidates,
				Original:           phrase,
				Normalized:         normalized,
				NeedsClarification: true,
			}
		}
	}

	resolutionsTotal.WithLabelValues(string(MethodFallback)).Inc()
	return ResolutionResult{
		Method:     MethodFallback,
		Candidates: candidates,
		Original:   phrase,
		Normalized: normalized,
	}
}

func (r *Resolver) fuzzyMatch(normalized string) []Candidate {
	matches := fuzzy.Find(normalized, r.codes())
	if len(matches) == 0 {
		return nil
	}
	n := len(matches)
	if n > 5 {
		n = 5
	}
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Candidate{Code: matches[i].Str, Score: normalizeFuzzyScore(matches[i].Score)})
	}
	return out
}

// normalizeFuzzyScore maps sahilm/fuzzy's unbounded match score onto the
// roughly-0-100 scale spec §4.3's threshold/margin constants assume.
func normalizeFuzzyScore(raw int) int {
	score := raw * 2
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (r *Resolver) arbitrateCached(ctx context.Context, phrase string, candidates []string) (string, error) {
	r.llmMu.Lock()
	if cached, ok := r.llmCache[phrase]; ok {
		r.llmMu.Unlock()
		return cached, nil
	}
	r.llmMu.Unlock()

	code, err := r.arbitrator.Arbitrate(ctx, phrase, candidates)
	if err != nil {
		return "", err
	}

	r.llmMu.Lock()
	r.llmCache[phrase] = code
	r.llmMu.Unlock()

	return code, nil
}
