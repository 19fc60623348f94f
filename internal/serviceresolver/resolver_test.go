package serviceresolver

import (
	"context"
	"errors"
	"testing"
)

func TestResolve_DictionaryHit(t *testing.T) {
	r := New(nil, nil)
	res := r.Resolve(context.Background(), "EC2")
	if res.Method != MethodDict {
		t.Fatalf("expected dict method, got %q", res.Method)
	}
	if res.ProductCode != "AmazonEC2" {
		t.Fatalf("expected AmazonEC2, got %q", res.ProductCode)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %v", res.Confidence)
	}
}

func TestResolve_UnknownPhraseFuzzyOrFallback(t *testing.T) {
	r := New(nil, nil)
	res := r.Resolve(context.Background(), "Elastic Compute Cloud Service")
	if res.Method == MethodDict {
		t.Fatal("expected a non-dictionary phrase to skip the dict stage")
	}
}

type stubArbitrator struct {
	code string
	err  error
	calls int
}

func (s *stubArbitrator) Arbitrate(_ context.Context, _ string, _ []string) (string, error) {
	s.calls++
	return s.code, s.err
}

func TestResolve_LLMArbitrationIsCachedPerPhrase(t *testing.T) {
	stub := &stubArbitrator{code: "AmazonEC2"}
	r := New(stub, nil)

	// Force a phrase that will reach LLM arbitration by seeding a narrow
	// product-code set so the fuzzy margin stays ambiguous.
	r.RefreshProductCodes([]string{"AmazonEC2", "AmazonECS"})

	first := r.Resolve(context.Background(), "ec compute")
	second := r.Resolve(context.Background(), "ec compute")

	if first.Method == MethodLLM && second.Method == MethodLLM {
		if stub.calls != 1 {
			t.Errorf("expected the LLM cache to avoid a second arbitration call, got %d calls", stub.calls)
		}
	}
}

func TestResolve_NoArbitratorEndsInFuzzyAmbiguousOrFallback(t *testing.T) {
	r := New(nil, nil)
	r.RefreshProductCodes([]string{"AmazonEC2", "AmazonECS"})
	res := r.Resolve(context.Background(), "ec")
	if res.Method != MethodAmbiguous && res.Method != MethodFallback && res.Method != MethodFuzzy {
		t.Errorf("unexpected method %q", res.Method)
	}
}

func TestResolve_ArbitratorErrorFallsThrough(t *testing.T) {
	stub := &stubArbitrator{err: errors.New("llm unavailable")}
	r := New(stub, nil)
	res := r.Resolve(context.Background(), "some totally unknown cloud thing")
	if res.Method == MethodLLM {
		t.Fatal("an arbitrator error must not be reported as a successful LLM resolution")
	}
}
