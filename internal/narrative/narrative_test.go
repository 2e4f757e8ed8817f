package narrative

import (
	"strings"
	"testing"

	"github.com/halvard/harpqc/internal/analysis"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		Loaded:      120,
		Entities:    make([]analysis.EntityResult, 4),
		Totals:      analysis.ClassCounts{Complete: 90, Incomplete: 20, Missing: 10},
		ImputedMin:  7,
		ImputedMax:  3,
		ExtremeLow:  2,
		ExtremeHigh: 1,
		ExtremeLon:  68,
	}
}

func TestDigest(t *testing.T) {
	got := Digest(sampleResult())
	for _, want := range []string{"120", "4 tracked regions", "90 complete", "7 LON_MIN", "3 LON_MAX"} {
		if !strings.Contains(got, want) {
			t.Errorf("Digest() missing %q:\n%s", want, got)
		}
	}
}

func TestFallback(t *testing.T) {
	got := Fallback(sampleResult())
	for _, want := range []string{"120 records", "4 tracked regions", "75.0%", "7 LON_MIN", "68 degrees"} {
		if !strings.Contains(got, want) {
			t.Errorf("Fallback() missing %q:\n%s", want, got)
		}
	}
}

func TestFallbackEmptyResult(t *testing.T) {
	got := Fallback(&analysis.Result{})
	if !strings.Contains(got, "0 records") {
		t.Errorf("Fallback() on empty result = %q", got)
	}
}

func TestNewSummarizerRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewSummarizer(); err == nil {
		t.Error("NewSummarizer() returned nil error without an API key")
	}
}

func TestNewSummarizerWithKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	s, err := NewSummarizer()
	if err != nil {
		t.Fatalf("NewSummarizer() error = %v", err)
	}
	if s == nil {
		t.Fatal("NewSummarizer() returned nil summarizer")
	}
}
