package analysis

import (
	"testing"

	"github.com/halvard/harpqc/internal/models"
)

func TestKeywordFill(t *testing.T) {
	records := []models.Record{
		record(1, slot(0), len(models.KeywordNames)),
		record(1, slot(1), 3),
		record(1, slot(2), 0),
	}

	counts := KeywordFill(records)
	if len(counts) != len(models.KeywordNames) {
		t.Fatalf("KeywordFill() returned %d counts, want %d", len(counts), len(models.KeywordNames))
	}
	for i, fc := range counts {
		if fc.Keyword != models.KeywordNames[i] {
			t.Errorf("count %d keyword = %q, want %q", i, fc.Keyword, models.KeywordNames[i])
		}
		if fc.Total != 3 {
			t.Errorf("%s total = %d, want 3", fc.Keyword, fc.Total)
		}
		want := 1
		if i < 3 {
			want = 2
		}
		if fc.Present != want {
			t.Errorf("%s present = %d, want %d", fc.Keyword, fc.Present, want)
		}
	}
}

func TestFillCountFraction(t *testing.T) {
	if got := (FillCount{Present: 3, Total: 4}).Fraction(); got != 0.75 {
		t.Errorf("Fraction() = %v, want 0.75", got)
	}
	if got := (FillCount{}).Fraction(); got != 0 {
		t.Errorf("Fraction() on empty count = %v, want 0", got)
	}
}

func TestQualityBreakdown(t *testing.T) {
	mk := func(quality string) models.Record {
		r := record(1, slot(0), 0)
		r.Quality = quality
		return r
	}
	records := []models.Record{
		mk("0x00000000"),
		mk("00000000"),
		mk("0"),
		mk("0x00010000"),
		mk("10000"), // same code, different spelling
		mk("bogus"),
	}

	got := QualityBreakdown(records)
	want := []QualityCount{
		{Code: "0x00000000", Count: 3, Nominal: true},
		{Code: "0x00010000", Count: 2, Nominal: false},
		{Code: "bogus", Count: 1, Nominal: false},
	}
	if len(got) != len(want) {
		t.Fatalf("QualityBreakdown() returned %d codes, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("code %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
