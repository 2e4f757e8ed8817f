package analysis

import (
	"testing"
	"time"
)

func TestCoverageGrid(t *testing.T) {
	times := []time.Time{slot(0), slot(1), slot(3)}

	cov, err := CoverageGrid(times, DefaultCadence)
	if err != nil {
		t.Fatalf("CoverageGrid() error = %v", err)
	}
	if len(cov.Grid) != 4 {
		t.Fatalf("grid has %d slots, want 4", len(cov.Grid))
	}
	wantObserved := []bool{true, true, false, true}
	for i, gp := range cov.Grid {
		if !gp.Time.Equal(slot(i)) {
			t.Errorf("slot %d time = %v, want %v", i, gp.Time, slot(i))
		}
		if gp.Observed != wantObserved[i] {
			t.Errorf("slot %d observed = %v, want %v", i, gp.Observed, wantObserved[i])
		}
	}
	if cov.Observed != 3 {
		t.Errorf("Observed = %d, want 3", cov.Observed)
	}
	if cov.OffGrid != 0 {
		t.Errorf("OffGrid = %d, want 0", cov.OffGrid)
	}
	if cov.Fraction() != 0.75 {
		t.Errorf("Fraction() = %v, want 0.75", cov.Fraction())
	}

	if len(cov.Runs) != 3 {
		t.Fatalf("coverage has %d runs, want 3", len(cov.Runs))
	}
	if !cov.Runs[0].Observed || cov.Runs[0].Points != 2 {
		t.Errorf("run 0 = %+v, want observed run of 2", cov.Runs[0])
	}
	if cov.Runs[1].Observed || cov.Runs[1].Points != 1 {
		t.Errorf("run 1 = %+v, want absent run of 1", cov.Runs[1])
	}
}

func TestCoverageGridOffGrid(t *testing.T) {
	times := []time.Time{slot(0), slot(0).Add(6 * time.Minute), slot(2)}

	cov, err := CoverageGrid(times, DefaultCadence)
	if err != nil {
		t.Fatalf("CoverageGrid() error = %v", err)
	}
	if len(cov.Grid) != 3 {
		t.Fatalf("grid has %d slots, want 3", len(cov.Grid))
	}
	if cov.Observed != 2 {
		t.Errorf("Observed = %d, want 2", cov.Observed)
	}
	if cov.OffGrid != 1 {
		t.Errorf("OffGrid = %d, want 1", cov.OffGrid)
	}
	if cov.Grid[1].Observed {
		t.Errorf("slot 1 marked observed by an off-grid timestamp")
	}
}

func TestCoverageGridDeduplicates(t *testing.T) {
	times := []time.Time{slot(0), slot(0), slot(0), slot(1)}

	cov, err := CoverageGrid(times, DefaultCadence)
	if err != nil {
		t.Fatalf("CoverageGrid() error = %v", err)
	}
	if cov.Observed != 2 || len(cov.Grid) != 2 {
		t.Errorf("Observed = %d over %d slots, want 2 over 2", cov.Observed, len(cov.Grid))
	}
}

func TestCoverageGridSinglePoint(t *testing.T) {
	cov, err := CoverageGrid([]time.Time{slot(0)}, DefaultCadence)
	if err != nil {
		t.Fatalf("CoverageGrid() error = %v", err)
	}
	if len(cov.Grid) != 1 || !cov.Grid[0].Observed {
		t.Errorf("grid = %+v, want one observed slot", cov.Grid)
	}
	if cov.Fraction() != 1 {
		t.Errorf("Fraction() = %v, want 1", cov.Fraction())
	}
	if len(cov.Runs) != 1 {
		t.Errorf("coverage has %d runs, want 1", len(cov.Runs))
	}
}

func TestCoverageGridEmpty(t *testing.T) {
	cov, err := CoverageGrid(nil, DefaultCadence)
	if err != nil {
		t.Fatalf("CoverageGrid() error = %v", err)
	}
	if len(cov.Grid) != 0 || cov.Fraction() != 0 {
		t.Errorf("empty input produced %d slots, fraction %v", len(cov.Grid), cov.Fraction())
	}
}

func TestCoverageGridInvalidPeriod(t *testing.T) {
	if _, err := CoverageGrid([]time.Time{slot(0)}, 0); err == nil {
		t.Error("CoverageGrid() with zero period returned nil error")
	}
	if _, err := CoverageGrid([]time.Time{slot(0)}, -time.Minute); err == nil {
		t.Error("CoverageGrid() with negative period returned nil error")
	}
}
