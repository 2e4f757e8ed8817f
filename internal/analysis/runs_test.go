package analysis

import (
	"testing"
	"time"

	"github.com/halvard/harpqc/internal/models"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name   string
		values []bool
		want   []Run[bool]
	}{
		{"empty", nil, nil},
		{"single", []bool{true}, []Run[bool]{{true, 0, 0, 1}}},
		{"uniform", []bool{true, true, true}, []Run[bool]{{true, 0, 2, 3}}},
		{"alternating", []bool{true, false, true}, []Run[bool]{
			{true, 0, 0, 1},
			{false, 1, 1, 1},
			{true, 2, 2, 1},
		}},
		{"grouped", []bool{true, true, false, false, false, true}, []Run[bool]{
			{true, 0, 1, 2},
			{false, 2, 4, 3},
			{true, 5, 5, 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.values)
			if len(got) != len(tt.want) {
				t.Fatalf("Segment() returned %d runs, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("run %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSegmentCoversInput(t *testing.T) {
	values := []models.Class{
		models.ClassComplete, models.ClassComplete, models.ClassMissing,
		models.ClassIncomplete, models.ClassIncomplete, models.ClassIncomplete,
		models.ClassComplete, models.ClassMissing, models.ClassMissing,
	}
	runs := Segment(values)

	total := 0
	prevEnd := -1
	for i, run := range runs {
		if run.Start != prevEnd+1 {
			t.Errorf("run %d starts at %d, want %d", i, run.Start, prevEnd+1)
		}
		if run.Length != run.End-run.Start+1 {
			t.Errorf("run %d length = %d, want %d", i, run.Length, run.End-run.Start+1)
		}
		if i > 0 && runs[i-1].Value == run.Value {
			t.Errorf("runs %d and %d share value %v", i-1, i, run.Value)
		}
		for j := run.Start; j <= run.End; j++ {
			if values[j] != run.Value {
				t.Errorf("position %d has class %v inside a %v run", j, values[j], run.Value)
			}
		}
		prevEnd = run.End
		total += run.Length
	}
	if total != len(values) {
		t.Errorf("run lengths sum to %d, want %d", total, len(values))
	}
}

func TestAnnotateSpans(t *testing.T) {
	records := []models.Record{
		{ObservedAt: slot(0)},
		{ObservedAt: slot(1)},
		{ObservedAt: slot(2)},
		{ObservedAt: slot(3)},
	}
	runs := []Run[models.Class]{
		{models.ClassComplete, 0, 1, 2},
		{models.ClassMissing, 2, 3, 2},
	}

	spans := AnnotateSpans(records, runs)
	if len(spans) != 2 {
		t.Fatalf("AnnotateSpans() returned %d spans, want 2", len(spans))
	}
	if !spans[0].StartAt.Equal(slot(0)) || !spans[0].EndAt.Equal(slot(1)) {
		t.Errorf("span 0 covers %v..%v, want %v..%v", spans[0].StartAt, spans[0].EndAt, slot(0), slot(1))
	}
	if spans[0].Elapsed != DefaultCadence {
		t.Errorf("span 0 elapsed = %v, want %v", spans[0].Elapsed, DefaultCadence)
	}
	if spans[1].Class != models.ClassMissing || spans[1].Count != 2 {
		t.Errorf("span 1 = %+v, want missing run of 2", spans[1])
	}
}

func TestAnnotateSpansSingleRecord(t *testing.T) {
	records := []models.Record{{ObservedAt: slot(0)}}
	spans := AnnotateSpans(records, Segment([]models.Class{models.ClassComplete}))
	if len(spans) != 1 {
		t.Fatalf("AnnotateSpans() returned %d spans, want 1", len(spans))
	}
	if spans[0].Elapsed != time.Duration(0) {
		t.Errorf("singleton span elapsed = %v, want 0", spans[0].Elapsed)
	}
}
