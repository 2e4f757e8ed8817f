package analysis

import (
	"testing"

	"github.com/halvard/harpqc/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		present int
		want    models.Class
	}{
		{"all keywords present", len(models.KeywordNames), models.ClassComplete},
		{"no keywords present", 0, models.ClassMissing},
		{"one keyword present", 1, models.ClassIncomplete},
		{"one keyword absent", len(models.KeywordNames) - 1, models.ClassIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := record(1, slot(0), tt.present)
			if got := Classify(r); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Longitudes and quality never influence the completeness class.
func TestClassifyIgnoresNonKeywordFields(t *testing.T) {
	r := record(1, slot(0), len(models.KeywordNames))
	r.LonMin.Valid = false
	r.LonMax.Valid = false
	r.Quality = "0x0000400C"
	if got := Classify(r); got != models.ClassComplete {
		t.Errorf("Classify() = %v, want %v", got, models.ClassComplete)
	}
}

func TestClassCounts(t *testing.T) {
	var c ClassCounts
	c.Add(models.ClassComplete)
	c.Add(models.ClassComplete)
	c.Add(models.ClassComplete)
	c.Add(models.ClassIncomplete)
	c.Add(models.ClassMissing)

	if c.Total() != 5 {
		t.Errorf("Total() = %d, want 5", c.Total())
	}
	if got := c.Fraction(models.ClassComplete); got != 0.6 {
		t.Errorf("Fraction(complete) = %v, want 0.6", got)
	}
	if got := c.Fraction(models.ClassIncomplete); got != 0.2 {
		t.Errorf("Fraction(incomplete) = %v, want 0.2", got)
	}
}

func TestClassCountsEmpty(t *testing.T) {
	var c ClassCounts
	if got := c.Fraction(models.ClassComplete); got != 0 {
		t.Errorf("Fraction() on empty counts = %v, want 0", got)
	}
}
