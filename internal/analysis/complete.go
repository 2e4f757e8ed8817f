package analysis

import (
	"github.com/halvard/harpqc/internal/models"
)

// Classify returns the completeness class of one record over the full SHARP
// keyword set: complete when every keyword is present, missing when none is,
// incomplete otherwise.
func Classify(r models.Record) models.Class {
	present := 0
	for _, v := range r.Keywords() {
		if v.Valid {
			present++
		}
	}
	switch present {
	case 0:
		return models.ClassMissing
	case len(models.KeywordNames):
		return models.ClassComplete
	default:
		return models.ClassIncomplete
	}
}

// ClassCounts tallies records by completeness class.
type ClassCounts struct {
	Complete   int
	Incomplete int
	Missing    int
}

// Add records one classified observation.
func (c *ClassCounts) Add(class models.Class) {
	switch class {
	case models.ClassComplete:
		c.Complete++
	case models.ClassIncomplete:
		c.Incomplete++
	case models.ClassMissing:
		c.Missing++
	}
}

// Total returns the number of observations tallied.
func (c ClassCounts) Total() int {
	return c.Complete + c.Incomplete + c.Missing
}

// Fraction returns the share of observations in the given class, or 0 when
// nothing has been tallied.
func (c ClassCounts) Fraction(class models.Class) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	var n int
	switch class {
	case models.ClassComplete:
		n = c.Complete
	case models.ClassIncomplete:
		n = c.Incomplete
	case models.ClassMissing:
		n = c.Missing
	}
	return float64(n) / float64(total)
}
