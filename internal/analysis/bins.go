package analysis

import (
	"fmt"
	"math"
)

// Bin is one row of a binned class-proportion table. Lo is inclusive and Hi
// exclusive, except for the final bin of a table, which is closed above so
// the domain maximum has a home.
type Bin struct {
	Lo     float64
	Hi     float64
	Counts ClassCounts
}

// Label renders the bin interval for report tables.
func (b Bin) Label() string {
	return fmt.Sprintf("[%g, %g)", b.Lo, b.Hi)
}

// BinByLifespan tallies completeness classes over n equal-width bins of
// lifespan fraction, which lives in [0, 1].
func BinByLifespan(entities []EntityResult, n int) []Bin {
	if n <= 0 {
		n = 10
	}
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = float64(i) / float64(n)
	}
	bins := newBins(edges)
	for _, ent := range entities {
		for _, rec := range ent.Analyzed {
			if i, ok := locate(edges, rec.LifespanFrac); ok {
				bins[i].Counts.Add(rec.Class)
			}
		}
	}
	return bins
}

// BinByMaxAbsLon tallies completeness classes over the supplied ascending
// degree edges of post-imputation maximum absolute longitude. Records whose
// longitude could not be resolved are skipped.
func BinByMaxAbsLon(entities []EntityResult, edges []float64) []Bin {
	bins := newBins(edges)
	for _, ent := range entities {
		for _, rec := range ent.Analyzed {
			if !rec.MaxAbsLon.Valid {
				continue
			}
			if i, ok := locate(edges, rec.MaxAbsLon.Float64); ok {
				bins[i].Counts.Add(rec.Class)
			}
		}
	}
	return bins
}

func newBins(edges []float64) []Bin {
	bins := make([]Bin, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		bins = append(bins, Bin{Lo: edges[i], Hi: edges[i+1]})
	}
	return bins
}

// locate finds the bin index for v in ascending edges, half-open except the
// final bin, which includes its upper edge. Values outside the edges and
// NaNs report no bin.
func locate(edges []float64, v float64) (int, bool) {
	if len(edges) < 2 || math.IsNaN(v) || v < edges[0] || v > edges[len(edges)-1] {
		return 0, false
	}
	for i := 1; i < len(edges); i++ {
		if v < edges[i] {
			return i - 1, true
		}
	}
	return len(edges) - 2, true
}

// DefaultLonEdges is the report's longitude binning, ten-degree steps out to
// the solar limb.
func DefaultLonEdges() []float64 {
	return []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}
}
