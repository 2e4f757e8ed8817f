package analysis

import (
	"fmt"
	"sort"
	"time"
)

// GridPoint is one expected observation slot on the dataset-wide cadence
// grid.
type GridPoint struct {
	Time     time.Time
	Observed bool
}

// CoverageRun is a maximal stretch of consecutive grid points that are all
// observed or all absent.
type CoverageRun struct {
	Observed bool
	Start    time.Time
	End      time.Time
	Points   int
}

// Coverage describes how completely the dataset's observation times fill the
// nominal cadence grid spanning the first and last distinct timestamp.
type Coverage struct {
	Period   time.Duration
	Grid     []GridPoint
	Observed int // grid slots with a matching observation
	OffGrid  int // distinct timestamps falling between slots
	Runs     []CoverageRun
}

// Fraction returns the share of grid slots that were observed, or 0 for an
// empty grid.
func (c Coverage) Fraction() float64 {
	if len(c.Grid) == 0 {
		return 0
	}
	return float64(c.Observed) / float64(len(c.Grid))
}

// CoverageGrid builds the expected timestamp grid at the given period from
// the dataset minimum to the dataset maximum and marks each slot observed or
// absent. Timestamps are deduplicated first; a timestamp that matches no
// slot exactly is tallied as off-grid rather than dropped or snapped.
func CoverageGrid(times []time.Time, period time.Duration) (Coverage, error) {
	if period <= 0 {
		return Coverage{}, fmt.Errorf("coverage period must be positive, got %s", period)
	}
	cov := Coverage{Period: period}
	if len(times) == 0 {
		return cov, nil
	}

	distinct := make(map[int64]struct{}, len(times))
	for _, t := range times {
		distinct[t.UnixNano()] = struct{}{}
	}
	stamps := make([]int64, 0, len(distinct))
	for ns := range distinct {
		stamps = append(stamps, ns)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	min, max := stamps[0], stamps[len(stamps)-1]
	step := period.Nanoseconds()
	for _, ns := range stamps {
		if (ns-min)%step != 0 {
			cov.OffGrid++
		}
	}

	slots := (max-min)/step + 1
	cov.Grid = make([]GridPoint, 0, slots)
	flags := make([]bool, 0, slots)
	for ns := min; ns <= max; ns += step {
		_, ok := distinct[ns]
		cov.Grid = append(cov.Grid, GridPoint{Time: time.Unix(0, ns).UTC(), Observed: ok})
		flags = append(flags, ok)
		if ok {
			cov.Observed++
		}
	}

	for _, run := range Segment(flags) {
		cov.Runs = append(cov.Runs, CoverageRun{
			Observed: run.Value,
			Start:    cov.Grid[run.Start].Time,
			End:      cov.Grid[run.End].Time,
			Points:   run.Length,
		})
	}
	return cov, nil
}
