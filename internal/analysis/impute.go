package analysis

import (
	"database/sql"
	"errors"

	"github.com/halvard/harpqc/internal/models"
)

// ErrNoObservations reports a series with zero observed values. Interior
// interpolation has nothing to bracket with and the regression fallback has
// nothing to fit, so the series cannot be imputed at all.
var ErrNoObservations = errors.New("no observed values in series")

// FillSeries resolves every null in a time-ordered series and reports which
// positions it filled. Interior nulls are linearly interpolated between the
// nearest observed neighbours, using sequence position as the abscissa.
// Leading and trailing nulls are then extrapolated from a least-squares line
// fitted over all resolved positions, the just-interpolated ones included.
// Observed values are returned untouched. Returns ErrNoObservations when the
// series holds no observed value.
func FillSeries(series []sql.NullFloat64) ([]float64, []bool, error) {
	n := len(series)
	filled := make([]float64, n)
	imputed := make([]bool, n)

	first, last := -1, -1
	for i, v := range series {
		if v.Valid {
			filled[i] = v.Float64
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, nil, ErrNoObservations
	}

	// Interior gaps between consecutive observed anchors.
	prev := first
	for i := first + 1; i <= last; i++ {
		if !series[i].Valid {
			continue
		}
		if i > prev+1 {
			span := float64(i - prev)
			rise := series[i].Float64 - series[prev].Float64
			for k := prev + 1; k < i; k++ {
				filled[k] = series[prev].Float64 + rise*float64(k-prev)/span
				imputed[k] = true
			}
		}
		prev = i
	}

	// Boundary gaps: extend the trend line fitted over [first, last].
	if first > 0 || last < n-1 {
		slope, intercept := linearFit(filled, first, last)
		for i := 0; i < first; i++ {
			filled[i] = intercept + slope*float64(i)
			imputed[i] = true
		}
		for i := last + 1; i < n; i++ {
			filled[i] = intercept + slope*float64(i)
			imputed[i] = true
		}
	}

	return filled, imputed, nil
}

// linearFit computes the least-squares line over positions [first, last] of
// a fully resolved slice. A single resolved position pins the line flat
// through that value.
func linearFit(values []float64, first, last int) (slope, intercept float64) {
	count := float64(last - first + 1)
	var sumX, sumY float64
	for i := first; i <= last; i++ {
		sumX += float64(i)
		sumY += values[i]
	}
	meanX := sumX / count
	meanY := sumY / count

	var sxx, sxy float64
	for i := first; i <= last; i++ {
		dx := float64(i) - meanX
		sxx += dx * dx
		sxy += dx * (values[i] - meanY)
	}
	if sxx > 0 {
		slope = sxy / sxx
	}
	intercept = meanY - slope*meanX
	return slope, intercept
}

// LonFill is the imputation outcome for one longitude field across an
// entity's records. Err is ErrNoObservations when the field had no data, in
// which case Values and Imputed are nil.
type LonFill struct {
	Values  []float64
	Imputed []bool
	Err     error
}

// ImputeLongitudes fills the LON_MIN and LON_MAX series of one entity's
// time-ordered records. The two fields are imputed independently: one can
// succeed while the other has nothing to work from.
//
// The linear policy assumes steady apparent drift across the disk. A region
// that drops out of tracking and reappears somewhere else gets implausible
// fills; callers that care must check the Imputed flags rather than trust
// filled positions unconditionally.
func ImputeLongitudes(records []models.Record) (lonMin, lonMax LonFill) {
	mins := make([]sql.NullFloat64, len(records))
	maxs := make([]sql.NullFloat64, len(records))
	for i, r := range records {
		mins[i] = r.LonMin
		maxs[i] = r.LonMax
	}
	lonMin.Values, lonMin.Imputed, lonMin.Err = FillSeries(mins)
	lonMax.Values, lonMax.Imputed, lonMax.Err = FillSeries(maxs)
	return lonMin, lonMax
}
