package analysis

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/halvard/harpqc/internal/metrics"
	"github.com/halvard/harpqc/internal/models"
)

// DefaultCadence is the nominal SHARP sampling period of 720 seconds.
const DefaultCadence = 12 * time.Minute

// Options tune one analysis pass. The zero value selects the SHARP cadence,
// ten lifespan bins, ten-degree longitude bins and the 68-degree extreme
// longitude threshold.
type Options struct {
	Cadence      time.Duration
	LifespanBins int
	LonEdges     []float64
	ExtremeLon   float64
}

func (o Options) withDefaults() Options {
	if o.Cadence == 0 {
		o.Cadence = DefaultCadence
	}
	if o.LifespanBins == 0 {
		o.LifespanBins = 10
	}
	if len(o.LonEdges) == 0 {
		o.LonEdges = DefaultLonEdges()
	}
	if o.ExtremeLon == 0 {
		o.ExtremeLon = models.ExtremeLongitude
	}
	return o
}

// EntityResult bundles everything the analysis derived for one entity.
type EntityResult struct {
	Entity
	Analyzed []models.AnalyzedRecord
	Spans    []models.Span
	Summary  models.EntitySummary
}

// Result is the output of one full analysis pass over a record table.
type Result struct {
	Started time.Time
	Elapsed time.Duration
	Loaded  int

	Entities []EntityResult
	Issues   []EntityIssue

	Totals        ClassCounts
	KeywordFill   []FillCount
	Quality       []QualityCount
	Coverage      Coverage
	LifespanBins  []Bin
	LongitudeBins []Bin

	ImputedMin  int
	ImputedMax  int
	ExtremeLow  int
	ExtremeHigh int
	ExtremeLon  float64 // threshold the extreme counts were measured against
}

// Analyze runs the whole pass: partition records per entity, classify
// completeness, impute longitudes, segment class runs, then derive the
// dataset-wide coverage grid and binned proportions. Entities that fail a
// stage are logged, recorded as issues and skipped for that stage; the batch
// itself never aborts on bad data.
func Analyze(records []models.Record, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if opts.Cadence <= 0 {
		return nil, fmt.Errorf("cadence must be positive, got %s", opts.Cadence)
	}

	started := time.Now()
	res := &Result{Started: started, Loaded: len(records), ExtremeLon: opts.ExtremeLon}

	entities, issues := Partition(records)
	res.Issues = issues
	for _, iss := range issues {
		log.Printf("analysis: HARP %d rejected: %v", iss.HARPNum, iss.Err)
		metrics.EntityIssues.WithLabelValues(iss.Stage).Inc()
	}

	accepted := make([]models.Record, 0, len(records))
	for _, ent := range entities {
		er, entIssues := analyzeEntity(ent, opts.ExtremeLon)
		res.Entities = append(res.Entities, er)
		res.Issues = append(res.Issues, entIssues...)

		accepted = append(accepted, ent.Records...)
		res.Totals.Complete += er.Summary.Complete
		res.Totals.Incomplete += er.Summary.Incomplete
		res.Totals.Missing += er.Summary.Missing
		res.ImputedMin += er.Summary.LonMinImputed
		res.ImputedMax += er.Summary.LonMaxImputed
		for _, ar := range er.Analyzed {
			if ar.LonExtremeLow {
				res.ExtremeLow++
			}
			if ar.LonExtremeHigh {
				res.ExtremeHigh++
			}
		}
	}

	res.KeywordFill = KeywordFill(accepted)
	res.Quality = QualityBreakdown(accepted)
	res.LifespanBins = BinByLifespan(res.Entities, opts.LifespanBins)
	res.LongitudeBins = BinByMaxAbsLon(res.Entities, opts.LonEdges)

	// Coverage looks at raw input timestamps so rejected entities still
	// count toward the dataset's observed grid.
	times := make([]time.Time, 0, len(records))
	for _, r := range records {
		times = append(times, r.ObservedAt)
	}
	cov, err := CoverageGrid(times, opts.Cadence)
	if err != nil {
		return nil, fmt.Errorf("building coverage grid: %w", err)
	}
	res.Coverage = cov

	res.Elapsed = time.Since(started)
	metrics.AnalysisDuration.WithLabelValues("analyze").Observe(res.Elapsed.Seconds())
	return res, nil
}

func analyzeEntity(ent Entity, extremeLon float64) (EntityResult, []EntityIssue) {
	n := len(ent.Records)
	classes := make([]models.Class, n)
	analyzed := make([]models.AnalyzedRecord, n)
	summary := models.EntitySummary{HARPNum: ent.HARPNum, Records: n}
	var issues []EntityIssue

	for i, r := range ent.Records {
		class := Classify(r)
		classes[i] = class
		metrics.RecordsClassified.WithLabelValues(class.String()).Inc()

		ar := models.AnalyzedRecord{Record: r, Class: class}
		if n > 1 {
			ar.LifespanFrac = float64(i) / float64(n-1)
		}
		analyzed[i] = ar

		switch class {
		case models.ClassComplete:
			summary.Complete++
		case models.ClassIncomplete:
			summary.Incomplete++
		case models.ClassMissing:
			summary.Missing++
		}
		if models.QualityNominal(r.Quality) {
			summary.NominalQuality++
		}
	}

	lonMin, lonMax := ImputeLongitudes(ent.Records)
	if lonMin.Err != nil {
		summary.LonMinUnimputable = true
		issues = append(issues, EntityIssue{
			HARPNum: ent.HARPNum,
			Stage:   "impute",
			Err:     fmt.Errorf("lon_min: %w", lonMin.Err),
		})
		log.Printf("analysis: HARP %d lon_min not imputable: %v", ent.HARPNum, lonMin.Err)
		metrics.EntityIssues.WithLabelValues("impute").Inc()
	}
	if lonMax.Err != nil {
		summary.LonMaxUnimputable = true
		issues = append(issues, EntityIssue{
			HARPNum: ent.HARPNum,
			Stage:   "impute",
			Err:     fmt.Errorf("lon_max: %w", lonMax.Err),
		})
		log.Printf("analysis: HARP %d lon_max not imputable: %v", ent.HARPNum, lonMax.Err)
		metrics.EntityIssues.WithLabelValues("impute").Inc()
	}

	firstMin, lastMin := observedBounds(ent.Records, lonMinOf)
	firstMax, lastMax := observedBounds(ent.Records, lonMaxOf)
	for i := range analyzed {
		if lonMin.Err == nil {
			analyzed[i].LonMin = sql.NullFloat64{Float64: lonMin.Values[i], Valid: true}
			if lonMin.Imputed[i] {
				analyzed[i].LonMinImputed = true
				summary.LonMinImputed++
				metrics.LongitudesImputed.WithLabelValues("lon_min", fillMethod(i, firstMin, lastMin)).Inc()
			}
			if lonMin.Values[i] < -extremeLon {
				analyzed[i].LonExtremeLow = true
			}
		}
		if lonMax.Err == nil {
			analyzed[i].LonMax = sql.NullFloat64{Float64: lonMax.Values[i], Valid: true}
			if lonMax.Imputed[i] {
				analyzed[i].LonMaxImputed = true
				summary.LonMaxImputed++
				metrics.LongitudesImputed.WithLabelValues("lon_max", fillMethod(i, firstMax, lastMax)).Inc()
			}
			if lonMax.Values[i] > extremeLon {
				analyzed[i].LonExtremeHigh = true
			}
		}
		// The composite needs both sides resolved to be meaningful.
		if lonMin.Err == nil && lonMax.Err == nil {
			m := math.Max(math.Abs(lonMin.Values[i]), math.Abs(lonMax.Values[i]))
			analyzed[i].MaxAbsLon = sql.NullFloat64{Float64: m, Valid: true}
			if !summary.MaxAbsLon.Valid || m > summary.MaxAbsLon.Float64 {
				summary.MaxAbsLon = sql.NullFloat64{Float64: m, Valid: true}
			}
		}
	}

	spans := AnnotateSpans(ent.Records, Segment(classes))
	for _, s := range spans {
		if s.Class == models.ClassMissing && s.Count > summary.LongestGap {
			summary.LongestGap = s.Count
			summary.LongestGapElapsed = s.Elapsed
		}
	}

	summary.FirstObserved = ent.Records[0].ObservedAt
	summary.LastObserved = ent.Records[n-1].ObservedAt
	summary.Lifetime = summary.LastObserved.Sub(summary.FirstObserved)

	return EntityResult{
		Entity:   ent,
		Analyzed: analyzed,
		Spans:    spans,
		Summary:  summary,
	}, issues
}

func lonMinOf(r models.Record) sql.NullFloat64 { return r.LonMin }
func lonMaxOf(r models.Record) sql.NullFloat64 { return r.LonMax }

// observedBounds reports the first and last index with an observed value, or
// (-1, -1) when the field is never observed.
func observedBounds(recs []models.Record, field func(models.Record) sql.NullFloat64) (first, last int) {
	first, last = -1, -1
	for i, r := range recs {
		if field(r).Valid {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

// fillMethod names how a filled position was resolved: interior positions by
// interpolation, positions outside the observed span by regression.
func fillMethod(i, firstObserved, lastObserved int) string {
	if i < firstObserved || i > lastObserved {
		return "regression"
	}
	return "interpolation"
}
