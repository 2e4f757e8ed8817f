package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/models"
)

// View is everything the report template needs. Fractions stay numeric so
// the template can format and size bars with the same value; nullable and
// duration fields are pre-rendered.
type View struct {
	Source      string
	GeneratedAt time.Time
	Summary     string

	Loaded      int
	EntityCount int
	IssueCount  int
	Truncated   bool

	Complete       int
	Incomplete     int
	Missing        int
	CompleteFrac   float64
	IncompleteFrac float64
	MissingFrac    float64

	ImputedMin  int
	ImputedMax  int
	ExtremeLow  int
	ExtremeHigh int
	ExtremeLon  float64

	HasCoverage bool
	Coverage    CoverageView
	HasTimeline bool

	Lifespan  []BinView
	Longitude []BinView

	KeywordFill []FillView
	Quality     []analysis.QualityCount
	Entities    []EntityView
	Issues      []IssueView
}

type CoverageView struct {
	Slots    int
	Observed int
	OffGrid  int
	Fraction float64
	Start    string
	End      string
	Gaps     int
}

type BinView struct {
	Label      string
	Total      int
	Complete   float64
	Incomplete float64
	Missing    float64
}

type FillView struct {
	Keyword  string
	Present  int
	Total    int
	Fraction float64
}

type EntityView struct {
	HARPNum        int
	Records        int
	First          string
	Last           string
	Lifetime       string
	Complete       int
	Incomplete     int
	Missing        int
	CompleteFrac   float64
	NominalQuality int
	Imputed        string
	MaxAbsLon      string
	LongestGap     string
}

type IssueView struct {
	HARPNum int
	Stage   string
	Detail  string
}

const viewTimeLayout = "2006-01-02 15:04"

func buildView(res *analysis.Result, opts Options) View {
	v := View{
		Source:      opts.Source,
		GeneratedAt: time.Now().UTC(),
		Summary:     opts.Summary,

		Loaded:      res.Loaded,
		EntityCount: len(res.Entities),
		IssueCount:  len(res.Issues),

		Complete:       res.Totals.Complete,
		Incomplete:     res.Totals.Incomplete,
		Missing:        res.Totals.Missing,
		CompleteFrac:   res.Totals.Fraction(models.ClassComplete),
		IncompleteFrac: res.Totals.Fraction(models.ClassIncomplete),
		MissingFrac:    res.Totals.Fraction(models.ClassMissing),

		ImputedMin:  res.ImputedMin,
		ImputedMax:  res.ImputedMax,
		ExtremeLow:  res.ExtremeLow,
		ExtremeHigh: res.ExtremeHigh,
		ExtremeLon:  res.ExtremeLon,

		Quality: res.Quality,
	}

	if len(res.Coverage.Grid) > 0 {
		grid := res.Coverage.Grid
		gaps := 0
		for _, run := range res.Coverage.Runs {
			if !run.Observed {
				gaps++
			}
		}
		v.HasCoverage = true
		v.Coverage = CoverageView{
			Slots:    len(grid),
			Observed: res.Coverage.Observed,
			OffGrid:  res.Coverage.OffGrid,
			Fraction: res.Coverage.Fraction(),
			Start:    grid[0].Time.UTC().Format(viewTimeLayout),
			End:      grid[len(grid)-1].Time.UTC().Format(viewTimeLayout),
			Gaps:     gaps,
		}
	}

	v.Lifespan = binViews(res.LifespanBins)
	v.Longitude = binViews(res.LongitudeBins)

	for _, fc := range res.KeywordFill {
		v.KeywordFill = append(v.KeywordFill, FillView{
			Keyword:  fc.Keyword,
			Present:  fc.Present,
			Total:    fc.Total,
			Fraction: fc.Fraction(),
		})
	}

	v.HasTimeline = len(res.Entities) > 0

	top := topEntityResults(res.Entities, opts.TopEntities)
	v.Truncated = len(top) < len(res.Entities)
	for _, ent := range top {
		sum := ent.Summary
		ev := EntityView{
			HARPNum:        sum.HARPNum,
			Records:        sum.Records,
			First:          sum.FirstObserved.UTC().Format(viewTimeLayout),
			Last:           sum.LastObserved.UTC().Format(viewTimeLayout),
			Lifetime:       formatDuration(sum.Lifetime),
			Complete:       sum.Complete,
			Incomplete:     sum.Incomplete,
			Missing:        sum.Missing,
			NominalQuality: sum.NominalQuality,
			Imputed:        fmt.Sprintf("%d / %d", sum.LonMinImputed, sum.LonMaxImputed),
			MaxAbsLon:      "-",
			LongestGap:     "-",
		}
		if sum.Records > 0 {
			ev.CompleteFrac = float64(sum.Complete) / float64(sum.Records)
		}
		if sum.LonMinUnimputable || sum.LonMaxUnimputable {
			ev.Imputed += " (unimputable)"
		}
		if sum.MaxAbsLon.Valid {
			ev.MaxAbsLon = fmt.Sprintf("%.1f", sum.MaxAbsLon.Float64)
		}
		if sum.LongestGap > 0 {
			ev.LongestGap = fmt.Sprintf("%d records (%s)", sum.LongestGap, formatDuration(sum.LongestGapElapsed))
		}
		v.Entities = append(v.Entities, ev)
	}

	for _, iss := range res.Issues {
		v.Issues = append(v.Issues, IssueView{
			HARPNum: iss.HARPNum,
			Stage:   iss.Stage,
			Detail:  iss.Err.Error(),
		})
	}

	return v
}

// topEntityResults picks the n entities with the most records, or returns
// the whole set in partition order when n is zero or not exceeded.
func topEntityResults(entities []analysis.EntityResult, n int) []analysis.EntityResult {
	if n <= 0 || len(entities) <= n {
		return entities
	}
	sorted := make([]analysis.EntityResult, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Summary.Records > sorted[j].Summary.Records
	})
	return sorted[:n]
}

func binViews(bins []analysis.Bin) []BinView {
	views := make([]BinView, 0, len(bins))
	for _, b := range bins {
		views = append(views, BinView{
			Label:      b.Label(),
			Total:      b.Counts.Total(),
			Complete:   b.Counts.Fraction(models.ClassComplete),
			Incomplete: b.Counts.Fraction(models.ClassIncomplete),
			Missing:    b.Counts.Fraction(models.ClassMissing),
		})
	}
	return views
}

// formatDuration renders elapsed time in days and hours, the scale HARP
// lifetimes live at.
func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if days == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dd %dh", days, hours)
}
