package report

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/models"
)

// writeCSVs dumps the derived tables next to the HTML page so the numbers
// behind every chart stay inspectable.
func writeCSVs(dir string, res *analysis.Result) error {
	tables := []struct {
		name  string
		write func(w io.Writer, res *analysis.Result) error
	}{
		{"entity_summaries.csv", writeSummaries},
		{"class_spans.csv", writeSpans},
		{"entity_issues.csv", writeIssues},
		{"bin_proportions.csv", writeBins},
		{"coverage.csv", writeCoverage},
		{"keyword_fill.csv", writeKeywordFill},
		{"quality_codes.csv", writeQuality},
	}

	for _, tbl := range tables {
		f, err := os.Create(filepath.Join(dir, tbl.name))
		if err != nil {
			return fmt.Errorf("create %s: %w", tbl.name, err)
		}
		if err := tbl.write(f, res); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", tbl.name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", tbl.name, err)
		}
	}

	return nil
}

func writeSummaries(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{
		"harpnum", "records", "first_observed", "last_observed", "lifetime_ms",
		"complete", "incomplete", "missing", "nominal_quality",
		"lon_min_imputed", "lon_max_imputed", "lon_min_unimputable", "lon_max_unimputable",
		"max_abs_lon", "longest_gap", "longest_gap_ms",
	})
	for _, ent := range res.Entities {
		s := ent.Summary
		cw.Write([]string{
			strconv.Itoa(s.HARPNum),
			strconv.Itoa(s.Records),
			s.FirstObserved.UTC().Format(time.RFC3339),
			s.LastObserved.UTC().Format(time.RFC3339),
			strconv.FormatInt(s.Lifetime.Milliseconds(), 10),
			strconv.Itoa(s.Complete),
			strconv.Itoa(s.Incomplete),
			strconv.Itoa(s.Missing),
			strconv.Itoa(s.NominalQuality),
			strconv.Itoa(s.LonMinImputed),
			strconv.Itoa(s.LonMaxImputed),
			strconv.FormatBool(s.LonMinUnimputable),
			strconv.FormatBool(s.LonMaxUnimputable),
			nullFloat(s.MaxAbsLon),
			strconv.Itoa(s.LongestGap),
			strconv.FormatInt(s.LongestGapElapsed.Milliseconds(), 10),
		})
	}
	cw.Flush()
	return cw.Error()
}

func writeSpans(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"harpnum", "class", "start_index", "end_index", "record_count", "started_at", "ended_at", "elapsed_ms"})
	for _, ent := range res.Entities {
		for _, span := range ent.Spans {
			cw.Write([]string{
				strconv.Itoa(ent.HARPNum),
				span.Class.String(),
				strconv.Itoa(span.Start),
				strconv.Itoa(span.End),
				strconv.Itoa(span.Count),
				span.StartAt.UTC().Format(time.RFC3339),
				span.EndAt.UTC().Format(time.RFC3339),
				strconv.FormatInt(span.Elapsed.Milliseconds(), 10),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeIssues(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"harpnum", "stage", "detail"})
	for _, iss := range res.Issues {
		cw.Write([]string{strconv.Itoa(iss.HARPNum), iss.Stage, iss.Err.Error()})
	}
	cw.Flush()
	return cw.Error()
}

func writeBins(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"dimension", "lo", "hi", "complete", "incomplete", "missing"})
	dims := []struct {
		name string
		bins []analysis.Bin
	}{
		{"lifespan_fraction", res.LifespanBins},
		{"max_abs_longitude", res.LongitudeBins},
	}
	for _, dim := range dims {
		for _, b := range dim.bins {
			cw.Write([]string{
				dim.name,
				formatFloat(b.Lo),
				formatFloat(b.Hi),
				strconv.Itoa(b.Counts.Complete),
				strconv.Itoa(b.Counts.Incomplete),
				strconv.Itoa(b.Counts.Missing),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCoverage(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"slot_time", "observed"})
	for _, pt := range res.Coverage.Grid {
		cw.Write([]string{pt.Time.UTC().Format(time.RFC3339), strconv.FormatBool(pt.Observed)})
	}
	cw.Flush()
	return cw.Error()
}

func writeKeywordFill(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"keyword", "present", "total"})
	for _, fc := range res.KeywordFill {
		cw.Write([]string{fc.Keyword, strconv.Itoa(fc.Present), strconv.Itoa(fc.Total)})
	}
	cw.Flush()
	return cw.Error()
}

func writeQuality(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"code", "count", "nominal"})
	for _, qc := range res.Quality {
		cw.Write([]string{qc.Code, strconv.Itoa(qc.Count), strconv.FormatBool(qc.Nominal)})
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecords streams the per-record annotated table: every input record
// that survived partitioning, with its class, resolved longitudes and
// lifespan position.
func WriteRecords(w io.Writer, res *analysis.Result) error {
	var records []models.AnalyzedRecord
	for _, ent := range res.Entities {
		records = append(records, ent.Analyzed...)
	}
	return WriteAnalyzedRecords(w, records)
}

// WriteAnalyzedRecords writes the same table from a flat record slice, as
// read back from a stored run.
func WriteAnalyzedRecords(w io.Writer, records []models.AnalyzedRecord) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{
		"harpnum", "t_rec", "class", "quality",
		"lon_min", "lon_max", "lon_min_imputed", "lon_max_imputed",
		"extreme_west", "extreme_east", "max_abs_lon", "lifespan_frac",
	})
	for _, rec := range records {
		cw.Write([]string{
			strconv.Itoa(rec.HARPNum),
			rec.ObservedAt.UTC().Format(time.RFC3339),
			rec.Class.String(),
			rec.Quality,
			nullFloat(rec.LonMin),
			nullFloat(rec.LonMax),
			strconv.FormatBool(rec.LonMinImputed),
			strconv.FormatBool(rec.LonMaxImputed),
			strconv.FormatBool(rec.LonExtremeLow),
			strconv.FormatBool(rec.LonExtremeHigh),
			nullFloat(rec.MaxAbsLon),
			formatFloat(rec.LifespanFrac),
		})
	}
	cw.Flush()
	return cw.Error()
}

func nullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
