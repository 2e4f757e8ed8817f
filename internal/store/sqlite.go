package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RunInfo is the stored header row of one analysis run.
type RunInfo struct {
	RunID            string
	Source           string
	StartedAt        time.Time
	Elapsed          time.Duration
	RecordsLoaded    int
	Entities         int
	Complete         int
	Incomplete       int
	Missing          int
	ImputedMin       int
	ImputedMax       int
	ExtremeLow       int
	ExtremeHigh      int
	CoverageFraction float64
}

// SaveRun persists one analysis result under a fresh run id: the header row,
// per-entity summaries, the augmented per-record rows, class spans, issues,
// the coverage grid and both bin tables, all in a single transaction.
func (s *Store) SaveRun(res *analysis.Result, source string) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO analysis_runs (run_id, source, started_at, elapsed_ms, records_loaded, entities,
			complete_records, incomplete_records, missing_records,
			imputed_lon_min, imputed_lon_max, extreme_low, extreme_high, coverage_fraction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, source, res.Started.UTC(), res.Elapsed.Milliseconds(), res.Loaded, len(res.Entities),
		res.Totals.Complete, res.Totals.Incomplete, res.Totals.Missing,
		res.ImputedMin, res.ImputedMax, res.ExtremeLow, res.ExtremeHigh, res.Coverage.Fraction()); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, ent := range res.Entities {
		sum := ent.Summary
		if _, err := tx.Exec(`
			INSERT INTO entity_summaries (run_id, harpnum, records, first_observed, last_observed, lifetime_ms,
				complete_records, incomplete_records, missing_records, nominal_quality,
				imputed_lon_min, imputed_lon_max, lon_min_unimputable, lon_max_unimputable,
				max_abs_lon, longest_gap, longest_gap_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, sum.HARPNum, sum.Records, sum.FirstObserved.UTC(), sum.LastObserved.UTC(), sum.Lifetime.Milliseconds(),
			sum.Complete, sum.Incomplete, sum.Missing, sum.NominalQuality,
			sum.LonMinImputed, sum.LonMaxImputed, sum.LonMinUnimputable, sum.LonMaxUnimputable,
			sum.MaxAbsLon, sum.LongestGap, sum.LongestGapElapsed.Milliseconds()); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("insert summary for HARP %d: %w", sum.HARPNum, err)
		}

		for _, ar := range ent.Analyzed {
			if _, err := tx.Exec(`
				INSERT INTO analyzed_records (run_id, harpnum, observed_at, class, quality,
					lon_min, lon_max, lon_min_imputed, lon_max_imputed,
					extreme_west, extreme_east, max_abs_lon, lifespan_frac)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, runID, ar.HARPNum, ar.ObservedAt.UTC(), ar.Class.String(), ar.Quality,
				ar.LonMin, ar.LonMax, ar.LonMinImputed, ar.LonMaxImputed,
				ar.LonExtremeLow, ar.LonExtremeHigh, ar.MaxAbsLon, ar.LifespanFrac); err != nil {
				tx.Rollback()
				return "", fmt.Errorf("insert record for HARP %d: %w", ar.HARPNum, err)
			}
		}

		for _, span := range ent.Spans {
			if _, err := tx.Exec(`
				INSERT INTO class_spans (run_id, harpnum, class, start_index, end_index, record_count, started_at, ended_at, elapsed_ms)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, runID, ent.HARPNum, span.Class.String(), span.Start, span.End, span.Count,
				span.StartAt.UTC(), span.EndAt.UTC(), span.Elapsed.Milliseconds()); err != nil {
				tx.Rollback()
				return "", fmt.Errorf("insert span for HARP %d: %w", ent.HARPNum, err)
			}
		}
	}

	for _, iss := range res.Issues {
		if _, err := tx.Exec(`
			INSERT INTO entity_issues (run_id, harpnum, stage, detail)
			VALUES (?, ?, ?, ?)
		`, runID, iss.HARPNum, iss.Stage, iss.Err.Error()); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("insert issue for HARP %d: %w", iss.HARPNum, err)
		}
	}

	for _, gp := range res.Coverage.Grid {
		if _, err := tx.Exec(`
			INSERT INTO coverage_points (run_id, slot_time, observed)
			VALUES (?, ?, ?)
		`, runID, gp.Time.UTC(), gp.Observed); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("insert coverage point: %w", err)
		}
	}

	if err := insertBins(tx, runID, "lifespan_fraction", res.LifespanBins); err != nil {
		tx.Rollback()
		return "", err
	}
	if err := insertBins(tx, runID, "max_abs_longitude", res.LongitudeBins); err != nil {
		tx.Rollback()
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

func insertBins(tx *sql.Tx, runID, dimension string, bins []analysis.Bin) error {
	for _, b := range bins {
		if _, err := tx.Exec(`
			INSERT INTO bin_proportions (run_id, dimension, lo, hi, complete_records, incomplete_records, missing_records)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, dimension, b.Lo, b.Hi, b.Counts.Complete, b.Counts.Incomplete, b.Counts.Missing); err != nil {
			return fmt.Errorf("insert %s bin: %w", dimension, err)
		}
	}
	return nil
}

const runColumns = `run_id, source, started_at, elapsed_ms, records_loaded, entities,
	complete_records, incomplete_records, missing_records,
	imputed_lon_min, imputed_lon_max, extreme_low, extreme_high, coverage_fraction`

func scanRun(row interface{ Scan(...any) error }) (*RunInfo, error) {
	var ri RunInfo
	var elapsedMS int64
	err := row.Scan(&ri.RunID, &ri.Source, &ri.StartedAt, &elapsedMS, &ri.RecordsLoaded, &ri.Entities,
		&ri.Complete, &ri.Incomplete, &ri.Missing,
		&ri.ImputedMin, &ri.ImputedMax, &ri.ExtremeLow, &ri.ExtremeHigh, &ri.CoverageFraction)
	if err != nil {
		return nil, err
	}
	ri.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &ri, nil
}

func (s *Store) GetRun(runID string) (*RunInfo, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, runID)
	ri, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ri, nil
}

func (s *Store) ListRuns(limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM analysis_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		ri, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *ri)
	}
	return runs, rows.Err()
}

func (s *Store) ListEntitySummaries(runID string) ([]models.EntitySummary, error) {
	rows, err := s.db.Query(`
		SELECT harpnum, records, first_observed, last_observed, lifetime_ms,
			complete_records, incomplete_records, missing_records, nominal_quality,
			imputed_lon_min, imputed_lon_max, lon_min_unimputable, lon_max_unimputable,
			max_abs_lon, longest_gap, longest_gap_ms
		FROM entity_summaries
		WHERE run_id = ?
		ORDER BY harpnum ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.EntitySummary
	for rows.Next() {
		var sum models.EntitySummary
		var lifetimeMS, gapMS int64
		if err := rows.Scan(&sum.HARPNum, &sum.Records, &sum.FirstObserved, &sum.LastObserved, &lifetimeMS,
			&sum.Complete, &sum.Incomplete, &sum.Missing, &sum.NominalQuality,
			&sum.LonMinImputed, &sum.LonMaxImputed, &sum.LonMinUnimputable, &sum.LonMaxUnimputable,
			&sum.MaxAbsLon, &sum.LongestGap, &gapMS); err != nil {
			return nil, err
		}
		sum.Lifetime = time.Duration(lifetimeMS) * time.Millisecond
		sum.LongestGapElapsed = time.Duration(gapMS) * time.Millisecond
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *Store) ListSpans(runID string, harpnum int) ([]models.Span, error) {
	rows, err := s.db.Query(`
		SELECT class, start_index, end_index, record_count, started_at, ended_at, elapsed_ms
		FROM class_spans
		WHERE run_id = ? AND harpnum = ?
		ORDER BY start_index ASC
	`, runID, harpnum)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spans []models.Span
	for rows.Next() {
		var span models.Span
		var class string
		var elapsedMS int64
		if err := rows.Scan(&class, &span.Start, &span.End, &span.Count, &span.StartAt, &span.EndAt, &elapsedMS); err != nil {
			return nil, err
		}
		if span.Class, err = models.ParseClass(class); err != nil {
			return nil, err
		}
		span.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		spans = append(spans, span)
	}
	return spans, rows.Err()
}

// ListAnalyzedRecords returns one run's stored per-record rows for one
// entity, in time order. Only identity, longitude and derived columns are
// stored; keyword values stay on the source table.
func (s *Store) ListAnalyzedRecords(runID string, harpnum int) ([]models.AnalyzedRecord, error) {
	rows, err := s.db.Query(`
		SELECT harpnum, observed_at, class, quality, lon_min, lon_max,
			lon_min_imputed, lon_max_imputed, extreme_west, extreme_east,
			max_abs_lon, lifespan_frac
		FROM analyzed_records
		WHERE run_id = ? AND harpnum = ?
		ORDER BY observed_at ASC
	`, runID, harpnum)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AnalyzedRecord
	for rows.Next() {
		var ar models.AnalyzedRecord
		var class string
		if err := rows.Scan(&ar.HARPNum, &ar.ObservedAt, &class, &ar.Quality, &ar.LonMin, &ar.LonMax,
			&ar.LonMinImputed, &ar.LonMaxImputed, &ar.LonExtremeLow, &ar.LonExtremeHigh,
			&ar.MaxAbsLon, &ar.LifespanFrac); err != nil {
			return nil, err
		}
		if ar.Class, err = models.ParseClass(class); err != nil {
			return nil, err
		}
		records = append(records, ar)
	}
	return records, rows.Err()
}

// Issue is one stored per-entity failure.
type Issue struct {
	HARPNum int
	Stage   string
	Detail  string
}

func (s *Store) ListIssues(runID string) ([]Issue, error) {
	rows, err := s.db.Query(`
		SELECT harpnum, stage, detail
		FROM entity_issues
		WHERE run_id = ?
		ORDER BY harpnum ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		var iss Issue
		if err := rows.Scan(&iss.HARPNum, &iss.Stage, &iss.Detail); err != nil {
			return nil, err
		}
		issues = append(issues, iss)
	}
	return issues, rows.Err()
}
