package dataset

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/halvard/harpqc/internal/metrics"
	"github.com/halvard/harpqc/internal/models"
)

// taiLayout matches JSOC T_REC stamps such as 2011.02.15_00:00:00_TAI.
const taiLayout = "2006.01.02_15:04:05_TAI"

// columnMap resolves header names to field positions.
type columnMap struct {
	time     int
	harpnum  int
	quality  int
	lonMin   int
	lonMax   int
	keywords []int
}

// LoadCSV reads the whole input table from a file on disk.
func LoadCSV(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	metrics.RecordsLoaded.WithLabelValues("file").Add(float64(len(records)))
	return records, nil
}

// Read decodes a header-mapped CSV table of SHARP records. Column order is
// free, header names are case-insensitive, and the timestamp column may be
// called either T_REC or TIMESTAMP. Empty, NaN and MISSING cells become null
// values; anything else that fails to parse is an error naming the row and
// column.
func Read(r io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cm, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		rec, err := decodeRow(cm, row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func mapColumns(header []string) (columnMap, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToUpper(strings.TrimSpace(name))] = i
	}

	cm := columnMap{keywords: make([]int, len(models.KeywordNames))}

	var ok bool
	if cm.time, ok = idx["T_REC"]; !ok {
		if cm.time, ok = idx["TIMESTAMP"]; !ok {
			return cm, fmt.Errorf("input table missing timestamp column (T_REC or TIMESTAMP)")
		}
	}
	if cm.harpnum, ok = idx["HARPNUM"]; !ok {
		return cm, fmt.Errorf("input table missing column HARPNUM")
	}
	if cm.quality, ok = idx["QUALITY"]; !ok {
		return cm, fmt.Errorf("input table missing column QUALITY")
	}
	if cm.lonMin, ok = idx["LON_MIN"]; !ok {
		return cm, fmt.Errorf("input table missing column LON_MIN")
	}
	if cm.lonMax, ok = idx["LON_MAX"]; !ok {
		return cm, fmt.Errorf("input table missing column LON_MAX")
	}
	for i, name := range models.KeywordNames {
		if cm.keywords[i], ok = idx[name]; !ok {
			return cm, fmt.Errorf("input table missing column %s", name)
		}
	}
	return cm, nil
}

func decodeRow(cm columnMap, row []string, line int) (models.Record, error) {
	var rec models.Record

	at, err := parseTime(strings.TrimSpace(row[cm.time]))
	if err != nil {
		return rec, fmt.Errorf("row %d: %w", line, err)
	}
	rec.ObservedAt = at

	harp, err := strconv.Atoi(strings.TrimSpace(row[cm.harpnum]))
	if err != nil {
		return rec, fmt.Errorf("row %d: column HARPNUM: parse %q: %w", line, row[cm.harpnum], err)
	}
	rec.HARPNum = harp
	rec.Quality = strings.TrimSpace(row[cm.quality])

	for i, col := range cm.keywords {
		v, err := parseCell(row[col])
		if err != nil {
			return rec, fmt.Errorf("row %d: column %s: %w", line, models.KeywordNames[i], err)
		}
		rec.SetKeyword(i, v)
	}
	if rec.LonMin, err = parseCell(row[cm.lonMin]); err != nil {
		return rec, fmt.Errorf("row %d: column LON_MIN: %w", line, err)
	}
	if rec.LonMax, err = parseCell(row[cm.lonMax]); err != nil {
		return rec, fmt.Errorf("row %d: column LON_MAX: %w", line, err)
	}
	return rec, nil
}

// parseCell decodes one numeric cell. Empty cells and the archive's NaN and
// MISSING markers are null, not errors.
func parseCell(s string) (sql.NullFloat64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "missing":
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

// parseTime accepts RFC3339 or the JSOC TAI form. TAI stamps carry no zone,
// so they come back as UTC wall times; only ordering and spacing matter
// downstream.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(taiLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
