package analysis

import (
	"sort"

	"github.com/halvard/harpqc/internal/models"
)

// FillCount reports how many records carry a value for one SHARP keyword.
type FillCount struct {
	Keyword string
	Present int
	Total   int
}

// Fraction returns the present share, or 0 when no records were counted.
func (f FillCount) Fraction() float64 {
	if f.Total == 0 {
		return 0
	}
	return float64(f.Present) / float64(f.Total)
}

// KeywordFill counts per-keyword presence across a record set, in
// models.KeywordNames order.
func KeywordFill(records []models.Record) []FillCount {
	counts := make([]FillCount, len(models.KeywordNames))
	for i, name := range models.KeywordNames {
		counts[i].Keyword = name
		counts[i].Total = len(records)
	}
	for _, r := range records {
		for i, v := range r.Keywords() {
			if v.Valid {
				counts[i].Present++
			}
		}
	}
	return counts
}

// QualityCount tallies one observed QUALITY code.
type QualityCount struct {
	Code    string
	Count   int
	Nominal bool
}

// QualityBreakdown groups records by canonicalised QUALITY code, descending
// by count with ties broken by code. Codes that fail to parse are kept under
// their raw spelling and treated as non-nominal.
func QualityBreakdown(records []models.Record) []QualityCount {
	counts := make(map[string]*QualityCount)
	for _, r := range records {
		code := r.Quality
		nominal := false
		if v, err := models.ParseQuality(r.Quality); err == nil {
			code = models.FormatQuality(v)
			nominal = v == 0
		}
		qc, ok := counts[code]
		if !ok {
			qc = &QualityCount{Code: code, Nominal: nominal}
			counts[code] = qc
		}
		qc.Count++
	}

	out := make([]QualityCount, 0, len(counts))
	for _, qc := range counts {
		out = append(out, *qc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}
