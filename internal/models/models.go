package models

import (
	"database/sql"
	"fmt"
	"time"
)

// KeywordNames lists the SHARP summary parameters carried by every record,
// in dataset column order. Completeness classification is defined over
// exactly this set; longitudes and the quality code are flagged separately.
var KeywordNames = []string{
	"USFLUX",
	"MEANGAM",
	"MEANGBT",
	"MEANGBZ",
	"MEANGBH",
	"MEANJZD",
	"TOTUSJZ",
	"MEANALP",
	"MEANJZH",
	"TOTUSJH",
	"ABSNJZH",
	"SAVNCPP",
	"MEANPOT",
	"TOTPOT",
	"MEANSHR",
	"SHRGT45",
}

// Record is one HARP observation at one timestamp.
type Record struct {
	HARPNum    int
	ObservedAt time.Time
	USFlux     sql.NullFloat64
	MeanGam    sql.NullFloat64
	MeanGBT    sql.NullFloat64
	MeanGBZ    sql.NullFloat64
	MeanGBH    sql.NullFloat64
	MeanJZD    sql.NullFloat64
	TotUSJZ    sql.NullFloat64
	MeanAlp    sql.NullFloat64
	MeanJZH    sql.NullFloat64
	TotUSJH    sql.NullFloat64
	AbsNJZH    sql.NullFloat64
	SavNCPP    sql.NullFloat64
	MeanPot    sql.NullFloat64
	TotPot     sql.NullFloat64
	MeanShr    sql.NullFloat64
	ShrGT45    sql.NullFloat64
	LonMin     sql.NullFloat64
	LonMax     sql.NullFloat64
	Quality    string
}

// Keywords returns the SHARP parameter values in KeywordNames order.
func (r Record) Keywords() []sql.NullFloat64 {
	return []sql.NullFloat64{
		r.USFlux, r.MeanGam, r.MeanGBT, r.MeanGBZ,
		r.MeanGBH, r.MeanJZD, r.TotUSJZ, r.MeanAlp,
		r.MeanJZH, r.TotUSJH, r.AbsNJZH, r.SavNCPP,
		r.MeanPot, r.TotPot, r.MeanShr, r.ShrGT45,
	}
}

// SetKeyword assigns the parameter at position i in KeywordNames order.
func (r *Record) SetKeyword(i int, v sql.NullFloat64) {
	fields := []*sql.NullFloat64{
		&r.USFlux, &r.MeanGam, &r.MeanGBT, &r.MeanGBZ,
		&r.MeanGBH, &r.MeanJZD, &r.TotUSJZ, &r.MeanAlp,
		&r.MeanJZH, &r.TotUSJH, &r.AbsNJZH, &r.SavNCPP,
		&r.MeanPot, &r.TotPot, &r.MeanShr, &r.ShrGT45,
	}
	*fields[i] = v
}

// Class is the completeness classification of a record: mutually exclusive
// and exhaustive over the KeywordNames set.
type Class int

const (
	ClassMissing    Class = iota // no keyword present
	ClassIncomplete              // some but not all keywords present
	ClassComplete                // every keyword present
)

func (c Class) String() string {
	switch c {
	case ClassComplete:
		return "complete"
	case ClassIncomplete:
		return "incomplete"
	case ClassMissing:
		return "missing"
	}
	return "unknown"
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, error) {
	switch s {
	case "complete":
		return ClassComplete, nil
	case "incomplete":
		return ClassIncomplete, nil
	case "missing":
		return ClassMissing, nil
	}
	return ClassMissing, fmt.Errorf("unknown class %q", s)
}

// AnalyzedRecord is a Record augmented with the derived quality columns.
type AnalyzedRecord struct {
	Record
	Class          Class
	LonMinImputed  bool
	LonMaxImputed  bool
	LonExtremeLow  bool            // LonMin west of the extreme threshold
	LonExtremeHigh bool            // LonMax east of the extreme threshold
	MaxAbsLon      sql.NullFloat64 // max(|LonMin|, |LonMax|) after imputation
	LifespanFrac   float64         // 0 at first observation, 1 at last
}

// ExtremeLongitude is the default central meridian distance, in degrees,
// beyond which SHARP field measurements are considered near-limb and
// unreliable.
const ExtremeLongitude = 68.0

// Span is a maximal run of same-classified consecutive records within one
// entity, annotated with the timestamps at its endpoints. Start and End are
// inclusive indices into the entity's time-ordered record sequence.
type Span struct {
	Class   Class
	Start   int
	End     int
	Count   int
	StartAt time.Time
	EndAt   time.Time
	Elapsed time.Duration
}

// EntitySummary is the per-HARP rollup row.
type EntitySummary struct {
	HARPNum           int
	Records           int
	FirstObserved     time.Time
	LastObserved      time.Time
	Lifetime          time.Duration
	Complete          int
	Incomplete        int
	Missing           int
	NominalQuality    int
	LonMinImputed     int
	LonMaxImputed     int
	LonMinUnimputable bool
	LonMaxUnimputable bool
	MaxAbsLon         sql.NullFloat64
	LongestGap        int           // records in the longest non-complete span
	LongestGapElapsed time.Duration // wall-clock extent of that span
}
