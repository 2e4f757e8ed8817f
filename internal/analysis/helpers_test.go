package analysis

import (
	"database/sql"
	"time"

	"github.com/halvard/harpqc/internal/models"
)

var fixtureStart = time.Date(2011, 2, 15, 0, 0, 0, 0, time.UTC)

// slot returns the i-th nominal observation time after the fixture origin.
func slot(i int) time.Time {
	return fixtureStart.Add(time.Duration(i) * DefaultCadence)
}

func value(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

// record builds a fixture record with the first present keywords set and a
// nominal quality code.
func record(harp int, at time.Time, present int) models.Record {
	r := models.Record{HARPNum: harp, ObservedAt: at, Quality: "0x00000000"}
	for i := 0; i < present && i < len(models.KeywordNames); i++ {
		r.SetKeyword(i, value(float64(i+1)))
	}
	r.LonMin = value(-30)
	r.LonMax = value(-20)
	return r
}
