package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/halvard/harpqc/internal/models"
)

func tableHeader() string {
	cols := append([]string{"T_REC", "HARPNUM"}, models.KeywordNames...)
	cols = append(cols, "LON_MIN", "LON_MAX", "QUALITY")
	return strings.Join(cols, ",")
}

// tableRow repeats the same cell for every keyword column.
func tableRow(tRec, harp, keyword, lonMin, lonMax, quality string) string {
	fields := []string{tRec, harp}
	for range models.KeywordNames {
		fields = append(fields, keyword)
	}
	fields = append(fields, lonMin, lonMax, quality)
	return strings.Join(fields, ",")
}

func TestReadDecodesTable(t *testing.T) {
	table := tableHeader() + "\n" +
		tableRow("2011.02.15_00:00:00_TAI", "377", "1.5", "-30.5", "-20.25", "0x00000000") + "\n" +
		tableRow("2011-02-15T00:12:00Z", "377", "NaN", "", "nan", "0x00010000") + "\n"

	records, err := Read(strings.NewReader(table))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Read() decoded %d records, want 2", len(records))
	}

	r0 := records[0]
	if !r0.ObservedAt.Equal(time.Date(2011, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("record 0 ObservedAt = %v, want 2011-02-15T00:00:00Z", r0.ObservedAt)
	}
	if r0.HARPNum != 377 {
		t.Errorf("record 0 HARPNum = %d, want 377", r0.HARPNum)
	}
	for i, v := range r0.Keywords() {
		if !v.Valid || v.Float64 != 1.5 {
			t.Errorf("record 0 %s = %+v, want 1.5", models.KeywordNames[i], v)
		}
	}
	if !r0.LonMin.Valid || r0.LonMin.Float64 != -30.5 {
		t.Errorf("record 0 LonMin = %+v, want -30.5", r0.LonMin)
	}
	if !r0.LonMax.Valid || r0.LonMax.Float64 != -20.25 {
		t.Errorf("record 0 LonMax = %+v, want -20.25", r0.LonMax)
	}
	if r0.Quality != "0x00000000" {
		t.Errorf("record 0 Quality = %q, want 0x00000000", r0.Quality)
	}

	r1 := records[1]
	if !r1.ObservedAt.Equal(r0.ObservedAt.Add(12 * time.Minute)) {
		t.Errorf("record 1 ObservedAt = %v, want 12 minutes after record 0", r1.ObservedAt)
	}
	for i, v := range r1.Keywords() {
		if v.Valid {
			t.Errorf("record 1 %s = %+v, want null", models.KeywordNames[i], v)
		}
	}
	if r1.LonMin.Valid || r1.LonMax.Valid {
		t.Errorf("record 1 longitudes = %+v, %+v, want null", r1.LonMin, r1.LonMax)
	}
}

// Distinct values per column catch any transposition between the header
// mapping and the positional keyword accessors.
func TestReadKeywordColumnOrder(t *testing.T) {
	fields := []string{"2011-02-15T00:00:00Z", "7"}
	for i := range models.KeywordNames {
		fields = append(fields, strconv.Itoa(i+1))
	}
	fields = append(fields, "-5", "5", "0")
	table := tableHeader() + "\n" + strings.Join(fields, ",") + "\n"

	records, err := Read(strings.NewReader(table))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for i, v := range records[0].Keywords() {
		if !v.Valid || v.Float64 != float64(i+1) {
			t.Errorf("%s = %+v, want %d", models.KeywordNames[i], v, i+1)
		}
	}
}

func TestReadHeaderCaseAndAlias(t *testing.T) {
	header := strings.ToLower(tableHeader())
	header = strings.Replace(header, "t_rec", "timestamp", 1)
	table := header + "\n" +
		tableRow("2011-02-15T00:00:00Z", "42", "1", "-5", "5", "0") + "\n"

	records, err := Read(strings.NewReader(table))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 1 || records[0].HARPNum != 42 {
		t.Errorf("Read() = %+v, want one HARP 42 record", records)
	}
}

func TestReadMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		drop    string
		wantErr string
	}{
		{"keyword column", "MEANGAM", "MEANGAM"},
		{"quality column", "QUALITY", "QUALITY"},
		{"longitude column", "LON_MIN", "LON_MIN"},
		{"timestamp column", "T_REC", "T_REC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := strings.Split(tableHeader(), ",")
			kept := cols[:0]
			for _, c := range cols {
				if c != tt.drop {
					kept = append(kept, c)
				}
			}
			_, err := Read(strings.NewReader(strings.Join(kept, ",") + "\n"))
			if err == nil {
				t.Fatal("Read() returned nil error for incomplete header")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not name column %s", err, tt.wantErr)
			}
		})
	}
}

func TestReadRowErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want []string
	}{
		{
			"bad harp number",
			tableRow("2011-02-15T00:00:00Z", "notanumber", "1", "-5", "5", "0"),
			[]string{"row 2", "HARPNUM"},
		},
		{
			"bad timestamp",
			tableRow("15/02/2011", "42", "1", "-5", "5", "0"),
			[]string{"row 2", "15/02/2011"},
		},
		{
			"bad keyword cell",
			tableRow("2011-02-15T00:00:00Z", "42", "abc", "-5", "5", "0"),
			[]string{"row 2", "USFLUX"},
		},
		{
			"bad longitude cell",
			tableRow("2011-02-15T00:00:00Z", "42", "1", "west", "5", "0"),
			[]string{"row 2", "LON_MIN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tableHeader() + "\n" + tt.row + "\n"))
			if err == nil {
				t.Fatal("Read() returned nil error for bad row")
			}
			for _, want := range tt.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q missing %q", err, want)
				}
			}
		})
	}
}

func TestReadEmptyInput(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Error("Read() returned nil error for empty input")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", "2011-02-15T00:12:00Z", time.Date(2011, 2, 15, 0, 12, 0, 0, time.UTC), false},
		{"jsoc tai", "2011.02.15_00:12:00_TAI", time.Date(2011, 2, 15, 0, 12, 0, 0, time.UTC), false},
		{"garbage", "February 15th", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharp.csv")
	table := tableHeader() + "\n" +
		tableRow("2011.02.15_00:00:00_TAI", "377", "1", "-5", "5", "0x00000000") + "\n"
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("LoadCSV() decoded %d records, want 1", len(records))
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("LoadCSV() returned nil error for missing file")
	}
}
