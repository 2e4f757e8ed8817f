package models

import (
	"database/sql"
	"testing"
)

func TestParseQuality(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    uint32
		wantErr bool
	}{
		{name: "canonical nominal", code: "0x00000000", want: 0},
		{name: "bare zero", code: "0", want: 0},
		{name: "uppercase prefix", code: "0X00000400", want: 0x400},
		{name: "no prefix", code: "00000400", want: 0x400},
		{name: "high bit", code: "0x80000000", want: 0x80000000},
		{name: "surrounding whitespace", code: " 0x10 ", want: 0x10},
		{name: "empty", code: "", wantErr: true},
		{name: "not hex", code: "0xZZ", wantErr: true},
		{name: "too wide", code: "0x100000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuality(tt.code)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseQuality(%q) error = nil, want error", tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQuality(%q) error = %v", tt.code, err)
			}
			if got != tt.want {
				t.Errorf("ParseQuality(%q) = %#x, want %#x", tt.code, got, tt.want)
			}
		})
	}
}

func TestQualityNominal(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"0x00000000", true},
		{"0", true},
		{"0x00000400", false},
		{"garbage", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := QualityNominal(tt.code); got != tt.want {
			t.Errorf("QualityNominal(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFormatQuality(t *testing.T) {
	if got := FormatQuality(0); got != "0x00000000" {
		t.Errorf("FormatQuality(0) = %q, want 0x00000000", got)
	}
	if got := FormatQuality(0x80000400); got != "0x80000400" {
		t.Errorf("FormatQuality(0x80000400) = %q, want 0x80000400", got)
	}
}

func TestKeywordsRoundTrip(t *testing.T) {
	var r Record
	for i := range KeywordNames {
		r.SetKeyword(i, sql.NullFloat64{Float64: float64(i + 1), Valid: true})
	}

	got := r.Keywords()
	if len(got) != len(KeywordNames) {
		t.Fatalf("len(Keywords()) = %d, want %d", len(got), len(KeywordNames))
	}
	for i, v := range got {
		if !v.Valid || v.Float64 != float64(i+1) {
			t.Errorf("keyword %s = %+v, want {%d true}", KeywordNames[i], v, i+1)
		}
	}
}

func TestClassString(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{ClassComplete, "complete"},
		{ClassIncomplete, "incomplete"},
		{ClassMissing, "missing"},
		{Class(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("Class(%d).String() = %q, want %q", int(tt.class), got, tt.want)
		}
	}
}

func TestParseClass(t *testing.T) {
	for _, class := range []Class{ClassComplete, ClassIncomplete, ClassMissing} {
		got, err := ParseClass(class.String())
		if err != nil {
			t.Fatalf("ParseClass(%q) error = %v", class, err)
		}
		if got != class {
			t.Errorf("ParseClass(%q) = %v, want %v", class, got, class)
		}
	}
	if _, err := ParseClass("partial"); err == nil {
		t.Error("ParseClass(partial) returned nil error")
	}
}
