package models

import (
	"fmt"
	"strconv"
	"strings"
)

// The HMI pipeline publishes the QUALITY keyword as a 32-bit bitmask,
// string-encoded in hex. An all-zero code is a nominal observation; any set
// bit marks a known acquisition or inversion problem.

// ParseQuality decodes a quality code, accepting an optional 0x prefix.
func ParseQuality(code string) (uint32, error) {
	s := strings.TrimSpace(strings.ToLower(code))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, fmt.Errorf("empty quality code")
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("quality code %q: %w", code, err)
	}
	return uint32(v), nil
}

// FormatQuality renders a code in the canonical 0x%08X form, so that "0",
// "0000" and "0x00000000" group together in summaries.
func FormatQuality(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}

// QualityNominal reports whether a code parses and has every bit clear.
func QualityNominal(code string) bool {
	v, err := ParseQuality(code)
	return err == nil && v == 0
}
