package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTextfile(t *testing.T) {
	RecordsLoaded.WithLabelValues("test.csv").Add(3)

	path := filepath.Join(t.TempDir(), "harpqc.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(raw), "harpqc_records_loaded_total") {
		t.Errorf("output does not contain the records counter")
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind, stat err = %v", err)
	}
}
