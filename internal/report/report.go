// Package report renders an analysis result into a self-contained
// directory: an HTML page, PNG charts and CSV copies of every derived
// table.
package report

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/chart"
)

type Writer struct {
	tmpl *template.Template
}

func NewWriter() *Writer {
	return &Writer{tmpl: newTemplates()}
}

// Options control where the report lands and the prose that opens it.
type Options struct {
	// Dir is the output directory, created if absent.
	Dir string
	// Source names the dataset the report describes.
	Source string
	// Summary is the opening paragraph. Callers pass either model-written
	// prose or the deterministic fallback.
	Summary string
	// TopEntities caps the regions table at the N regions with the most
	// records. Zero keeps every region.
	TopEntities int
}

func (w *Writer) Write(res *analysis.Result, opts Options) error {
	if opts.Dir == "" {
		return errors.New("report directory not set")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	if err := writeCharts(res, opts); err != nil {
		return err
	}
	if err := writeCSVs(opts.Dir, res); err != nil {
		return err
	}

	path := filepath.Join(opts.Dir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index.html: %w", err)
	}
	if err := w.Render(f, res, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index.html: %w", err)
	}

	log.Printf("report: wrote %s", path)
	return nil
}

// Render writes just the HTML page. Options.Dir is ignored; the charts the
// page references are the caller's concern.
func (w *Writer) Render(out io.Writer, res *analysis.Result, opts Options) error {
	if err := w.tmpl.ExecuteTemplate(out, "report.html", buildView(res, opts)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Charts holds the rendered page images. A nil field means the result had
// nothing to draw for it.
type Charts struct {
	Coverage   []byte
	Lifespan   []byte
	Longitude  []byte
	Timeline   []byte
	RunLengths []byte
}

// RenderCharts draws every image the report page references. The timeline
// honours Options.TopEntities so it shows the same regions as the table.
func RenderCharts(res *analysis.Result, opts Options) (Charts, error) {
	var c Charts
	var err error

	if len(res.Coverage.Grid) > 0 {
		if c.Coverage, err = chart.RenderCoverage(res.Coverage); err != nil {
			return c, fmt.Errorf("render coverage chart: %w", err)
		}
	}
	if len(res.LifespanBins) > 0 {
		if c.Lifespan, err = chart.RenderBins("Completeness by lifespan fraction", res.LifespanBins); err != nil {
			return c, fmt.Errorf("render lifespan chart: %w", err)
		}
	}
	if len(res.LongitudeBins) > 0 {
		if c.Longitude, err = chart.RenderBins("Completeness by max absolute longitude", res.LongitudeBins); err != nil {
			return c, fmt.Errorf("render longitude chart: %w", err)
		}
	}
	if len(res.Entities) > 0 {
		if c.Timeline, err = chart.RenderTimeline(topEntityResults(res.Entities, opts.TopEntities)); err != nil {
			return c, fmt.Errorf("render timeline chart: %w", err)
		}
		if c.RunLengths, err = chart.RenderRunLengths(res.Entities); err != nil {
			return c, fmt.Errorf("render run length chart: %w", err)
		}
	}

	return c, nil
}

func writeCharts(res *analysis.Result, opts Options) error {
	charts, err := RenderCharts(res, opts)
	if err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
	}{
		{"coverage.png", charts.Coverage},
		{"lifespan.png", charts.Lifespan},
		{"longitude.png", charts.Longitude},
		{"timeline.png", charts.Timeline},
		{"runlengths.png", charts.RunLengths},
	}
	for _, f := range files {
		if len(f.data) == 0 {
			continue
		}
		if err := os.WriteFile(filepath.Join(opts.Dir, f.name), f.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}
