package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strconv"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/models"
)

const (
	Width  = 960
	Height = 360

	StripHeight = 140
)

var (
	background = color.RGBA{250, 250, 250, 255}
	axis       = color.RGBA{60, 60, 60, 255}
	label      = color.RGBA{40, 40, 40, 255}

	completeColor   = color.RGBA{46, 125, 50, 255}
	incompleteColor = color.RGBA{255, 160, 0, 255}
	missingColor    = color.RGBA{198, 40, 40, 255}
	absentColor     = color.RGBA{210, 210, 210, 255}
)

// RenderCoverage draws the cadence grid as a horizontal strip: observed
// slots in green, absent slots in red, with the dataset's first and last
// slot times along the bottom edge.
func RenderCoverage(cov analysis.Coverage) ([]byte, error) {
	if len(cov.Grid) == 0 {
		return nil, fmt.Errorf("empty coverage grid")
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, StripHeight))
	fill(img, img.Bounds(), background)

	const margin = 20
	stripTop, stripBottom := 36, StripHeight-44
	plotW := Width - 2*margin

	for i, gp := range cov.Grid {
		x0 := margin + i*plotW/len(cov.Grid)
		x1 := margin + (i+1)*plotW/len(cov.Grid)
		if x1 <= x0 {
			x1 = x0 + 1
		}
		c := missingColor
		if gp.Observed {
			c = completeColor
		}
		fill(img, image.Rect(x0, stripTop, x1, stripBottom), c)
	}

	// Border around the strip.
	rect := image.Rect(margin, stripTop, margin+plotW, stripBottom)
	hline(img, rect.Min.X, rect.Max.X, rect.Min.Y, axis)
	hline(img, rect.Min.X, rect.Max.X, rect.Max.Y, axis)
	vline(img, rect.Min.X, rect.Min.Y, rect.Max.Y, axis)
	vline(img, rect.Max.X, rect.Min.Y, rect.Max.Y, axis)

	title := fmt.Sprintf("Cadence coverage: %d of %d slots observed (%.1f%%)",
		cov.Observed, len(cov.Grid), cov.Fraction()*100)
	drawText(img, title, margin, 24, label)

	const timeLayout = "2006-01-02 15:04"
	start := cov.Grid[0].Time.UTC().Format(timeLayout)
	end := cov.Grid[len(cov.Grid)-1].Time.UTC().Format(timeLayout)
	drawText(img, start, margin, StripHeight-20, label)
	drawText(img, end, margin+plotW-textWidth(end), StripHeight-20, label)

	return encode(img, "coverage strip")
}

// RenderBins draws one class-proportion table as 100% stacked bars, one bar
// per bin, complete at the bottom and missing at the top. Bins with no
// records stay empty.
func RenderBins(title string, bins []analysis.Bin) ([]byte, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("no bins to draw")
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fill(img, img.Bounds(), background)

	const (
		margin  = 20
		plotTop = 48
	)
	plotBottom := Height - 40
	plotW := Width - 2*margin
	plotH := plotBottom - plotTop

	drawText(img, title, margin, 24, label)
	drawLegend(img, Width-margin-3*110, 24)

	gap := 8
	barW := (plotW - gap*(len(bins)-1)) / len(bins)
	if barW < 1 {
		barW, gap = 1, 0
	}

	for i, b := range bins {
		x0 := margin + i*(barW+gap)
		total := b.Counts.Total()
		if total > 0 {
			completeH := plotH * b.Counts.Complete / total
			incompleteH := plotH * b.Counts.Incomplete / total
			missingH := plotH - completeH - incompleteH

			y := plotTop
			fill(img, image.Rect(x0, y, x0+barW, y+missingH), missingColor)
			y += missingH
			fill(img, image.Rect(x0, y, x0+barW, y+incompleteH), incompleteColor)
			y += incompleteH
			fill(img, image.Rect(x0, y, x0+barW, plotBottom), completeColor)
		}

		text := b.Label()
		if textWidth(text) > barW+gap {
			text = fmt.Sprintf("%g", b.Lo)
		}
		x := x0 + (barW-textWidth(text))/2
		if x < x0 {
			x = x0
		}
		drawText(img, text, x, plotBottom+18, label)
	}

	hline(img, margin, margin+plotW, plotBottom, axis)

	return encode(img, "bin chart")
}

// RenderTimeline draws one row per entity across the dataset's observed
// range. The grey band is the entity's tracked lifetime; coloured segments
// are its classified spans, so clustered missingness shows up as red blocks.
// Rows are ordered by first observation.
func RenderTimeline(entities []analysis.EntityResult) ([]byte, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("no entities to draw")
	}

	rows := make([]analysis.EntityResult, len(entities))
	copy(rows, entities)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Summary.FirstObserved.Before(rows[j].Summary.FirstObserved)
	})

	start := rows[0].Summary.FirstObserved
	end := rows[0].Summary.LastObserved
	labelW := 0
	for _, ent := range rows {
		if ent.Summary.FirstObserved.Before(start) {
			start = ent.Summary.FirstObserved
		}
		if ent.Summary.LastObserved.After(end) {
			end = ent.Summary.LastObserved
		}
		if w := textWidth(fmt.Sprintf("HARP %d", ent.HARPNum)); w > labelW {
			labelW = w
		}
	}
	span := end.Sub(start)
	if span <= 0 {
		span = time.Second
	}

	const (
		margin  = 20
		rowH    = 16
		headerH = 36
	)
	height := headerH + rowH*len(rows) + 24
	img := image.NewRGBA(image.Rect(0, 0, Width, height))
	fill(img, img.Bounds(), background)

	left := margin + labelW + 8
	plotW := Width - left - margin
	atX := func(t time.Time) int {
		return left + int(float64(plotW)*t.Sub(start).Seconds()/span.Seconds())
	}

	drawText(img, "Completeness timeline by region", margin, 24, label)
	drawLegend(img, Width-margin-3*110, 24)

	for i, ent := range rows {
		y0 := headerH + i*rowH
		drawText(img, fmt.Sprintf("HARP %d", ent.HARPNum), margin, y0+12, label)

		bandTop, bandBottom := y0+2, y0+14
		lx0, lx1 := atX(ent.Summary.FirstObserved), atX(ent.Summary.LastObserved)
		if lx1 <= lx0 {
			lx1 = lx0 + 1
		}
		fill(img, image.Rect(lx0, bandTop, lx1, bandBottom), absentColor)

		for _, sp := range ent.Spans {
			x0, x1 := atX(sp.StartAt), atX(sp.EndAt)
			if x1 <= x0 {
				x1 = x0 + 1
			}
			fill(img, image.Rect(x0, bandTop, x1, bandBottom), classColor(sp.Class))
		}
	}

	const timeLayout = "2006-01-02 15:04"
	drawText(img, start.UTC().Format(timeLayout), left, height-8, label)
	endText := end.UTC().Format(timeLayout)
	drawText(img, endText, left+plotW-textWidth(endText), height-8, label)

	return encode(img, "timeline")
}

// RenderRunLengths draws the distribution of run lengths across all entities
// as stacked bars, one bar per length bucket.
func RenderRunLengths(entities []analysis.EntityResult) ([]byte, error) {
	maxLen, total := 0, 0
	for _, ent := range entities {
		for _, sp := range ent.Spans {
			total++
			if sp.Count > maxLen {
				maxLen = sp.Count
			}
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("no runs to draw")
	}

	const maxBars = 48
	bucket := (maxLen + maxBars - 1) / maxBars
	bars := (maxLen + bucket - 1) / bucket

	counts := make([]analysis.ClassCounts, bars)
	peak := 0
	for _, ent := range entities {
		for _, sp := range ent.Spans {
			i := (sp.Count - 1) / bucket
			switch sp.Class {
			case models.ClassComplete:
				counts[i].Complete++
			case models.ClassIncomplete:
				counts[i].Incomplete++
			default:
				counts[i].Missing++
			}
			if t := counts[i].Total(); t > peak {
				peak = t
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fill(img, img.Bounds(), background)

	const (
		margin  = 20
		plotTop = 48
	)
	left := margin + 24
	plotBottom := Height - 40
	plotW := Width - left - margin
	plotH := plotBottom - plotTop

	title := fmt.Sprintf("Run lengths: %d runs, longest %d records", total, maxLen)
	drawText(img, title, margin, 24, label)
	drawLegend(img, Width-margin-3*110, 24)

	gap := 4
	barW := (plotW - gap*(bars-1)) / bars
	if barW < 1 {
		barW, gap = 1, 0
	}

	for i, c := range counts {
		x0 := left + i*(barW+gap)
		y := plotBottom
		for _, part := range []struct {
			n int
			c color.RGBA
		}{
			{c.Complete, completeColor},
			{c.Incomplete, incompleteColor},
			{c.Missing, missingColor},
		} {
			h := plotH * part.n / peak
			fill(img, image.Rect(x0, y-h, x0+barW, y), part.c)
			y -= h
		}
	}

	vline(img, left, plotTop, plotBottom, axis)
	hline(img, left, left+plotW, plotBottom, axis)
	peakText := strconv.Itoa(peak)
	drawText(img, peakText, left-textWidth(peakText)-4, plotTop+5, label)
	drawText(img, "0", left-11, plotBottom+5, label)

	// Bucket start lengths along the axis, thinned to fit.
	step := 1
	for step*(barW+gap) < 40 {
		step++
	}
	for i := 0; i < bars; i += step {
		drawText(img, strconv.Itoa(i*bucket+1), left+i*(barW+gap), plotBottom+18, label)
	}

	return encode(img, "run length chart")
}

func classColor(c models.Class) color.RGBA {
	switch c {
	case models.ClassComplete:
		return completeColor
	case models.ClassIncomplete:
		return incompleteColor
	}
	return missingColor
}

func drawLegend(img *image.RGBA, x, y int) {
	entries := []struct {
		name string
		c    color.RGBA
	}{
		{"complete", completeColor},
		{"incomplete", incompleteColor},
		{"missing", missingColor},
	}
	for i, e := range entries {
		ex := x + i*110
		fill(img, image.Rect(ex, y-9, ex+10, y+1), e.c)
		drawText(img, e.name, ex+14, y, label)
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x, y, c)
	}
}

func drawText(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// textWidth is the pixel advance of text in the fixed-width face.
func textWidth(text string) int {
	return 7 * len(text)
}

func encode(img *image.RGBA, what string) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode %s: %w", what, err)
	}
	return buf.Bytes(), nil
}
