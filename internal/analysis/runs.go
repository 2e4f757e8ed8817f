package analysis

import (
	"github.com/halvard/harpqc/internal/models"
)

// Run is a maximal span of equal adjacent values in a sequence. Start and
// End are inclusive indices into the segmented sequence.
type Run[T comparable] struct {
	Value  T
	Start  int
	End    int
	Length int
}

// Segment partitions a sequence into maximal constant-value runs with a
// single forward scan. The output covers the input exactly: run lengths sum
// to len(values), runs never overlap, and adjacent runs never share a value.
// An empty input yields no runs.
func Segment[T comparable](values []T) []Run[T] {
	var runs []Run[T]
	start := 0
	for i := 1; i <= len(values); i++ {
		if i < len(values) && values[i] == values[start] {
			continue
		}
		runs = append(runs, Run[T]{
			Value:  values[start],
			Start:  start,
			End:    i - 1,
			Length: i - start,
		})
		start = i
	}
	return runs
}

// AnnotateSpans projects completeness runs back onto the entity's records,
// attaching the endpoint timestamps and the elapsed time between them. Pure
// projection: the segmentation itself never looks at timestamps.
func AnnotateSpans(records []models.Record, runs []Run[models.Class]) []models.Span {
	spans := make([]models.Span, 0, len(runs))
	for _, run := range runs {
		first := records[run.Start].ObservedAt
		last := records[run.End].ObservedAt
		spans = append(spans, models.Span{
			Class:   run.Value,
			Start:   run.Start,
			End:     run.End,
			Count:   run.Length,
			StartAt: first,
			EndAt:   last,
			Elapsed: last.Sub(first),
		})
	}
	return spans
}
