package analysis

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/halvard/harpqc/internal/models"
)

// ErrDuplicateTimestamp reports two records of the same entity sharing an
// observation time. The ordering of such a sequence is ambiguous, so the
// whole entity is rejected rather than silently picking a winner.
var ErrDuplicateTimestamp = errors.New("duplicate observation timestamp")

// Entity is one HARP's owned, time-ordered record sequence.
type Entity struct {
	HARPNum int
	Records []models.Record
}

// EntityIssue is a per-entity failure that removed the entity from an
// analysis stage without aborting the batch.
type EntityIssue struct {
	HARPNum int
	Stage   string
	Err     error
}

func (e EntityIssue) String() string {
	return fmt.Sprintf("HARP %d: %s: %v", e.HARPNum, e.Stage, e.Err)
}

// Partition splits a record table into per-entity sequences sorted by
// observation time, ties broken by input order. Entities carrying duplicate
// timestamps are rejected and reported as issues instead of being returned.
// Entities come back in ascending HARP number order.
func Partition(records []models.Record) ([]Entity, []EntityIssue) {
	byHARP := make(map[int][]models.Record)
	for _, r := range records {
		byHARP[r.HARPNum] = append(byHARP[r.HARPNum], r)
	}

	nums := make([]int, 0, len(byHARP))
	for num := range byHARP {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	entities := make([]Entity, 0, len(byHARP))
	var issues []EntityIssue
	for _, num := range nums {
		recs := byHARP[num]
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].ObservedAt.Before(recs[j].ObservedAt)
		})
		if dup, ok := duplicateAt(recs); ok {
			issues = append(issues, EntityIssue{
				HARPNum: num,
				Stage:   "partition",
				Err:     fmt.Errorf("%w: %s", ErrDuplicateTimestamp, dup.UTC().Format(time.RFC3339)),
			})
			continue
		}
		entities = append(entities, Entity{HARPNum: num, Records: recs})
	}
	return entities, issues
}

// duplicateAt scans a time-sorted sequence for the first repeated timestamp.
func duplicateAt(recs []models.Record) (time.Time, bool) {
	for i := 1; i < len(recs); i++ {
		if recs[i].ObservedAt.Equal(recs[i-1].ObservedAt) {
			return recs[i].ObservedAt, true
		}
	}
	return time.Time{}, false
}
