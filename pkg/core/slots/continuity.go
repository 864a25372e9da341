package slots

import (
	"time"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

// ContinuityResult lists the hourly labels a request needs and the ones that are not free
type ContinuityResult struct {
	Expected []string
	Missing  []string
}

// OK is true only when at least one hour was requested and none is missing
func (r ContinuityResult) OK() bool {
	return len(r.Expected) > 0 && len(r.Missing) == 0
}

// CheckContinuity requires every one-hour slot in [start, start+hours) to be in free.
// hours below 1 yields a result that is never OK.
func CheckContinuity(free map[string]struct{}, start time.Time, hours int, loc *time.Location) ContinuityResult {
	var res ContinuityResult
	for k := 0; k < hours; k++ {
		label := LabelFor(start.Add(time.Duration(k)*time.Hour), loc)
		res.Expected = append(res.Expected, label)
		if _, ok := free[label]; !ok {
			res.Missing = append(res.Missing, label)
		}
	}
	return res
}

// IsContinuouslyAvailable checks a request against the free set of the start date
func (ix *Index) IsContinuouslyAvailable(campaign string, start time.Time, hours int) ContinuityResult {
	free := ix.FreeSlotSet(campaign, model.DateOf(start, ix.loc))
	return CheckContinuity(free, start, hours, ix.loc)
}
