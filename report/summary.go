package report

import (
	"sort"
	"time"

	"github.com/swdee/go-roidwell/dwell"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds statistics of the time objects spent in the ROI
type Summary struct {
	// Count is the number of objects listed in the report
	Count int
	// Alerts is the number of listed objects that raised an alert
	Alerts int
	Mean   time.Duration
	Max    time.Duration
	// P95 is the 95th percentile time in the ROI
	P95 time.Duration
}

// Summarize returns statistics over the same objects Entries lists.  All
// durations are zero when no object qualifies.
func Summarize(m *dwell.Monitor) Summary {

	entries := Entries(m)

	s := Summary{
		Count: len(entries),
	}

	if len(entries) == 0 {
		return s
	}

	secs := make([]float64, len(entries))

	for i, e := range entries {
		secs[i] = e.TimeInROI.Seconds()

		if e.Alert {
			s.Alerts++
		}
	}

	sort.Float64s(secs)

	s.Mean = seconds(stat.Mean(secs, nil))
	s.Max = seconds(floats.Max(secs))
	s.P95 = seconds(stat.Quantile(0.95, stat.Empirical, secs, nil))

	return s
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
