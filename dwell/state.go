package dwell

import "time"

// State represents where a tracked object is relative to the ROI
type State int

const (
	// Outside means the object is not in the ROI
	Outside State = 0
	// Inside means the object is in the ROI and has not yet reached the
	// maximum dwell time
	Inside State = 1
	// Alert means the object has stayed in the ROI for the maximum dwell
	// time or longer
	Alert State = 2
)

func (s State) String() string {
	switch s {
	case Outside:
		return "outside"
	case Inside:
		return "inside"
	case Alert:
		return "alert"
	default:
		return "unknown"
	}
}

// Transition is the state change made by a call to Advance
type Transition int

const (
	// None means the state did not change
	None Transition = 0
	// Entered means the object moved from Outside to Inside
	Entered Transition = 1
	// Alerted means the object moved from Inside to Alert
	Alerted Transition = 2
	// Exited means the object left the ROI from Inside or Alert
	Exited Transition = 3
)

func (t Transition) String() string {
	switch t {
	case None:
		return "none"
	case Entered:
		return "entered"
	case Alerted:
		return "alerted"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Track is the dwell state of a single tracked object.  All instants are
// offsets from the start of the stream.
type Track struct {
	// TrackID is the identity assigned by the upstream tracker
	TrackID uint64
	// Label is the class label from the first observation of the object
	Label string
	// State is the current position of the object relative to the ROI
	State State
	// Entry is when the object last moved from Outside to Inside.  Only
	// meaningful while State is Inside or Alert.
	Entry time.Duration
	// AlertAt is when the object moved from Inside to Alert
	AlertAt time.Duration
	// Dwell is the length of the most recent completed visit to the ROI,
	// frozen when the object exited
	Dwell time.Duration
	// AlertTriggered is set once the object has reached Alert and is never
	// cleared
	AlertTriggered bool
	// FirstSeen is when the object was first observed
	FirstSeen time.Duration
	// LastSeen is when the object was most recently observed
	LastSeen time.Duration
}

// TimeInROI returns how long the object has been in the ROI.  For an object
// still inside this is measured live up to now, otherwise it is the frozen
// length of its last visit.
func (t *Track) TimeInROI(now time.Duration) time.Duration {
	if t.State != Outside {
		return now - t.Entry
	}
	return t.Dwell
}

// Advance moves the track state forward given whether the object is inside
// the ROI at instant now.  An alert is raised once the continuous time in the
// ROI meets or exceeds threshold.  Leaving the ROI resets the state so a
// later visit starts timing from zero, but AlertTriggered is kept.
func Advance(t *Track, inside bool, now, threshold time.Duration) Transition {

	switch {
	case inside && t.State == Outside:
		t.State = Inside
		t.Entry = now
		t.Dwell = 0
		return Entered

	case inside && t.State == Inside:
		if now-t.Entry >= threshold {
			t.State = Alert
			t.AlertAt = now
			t.AlertTriggered = true
			return Alerted
		}

	case !inside && t.State != Outside:
		t.Dwell = now - t.Entry
		t.State = Outside
		return Exited
	}

	return None
}
