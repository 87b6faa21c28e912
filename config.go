package roidwell

import (
	"image"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// ROI is a region of interest normalised to the frame size.  X and Y are the
// top left corner and W and H the width and height, all in the range [0,1]
type ROI struct {
	X float64 `mapstructure:"left"`
	Y float64 `mapstructure:"top"`
	W float64 `mapstructure:"width"`
	H float64 `mapstructure:"height"`
}

// CenteredROI returns an ROI of the given normalised size placed in the
// middle of the frame
func CenteredROI(w, h float64) ROI {
	r := ROI{W: clamp01(w), H: clamp01(h)}
	r.X = (1 - r.W) / 2
	r.Y = (1 - r.H) / 2
	return r
}

// Clamp returns a copy of the ROI adjusted to lie within [0,1]x[0,1].  The
// size is kept and the origin moved back inside the frame when the rectangle
// would spill over the right or bottom edge.
func (r ROI) Clamp() ROI {

	r.W = clamp01(r.W)
	r.H = clamp01(r.H)

	if r.X < 0 || math.IsNaN(r.X) {
		r.X = 0
	}

	if r.Y < 0 || math.IsNaN(r.Y) {
		r.Y = 0
	}

	if r.X+r.W > 1 {
		r.X = 1 - r.W
	}

	if r.Y+r.H > 1 {
		r.Y = 1 - r.H
	}

	return r
}

// Clamped reports whether the ROI already lies within the unit square
func (r ROI) Clamped() bool {
	return r == r.Clamp()
}

// Pixels converts the ROI to a pixel rectangle for a frame of the given size.
// Coordinates are truncated.
func (r ROI) Pixels(frameWidth, frameHeight int) image.Rectangle {

	left := int(r.X * float64(frameWidth))
	top := int(r.Y * float64(frameHeight))
	width := int(r.W * float64(frameWidth))
	height := int(r.H * float64(frameHeight))

	return image.Rect(left, top, left+width, top+height)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Containment selects the rule used to decide if an object is inside the ROI
type Containment string

const (
	// ContainCenter treats an object as inside when the center of its
	// bounding box lies within the ROI
	ContainCenter Containment = "center"
	// ContainOverlap treats an object as inside when at least MinOverlap of
	// its bounding box area lies within the ROI
	ContainOverlap Containment = "overlap"
)

// Blink holds the timing of the fill highlight drawn when an object first
// raises an alert
type Blink struct {
	// Window is how long after the alert the fill keeps blinking.  After
	// that the object is drawn outlined only.
	Window time.Duration `mapstructure:"window"`
	// Period is the duration of each on or off phase of the blink
	Period time.Duration `mapstructure:"period"`
}

// Config holds the settings for a dwell monitor run
type Config struct {
	// ROI is the normalised region of interest
	ROI ROI `mapstructure:"roi"`
	// MaxDwell is the continuous time an object may stay inside the ROI
	// before an alert is raised
	MaxDwell time.Duration `mapstructure:"max_dwell"`
	// Classes is the allow-list of class labels that are tracked.  Objects
	// with other labels are drawn neutrally and never tracked.  An empty
	// list allows every class.
	Classes []string `mapstructure:"classes"`
	// Blink sets the alert highlight timing
	Blink Blink `mapstructure:"blink"`
	// Containment is the rule used to test if an object is in the ROI
	Containment Containment `mapstructure:"containment"`
	// MinOverlap is the fraction of box area required inside the ROI when
	// Containment is ContainOverlap
	MinOverlap float64 `mapstructure:"min_overlap"`
	// EvictAfter removes tracks that are outside the ROI and have not been
	// seen for this long.  Zero keeps every track for the whole run.
	EvictAfter time.Duration `mapstructure:"evict_after"`
	// Smoothing filters each object's box over time before the containment
	// test, damping detector jitter at the ROI edge
	Smoothing bool `mapstructure:"smoothing"`
}

// DefaultClasses are the vehicle labels tracked when no allow-list is given
var DefaultClasses = []string{"car", "truck", "bus", "motorcycle", "bicycle"}

// DefaultConfig returns the default configuration, a centered ROI covering
// 40% of the frame width and height with a 5 second dwell limit
func DefaultConfig() Config {
	return Config{
		ROI:      CenteredROI(0.4, 0.4),
		MaxDwell: 5 * time.Second,
		Classes:  append([]string(nil), DefaultClasses...),
		Blink: Blink{
			Window: 3 * time.Second,
			Period: 300 * time.Millisecond,
		},
		Containment: ContainCenter,
		MinOverlap:  0.5,
	}
}

// Validate checks the configuration for values the monitor can not work
// with.  An out of range ROI is not an error, it gets clamped instead.
func (c Config) Validate() error {

	if c.MaxDwell <= 0 {
		return errors.WithHint(
			errors.Newf("max dwell must be positive, got %v", c.MaxDwell),
			"set the maximum time in the ROI, eg: 5s")
	}

	if c.Blink.Period <= 0 {
		return errors.Newf("blink period must be positive, got %v", c.Blink.Period)
	}

	if c.Blink.Window < 0 {
		return errors.Newf("blink window can not be negative, got %v", c.Blink.Window)
	}

	if c.EvictAfter < 0 {
		return errors.Newf("evict after can not be negative, got %v", c.EvictAfter)
	}

	switch c.Containment {
	case ContainCenter, "":
	case ContainOverlap:
		if c.MinOverlap <= 0 || c.MinOverlap > 1 {
			return errors.Newf("min overlap must be in (0,1], got %v", c.MinOverlap)
		}
	default:
		return errors.WithHintf(
			errors.Newf("unknown containment mode %q", c.Containment),
			"use %q or %q", ContainCenter, ContainOverlap)
	}

	return nil
}
