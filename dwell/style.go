package dwell

import (
	"image"
	"image/color"
	"time"
)

var (
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Orange  = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// fillAlpha is the opacity of translucent fills, 0.3 of full
const fillAlpha = 77

// Border widths in pixels for each object state and the ROI outline
const (
	OutsideWidth = 2
	InsideWidth  = 3
	AlertWidth   = 4
	ROIWidth     = 4
)

// Style describes how a rectangle should be drawn by a renderer
type Style struct {
	// Border is the outline color, its alpha is the outline opacity
	Border color.RGBA
	// BorderWidth is the outline thickness in pixels
	BorderWidth int
	// Fill is the color painted inside the rectangle, its alpha is the fill
	// opacity.  Only used when HasFill is set.
	Fill    color.RGBA
	HasFill bool
}

// ROIStyle is the style for the ROI outline along with its pixel rectangle
type ROIStyle struct {
	Style
	Rect image.Rectangle
}

// translucent returns the color with its alpha set to the fill opacity
func translucent(c color.RGBA) color.RGBA {
	c.A = fillAlpha
	return c
}

// Policy decides the render style of objects and the ROI from their dwell
// state
type Policy struct {
	// BlinkWindow is how long after an alert the fill blinks
	BlinkWindow time.Duration
	// BlinkPeriod is the length of each on or off phase of the blink
	BlinkPeriod time.Duration
}

// DefaultPolicy returns a policy blinking for 3 seconds with a 300ms phase
func DefaultPolicy() Policy {
	return Policy{
		BlinkWindow: 3 * time.Second,
		BlinkPeriod: 300 * time.Millisecond,
	}
}

// Neutral returns the style for objects outside the ROI, also used for
// objects of classes that are not tracked
func (p Policy) Neutral() Style {
	return Style{
		Border:      Green,
		BorderWidth: OutsideWidth,
	}
}

// StyleFor returns the style of a tracked object at instant now
func (p Policy) StyleFor(t *Track, now time.Duration) Style {

	switch t.State {
	case Inside:
		return Style{
			Border:      Orange,
			BorderWidth: InsideWidth,
		}

	case Alert:
		return Style{
			Border:      Magenta,
			BorderWidth: AlertWidth,
			Fill:        translucent(Magenta),
			HasFill:     p.FillVisible(now - t.AlertAt),
		}

	default:
		return p.Neutral()
	}
}

// FillVisible reports if the alert fill is shown the given time after the
// alert was raised.  The fill alternates on and off every BlinkPeriod
// starting on, then stays off once BlinkWindow has passed.
func (p Policy) FillVisible(sinceAlert time.Duration) bool {

	if sinceAlert < 0 || sinceAlert >= p.BlinkWindow || p.BlinkPeriod <= 0 {
		return false
	}

	return (sinceAlert/p.BlinkPeriod)%2 == 0
}

// ROIStyle returns the style of the ROI outline given whether any object in
// the frame is inside the ROI and whether any is alerting
func (p Policy) ROIStyle(anyInside, anyAlert bool) Style {

	switch {
	case anyAlert:
		return Style{
			Border:      Red,
			BorderWidth: ROIWidth,
			Fill:        translucent(Red),
			HasFill:     true,
		}

	case anyInside:
		return Style{
			Border:      Orange,
			BorderWidth: ROIWidth,
			Fill:        translucent(Orange),
			HasFill:     true,
		}

	default:
		return Style{
			Border:      Green,
			BorderWidth: ROIWidth,
		}
	}
}
