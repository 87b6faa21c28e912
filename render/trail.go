package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-roidwell/dwell"
	"gocv.io/x/gocv"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleSame defines if the color of the midpoint circle should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at CircleColor
	CircleSame   bool
	CircleColor  color.RGBA
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleSame:    true,
		CircleColor:   Pink,
		CircleRadius:  3,
	}
}

// Trail draws the path history of each object, colored by its dwell state
func Trail(img *gocv.Mat, objects []dwell.ObjectStyle, trail *dwell.Trail,
	style TrailStyle) {

	for _, obj := range objects {

		if !obj.Tracked {
			continue
		}

		// determine style colors to use
		lineClr := opaque(obj.Style.Border)
		circleClr := lineClr

		if !style.LineSame {
			lineClr = style.LineColor
		}

		if !style.CircleSame {
			circleClr = style.CircleColor
		}

		points := trail.Points(obj.TrackID)

		if len(points) < 2 {
			continue
		}

		for i := 1; i < len(points); i++ {
			gocv.Line(img, points[i-1], points[i], lineClr, style.LineThickness)
		}

		// draw center point circle on current box
		gocv.Circle(img, points[len(points)-1], style.CircleRadius, circleClr, -1)
	}
}
