package dwell

import (
	"image"
	"math"

	clipper "github.com/ctessum/go.clipper"
	"github.com/swdee/go-roidwell"
)

// Box is an object bounding box in pixels given by its top left corner and
// size
type Box struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Right returns the bottom-right x coordinate of the box
func (b Box) Right() float64 {
	return b.Left + b.Width
}

// Bottom returns the bottom-right y coordinate of the box
func (b Box) Bottom() float64 {
	return b.Top + b.Height
}

// Center returns the center point of the box
func (b Box) Center() (x, y float64) {
	return b.Left + b.Width/2, b.Top + b.Height/2
}

// Rect returns the box as an integer image rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(math.Round(b.Left)), int(math.Round(b.Top)),
		int(math.Round(b.Right())), int(math.Round(b.Bottom())))
}

// Contains reports whether the center of the box, normalised by the frame
// size, lies inside the ROI.  Edges count as inside.  The frame size must be
// non zero.
func Contains(box Box, roi roidwell.ROI, frameWidth, frameHeight int) bool {

	cx, cy := box.Center()
	cx /= float64(frameWidth)
	cy /= float64(frameHeight)

	return cx >= roi.X && cx <= roi.X+roi.W &&
		cy >= roi.Y && cy <= roi.Y+roi.H
}

// Overlap returns the fraction of the box area that lies inside the ROI,
// from 0 to 1.  The intersection is computed by clipping the box polygon
// against the ROI in pixel space.
func Overlap(box Box, roi roidwell.ROI, frameWidth, frameHeight int) float64 {

	boxRect := box.Rect().Canon()
	boxArea := float64(boxRect.Dx() * boxRect.Dy())

	if boxArea <= 0 {
		return 0
	}

	c := clipper.NewClipper(0)
	c.AddPath(rectPath(boxRect), clipper.PtSubject, true)
	c.AddPath(rectPath(roi.Pixels(frameWidth, frameHeight)), clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero,
		clipper.PftNonZero)

	if !ok {
		return 0
	}

	var area float64

	for _, path := range solution {
		area += math.Abs(pathArea(path))
	}

	return math.Min(1, area/boxArea)
}

// rectPath converts a rectangle to a closed clipper polygon
func rectPath(r image.Rectangle) clipper.Path {
	return clipper.Path{
		&clipper.IntPoint{X: clipper.CInt(r.Min.X), Y: clipper.CInt(r.Min.Y)},
		&clipper.IntPoint{X: clipper.CInt(r.Max.X), Y: clipper.CInt(r.Min.Y)},
		&clipper.IntPoint{X: clipper.CInt(r.Max.X), Y: clipper.CInt(r.Max.Y)},
		&clipper.IntPoint{X: clipper.CInt(r.Min.X), Y: clipper.CInt(r.Max.Y)},
	}
}

// pathArea returns the signed area of a polygon using the shoelace formula
func pathArea(path clipper.Path) float64 {

	n := len(path)

	if n < 3 {
		return 0
	}

	var sum float64

	for i := 0; i < n; i++ {
		p := path[i]
		q := path[(i+1)%n]
		sum += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}

	return sum / 2
}
