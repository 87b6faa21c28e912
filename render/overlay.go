package render

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/swdee/go-roidwell/dwell"
	"gocv.io/x/gocv"
)

// Overlay draws the dwell state of a frame onto an image.  It implements
// dwell.Renderer.
type Overlay struct {
	img  *gocv.Mat
	font Font
	// labels are drawn last so they sit on top of box outlines and fills
	labels []boxLabel
}

// NewOverlay returns an Overlay that draws onto img
func NewOverlay(img *gocv.Mat, font Font) *Overlay {
	return &Overlay{
		img:  img,
		font: font,
	}
}

// SetTarget changes the image drawn onto, for reusing an Overlay set on the
// monitor across frames
func (o *Overlay) SetTarget(img *gocv.Mat) {
	o.img = img
	o.labels = o.labels[:0]
}

// DrawObject draws an object's bounding box in its style and queues its label
func (o *Overlay) DrawObject(obj dwell.ObjectStyle) {

	rect := obj.Box.Rect()

	if obj.Style.HasFill {
		FillRect(o.img, rect, obj.Style.Fill)
	}

	gocv.Rectangle(o.img, rect, opaque(obj.Style.Border), obj.Style.BorderWidth)

	o.labels = append(o.labels, layoutLabel(rect, objectText(obj),
		opaque(obj.Style.Border), o.font, obj.Style.BorderWidth))
}

// DrawROI draws the ROI outline and any translucent fill, then the labels
// queued by DrawObject
func (o *Overlay) DrawROI(roi dwell.ROIStyle) {

	if roi.HasFill {
		FillRect(o.img, roi.Rect, roi.Fill)
	}

	gocv.Rectangle(o.img, roi.Rect, opaque(roi.Border), roi.BorderWidth)

	for _, l := range o.labels {
		l.draw(o.img, o.font)
	}

	o.labels = o.labels[:0]
}

// objectText returns the label text for an object, tracked objects that
// have spent time in the ROI show it in seconds
func objectText(obj dwell.ObjectStyle) string {

	label := obj.Label
	if label == "" {
		label = "object"
	}

	if !obj.Tracked || obj.State == dwell.Outside {
		return fmt.Sprintf("%s %d", label, obj.TrackID)
	}

	return fmt.Sprintf("%s %d %.1fs", label, obj.TrackID,
		float64(obj.TimeInROI)/float64(time.Second))
}

// FillRect paints a translucent rectangle onto img using the alpha channel of
// clr as the opacity.  The rectangle is clipped to the image.
func FillRect(img *gocv.Mat, rect image.Rectangle, clr color.RGBA) {

	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if rect.Empty() {
		return
	}

	region := img.Region(rect)
	defer region.Close()

	solid := region.Clone()
	defer solid.Close()

	gocv.Rectangle(&solid, image.Rect(0, 0, rect.Dx(), rect.Dy()), opaque(clr), -1)

	alpha := float64(clr.A) / 255

	// region shares memory with img so blending into it updates the frame
	gocv.AddWeighted(solid, alpha, region, 1-alpha, 0, &region)
}
