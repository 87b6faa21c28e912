package render

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Status holds the running figures shown in the status bar
type Status struct {
	Frame    int
	FPS      float64
	At       time.Duration
	Objects  int
	Seen     int
	Alerts   int
	MaxDwell time.Duration
}

// StatusBar blanks a strip across the top of the image and writes the status
// figures into it
func StatusBar(img *gocv.Mat, st Status, font Font) {

	// blank out background video
	rect := image.Rect(0, 0, img.Cols(), 22)
	gocv.Rectangle(img, rect, Black, -1)

	text := fmt.Sprintf("Frame: %d, FPS: %.2f, Time: %s, Objects: %d, Seen: %d, Alerts: %d, Max: %s",
		st.Frame, st.FPS, st.At.Truncate(100*time.Millisecond), st.Objects,
		st.Seen, st.Alerts, st.MaxDwell)

	gocv.PutTextWithParams(img, text, image.Pt(4, 15), font.Face, font.Scale,
		Pink, font.Thickness, font.LineType, false)
}
