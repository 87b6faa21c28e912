package render

import "image/color"

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// opaque returns the color with full alpha, gocv passes the alpha channel
// through as a fourth scalar which we never want for outlines
func opaque(c color.RGBA) color.RGBA {
	c.A = 255
	return c
}
