package dwell

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrail(t *testing.T) {

	trail := NewTrail(3)

	for i := 0; i < 5; i++ {
		trail.Add(Object{
			TrackID: 4,
			Box:     Box{Left: float64(i * 10), Top: 0, Width: 10, Height: 10},
		})
	}

	assert.Equal(t, []image.Point{{25, 5}, {35, 5}, {45, 5}}, trail.Points(4))
	assert.Nil(t, trail.Points(5))

	trail.Forget(4)
	assert.Nil(t, trail.Points(4))

	trail.Add(Object{TrackID: 1, Box: Box{Width: 2, Height: 2}})
	trail.Reset()
	assert.Nil(t, trail.Points(1))
}
