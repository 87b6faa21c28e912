package dwell

import (
	"image"
	"sync"
)

// Trail keeps a history of recent box center points per track ID, used for
// drawing the path an object took
type Trail struct {
	// size is the maximum number of most recent points to keep per track
	size int
	// history of center points per track
	history map[uint64][]image.Point
	sync.Mutex
}

// NewTrail returns a new trail history.  Size is the number of most recent
// points kept per track and sets the maximum length of the trail.
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[uint64][]image.Point),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[uint64][]image.Point)
}

// Add records the center of the object's box in its track history
func (t *Trail) Add(obj Object) {
	t.Lock()
	defer t.Unlock()

	x, y := obj.Box.Center()
	points := append(t.history[obj.TrackID], image.Pt(int(x), int(y)))

	// drop the oldest points once the history size is exceeded
	if len(points) > t.size {
		points = points[len(points)-t.size:]
	}

	t.history[obj.TrackID] = points
}

// Forget removes the history of a track
func (t *Trail) Forget(id uint64) {
	t.Lock()
	defer t.Unlock()

	delete(t.history, id)
}

// Points returns a copy of the point history for a track, oldest first
func (t *Trail) Points(id uint64) []image.Point {
	t.Lock()
	defer t.Unlock()

	points, exists := t.history[id]

	if !exists {
		return nil
	}

	return append([]image.Point(nil), points...)
}
