package dwell

import "time"

// Registry holds the dwell state of every object seen during a run, keyed
// by track ID.  It is not safe for concurrent use.
type Registry struct {
	tracks map[uint64]*Track
	// evicted keeps what must survive of tracks removed by Evict so an ID
	// that returns is not counted twice
	evicted map[uint64]evictedTrack
	// seen counts every distinct track ID created, including evicted ones
	seen int
}

type evictedTrack struct {
	label          string
	firstSeen      time.Duration
	alertTriggered bool
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tracks:  make(map[uint64]*Track),
		evicted: make(map[uint64]evictedTrack),
	}
}

// GetOrCreate returns the track for the given ID.  If the ID has not been
// seen before a new track is created in the Outside state and created is
// true.  The label is only recorded on creation.  An evicted ID that returns
// gets a new Outside track that keeps its label, first seen instant and
// alert flag, and is not counted as seen again.
func (r *Registry) GetOrCreate(id uint64, label string, now time.Duration) (track *Track, created bool) {

	if t, exists := r.tracks[id]; exists {
		return t, false
	}

	t := &Track{
		TrackID:   id,
		Label:     label,
		State:     Outside,
		FirstSeen: now,
		LastSeen:  now,
	}

	if e, ok := r.evicted[id]; ok {
		t.Label = e.label
		t.FirstSeen = e.firstSeen
		t.AlertTriggered = e.alertTriggered
		delete(r.evicted, id)
		r.tracks[id] = t
		return t, false
	}

	r.tracks[id] = t
	r.seen++

	return t, true
}

// Get returns the track for the given ID if it exists
func (r *Registry) Get(id uint64) (*Track, bool) {
	t, ok := r.tracks[id]
	return t, ok
}

// Len returns the number of tracks currently held
func (r *Registry) Len() int {
	return len(r.tracks)
}

// Seen returns the number of distinct track IDs ever created
func (r *Registry) Seen() int {
	return r.seen
}

// Each calls fn for every track.  Iteration order is unspecified.
func (r *Registry) Each(fn func(t *Track)) {
	for _, t := range r.tracks {
		fn(t)
	}
}

// Evict removes tracks that are Outside the ROI and were last seen before
// the given instant, returning the IDs removed.  The Seen count is not
// changed.
func (r *Registry) Evict(before time.Duration) []uint64 {

	var ids []uint64

	for id, t := range r.tracks {
		if t.State == Outside && t.LastSeen < before {
			r.evicted[id] = evictedTrack{
				label:          t.Label,
				firstSeen:      t.FirstSeen,
				alertTriggered: t.AlertTriggered,
			}
			delete(r.tracks, id)
			ids = append(ids, id)
		}
	}

	return ids
}

// Reset clears all tracks and the seen count
func (r *Registry) Reset() {
	r.tracks = make(map[uint64]*Track)
	r.evicted = make(map[uint64]evictedTrack)
	r.seen = 0
}
