package dwell

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-roidwell"
	"go.uber.org/zap"
)

// Object is a tracked object reported by the upstream tracker for a frame
type Object struct {
	// TrackID is the stable identity of the object across frames
	TrackID uint64
	// Label is the class label, eg: "car"
	Label string
	// Box is the bounding box in pixels
	Box Box
}

// ObjectStyle is the result of processing an Object for a frame
type ObjectStyle struct {
	Object
	// Style to draw the object with
	Style Style
	// Tracked is false for objects whose class is not in the allow-list
	Tracked bool
	// State is the dwell state after this frame, always Outside for
	// objects that are not tracked
	State State
	// TimeInROI is the current or last dwell time of the object
	TimeInROI time.Duration
}

// Frame is the result of processing one frame
type Frame struct {
	// Objects holds the styles of the frame's objects in input order
	Objects []ObjectStyle
	// ROI is the style of the ROI outline
	ROI ROIStyle
	// AnyInside is true if a tracked object in the frame is in the ROI
	AnyInside bool
	// AnyAlert is true if a tracked object in the frame is alerting
	AnyAlert bool
	// Skipped is true when the frame had no usable size and was ignored
	Skipped bool
}

// Renderer draws the styles computed for a frame
type Renderer interface {
	DrawObject(obj ObjectStyle)
	DrawROI(roi ROIStyle)
}

// Draw hands every object style to the renderer followed by the ROI style
func (f Frame) Draw(r Renderer) {
	for _, obj := range f.Objects {
		r.DrawObject(obj)
	}
	r.DrawROI(f.ROI)
}

// Option configures a Monitor
type Option func(*Monitor)

// WithLogger sets the logger used to report object transitions
func WithLogger(log *zap.Logger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// WithRenderer sets a renderer that is handed the styles of every processed
// frame
func WithRenderer(r Renderer) Option {
	return func(m *Monitor) {
		m.renderer = r
	}
}

// WithEvictHook sets a function called with the ID of every track removed
// by eviction, so callers can drop state they keep per track
func WithEvictHook(fn func(id uint64)) Option {
	return func(m *Monitor) {
		m.onEvict = fn
	}
}

// Monitor tracks the dwell time of objects in the ROI over a stream.  It is
// created once per stream and fed every frame in order through
// ProcessFrame.  A Monitor is not safe for concurrent use, callers
// delivering frames from several goroutines must serialise the calls.
type Monitor struct {
	roi         roidwell.ROI
	maxDwell    time.Duration
	policy      Policy
	allow       map[string]struct{}
	containment roidwell.Containment
	minOverlap  float64
	evictAfter  time.Duration

	registry *Registry
	smoother *Smoother
	alerts   int
	frames   int

	// frame size cached from the first frame
	frameWidth  int
	frameHeight int

	anyInside bool
	anyAlert  bool
	// now is the instant of the most recent frame
	now time.Duration

	renderer Renderer
	onEvict  func(id uint64)
	log      *zap.Logger
}

// New returns a Monitor for the given configuration.  The ROI is clamped
// into the frame.
func New(cfg roidwell.Config, opts ...Option) (*Monitor, error) {

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid monitor config")
	}

	m := &Monitor{
		roi:      cfg.ROI.Clamp(),
		maxDwell: cfg.MaxDwell,
		policy: Policy{
			BlinkWindow: cfg.Blink.Window,
			BlinkPeriod: cfg.Blink.Period,
		},
		allow:       make(map[string]struct{}, len(cfg.Classes)),
		containment: cfg.Containment,
		minOverlap:  cfg.MinOverlap,
		evictAfter:  cfg.EvictAfter,
		registry:    NewRegistry(),
		log:         zap.NewNop(),
	}

	if cfg.Smoothing {
		m.smoother = NewSmoother()
	}

	if m.containment == "" {
		m.containment = roidwell.ContainCenter
	}

	for _, class := range cfg.Classes {
		m.allow[strings.ToLower(strings.TrimSpace(class))] = struct{}{}
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.roi != cfg.ROI {
		m.log.Warn("ROI clamped to frame",
			zap.Float64("left", m.roi.X), zap.Float64("top", m.roi.Y),
			zap.Float64("width", m.roi.W), zap.Float64("height", m.roi.H))
	}

	return m, nil
}

// Allowed reports whether objects with the given label are tracked
func (m *Monitor) Allowed(label string) bool {

	if len(m.allow) == 0 {
		return true
	}

	_, ok := m.allow[strings.ToLower(label)]
	return ok
}

// inside applies the configured containment rule
func (m *Monitor) inside(box Box, frameWidth, frameHeight int) bool {
	if m.containment == roidwell.ContainOverlap {
		return Overlap(box, m.roi, frameWidth, frameHeight) >= m.minOverlap
	}
	return Contains(box, m.roi, frameWidth, frameHeight)
}

// ProcessFrame updates the dwell state of every tracked object in the frame
// and returns the styles to draw.  now is the frame's instant measured from
// the start of the stream and must not go backwards.  Objects whose class
// is not allowed are styled neutrally and leave no state behind.  A frame
// with a zero width or height is skipped.
func (m *Monitor) ProcessFrame(objects []Object, frameWidth, frameHeight int, now time.Duration) Frame {

	if frameWidth <= 0 || frameHeight <= 0 {
		m.log.Warn("skipping frame with no size",
			zap.Int("width", frameWidth), zap.Int("height", frameHeight),
			zap.Duration("now", now))

		return Frame{Skipped: true}
	}

	if m.frameWidth == 0 || m.frameHeight == 0 {
		m.frameWidth = frameWidth
		m.frameHeight = frameHeight
	}

	m.now = now
	m.frames++

	res := Frame{
		Objects: make([]ObjectStyle, 0, len(objects)),
	}

	for _, obj := range objects {

		if !m.Allowed(obj.Label) {
			res.Objects = append(res.Objects, ObjectStyle{
				Object: obj,
				Style:  m.policy.Neutral(),
				State:  Outside,
			})
			continue
		}

		box := obj.Box
		if m.smoother != nil {
			box = m.smoother.Smooth(obj.TrackID, box)
		}

		inside := m.inside(box, frameWidth, frameHeight)

		track, created := m.registry.GetOrCreate(obj.TrackID, obj.Label, now)
		track.LastSeen = now

		if created {
			m.log.Debug("new object",
				zap.Uint64("track", track.TrackID), zap.String("label", track.Label),
				zap.Duration("now", now))
		}

		switch Advance(track, inside, now, m.maxDwell) {
		case Entered:
			m.log.Debug("object entered ROI",
				zap.Uint64("track", track.TrackID), zap.String("label", track.Label),
				zap.Duration("now", now))

		case Alerted:
			m.alerts++
			m.log.Info("object exceeded max dwell time",
				zap.Uint64("track", track.TrackID), zap.String("label", track.Label),
				zap.Duration("dwell", now-track.Entry), zap.Duration("now", now))

		case Exited:
			m.log.Debug("object left ROI",
				zap.Uint64("track", track.TrackID), zap.String("label", track.Label),
				zap.Duration("dwell", track.Dwell), zap.Duration("now", now))
		}

		res.AnyInside = res.AnyInside || inside
		res.AnyAlert = res.AnyAlert || track.State == Alert

		res.Objects = append(res.Objects, ObjectStyle{
			Object:    obj,
			Style:     m.policy.StyleFor(track, now),
			Tracked:   true,
			State:     track.State,
			TimeInROI: track.TimeInROI(now),
		})
	}

	m.anyInside = res.AnyInside
	m.anyAlert = res.AnyAlert

	res.ROI = ROIStyle{
		Style: m.policy.ROIStyle(res.AnyInside, res.AnyAlert),
		Rect:  m.roi.Pixels(frameWidth, frameHeight),
	}

	if m.renderer != nil {
		res.Draw(m.renderer)
	}

	if m.evictAfter > 0 {
		if ids := m.registry.Evict(now - m.evictAfter); len(ids) > 0 {
			m.log.Debug("evicted stale tracks", zap.Int("count", len(ids)),
				zap.Duration("now", now))

			for _, id := range ids {
				if m.smoother != nil {
					m.smoother.Forget(id)
				}
				if m.onEvict != nil {
					m.onEvict(id)
				}
			}
		}
	}

	return res
}

// SetEvictHook sets or, when nil, removes the function called with the ID of
// each evicted track
func (m *Monitor) SetEvictHook(fn func(id uint64)) {
	m.onEvict = fn
}

// SetRenderer sets or, when nil, removes the renderer handed the styles of
// each processed frame
func (m *Monitor) SetRenderer(r Renderer) {
	m.renderer = r
}

// FrameCount returns the number of frames processed, skipped frames are not
// counted
func (m *Monitor) FrameCount() int {
	return m.frames
}

// ROI returns the clamped ROI in use
func (m *Monitor) ROI() roidwell.ROI {
	return m.roi
}

// MaxDwell returns the dwell time that raises an alert
func (m *Monitor) MaxDwell() time.Duration {
	return m.maxDwell
}

// Policy returns the visualisation policy in use
func (m *Monitor) Policy() Policy {
	return m.policy
}

// Seen returns the number of distinct tracked objects observed
func (m *Monitor) Seen() int {
	return m.registry.Seen()
}

// Alerts returns the number of alerts raised.  An object that alerts on
// several separate visits counts once per visit.
func (m *Monitor) Alerts() int {
	return m.alerts
}

// FrameSize returns the frame size cached from the first processed frame
func (m *Monitor) FrameSize() (width, height int) {
	return m.frameWidth, m.frameHeight
}

// AnyInside reports if any tracked object was in the ROI in the last frame
func (m *Monitor) AnyInside() bool {
	return m.anyInside
}

// AnyAlert reports if any tracked object was alerting in the last frame
func (m *Monitor) AnyAlert() bool {
	return m.anyAlert
}

// Now returns the instant of the last processed frame
func (m *Monitor) Now() time.Duration {
	return m.now
}

// Track returns the state of a tracked object
func (m *Monitor) Track(id uint64) (*Track, bool) {
	return m.registry.Get(id)
}

// Tracks calls fn with a copy of every track.  Order is unspecified.
func (m *Monitor) Tracks(fn func(t Track)) {
	m.registry.Each(func(t *Track) {
		fn(*t)
	})
}

// Close releases all track state.  The monitor should not be used after.
func (m *Monitor) Close() {
	m.registry.Reset()
	if m.smoother != nil {
		m.smoother = NewSmoother()
	}
	m.alerts = 0
	m.frames = 0
}
