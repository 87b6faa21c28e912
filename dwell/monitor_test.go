package dwell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-roidwell"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	frameW = 1000
	frameH = 1000
)

var (
	// the default ROI covers pixels 300..700 on both axes
	inBox  = boxAt(500, 500)
	outBox = boxAt(100, 100)
)

func newTestMonitor(t *testing.T, modify func(*roidwell.Config), opts ...Option) *Monitor {
	t.Helper()

	cfg := roidwell.DefaultConfig()

	if modify != nil {
		modify(&cfg)
	}

	m, err := New(cfg, opts...)
	require.NoError(t, err)

	return m
}

func car(id uint64, box Box) Object {
	return Object{TrackID: id, Label: "car", Box: box}
}

// step feeds the same single object for every instant in [from,to] at the
// given interval
func step(m *Monitor, obj Object, from, to, interval time.Duration) Frame {
	var f Frame
	for now := from; now <= to; now += interval {
		f = m.ProcessFrame([]Object{obj}, frameW, frameH, now)
	}
	return f
}

func TestNewTrackStartsOutside(t *testing.T) {
	m := newTestMonitor(t, nil)

	m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 0)

	track, ok := m.Track(1)
	require.True(t, ok)
	assert.Equal(t, Outside, track.State)
	assert.False(t, track.AlertTriggered)
	assert.Equal(t, 1, m.Seen())
}

// an object dwelling past the threshold alerts once and has its
// dwell frozen on exit
func TestAlertThenExitFreezesDwell(t *testing.T) {

	m := newTestMonitor(t, nil)

	for s := 0; s <= 4; s++ {
		m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, time.Duration(s)*time.Second)
		track, _ := m.Track(1)
		assert.Equal(t, Inside, track.State, "at %ds", s)
	}

	f := m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, 5*time.Second)
	track, _ := m.Track(1)
	assert.Equal(t, Alert, track.State)
	assert.Equal(t, 5*time.Second, track.AlertAt)
	assert.True(t, track.AlertTriggered)
	assert.Equal(t, 1, m.Alerts())
	assert.True(t, f.AnyAlert)
	assert.Equal(t, Red, f.ROI.Border)

	f = m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 6*time.Second)
	track, _ = m.Track(1)
	assert.Equal(t, Outside, track.State)
	assert.True(t, track.AlertTriggered)
	assert.InDelta(t, 6.0, track.Dwell.Seconds(), 1e-9)
	assert.Equal(t, 1, m.Alerts())
	assert.False(t, f.AnyAlert)
	assert.False(t, f.AnyInside)
	assert.Equal(t, Green, f.ROI.Border)
}

func TestAlertCountedOncePerOnset(t *testing.T) {
	m := newTestMonitor(t, nil)

	step(m, car(1, inBox), 0, 20*time.Second, 100*time.Millisecond)
	assert.Equal(t, 1, m.Alerts())
}

// objects outside the allow-list are never tracked
func TestIgnoredClassNeverTracked(t *testing.T) {

	m := newTestMonitor(t, nil)

	person := Object{TrackID: 9, Label: "person"}

	for s := 0; s <= 10; s++ {
		person.Box = outBox
		if s > 1 && s < 9 {
			person.Box = inBox
		}

		f := m.ProcessFrame([]Object{person}, frameW, frameH, time.Duration(s)*time.Second)

		require.Len(t, f.Objects, 1)
		assert.False(t, f.Objects[0].Tracked)
		assert.Equal(t, m.Policy().Neutral(), f.Objects[0].Style)
		assert.False(t, f.AnyInside)
		assert.False(t, f.AnyAlert)
	}

	_, ok := m.Track(9)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Seen())
	assert.Equal(t, 0, m.Alerts())
}

// leaving before the threshold re-arms the alert for the next
// visit
func TestReentryBeforeThresholdRearmsAlert(t *testing.T) {

	m := newTestMonitor(t, nil)
	obj := car(3, inBox)

	// first visit lasts 3 seconds
	step(m, obj, 0, 3*time.Second, time.Second)
	m.ProcessFrame([]Object{car(3, outBox)}, frameW, frameH, 3*time.Second+time.Millisecond)

	track, _ := m.Track(3)
	assert.Equal(t, Outside, track.State)
	assert.False(t, track.AlertTriggered)
	assert.Equal(t, 0, m.Alerts())

	// away for a while
	step(m, car(3, outBox), 4*time.Second, 10*time.Second, time.Second)
	assert.Equal(t, 0, m.Alerts())

	// second visit starts timing from zero
	step(m, obj, 11*time.Second, 15*time.Second, time.Second)
	track, _ = m.Track(3)
	assert.Equal(t, Inside, track.State)
	assert.Equal(t, 11*time.Second, track.Entry)

	m.ProcessFrame([]Object{obj}, frameW, frameH, 16*time.Second)
	track, _ = m.Track(3)
	assert.Equal(t, Alert, track.State)
	assert.Equal(t, 16*time.Second, track.AlertAt)
	assert.Equal(t, 1, m.Alerts())

	step(m, obj, 17*time.Second, 30*time.Second, time.Second)
	assert.Equal(t, 1, m.Alerts())
}

func TestEachVisitAlertsAgain(t *testing.T) {
	m := newTestMonitor(t, nil)

	step(m, car(1, inBox), 0, 6*time.Second, time.Second)
	m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 7*time.Second)
	step(m, car(1, inBox), 8*time.Second, 14*time.Second, time.Second)

	assert.Equal(t, 2, m.Alerts())
	assert.Equal(t, 1, m.Seen())
}

// an ROI configured past the frame edge is clamped before use
func TestROIPastFrameEdgeClamped(t *testing.T) {

	m := newTestMonitor(t, func(c *roidwell.Config) {
		c.ROI = roidwell.ROI{X: 0.9, Y: 0, W: 0.5, H: 1}
	})

	roi := m.ROI()
	assert.InDelta(t, 1.0, roi.X+roi.W, 1e-9)
	assert.InDelta(t, 0.5, roi.X, 1e-9)

	// center x at 0.6 is inside the clamped ROI but would be outside the
	// configured one
	f := m.ProcessFrame([]Object{car(1, boxAt(600, 500))}, frameW, frameH, 0)
	assert.True(t, f.AnyInside)
	assert.Equal(t, 500, f.ROI.Rect.Min.X)
	assert.Equal(t, 1000, f.ROI.Rect.Max.X)
}

func TestAggregateFlags(t *testing.T) {

	m := newTestMonitor(t, nil)

	f := m.ProcessFrame([]Object{car(1, outBox), car(2, outBox)}, frameW, frameH, 0)
	assert.False(t, f.AnyInside)
	assert.False(t, f.ROI.HasFill)
	assert.Equal(t, Green, f.ROI.Border)

	f = m.ProcessFrame([]Object{car(1, outBox), car(2, inBox)}, frameW, frameH, time.Second)
	assert.True(t, f.AnyInside)
	assert.False(t, f.AnyAlert)
	assert.True(t, m.AnyInside())
	assert.Equal(t, Orange, f.ROI.Border)
	assert.True(t, f.ROI.HasFill)

	f = m.ProcessFrame([]Object{car(1, outBox), car(2, inBox)}, frameW, frameH, 7*time.Second)
	assert.True(t, f.AnyAlert)
	assert.True(t, m.AnyAlert())
	assert.Equal(t, Red, f.ROI.Border)

	// object 2 missing from the frame, nothing to aggregate
	f = m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 8*time.Second)
	assert.False(t, f.AnyInside)
	assert.False(t, f.AnyAlert)
}

func TestObjectStyles(t *testing.T) {

	m := newTestMonitor(t, nil)

	f := m.ProcessFrame([]Object{car(1, inBox), car(2, outBox)}, frameW, frameH, 0)
	require.Len(t, f.Objects, 2)
	assert.Equal(t, Orange, f.Objects[0].Style.Border)
	assert.Equal(t, Inside, f.Objects[0].State)
	assert.Equal(t, Green, f.Objects[1].Style.Border)

	f = m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, 5*time.Second)
	assert.Equal(t, Magenta, f.Objects[0].Style.Border)
	assert.True(t, f.Objects[0].Style.HasFill)
	assert.Equal(t, 5*time.Second, f.Objects[0].TimeInROI)

	f = m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, 5300*time.Millisecond)
	assert.False(t, f.Objects[0].Style.HasFill)
}

func TestFrameSizeCached(t *testing.T) {

	m := newTestMonitor(t, nil)

	w, h := m.FrameSize()
	assert.Zero(t, w)
	assert.Zero(t, h)

	m.ProcessFrame(nil, 1920, 1080, 0)
	m.ProcessFrame(nil, 640, 480, time.Second)

	w, h = m.FrameSize()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
}

func TestZeroSizeFrameSkipped(t *testing.T) {

	m := newTestMonitor(t, nil)

	f := m.ProcessFrame([]Object{car(1, inBox)}, 0, 1080, 0)
	assert.True(t, f.Skipped)
	assert.Equal(t, 0, m.Seen())

	w, _ := m.FrameSize()
	assert.Zero(t, w)
}

func TestAllowListCaseInsensitive(t *testing.T) {
	m := newTestMonitor(t, func(c *roidwell.Config) {
		c.Classes = []string{"Car", " Truck "}
	})

	assert.True(t, m.Allowed("car"))
	assert.True(t, m.Allowed("TRUCK"))
	assert.False(t, m.Allowed("person"))
}

func TestEmptyAllowListTracksAll(t *testing.T) {
	m := newTestMonitor(t, func(c *roidwell.Config) {
		c.Classes = nil
	})

	m.ProcessFrame([]Object{{TrackID: 1, Label: "person", Box: inBox}}, frameW, frameH, 0)
	assert.Equal(t, 1, m.Seen())
}

func TestOverlapContainment(t *testing.T) {

	m := newTestMonitor(t, func(c *roidwell.Config) {
		c.Containment = roidwell.ContainOverlap
		c.MinOverlap = 0.8
	})

	// 100x100 box from x=260 has 60% of its area inside the ROI at x>=300
	// while its center at x=310 would pass the center rule
	f := m.ProcessFrame([]Object{car(1, Box{Left: 260, Top: 450, Width: 100, Height: 100})}, frameW, frameH, 0)
	assert.False(t, f.AnyInside)

	f = m.ProcessFrame([]Object{car(1, Box{Left: 290, Top: 450, Width: 100, Height: 100})}, frameW, frameH, time.Second)
	assert.True(t, f.AnyInside)
}

func TestEviction(t *testing.T) {

	m := newTestMonitor(t, func(c *roidwell.Config) {
		c.EvictAfter = 10 * time.Second
	})

	step(m, car(1, inBox), 0, 6*time.Second, time.Second)
	m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 7*time.Second)

	step(m, car(2, outBox), 8*time.Second, 20*time.Second, time.Second)

	_, ok := m.Track(1)
	assert.False(t, ok)
	_, ok = m.Track(2)
	assert.True(t, ok)
	assert.Equal(t, 2, m.Seen())
	assert.Equal(t, 1, m.Alerts())
}

func TestEvictedTrackReturns(t *testing.T) {

	var evicted []uint64

	m := newTestMonitor(t, func(c *roidwell.Config) {
		c.EvictAfter = 10 * time.Second
	}, WithEvictHook(func(id uint64) {
		evicted = append(evicted, id)
	}))

	step(m, car(1, inBox), 0, 6*time.Second, time.Second)
	m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 7*time.Second)

	step(m, car(2, outBox), 8*time.Second, 20*time.Second, time.Second)
	assert.Equal(t, []uint64{1}, evicted)

	m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 21*time.Second)

	track, ok := m.Track(1)
	require.True(t, ok)
	assert.Equal(t, Outside, track.State)
	assert.True(t, track.AlertTriggered)
	assert.Equal(t, time.Duration(0), track.FirstSeen)
	assert.Equal(t, 2, m.Seen())
	assert.Equal(t, 1, m.Alerts())
}

func TestSetEvictHook(t *testing.T) {

	m := newTestMonitor(t, func(c *roidwell.Config) {
		c.EvictAfter = time.Second
		c.Smoothing = true
	})

	var evicted []uint64
	m.SetEvictHook(func(id uint64) { evicted = append(evicted, id) })

	m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 0)
	assert.Equal(t, 1, m.smoother.Len())

	m.ProcessFrame(nil, frameW, frameH, 2*time.Second)
	assert.Equal(t, []uint64{1}, evicted)
	assert.Equal(t, 0, m.smoother.Len())

	m.SetEvictHook(nil)
	m.ProcessFrame([]Object{car(2, outBox)}, frameW, frameH, 3*time.Second)
	m.ProcessFrame(nil, frameW, frameH, 5*time.Second)
	assert.Equal(t, []uint64{1}, evicted)
}

type recordingRenderer struct {
	objects []ObjectStyle
	rois    []ROIStyle
}

func (r *recordingRenderer) DrawObject(obj ObjectStyle) {
	r.objects = append(r.objects, obj)
}

func (r *recordingRenderer) DrawROI(roi ROIStyle) {
	r.rois = append(r.rois, roi)
}

func TestFrameDraw(t *testing.T) {

	m := newTestMonitor(t, nil)
	rr := &recordingRenderer{}

	f := m.ProcessFrame([]Object{car(1, inBox), {TrackID: 2, Label: "dog", Box: inBox}}, frameW, frameH, 0)
	f.Draw(rr)

	require.Len(t, rr.objects, 2)
	require.Len(t, rr.rois, 1)
	assert.Equal(t, uint64(1), rr.objects[0].TrackID)
	assert.Equal(t, Orange, rr.rois[0].Border)
	assert.Equal(t, m.ROI().Pixels(frameW, frameH), rr.rois[0].Rect)
}

func TestAlertLogged(t *testing.T) {

	core, logs := observer.New(zap.InfoLevel)
	m := newTestMonitor(t, nil, WithLogger(zap.New(core)))

	step(m, car(5, inBox), 0, 6*time.Second, time.Second)

	entries := logs.FilterMessage("object exceeded max dwell time").All()
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(5), entries[0].ContextMap()["track"])
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := roidwell.DefaultConfig()
	cfg.MaxDwell = 0

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	m := newTestMonitor(t, nil)
	step(m, car(1, inBox), 0, 6*time.Second, time.Second)

	m.Close()
	assert.Equal(t, 0, m.Seen())
	assert.Equal(t, 0, m.Alerts())
}

func TestWithRenderer(t *testing.T) {

	rr := &recordingRenderer{}
	m := newTestMonitor(t, nil, WithRenderer(rr))

	m.ProcessFrame([]Object{car(1, outBox)}, frameW, frameH, 0)
	m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, time.Second)

	require.Len(t, rr.objects, 2)
	require.Len(t, rr.rois, 2)
	assert.Equal(t, Green, rr.rois[0].Border)
	assert.Equal(t, Orange, rr.rois[1].Border)

	// skipped frames are not drawn
	m.ProcessFrame([]Object{car(1, inBox)}, 0, 0, 2*time.Second)
	assert.Len(t, rr.rois, 2)
}

func TestSetRendererAndFrameCount(t *testing.T) {

	m := newTestMonitor(t, nil)
	rr := &recordingRenderer{}

	m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, 0)
	m.SetRenderer(rr)
	m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, time.Second)
	m.SetRenderer(nil)
	m.ProcessFrame([]Object{car(1, inBox)}, frameW, frameH, 2*time.Second)
	m.ProcessFrame(nil, 0, 0, 3*time.Second)

	assert.Len(t, rr.rois, 1)
	assert.Equal(t, 3, m.FrameCount())
}
