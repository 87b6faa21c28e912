package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-roidwell"
	"github.com/swdee/go-roidwell/dwell"
)

const expectedReport = `ROI: left: 250 top: 250 width: 500 height: 500
Max time: 5s
Detected: 4 (2)
0:02 car time 8s alert
0:03 truck time 3s
1:05 car time 5s alert
`

var (
	in  = dwell.Box{Left: 490, Top: 490, Width: 20, Height: 20}
	out = dwell.Box{Left: 90, Top: 90, Width: 20, Height: 20}
)

func obj(id uint64, label string, box dwell.Box) dwell.Object {
	return dwell.Object{TrackID: id, Label: label, Box: box}
}

func newMonitor(t *testing.T) *dwell.Monitor {
	t.Helper()

	cfg := roidwell.DefaultConfig()
	cfg.ROI = roidwell.ROI{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

	m, err := dwell.New(cfg)
	require.NoError(t, err)

	return m
}

// sampleMonitor runs a short stream through a monitor.  Track 1 dwells 8s and
// alerts, track 2 dwells 3s, track 3 passes through in 50ms and track 4 is
// still in the ROI and alerting at the end of the stream.
func sampleMonitor(t *testing.T) *dwell.Monitor {

	m := newMonitor(t)

	frames := []struct {
		at      time.Duration
		objects []dwell.Object
	}{
		{0, []dwell.Object{obj(1, "car", out)}},
		{1 * time.Second, []dwell.Object{obj(1, "car", out)}},
		{2 * time.Second, []dwell.Object{obj(1, "car", in)}},
		{3 * time.Second, []dwell.Object{obj(1, "car", in), obj(2, "truck", in)}},
		{4 * time.Second, []dwell.Object{obj(1, "car", in), obj(2, "truck", in)}},
		{5 * time.Second, []dwell.Object{obj(1, "car", in), obj(2, "truck", in)}},
		{6 * time.Second, []dwell.Object{obj(1, "car", in), obj(2, "truck", out)}},
		{7 * time.Second, []dwell.Object{obj(1, "car", in), obj(3, "bus", in)}},
		{7050 * time.Millisecond, []dwell.Object{obj(1, "car", in), obj(3, "bus", out)}},
		{8 * time.Second, []dwell.Object{obj(1, "car", in)}},
		{9 * time.Second, []dwell.Object{obj(1, "car", in)}},
		{10 * time.Second, []dwell.Object{obj(1, "car", out)}},
		{65 * time.Second, []dwell.Object{obj(4, "car", in)}},
		{70 * time.Second, []dwell.Object{obj(4, "car", in)}},
	}

	for _, f := range frames {
		m.ProcessFrame(f.objects, 1000, 1000, f.at)
	}

	return m
}

func TestGenerate(t *testing.T) {

	m := sampleMonitor(t)

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, m))

	assert.Equal(t, expectedReport, buf.String())
}

func TestGenerateEmpty(t *testing.T) {

	cfg := roidwell.DefaultConfig()
	cfg.MaxDwell = 2500 * time.Millisecond

	m, err := dwell.New(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, m))

	assert.Equal(t, "ROI: left: 0 top: 0 width: 0 height: 0\nMax time: 2.5s\nDetected: 0 (0)\n", buf.String())
}

func TestEntriesFilterAndOrder(t *testing.T) {

	entries := Entries(sampleMonitor(t))

	require.Len(t, entries, 3)
	assert.Equal(t, []uint64{1, 2, 4},
		[]uint64{entries[0].TrackID, entries[1].TrackID, entries[2].TrackID})

	// track 4 is still inside so is measured up to the last frame
	assert.Equal(t, 5*time.Second, entries[2].TimeInROI)
	assert.True(t, entries[2].Alert)
}

func TestEntriesDefaultLabel(t *testing.T) {

	cfg := roidwell.DefaultConfig()
	cfg.Classes = nil

	m, err := dwell.New(cfg)
	require.NoError(t, err)

	m.ProcessFrame([]dwell.Object{obj(7, "", in)}, 1000, 1000, 0)
	m.ProcessFrame([]dwell.Object{obj(7, "", in)}, 1000, 1000, time.Second)

	entries := Entries(m)
	require.Len(t, entries, 1)
	assert.Equal(t, "object", entries[0].Label)
}

func TestTimestamp(t *testing.T) {

	tests := []struct {
		at   time.Duration
		want string
	}{
		{0, "0:00"},
		{2 * time.Second, "0:02"},
		{59900 * time.Millisecond, "0:59"},
		{65 * time.Second, "1:05"},
		{10 * time.Minute, "10:00"},
		{-time.Second, "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Timestamp(tt.at), tt.at.String())
	}
}

func TestWriteFile(t *testing.T) {

	m := sampleMonitor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")

	require.NoError(t, WriteFile(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expectedReport, string(data))

	// writing again gives the same content and leaves no temp files
	require.NoError(t, WriteFile(path, m))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expectedReport, string(data))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	assert.Equal(t, 2, m.Alerts())
}

func TestWriteFileUnwritable(t *testing.T) {

	m := sampleMonitor(t)
	path := filepath.Join(t.TempDir(), "missing", "report.txt")

	err := WriteFile(path, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.txt")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// the monitor is unaffected
	assert.Equal(t, 4, m.Seen())
	assert.Equal(t, 2, m.Alerts())
}

func TestSummarize(t *testing.T) {

	s := Summarize(sampleMonitor(t))

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Alerts)
	assert.Equal(t, 8*time.Second, s.Max)
	assert.Equal(t, 8*time.Second, s.P95)
	assert.InDelta(t, (16 * time.Second / 3).Seconds(), s.Mean.Seconds(), 1e-6)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(newMonitor(t))
	assert.Equal(t, Summary{}, s)
}
