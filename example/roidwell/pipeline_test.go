package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-roidwell"
	"github.com/swdee/go-roidwell/dwell"
	"github.com/swdee/go-roidwell/report"
	"go.uber.org/zap"
)

// writeTrackLog writes a log at 10 FPS of a car parked in the middle of a
// 1000x1000 frame for 8 seconds, then leaving
func writeTrackLog(t *testing.T) string {
	t.Helper()

	var b strings.Builder

	for i := 0; i <= 90; i++ {
		left := 490
		if i > 80 {
			left = 50
		}

		fmt.Fprintf(&b, `{"frame":%d,"width":1000,"height":1000,"objects":[`+
			`{"id":1,"label":"car","left":%d,"top":490,"width":20,"height":20},`+
			`{"id":2,"label":"person","left":490,"top":490,"width":20,"height":20}]}`+"\n", i, left)
	}

	path := filepath.Join(t.TempDir(), "tracks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	return path
}

func TestRunHeadless(t *testing.T) {

	s := &settings{
		Monitor: roidwell.DefaultConfig(),
		Tracks:  writeTrackLog(t),
		Mode:    modeHeadless,
		FPS:     10,
		Trail:   5,
	}

	monitor, err := dwell.New(s.Monitor)
	require.NoError(t, err)

	p := newPipeline(s, monitor, zap.NewNop())
	require.NoError(t, p.runHeadless(context.Background()))

	assert.Equal(t, 91, monitor.FrameCount())
	assert.Equal(t, 1, monitor.Seen())
	assert.Equal(t, 1, monitor.Alerts())
	assert.Len(t, p.trail.Points(1), 5)
	assert.Empty(t, p.trail.Points(2))

	entries := report.Entries(monitor)
	require.Len(t, entries, 1)
	assert.Equal(t, "car", entries[0].Label)
	assert.True(t, entries[0].Alert)
}

func TestRunHeadlessForgetsEvictedTrails(t *testing.T) {

	var b strings.Builder

	// car 1 passes outside the ROI for a second and is gone, car 3 stays
	for i := 0; i <= 40; i++ {
		id := 3
		if i <= 10 {
			id = 1
		}

		fmt.Fprintf(&b, `{"frame":%d,"width":1000,"height":1000,"objects":[`+
			`{"id":%d,"label":"car","left":50,"top":50,"width":20,"height":20}]}`+"\n", i, id)
	}

	path := filepath.Join(t.TempDir(), "tracks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	s := &settings{
		Monitor: roidwell.DefaultConfig(),
		Tracks:  path,
		Mode:    modeHeadless,
		FPS:     10,
		Trail:   5,
	}
	s.Monitor.EvictAfter = time.Second

	monitor, err := dwell.New(s.Monitor)
	require.NoError(t, err)

	p := newPipeline(s, monitor, zap.NewNop())
	require.NoError(t, p.runHeadless(context.Background()))

	_, ok := monitor.Track(1)
	assert.False(t, ok)
	assert.Nil(t, p.trail.Points(1))
	assert.Len(t, p.trail.Points(3), 5)
	assert.Equal(t, 2, monitor.Seen())
}

func TestRunHeadlessCancelled(t *testing.T) {

	s := &settings{
		Monitor: roidwell.DefaultConfig(),
		Tracks:  writeTrackLog(t),
		Mode:    modeHeadless,
		FPS:     10,
	}

	monitor, err := dwell.New(s.Monitor)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(s, monitor, zap.NewNop())
	err = p.runHeadless(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, monitor.FrameCount())
}
