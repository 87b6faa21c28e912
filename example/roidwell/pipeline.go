package main

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-roidwell/dwell"
	"github.com/swdee/go-roidwell/render"
	"github.com/swdee/go-roidwell/source"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// defaultFPS is used when neither the settings nor the video give a rate
const defaultFPS = 30

// pipeline feeds frames of a track log, and optionally the video they were
// produced from, through the dwell monitor
type pipeline struct {
	s       *settings
	monitor *dwell.Monitor
	trail   *dwell.Trail
	// clock is set when frames are timed by the wall clock
	clock *dwell.StreamClock
	font  render.Font
	log   *zap.Logger

	// used for calculating FPS
	frameCount int
	fpsStart   time.Time
	fps        float64
}

func newPipeline(s *settings, monitor *dwell.Monitor, log *zap.Logger) *pipeline {

	p := &pipeline{
		s:       s,
		monitor: monitor,
		font:    render.DefaultFont(),
		log:     log,
	}

	if s.Trail > 0 {
		p.trail = dwell.NewTrail(s.Trail)
		monitor.SetEvictHook(p.trail.Forget)
	}

	if s.WallClock {
		p.clock = dwell.NewStreamClock(nil)
	}

	return p
}

// frameRate returns the rate used to time frames without timestamps
func (p *pipeline) frameRate(video *gocv.VideoCapture) float64 {

	if p.s.FPS > 0 {
		return p.s.FPS
	}

	if video != nil {
		if fps := video.Get(gocv.VideoCaptureFPS); fps > 0 {
			return fps
		}
	}

	return defaultFPS
}

// step processes one frame, when img is not nil the result is drawn onto it
func (p *pipeline) step(img *gocv.Mat, f source.Frame, overlay *render.Overlay) dwell.Frame {

	now := f.Time
	if p.clock != nil {
		now = p.clock.Elapsed()
	}

	width, height := f.Width, f.Height

	if img != nil {
		width, height = img.Cols(), img.Rows()
		overlay.SetTarget(img)
	}

	res := p.monitor.ProcessFrame(f.Objects, width, height, now)

	if res.Skipped {
		return res
	}

	if p.trail != nil {
		for _, obj := range res.Objects {
			if obj.Tracked {
				p.trail.Add(obj.Object)
			}
		}
	}

	if img != nil {
		p.annotate(img, res, f.Index, now)
	}

	return res
}

// annotate draws the trails and status bar, boxes and the ROI have already
// been drawn by the overlay during processing
func (p *pipeline) annotate(img *gocv.Mat, res dwell.Frame, frameNum int, now time.Duration) {

	if p.trail != nil {
		style := render.DefaultTrailStyle()
		style.LineSame = true
		render.Trail(img, res.Objects, p.trail, style)
	}

	render.StatusBar(img, render.Status{
		Frame:    frameNum,
		FPS:      p.fps,
		At:       now,
		Objects:  len(res.Objects),
		Seen:     p.monitor.Seen(),
		Alerts:   p.monitor.Alerts(),
		MaxDwell: p.monitor.MaxDwell(),
	}, p.font)
}

// tick updates the processing frame rate
func (p *pipeline) tick() {

	if p.fpsStart.IsZero() {
		p.fpsStart = time.Now()
	}

	p.frameCount++
	elapsed := time.Since(p.fpsStart).Seconds()

	if elapsed >= 1.0 {
		p.fps = float64(p.frameCount) / elapsed
		p.frameCount = 0
		p.fpsStart = time.Now()
	}
}

// frameFunc is called with each annotated video frame
type frameFunc func(img gocv.Mat, fps float64) error

// eachVideoFrame reads the video, processes every frame against the track
// log and hands the annotated frame to fn
func (p *pipeline) eachVideoFrame(ctx context.Context, fn frameFunc) error {

	video, err := gocv.VideoCaptureFile(p.s.Video)

	if err != nil {
		return errors.Wrapf(err, "error opening video %s", p.s.Video)
	}

	defer video.Close()

	fps := p.frameRate(video)

	tracks, err := source.Open(p.s.Tracks, fps)

	if err != nil {
		return err
	}

	defer tracks.Close()

	// boxes and the ROI are drawn by the monitor through the overlay
	overlay := render.NewOverlay(nil, p.font)
	p.monitor.SetRenderer(overlay)
	defer p.monitor.SetRenderer(nil)

	img := gocv.NewMat()
	defer img.Close()

	for frameNum := 0; ; frameNum++ {

		if err := ctx.Err(); err != nil {
			return err
		}

		// read the next frame from the video
		if ok := video.Read(&img); !ok {
			// reached last video frame
			break
		}

		if img.Empty() {
			continue
		}

		f, err := tracks.FrameAt(frameNum)

		if err != nil {
			return err
		}

		p.step(&img, f, overlay)
		p.tick()

		if err := fn(img, fps); err != nil {
			return err
		}
	}

	p.log.Info("end of video", zap.Int("frames", p.monitor.FrameCount()))
	return nil
}

// runVideo writes the annotated video to the output file
func (p *pipeline) runVideo(ctx context.Context) error {

	var writer *gocv.VideoWriter

	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	return p.eachVideoFrame(ctx, func(img gocv.Mat, fps float64) error {

		if writer == nil {
			var err error
			writer, err = gocv.VideoWriterFile(p.s.Output, p.s.Codec, fps,
				img.Cols(), img.Rows(), true)

			if err != nil {
				return errors.Wrapf(err, "error creating output video %s", p.s.Output)
			}

			p.log.Info("writing annotated video", zap.String("file", p.s.Output),
				zap.Int("width", img.Cols()), zap.Int("height", img.Rows()),
				zap.Float64("fps", fps))
		}

		if err := writer.Write(img); err != nil {
			return errors.Wrap(err, "error writing output frame")
		}

		return nil
	})
}

// runHeadless processes the track log alone using the frame sizes it
// records
func (p *pipeline) runHeadless(ctx context.Context) error {

	tracks, err := source.Open(p.s.Tracks, p.frameRate(nil))

	if err != nil {
		return err
	}

	defer tracks.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := tracks.Next()

		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		p.step(nil, f, nil)
	}

	p.log.Info("end of track log", zap.Int("frames", p.monitor.FrameCount()))
	return nil
}
