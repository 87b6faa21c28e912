package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/swdee/go-roidwell/dwell"
	"github.com/swdee/go-roidwell/report"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dwell monitor over a video and its track log",
	RunE:  runMonitor,
}

func init() {
	f := runCmd.Flags()

	f.StringP("video", "v", "", "Video file to annotate")
	f.StringP("tracks", "k", "", "JSON lines track log written by the object tracker")
	f.StringP("output", "o", "output.mp4", "Annotated video file written in video mode")
	f.StringP("report", "r", "report.txt", "Report file written at the end of the stream")
	f.StringP("mode", "m", modeVideo, "Output mode [video|stream|headless]")
	f.StringP("addr", "a", "localhost:8080", "HTTP address to serve the MJPEG stream on in stream mode")
	f.Float64("fps", 0, "Frame rate used to time frames, defaults to that of the video")
	f.String("codec", "mp4v", "FourCC codec of the output video")
	f.Int("trail", 90, "Number of points in each object trail, 0 disables trails")
	f.StringP("labels", "l", "", "Text file of class labels to track, one per line")
	f.Bool("wall-clock", false, "Time objects by the wall clock instead of the video timestamps")

	f.Float64("left", 0, "Left edge of the ROI as a fraction of frame width, centered when unset")
	f.Float64("top", 0, "Top edge of the ROI as a fraction of frame height, centered when unset")
	f.Float64("width", 0.4, "Width of the ROI as a fraction of frame width")
	f.Float64("height", 0.4, "Height of the ROI as a fraction of frame height")
	f.DurationP("max-time", "t", 0, "Maximum time an object may stay in the ROI before an alert, eg: 5s")
	f.StringSliceP("classes", "x", nil, "Comma delimited list of class labels to track")
	f.Duration("blink", 0, "How long the alert fill blinks for")
	f.Duration("blink-rate", 0, "Duration of each on and off phase of the alert blink")
	f.String("containment", "", "Rule used to test if an object is in the ROI [center|overlap]")
	f.Float64("min-overlap", 0, "Fraction of box area required in the ROI for overlap containment")
	f.Duration("evict-after", 0, "Forget objects outside the ROI unseen for this long, 0 keeps all")
	f.Bool("smooth", false, "Smooth object boxes over time before testing if they are in the ROI")
}

func runMonitor(cmd *cobra.Command, args []string) error {

	jsonLogs, _ := cmd.Flags().GetBool("log-json")
	verbose, _ := cmd.Flags().GetCount("verbose")
	configFile, _ := cmd.Flags().GetString("config")

	log, err := newLogger(jsonLogs, verbose)

	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}

	defer log.Sync()

	v, err := newViper(configFile, cmd.Flags())

	if err != nil {
		return err
	}

	s, err := loadSettings(v)

	if err != nil {
		return err
	}

	monitor, err := dwell.New(s.Monitor, dwell.WithLogger(log.Named("dwell")))

	if err != nil {
		return err
	}

	defer monitor.Close()

	log.Info("starting monitor",
		zap.String("mode", s.Mode),
		zap.String("video", s.Video),
		zap.String("tracks", s.Tracks),
		zap.Any("roi", monitor.ROI()),
		zap.Duration("max_dwell", monitor.MaxDwell()),
		zap.Strings("classes", s.Monitor.Classes))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPipeline(s, monitor, log)

	switch s.Mode {
	case modeStream:
		err = p.runStream(ctx)
	case modeHeadless:
		err = p.runHeadless(ctx)
	default:
		err = p.runVideo(ctx)
	}

	// an interrupted stream still gets its report
	if errors.Is(err, context.Canceled) {
		log.Warn("stream interrupted, writing report for frames processed")
	} else if err != nil {
		return err
	}

	if err := report.WriteFile(s.Report, monitor); err != nil {
		return err
	}

	sum := report.Summarize(monitor)

	log.Info("report written",
		zap.String("file", s.Report),
		zap.Int("seen", monitor.Seen()),
		zap.Int("alerts", monitor.Alerts()),
		zap.Int("reported", sum.Count),
		zap.Duration("mean_dwell", sum.Mean),
		zap.Duration("p95_dwell", sum.P95),
		zap.Duration("max_dwell", sum.Max))

	return nil
}
