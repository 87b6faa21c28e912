package main

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/swdee/go-roidwell"
)

// Modes the run command can operate in
const (
	// modeVideo writes the annotated video to a file
	modeVideo = "video"
	// modeStream serves the annotated video as an MJPEG stream over HTTP
	modeStream = "stream"
	// modeHeadless processes the track log only, no video is read
	modeHeadless = "headless"
)

// settings holds the monitor configuration plus the options of the host
// pipeline
type settings struct {
	Monitor roidwell.Config `mapstructure:",squash"`

	Video     string  `mapstructure:"video"`
	Tracks    string  `mapstructure:"tracks"`
	Output    string  `mapstructure:"output"`
	Report    string  `mapstructure:"report"`
	Mode      string  `mapstructure:"mode"`
	Addr      string  `mapstructure:"addr"`
	FPS       float64 `mapstructure:"fps"`
	Codec     string  `mapstructure:"codec"`
	Trail     int     `mapstructure:"trail"`
	Labels    string  `mapstructure:"labels"`
	WallClock bool    `mapstructure:"wall_clock"`
}

// setDefaults configures default values for all settings
func setDefaults(v *viper.Viper) {

	def := roidwell.DefaultConfig()

	// roi.left and roi.top have no default, when unset the ROI is centered
	v.SetDefault("roi.width", def.ROI.W)
	v.SetDefault("roi.height", def.ROI.H)
	v.SetDefault("max_dwell", def.MaxDwell)
	v.SetDefault("classes", def.Classes)
	v.SetDefault("blink.window", def.Blink.Window)
	v.SetDefault("blink.period", def.Blink.Period)
	v.SetDefault("containment", string(def.Containment))
	v.SetDefault("min_overlap", def.MinOverlap)
	v.SetDefault("evict_after", def.EvictAfter)
	v.SetDefault("smoothing", def.Smoothing)

	v.SetDefault("output", "output.mp4")
	v.SetDefault("report", "report.txt")
	v.SetDefault("mode", modeVideo)
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("codec", "mp4v")
	v.SetDefault("trail", 90)
}

// flagKeys maps command line flags to their setting keys
var flagKeys = map[string]string{
	"video":       "video",
	"tracks":      "tracks",
	"output":      "output",
	"report":      "report",
	"mode":        "mode",
	"addr":        "addr",
	"fps":         "fps",
	"codec":       "codec",
	"trail":       "trail",
	"labels":      "labels",
	"wall-clock":  "wall_clock",
	"left":        "roi.left",
	"top":         "roi.top",
	"width":       "roi.width",
	"height":      "roi.height",
	"max-time":    "max_dwell",
	"classes":     "classes",
	"blink":       "blink.window",
	"blink-rate":  "blink.period",
	"containment": "containment",
	"min-overlap": "min_overlap",
	"evict-after": "evict_after",
	"smooth":      "smoothing",
}

// newViper returns a viper instance reading from the optional config file,
// ROIDWELL_ prefixed environment variables and the given flags in increasing
// order of precedence
func newViper(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {

	v := viper.New()

	v.SetEnvPrefix("ROIDWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range []string{"roi.left", "roi.top", "video", "tracks", "fps", "labels", "wall_clock"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "error binding environment for %s", key)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)

			if f == nil {
				continue
			}

			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "error binding flag %s", name)
			}
		}
	}

	return v, nil
}

// loadSettings unmarshals and checks the settings held by v
func loadSettings(v *viper.Viper) (*settings, error) {

	var s settings

	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// center the ROI on any axis without an explicit origin
	centered := roidwell.CenteredROI(s.Monitor.ROI.W, s.Monitor.ROI.H)

	if !v.IsSet("roi.left") {
		s.Monitor.ROI.X = centered.X
	}

	if !v.IsSet("roi.top") {
		s.Monitor.ROI.Y = centered.Y
	}

	if s.Labels != "" {
		classes, err := roidwell.LoadLabels(s.Labels)

		if err != nil {
			return nil, err
		}

		s.Monitor.Classes = classes
	}

	// a single comma delimited value from the environment or a flag
	if len(s.Monitor.Classes) == 1 {
		s.Monitor.Classes = roidwell.ParseLabels(s.Monitor.Classes[0])
	}

	s.Mode = strings.ToLower(s.Mode)

	switch s.Mode {
	case modeVideo, modeStream:
		if s.Video == "" {
			return nil, errors.WithHint(
				errors.Newf("mode %s requires a video file", s.Mode),
				"pass --video or use --mode headless")
		}

	case modeHeadless:

	default:
		return nil, errors.WithHintf(errors.Newf("unknown mode %q", s.Mode),
			"use %s, %s or %s", modeVideo, modeStream, modeHeadless)
	}

	if s.Tracks == "" {
		return nil, errors.WithHint(errors.New("no track log given"),
			"pass the JSON lines file written by the tracker with --tracks")
	}

	if err := s.Monitor.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}
