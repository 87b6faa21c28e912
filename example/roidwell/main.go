package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roidwell",
	Short: "Monitor how long tracked objects dwell in a region of interest",
	Long: `roidwell watches a region of interest (ROI) in a video and raises an alert
when a tracked object stays inside it for longer than the maximum dwell time.

Objects are read from a track log written by an external detector and tracker,
one JSON object per frame.  The annotated video is written to a file or served
as an MJPEG stream, and a text report is written at the end of the stream.

Examples:
  roidwell run -v palace.mp4 -k palace.jsonl
  roidwell run -v palace.mp4 -k palace.jsonl --mode stream --addr :8080
  roidwell run -k palace.jsonl --mode headless --max-time 10s`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (toml, yaml or json)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs as JSON")
	rootCmd.PersistentFlags().CountP("verbose", "V", "Increase log verbosity")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
