// Package report writes the end of stream dwell report for a Monitor
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-roidwell/dwell"
)

// minTimeInROI is the time an object must have spent in the ROI to be
// listed in the report
const minTimeInROI = 100 * time.Millisecond

// defaultLabel is used for objects that arrived without a class label
const defaultLabel = "object"

// Entry is a single object line of the report
type Entry struct {
	TrackID   uint64
	Label     string
	Entry     time.Duration
	TimeInROI time.Duration
	Alert     bool
}

// Entries returns the objects that spent more than 100ms in the ROI, ordered
// by the instant they last entered it and then by track ID.  Objects still in
// the ROI are measured up to the last processed frame.
func Entries(m *dwell.Monitor) []Entry {

	now := m.Now()
	var list []Entry

	m.Tracks(func(t dwell.Track) {

		inROI := t.TimeInROI(now)

		if inROI <= minTimeInROI {
			return
		}

		label := t.Label
		if label == "" {
			label = defaultLabel
		}

		list = append(list, Entry{
			TrackID:   t.TrackID,
			Label:     label,
			Entry:     t.Entry,
			TimeInROI: inROI,
			Alert:     t.AlertTriggered,
		})
	})

	sort.Slice(list, func(i, j int) bool {
		if list[i].Entry != list[j].Entry {
			return list[i].Entry < list[j].Entry
		}
		return list[i].TrackID < list[j].TrackID
	})

	return list
}

// Generate writes the report for the monitor to w
func Generate(w io.Writer, m *dwell.Monitor) error {

	fw, fh := m.FrameSize()
	rect := m.ROI().Pixels(fw, fh)

	_, err := fmt.Fprintf(w, "ROI: left: %d top: %d width: %d height: %d\n",
		rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())

	if err != nil {
		return errors.Wrap(err, "error writing report header")
	}

	_, err = fmt.Fprintf(w, "Max time: %ss\nDetected: %d (%d)\n",
		strconv.FormatFloat(m.MaxDwell().Seconds(), 'f', -1, 64),
		m.Seen(), m.Alerts())

	if err != nil {
		return errors.Wrap(err, "error writing report header")
	}

	for _, e := range Entries(m) {

		line := fmt.Sprintf("%s %s time %ds", Timestamp(e.Entry), e.Label,
			int64(e.TimeInROI/time.Second))

		if e.Alert {
			line += " alert"
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return errors.Wrapf(err, "error writing report line for track %d", e.TrackID)
		}
	}

	return nil
}

// Timestamp formats a stream instant as M:SS
func Timestamp(d time.Duration) string {

	if d < 0 {
		d = 0
	}

	secs := int64(d / time.Second)

	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// WriteFile writes the report for the monitor to the named file.  The report
// is written to a temporary file in the same directory which is then renamed
// over path, so a failure never leaves a partial report behind.  Calling
// WriteFile again rewrites the same content.
func WriteFile(path string, m *dwell.Monitor) error {

	var buf bytes.Buffer

	if err := Generate(&buf, m); err != nil {
		return err
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")

	if err != nil {
		return errors.Wrapf(err, "error creating report file %s", path)
	}

	// remove the temp file on any failure, after a successful rename this is
	// a no-op error we ignore
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error writing report file %s", path)
	}

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error setting mode on report file %s", path)
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "error closing report file %s", path)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "error saving report file %s", path)
	}

	return nil
}
