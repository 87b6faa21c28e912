// Package source reads the tracked objects of each frame from a track log
// written by an external detector and tracker.
//
// The log holds one JSON object per line, for example
//
//	{"frame":12,"pts_ms":400,"width":1920,"height":1080,"objects":[
//	  {"id":3,"label":"car","left":100,"top":200,"width":80,"height":60}]}
//
// with frames in increasing order.  Frames with no objects may be omitted.
package source

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-roidwell/dwell"
)

// maxLineSize is the longest track log line accepted
const maxLineSize = 4 * 1024 * 1024

// ObjectRecord is a tracked object as stored in the track log
type ObjectRecord struct {
	ID     uint64  `json:"id"`
	Label  string  `json:"label"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Record is a single line of the track log
type Record struct {
	Frame int `json:"frame"`
	// PtsMs is the presentation time of the frame in milliseconds.  When
	// absent the time is derived from the frame index and the stream FPS.
	PtsMs   *float64       `json:"pts_ms,omitempty"`
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Objects []ObjectRecord `json:"objects"`
}

// Frame is the set of tracked objects for one frame of the stream
type Frame struct {
	Index   int
	Time    time.Duration
	Width   int
	Height  int
	Objects []dwell.Object
}

// Reader reads frames from a track log
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	fps     float64
	line    int

	// pending is a frame read ahead of the index requested by FrameAt
	pending *Frame
	eof     bool
}

// NewReader returns a Reader over r.  fps is used to time frames that carry
// no pts_ms, it defaults to 30 when not positive.
func NewReader(r io.Reader, fps float64) *Reader {

	if fps <= 0 {
		fps = 30
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Reader{
		scanner: sc,
		fps:     fps,
	}
}

// Open opens the track log file at path
func Open(path string, fps float64) (*Reader, error) {

	fh, err := os.Open(path)

	if err != nil {
		return nil, errors.Wrapf(err, "error opening track log %s", path)
	}

	r := NewReader(fh, fps)
	r.closer = fh

	return r, nil
}

// Close closes the underlying file when the Reader was created with Open
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Next returns the next frame in the log.  At the end of the log io.EOF is
// returned.
func (r *Reader) Next() (Frame, error) {

	if r.pending != nil {
		f := *r.pending
		r.pending = nil
		return f, nil
	}

	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())

		if text == "" {
			continue
		}

		var rec Record

		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return Frame{}, errors.Wrapf(err, "error decoding track log line %d", r.line)
		}

		return r.toFrame(rec), nil
	}

	if err := r.scanner.Err(); err != nil {
		return Frame{}, errors.Wrapf(err, "error reading track log after line %d", r.line)
	}

	r.eof = true
	return Frame{}, io.EOF
}

// FrameAt returns the frame with the given index for hosts that step through
// a video and need the objects of each decoded frame.  Indexes must be
// requested in increasing order.  Log entries for earlier indexes are
// skipped, and an index the log has no entry for gives a frame without
// objects, including once the log is exhausted.
func (r *Reader) FrameAt(index int) (Frame, error) {

	for !r.eof {

		f, err := r.Next()

		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return Frame{}, err
		}

		if f.Index < index {
			continue
		}

		if f.Index == index {
			return f, nil
		}

		r.pending = &f
		break
	}

	return Frame{
		Index: index,
		Time:  r.indexTime(index),
	}, nil
}

func (r *Reader) indexTime(index int) time.Duration {
	return time.Duration(float64(index) / r.fps * float64(time.Second))
}

func (r *Reader) toFrame(rec Record) Frame {

	f := Frame{
		Index:   rec.Frame,
		Width:   rec.Width,
		Height:  rec.Height,
		Objects: make([]dwell.Object, 0, len(rec.Objects)),
	}

	if rec.PtsMs != nil {
		f.Time = time.Duration(*rec.PtsMs * float64(time.Millisecond))
	} else {
		f.Time = r.indexTime(rec.Frame)
	}

	for _, o := range rec.Objects {
		f.Objects = append(f.Objects, dwell.Object{
			TrackID: o.ID,
			Label:   o.Label,
			Box: dwell.Box{
				Left:   o.Left,
				Top:    o.Top,
				Width:  o.Width,
				Height: o.Height,
			},
		})
	}

	return f
}
