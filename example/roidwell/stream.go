package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// clientBuffer is the number of frames queued per client before frames are
// dropped for that client
const clientBuffer = 30

// hub fans encoded JPEG frames out to connected MJPEG clients
type hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		clients: make(map[chan []byte]struct{}),
		log:     log,
	}
}

// subscribe registers a new client, ok is false once the hub is closed
func (h *hub) subscribe() (ch chan []byte, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}

	ch = make(chan []byte, clientBuffer)
	h.clients[ch] = struct{}{}

	return ch, true
}

func (h *hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[ch]; exists {
		delete(h.clients, ch)
		close(ch)
	}
}

// count returns the number of connected clients
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// publish sends a frame to every client, clients that have fallen behind
// miss the frame
func (h *hub) publish(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

// close ends the stream of every client
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// ServeHTTP streams frames to a browser as multipart JPEG
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	ch, ok := h.subscribe()

	if !ok {
		http.Error(w, "stream ended", http.StatusGone)
		return
	}

	defer h.unsubscribe(ch)

	h.log.Info("new client connection established", zap.String("remote", r.RemoteAddr))

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	// send the headers now so clients see the stream before the first frame
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			h.log.Info("client disconnected", zap.String("remote", r.RemoteAddr))
			return

		case frame, open := <-ch:
			if !open {
				return
			}

			// Write the image to the response writer
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(frame)

			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// runStream serves the annotated video as an MJPEG stream at /stream.  Frames
// are paced at the video frame rate to simulate a live camera and the server
// shuts down once the video ends.
func (p *pipeline) runStream(ctx context.Context) error {

	h := newHub(p.log.Named("stream"))

	mux := http.NewServeMux()
	mux.Handle("/stream", h)

	srv := &http.Server{
		Addr:    p.s.Addr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.log.Info("open browser and view video", zap.String("url", "http://"+p.s.Addr+"/stream"))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "error serving stream on %s", p.s.Addr)
		}
		return nil
	})

	g.Go(func() error {

		defer func() {
			h.close()

			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutCtx); err != nil {
				p.log.Warn("error shutting down stream server", zap.Error(err))
			}
		}()

		var ticker *time.Ticker

		err := p.eachVideoFrame(gctx, func(img gocv.Mat, fps float64) error {

			if ticker == nil {
				ticker = time.NewTicker(time.Duration(float64(time.Second) / fps))
			}

			// simulate reading a live camera at the video frame rate
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
			}

			// Encode the image to JPEG format
			buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)

			if err != nil {
				return errors.Wrap(err, "error encoding frame")
			}

			frame := append([]byte(nil), buf.GetBytes()...)
			buf.Close()

			h.publish(frame)
			return nil
		})

		if ticker != nil {
			ticker.Stop()
		}

		return err
	})

	return g.Wait()
}
