package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/SenseCam/internal/debug"
	"github.com/cjeanneret/SenseCam/internal/hw/camera"
	"github.com/cjeanneret/SenseCam/internal/logic/access"
)

const (
	// StreamBoundary separates the parts of the MJPEG response.
	StreamBoundary = "frame"
	// StreamContentType is the Content-Type of GET /camera.mjpeg.
	StreamContentType = "multipart/x-mixed-replace; boundary=" + StreamBoundary

	// HealthBody is returned by GET /.
	HealthBody = "ok"
	// NoFrameBody is returned by GET /camera.jpg when the sensor has nothing to give.
	NoFrameBody = "no framebuffer"

	// DefaultStreamInterval is the pause between two parts of a stream.
	DefaultStreamInterval = 100 * time.Millisecond
)

// partHeader is written before every frame of a stream.
const partHeader = "--" + StreamBoundary + "\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n"

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	coord    *access.Coordinator
	interval time.Duration
}

// NewHandlers creates handlers sharing the given coordinator.
// A non-positive interval selects DefaultStreamInterval.
func NewHandlers(coord *access.Coordinator, interval time.Duration) *Handlers {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &Handlers{
		coord:    coord,
		interval: interval,
	}
}

// HandleHealth answers GET / without touching the camera.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, HealthBody)
}

// HandleSnapshot answers GET /camera.jpg with a single frame.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	served := false
	err := h.coord.Do(func(cam camera.Camera) error {
		frame, ok := cam.Framebuffer()
		if !ok {
			return nil
		}
		served = true
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(frame.Data)))
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(frame.Data)
		return err
	})
	if err != nil {
		debug.Errorf("snapshot to %s: %v", r.RemoteAddr, err)
		return
	}
	if served {
		return
	}

	debug.Warn("snapshot: no framebuffer")
	// Send the headers now so the fallback goes out without Content-Type
	// or Content-Length.
	w.Header()["Content-Type"] = nil
	w.WriteHeader(http.StatusOK)
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		debug.Errorf("snapshot to %s: %v", r.RemoteAddr, err)
		return
	}
	io.WriteString(w, NoFrameBody)
}

// HandleStream answers GET /camera.mjpeg with an endless multipart stream.
// Access to the camera is taken for one frame at a time so other requests
// interleave between parts. The loop ends when a write fails or the
// request context is done.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	session := uuid.NewString()

	w.Header().Set("Content-Type", StreamContentType)
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		debug.Errorf("stream %s: %v", session, err)
		return
	}
	debug.Info("stream %s opened by %s", session, r.RemoteAddr)

	var parts uint64
	for {
		err := h.coord.Do(func(cam camera.Camera) error {
			frame, ok := cam.Framebuffer()
			if !ok {
				debug.Warn("stream %s: no framebuffer, skipping", session)
				return nil
			}
			if err := writePart(w, frame.Data); err != nil {
				return err
			}
			parts++
			debug.Trace("stream %s: part %d (%d bytes)", session, parts, len(frame.Data))
			return rc.Flush()
		})
		if err != nil {
			debug.Info("stream %s closed after %d frames: %v", session, parts, err)
			return
		}

		timer := time.NewTimer(h.interval)
		select {
		case <-r.Context().Done():
			timer.Stop()
			debug.Info("stream %s closed after %d frames: %v", session, parts, r.Context().Err())
			return
		case <-timer.C:
		}
	}
}

func writePart(w io.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, partHeader, len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
