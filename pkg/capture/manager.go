package capture

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"interview-engine/pkg/models"
)

// Manager owns the media recording lifecycle per question: start,
// stop, and packaging of buffered chunks into one storable payload.
type Manager struct {
	supported []string
	log       *logrus.Entry
}

func NewManager(supportedMimeTypes []string, log *logrus.Entry) *Manager {
	return &Manager{supported: supportedMimeTypes, log: log}
}

// Start begins capturing from the stream. Fails with an unsupported
// CaptureError when the stream's container type is not recordable, and
// with permission denied when access has been revoked.
func (m *Manager) Start(stream *Stream) (*Handle, error) {
	if !m.supports(stream.MimeType()) {
		return nil, &models.CaptureError{
			Reason: models.CaptureUnsupported,
			Detail: stream.MimeType(),
		}
	}

	h := &Handle{stream: stream, startedAt: time.Now()}
	if !stream.attach(h.append, h.revoked) {
		return nil, &models.CaptureError{Reason: models.CapturePermissionDenied}
	}

	m.log.WithField("mime_type", stream.MimeType()).Debug("capture started")
	return h, nil
}

func (m *Manager) supports(mimeType string) bool {
	for _, s := range m.supported {
		if s == mimeType {
			return true
		}
	}
	return false
}

// Handle is one question's active capture. Chunks are buffered as they
// arrive and concatenated into a single payload only at Stop.
type Handle struct {
	stream    *Stream
	startedAt time.Time

	mu     sync.Mutex
	chunks [][]byte
	failed *models.CaptureError

	stopped   atomic.Bool
	result    models.MediaPayload
	resultErr error
}

func (h *Handle) append(chunk []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped.Load() {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	h.chunks = append(h.chunks, buf)
}

// revoked records a mid-capture permission loss. Stop will surface it.
func (h *Handle) revoked() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = &models.CaptureError{Reason: models.CapturePermissionDenied}
}

// Stop detaches from the stream and assembles the payload. Chunks the
// stream delivered before Stop are flushed into the payload rather than
// truncated. Stopping an already-stopped handle is a no-op and returns
// the same result.
func (h *Handle) Stop() (models.MediaPayload, error) {
	if h.stopped.Swap(true) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, h.resultErr
	}

	h.stream.detach()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failed != nil {
		h.result = models.MediaPayload{MimeType: h.stream.MimeType()}
		h.resultErr = h.failed
		h.chunks = nil
		return h.result, h.resultErr
	}

	var total int
	for _, c := range h.chunks {
		total += len(c)
	}
	data := make([]byte, 0, total)
	for _, c := range h.chunks {
		data = append(data, c...)
	}

	h.result = models.MediaPayload{
		Data:     data,
		MimeType: h.stream.MimeType(),
		Chunks:   len(h.chunks),
	}
	h.chunks = nil
	return h.result, nil
}

// Discard stops the capture and drops its buffered media. Used on
// session abandonment. Idempotent.
func (h *Handle) Discard() {
	if h.stopped.Swap(true) {
		return
	}
	h.stream.detach()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.chunks = nil
	h.result = models.MediaPayload{MimeType: h.stream.MimeType()}
}

// Duration reports how long the capture has been (or was) running.
func (h *Handle) Duration() time.Duration {
	return time.Since(h.startedAt)
}
