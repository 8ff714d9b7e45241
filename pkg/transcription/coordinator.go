package transcription

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"interview-engine/pkg/models"
)

// Event is one emission from a speech recognizer.
type Event struct {
	Text  string
	Final bool
}

// Recognizer is the platform speech-to-text contract. Any conforming
// implementation is substitutable. Start begins event delivery; the
// returned stop function halts it.
type Recognizer interface {
	Start(onEvent func(Event), onError func(error)) (stop func(), err error)
}

// Coordinator wraps a Recognizer and produces per-question transcript
// handles. Only the current non-final segment is buffered; each final
// segment is appended to the accumulated transcript and the buffer is
// cleared.
type Coordinator struct {
	rec Recognizer
	log *logrus.Entry
}

func NewCoordinator(rec Recognizer, log *logrus.Entry) *Coordinator {
	return &Coordinator{rec: rec, log: log}
}

// Start begins a scoped transcription run. onUpdate receives the current
// partial text and the accumulated transcript after each segment.
// A recognizer that cannot start yields ErrTranscriptionUnavailable;
// the session continues without live transcription.
func (c *Coordinator) Start(onUpdate func(partial, transcript string), onError func(error)) (*Handle, error) {
	h := &Handle{onUpdate: onUpdate, onError: onError, log: c.log}

	stop, err := c.rec.Start(h.deliver, h.fail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTranscriptionUnavailable, err)
	}
	h.stop = stop
	return h, nil
}

// Handle is one question's transcription scope.
type Handle struct {
	log      *logrus.Entry
	onUpdate func(partial, transcript string)
	onError  func(error)
	stop     func()

	stopped atomic.Bool
	errOnce sync.Once

	mu      sync.Mutex
	partial string
	finals  []string
}

// deliver applies one recognizer event. The callback is invoked while
// the handle lock is held so Stop can guarantee no callback fires after
// it returns.
func (h *Handle) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped.Load() {
		return
	}

	if ev.Final {
		if ev.Text != "" {
			h.finals = append(h.finals, ev.Text)
		}
		h.partial = ""
	} else {
		h.partial = ev.Text
	}

	if h.onUpdate != nil {
		h.onUpdate(h.partial, h.transcriptLocked())
	}
}

// fail reports a recognizer failure exactly once.
func (h *Handle) fail(err error) {
	h.errOnce.Do(func() {
		h.log.WithError(err).Warn("speech recognition failed, continuing without transcript")
		if h.onError != nil {
			h.onError(fmt.Errorf("%w: %v", models.ErrTranscriptionUnavailable, err))
		}
	})
}

// Stop halts delivery. After Stop returns no further callbacks fire.
// Calling Stop on an already-stopped handle is a no-op.
func (h *Handle) Stop() {
	if h.stopped.Swap(true) {
		return
	}
	// Acquire the delivery lock so an in-flight deliver finishes first.
	h.mu.Lock()
	h.mu.Unlock()
	if h.stop != nil {
		h.stop()
	}
}

// Transcript returns the accumulated finalized text. Partials that were
// never finalized are not included.
func (h *Handle) Transcript() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transcriptLocked()
}

// Partial returns the in-progress segment, if any.
func (h *Handle) Partial() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.partial
}

func (h *Handle) transcriptLocked() string {
	return strings.Join(h.finals, " ")
}
