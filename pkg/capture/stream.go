package capture

import "sync"

// Stream is the live camera/microphone source for one session. It is
// owned exclusively by the session orchestrator; capture receives
// capture-only access and never closes it. Only the owner closes, on
// teardown. Chunks arrive from the transport as the browser's recorder
// emits them.
type Stream struct {
	mimeType string

	mu       sync.Mutex
	sink     func([]byte)
	onRevoke func()
	revoked  bool
	closed   bool
}

func NewStream(mimeType string) *Stream {
	return &Stream{mimeType: mimeType}
}

func (s *Stream) MimeType() string { return s.mimeType }

// Push delivers one media chunk to the attached capture, if any.
func (s *Stream) Push(chunk []byte) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(chunk)
	}
}

// Revoke marks camera/microphone access as withdrawn mid-session.
func (s *Stream) Revoke() {
	s.mu.Lock()
	s.revoked = true
	cb := s.onRevoke
	s.sink = nil
	s.onRevoke = nil
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Live reports whether the stream can still be captured from.
func (s *Stream) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.revoked && !s.closed
}

// Close releases the stream. Owner only.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.sink = nil
	s.onRevoke = nil
	s.mu.Unlock()
}

func (s *Stream) attach(sink func([]byte), onRevoke func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked || s.closed {
		return false
	}
	s.sink = sink
	s.onRevoke = onRevoke
	return true
}

func (s *Stream) detach() {
	s.mu.Lock()
	s.sink = nil
	s.onRevoke = nil
	s.mu.Unlock()
}
