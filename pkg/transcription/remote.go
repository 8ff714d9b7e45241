package transcription

import "sync"

// RemoteRecognizer adapts a push-based event source (the browser relays
// its platform speech recognition over the session websocket) to the
// Recognizer contract. Deliver and Fail are called by the transport;
// events arriving while no run is active are dropped.
type RemoteRecognizer struct {
	mu      sync.Mutex
	onEvent func(Event)
	onError func(error)
}

func NewRemoteRecognizer() *RemoteRecognizer {
	return &RemoteRecognizer{}
}

// Start implements Recognizer.
func (r *RemoteRecognizer) Start(onEvent func(Event), onError func(error)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvent = onEvent
	r.onError = onError

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.onEvent = nil
		r.onError = nil
	}, nil
}

// Deliver forwards one speech event into the active run, if any.
func (r *RemoteRecognizer) Deliver(text string, final bool) {
	r.mu.Lock()
	cb := r.onEvent
	r.mu.Unlock()
	if cb != nil {
		cb(Event{Text: text, Final: final})
	}
}

// Fail forwards a recognizer failure into the active run, if any.
func (r *RemoteRecognizer) Fail(err error) {
	r.mu.Lock()
	cb := r.onError
	r.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}
