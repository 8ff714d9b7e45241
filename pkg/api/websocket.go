package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"interview-engine/pkg/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveMessage is one inbound client message on the live socket. The
// browser relays captured frames, recorder chunks, and its platform
// speech-recognition events; control messages drive the flow.
type LiveMessage struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	Text   string          `json:"text,omitempty"`
	Final  bool            `json:"final,omitempty"`
	Index  int             `json:"index,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// liveConn serializes writes; events and command replies come from
// different goroutines.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *liveConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// LiveHandler is the per-session live endpoint: media in, events out.
func (h *Handlers) LiveHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	lc := &liveConn{conn: conn}
	stop := make(chan struct{})
	go h.pushEvents(lc, s, stop)
	defer close(stop)

	for {
		var msg LiveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		h.handleLiveMessage(lc, s, &msg)
	}
}

// pushEvents pumps session events to the client until the socket or
// the session goes away.
func (h *Handlers) pushEvents(lc *liveConn, s *session.Session, stop <-chan struct{}) {
	for {
		select {
		case ev := <-s.Events():
			if err := lc.writeJSON(ev); err != nil {
				return
			}
		case <-s.Done():
			return
		case <-stop:
			return
		}
	}
}

func (h *Handlers) handleLiveMessage(lc *liveConn, s *session.Session, msg *LiveMessage) {
	switch msg.Type {
	case "frame":
		if data, ok := decodeBytes(msg.Data); ok {
			s.SubmitFrame(data)
		}
	case "media_chunk":
		if data, ok := decodeBytes(msg.Data); ok {
			s.SubmitChunk(data)
		}
	case "speech":
		s.Speech(msg.Text, msg.Final)
	case "speech_error":
		s.SpeechError(msg.Reason)
	case "start":
		h.liveTransition(lc, s.Start())
	case "start_recording":
		h.liveTransition(lc, s.BeginRecording())
	case "stop_recording":
		h.liveTransition(lc, s.StopRecording())
	case "advance":
		h.liveTransition(lc, s.Advance())
	case "navigate":
		h.liveTransition(lc, s.Navigate(msg.Index))
	case "revoke_permission":
		s.RevokePermission()
	case "abandon":
		s.Abandon()
	case "ping":
		lc.writeJSON(map[string]string{"type": "pong"})
	default:
		lc.writeJSON(map[string]string{"type": "error", "message": "unknown message type"})
	}
}

func (h *Handlers) liveTransition(lc *liveConn, err error) {
	if err != nil {
		lc.writeJSON(map[string]string{"type": "error", "message": err.Error()})
	}
}

// decodeBytes unwraps a base64 JSON string into raw bytes.
func decodeBytes(raw json.RawMessage) ([]byte, bool) {
	var data []byte
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false
	}
	return data, true
}
