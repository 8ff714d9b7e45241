package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"interview-engine/pkg/genai"
	"interview-engine/pkg/models"
	"interview-engine/pkg/session"
	"interview-engine/pkg/store"
)

// Handlers is the HTTP surface over the session engine.
type Handlers struct {
	engine           *session.Engine
	history          *store.HistoryStore
	generator        *genai.Client
	defaultQuestions []models.Question
	log              *logrus.Entry
}

func NewHandlers(engine *session.Engine, history *store.HistoryStore, generator *genai.Client, defaultQuestions []models.Question, log *logrus.Entry) *Handlers {
	return &Handlers{
		engine:           engine,
		history:          history,
		generator:        generator,
		defaultQuestions: defaultQuestions,
		log:              log,
	}
}

// Register wires all routes onto the router.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/sessions", h.CreateSessionHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.GetSessionHandler).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.RemoveSessionHandler).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/abandon", h.AbandonSessionHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/start", h.StartHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/record", h.BeginRecordingHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/stop", h.StopRecordingHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/advance", h.AdvanceHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/navigate", h.NavigateHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/finish", h.FinishHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/recordings", h.ListRecordingsHandler).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/recordings/{rid}", h.GetRecordingHandler).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/recordings/{rid}", h.DeleteRecordingHandler).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/recordings/{rid}/download", h.DownloadRecordingHandler).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/recordings/{rid}/transcript", h.DownloadTranscriptHandler).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/feedback", h.FeedbackHandler).Methods(http.MethodPost)
	r.HandleFunc("/history", h.HistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/history/{id}", h.HistorySessionHandler).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/live", h.LiveHandler)
}

type createSessionReq struct {
	MimeType  string            `json:"mime_type"`
	Questions []models.Question `json:"questions"`
}

func (h *Handlers) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if r.Body != nil {
		// An empty body means the configured question catalog.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	questions := req.Questions
	if len(questions) == 0 {
		questions = h.defaultQuestions
	}
	if len(questions) == 0 {
		http.Error(w, "no questions configured", http.StatusBadRequest)
		return
	}

	s := h.engine.CreateSession(questions, req.MimeType)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": s.ID(),
		"state":      s.State(),
		"ws_path":    fmt.Sprintf("/sessions/%s/live", s.ID()),
	})
}

func (h *Handlers) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *Handlers) AbandonSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.engine.Abandon(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "abandoned": true})
}

func (h *Handlers) RemoveSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.engine.Remove(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "removed": true})
}

func (h *Handlers) FinishHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.engine.Finish(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "finished": true})
}

func (h *Handlers) StartHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) error { return s.Start() })
}

func (h *Handlers) BeginRecordingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) error { return s.BeginRecording() })
}

func (h *Handlers) StopRecordingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) error { return s.StopRecording() })
}

func (h *Handlers) AdvanceHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) error { return s.Advance() })
}

func (h *Handlers) NavigateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "index is required", http.StatusBadRequest)
		return
	}
	h.transition(w, r, func(s *session.Session) error { return s.Navigate(req.Index) })
}

func (h *Handlers) ListRecordingsHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	recs := s.Recordings()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": s.ID(),
		"recordings": recs,
		"count":      len(recs),
	})
}

func (h *Handlers) GetRecordingHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rec, err := s.Recording(mux.Vars(r)["rid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) DeleteRecordingHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rid := mux.Vars(r)["rid"]
	if err := s.DeleteRecording(rid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recording_id": rid, "deleted": true})
}

// DownloadRecordingHandler serves the raw media payload.
func (h *Handlers) DownloadRecordingHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rec, err := s.Recording(mux.Vars(r)["rid"])
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := rec.Media.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "answer-"+rec.QuestionID+".webm"))
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Media.Data)))
	w.Write(rec.Media.Data)
}

func (h *Handlers) DownloadTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rec, err := s.Recording(mux.Vars(r)["rid"])
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transcript-"+rec.QuestionID+".txt"))
	w.Write([]byte(rec.Transcript))
}

// FeedbackHandler asks the external text generator for feedback on a
// committed answer's transcript.
func (h *Handlers) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		RecordingID string `json:"recording_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordingID == "" {
		http.Error(w, "recording_id is required", http.StatusBadRequest)
		return
	}

	rec, err := s.Recording(req.RecordingID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.Transcript == "" {
		http.Error(w, "recording has no transcript to review", http.StatusUnprocessableEntity)
		return
	}

	prompt := fmt.Sprintf(
		"You are an interview coach. The candidate answered question %q with:\n\n%s\n\nGive concise, constructive feedback.",
		rec.QuestionID, rec.Transcript)

	text, err := h.generator.Generate(r.Context(), prompt)
	if err != nil {
		h.log.WithError(err).Warn("feedback generation failed")
		http.Error(w, "feedback generation failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recording_id": rec.ID,
		"feedback":     text,
	})
}

func (h *Handlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history is not configured", http.StatusNotFound)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	sessions, err := h.history.Sessions(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions, "count": len(sessions)})
}

func (h *Handlers) HistorySessionHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history is not configured", http.StatusNotFound)
		return
	}
	id := mux.Vars(r)["id"]
	answers, err := h.history.AnswersForSession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "answers": answers})
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.engine.Session(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := fn(s); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrRecordingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrPermissionDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		if _, ok := models.IsCaptureError(err); ok {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
