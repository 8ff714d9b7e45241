package session

import "interview-engine/pkg/models"

// EventType names an outbound session event.
type EventType string

const (
	// EventPhase reports a phase transition with the current question.
	EventPhase EventType = "phase"
	// EventMetrics carries a smoothed FaceMetrics snapshot.
	EventMetrics EventType = "metrics"
	// EventTranscript carries the live partial text and accumulated
	// transcript for the question being recorded.
	EventTranscript EventType = "transcript"
	// EventRecordingCommitted reports a committed answer.
	EventRecordingCommitted EventType = "recording_committed"
	// EventWarning surfaces a degraded capability (model, transcription).
	EventWarning EventType = "warning"
	// EventError surfaces a user-actionable failure (permission, codec).
	EventError EventType = "error"
)

// Event is one message pushed to session observers.
type Event struct {
	Type           EventType           `json:"type"`
	SessionID      string              `json:"session_id"`
	Phase          models.Phase        `json:"phase,omitempty"`
	Question       *models.Question    `json:"question,omitempty"`
	ElapsedSeconds int                 `json:"elapsed_seconds,omitempty"`
	Metrics        *models.FaceMetrics `json:"metrics,omitempty"`
	Partial        string              `json:"partial,omitempty"`
	Transcript     string              `json:"transcript,omitempty"`
	RecordingID    string              `json:"recording_id,omitempty"`
	Message        string              `json:"message,omitempty"`
}
