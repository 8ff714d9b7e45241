package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	// ErrRecordingNotFound is returned when a recording ID is unknown.
	ErrRecordingNotFound = errors.New("recording not found")

	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrIllegalTransition is returned for state machine moves outside
	// the allowed set.
	ErrIllegalTransition = errors.New("illegal phase transition")

	// ErrPermissionDenied is returned when camera/microphone access is
	// absent or has been revoked. It blocks entry into recording.
	ErrPermissionDenied = errors.New("camera/microphone permission denied")

	// ErrModelUnavailable means the face model could not be loaded.
	// Analysis degrades to no metrics; the session continues.
	ErrModelUnavailable = errors.New("face model unavailable")

	// ErrTranscriptionUnavailable means live transcription could not be
	// started. Recordings are still produced, without a transcript.
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")
)

// CaptureReason classifies capture failures.
type CaptureReason string

const (
	CaptureUnsupported      CaptureReason = "unsupported"
	CapturePermissionDenied CaptureReason = "permission_denied"
	CaptureNotRecording     CaptureReason = "not_recording"
)

// CaptureError means a recording could not be produced for the current
// question. The flow still advances; the question is marked unanswered.
type CaptureError struct {
	Reason CaptureReason
	Detail string
}

func (e *CaptureError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("capture failed: %s", e.Reason)
	}
	return fmt.Sprintf("capture failed: %s: %s", e.Reason, e.Detail)
}

// IsCaptureError extracts a CaptureError from an error chain.
func IsCaptureError(err error) (*CaptureError, bool) {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
