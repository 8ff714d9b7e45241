package models

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty orders questions from easiest to hardest.
type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	}
	return "unknown"
}

// ParseDifficulty maps a config string onto a Difficulty. Unknown values
// fall back to easy.
func ParseDifficulty(s string) Difficulty {
	switch s {
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	}
	return DifficultyEasy
}

// Question is one interview prompt. Immutable after session start.
type Question struct {
	ID               string     `json:"id"`
	Text             string     `json:"text"`
	Category         string     `json:"category"`
	Difficulty       Difficulty `json:"difficulty"`
	ExpectedDuration int        `json:"expected_duration_seconds"`
}

// Phase is the session state machine phase.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePresenting Phase = "presenting"
	PhaseRecording  Phase = "recording"
	PhaseReviewing  Phase = "reviewing"
	PhaseFinished   Phase = "finished"
)

// SessionState is a read-only snapshot of a session's flow state.
type SessionState struct {
	SessionID         string     `json:"session_id"`
	Questions         []Question `json:"questions"`
	CurrentQuestionID string     `json:"current_question_id,omitempty"`
	ElapsedSeconds    int        `json:"elapsed_seconds"`
	Phase             Phase      `json:"phase"`
	IsRecording       bool       `json:"is_recording"`
}

// Emotion is one of the fixed expression labels the face model can emit.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionSurprised Emotion = "surprised"
	EmotionAngry     Emotion = "angry"
	EmotionFearful   Emotion = "fearful"
	EmotionDisgusted Emotion = "disgusted"
)

// Emotions lists every label the inference boundary accepts.
var Emotions = []Emotion{
	EmotionNeutral, EmotionHappy, EmotionSad, EmotionSurprised,
	EmotionAngry, EmotionFearful, EmotionDisgusted,
}

// KnownEmotion reports whether the label belongs to the closed set.
func KnownEmotion(e Emotion) bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// BoundingBox locates a detected face in source-frame pixel coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is the raw face-model output for one frame.
type Detection struct {
	Box         BoundingBox         `json:"box"`
	Expressions map[Emotion]float64 `json:"expressions"`
}

// FaceMetrics is the smoothed per-frame emotion readout shared with clients.
// Each frame's result supersedes the previous; no history is kept.
type FaceMetrics struct {
	Emotion    Emotion     `json:"emotion"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// TranscriptSegment is one unit of transcribed speech. Only the latest
// non-final segment is mutable; a final segment is immutable.
type TranscriptSegment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// MediaPayload is the assembled recording media for one question.
type MediaPayload struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Chunks   int    `json:"chunks"`
}

// Empty reports whether the payload carries no media.
func (p MediaPayload) Empty() bool { return len(p.Data) == 0 }

// Recording is a committed answer: media plus its aligned transcript.
// Created exactly once per completed question, never mutated afterwards.
type Recording struct {
	ID              string       `json:"id"`
	QuestionID      string       `json:"question_id"`
	Media           MediaPayload `json:"media"`
	DurationSeconds int          `json:"duration_seconds"`
	Timestamp       time.Time    `json:"timestamp"`
	Transcript      string       `json:"transcript"`
}

// NewRecording builds a Recording with a collision-resistant ID.
func NewRecording(questionID string, media MediaPayload, duration int, transcript string) *Recording {
	return &Recording{
		ID:              uuid.New().String(),
		QuestionID:      questionID,
		Media:           media,
		DurationSeconds: duration,
		Timestamp:       time.Now(),
		Transcript:      transcript,
	}
}

// AnswerSummary is the reviewable record of one completed question,
// persisted to the interview history.
type AnswerSummary struct {
	SessionID       string    `json:"session_id"`
	QuestionID      string    `json:"question_id"`
	QuestionText    string    `json:"question_text"`
	RecordingID     string    `json:"recording_id,omitempty"`
	Transcript      string    `json:"transcript"`
	DurationSeconds int       `json:"duration_seconds"`
	DominantEmotion Emotion   `json:"dominant_emotion,omitempty"`
	Answered        bool      `json:"answered"`
	CompletedAt     time.Time `json:"completed_at"`
}

// SessionSummary is the persisted roll-up of one finished or abandoned session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Questions int       `json:"questions"`
	Answered  int       `json:"answered"`
	Abandoned bool      `json:"abandoned"`
}
