package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"interview-engine/pkg/models"
)

// HistoryStore persists completed-session summaries and per-question
// answers to SQLite so past interviews stay reviewable.
type HistoryStore struct {
	db *sql.DB
}

func OpenHistory(path string) (*HistoryStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	s := &HistoryStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			startedAt REAL NOT NULL,
			endedAt REAL NOT NULL,
			questions INTEGER NOT NULL,
			answered INTEGER NOT NULL,
			abandoned INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS answers (
			sessionId TEXT NOT NULL,
			questionId TEXT NOT NULL,
			questionText TEXT NOT NULL,
			recordingId TEXT,
			transcript TEXT NOT NULL,
			durationSeconds INTEGER NOT NULL,
			dominantEmotion TEXT,
			answered INTEGER NOT NULL,
			completedAt REAL NOT NULL,
			PRIMARY KEY (sessionId, questionId)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	return nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// SaveSession records the session roll-up.
func (s *HistoryStore) SaveSession(sum models.SessionSummary) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sessions (id, startedAt, endedAt, questions, answered, abandoned)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sum.SessionID, unixFloat(sum.StartedAt), unixFloat(sum.EndedAt),
		sum.Questions, sum.Answered, boolInt(sum.Abandoned))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SaveAnswer records one completed question.
func (s *HistoryStore) SaveAnswer(a models.AnswerSummary) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO answers
			(sessionId, questionId, questionText, recordingId, transcript,
			 durationSeconds, dominantEmotion, answered, completedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.SessionID, a.QuestionID, a.QuestionText, a.RecordingID, a.Transcript,
		a.DurationSeconds, string(a.DominantEmotion), boolInt(a.Answered),
		unixFloat(a.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// Sessions returns session summaries, most recent first.
func (s *HistoryStore) Sessions(limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, startedAt, endedAt, questions, answered, abandoned
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		var started, ended float64
		var abandoned int
		if err := rows.Scan(&sum.SessionID, &started, &ended,
			&sum.Questions, &sum.Answered, &abandoned); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.StartedAt = timeFromUnix(started)
		sum.EndedAt = timeFromUnix(ended)
		sum.Abandoned = abandoned != 0
		out = append(out, sum)
	}
	return out, rows.Err()
}

// AnswersForSession returns a session's answers in completion order.
func (s *HistoryStore) AnswersForSession(sessionID string) ([]models.AnswerSummary, error) {
	rows, err := s.db.Query(`
		SELECT sessionId, questionId, questionText, recordingId, transcript,
		       durationSeconds, dominantEmotion, answered, completedAt
		FROM answers
		WHERE sessionId = ?
		ORDER BY completedAt ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []models.AnswerSummary
	for rows.Next() {
		var a models.AnswerSummary
		var recID, emotion sql.NullString
		var answered int
		var completed float64
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.QuestionText,
			&recID, &a.Transcript, &a.DurationSeconds, &emotion,
			&answered, &completed); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if recID.Valid {
			a.RecordingID = recID.String
		}
		if emotion.Valid {
			a.DominantEmotion = models.Emotion(emotion.String)
		}
		a.Answered = answered != 0
		a.CompletedAt = timeFromUnix(completed)
		out = append(out, a)
	}
	return out, rows.Err()
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func timeFromUnix(f float64) time.Time {
	return time.Unix(0, int64(f*float64(time.Second)))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
