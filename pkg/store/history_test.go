package store

import (
	"path/filepath"
	"testing"
	"time"

	"interview-engine/pkg/models"
)

func testHistory(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestSessionRoundTrip(t *testing.T) {
	h := testHistory(t)

	started := time.Now().Add(-10 * time.Minute)
	sum := models.SessionSummary{
		SessionID: "sess-1",
		StartedAt: started,
		EndedAt:   started.Add(9 * time.Minute),
		Questions: 3,
		Answered:  2,
		Abandoned: true,
	}
	if err := h.SaveSession(sum); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := h.Sessions(10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 session, got %d", len(got))
	}
	g := got[0]
	if g.SessionID != sum.SessionID || g.Questions != 3 || g.Answered != 2 || !g.Abandoned {
		t.Fatalf("session mismatch: %+v", g)
	}
	if g.StartedAt.Sub(sum.StartedAt) > time.Millisecond {
		t.Fatalf("startedAt drifted: %v vs %v", g.StartedAt, sum.StartedAt)
	}
}

func TestSessionsOrderedMostRecentFirst(t *testing.T) {
	h := testHistory(t)

	base := time.Now()
	for i, id := range []string{"old", "middle", "new"} {
		err := h.SaveSession(models.SessionSummary{
			SessionID: id,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			EndedAt:   base.Add(time.Duration(i)*time.Hour + time.Minute),
		})
		if err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	got, err := h.Sessions(2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(got) != 2 || got[0].SessionID != "new" || got[1].SessionID != "middle" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestAnswerRoundTrip(t *testing.T) {
	h := testHistory(t)

	completed := time.Now()
	answers := []models.AnswerSummary{
		{
			SessionID:       "sess-1",
			QuestionID:      "q1",
			QuestionText:    "Tell me about yourself",
			RecordingID:     "rec-1",
			Transcript:      "I am a software engineer",
			DurationSeconds: 42,
			DominantEmotion: models.EmotionNeutral,
			Answered:        true,
			CompletedAt:     completed,
		},
		{
			SessionID:    "sess-1",
			QuestionID:   "q2",
			QuestionText: "Describe a hard bug",
			Answered:     false,
			CompletedAt:  completed.Add(time.Minute),
		},
	}
	for _, a := range answers {
		if err := h.SaveAnswer(a); err != nil {
			t.Fatalf("save answer %s: %v", a.QuestionID, err)
		}
	}

	got, err := h.AnswersForSession("sess-1")
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got))
	}
	if got[0].QuestionID != "q1" || got[1].QuestionID != "q2" {
		t.Fatalf("answers out of completion order: %+v", got)
	}
	if got[0].RecordingID != "rec-1" || got[0].DominantEmotion != models.EmotionNeutral || !got[0].Answered {
		t.Fatalf("answer mismatch: %+v", got[0])
	}
	if got[1].Answered || got[1].RecordingID != "" {
		t.Fatalf("unanswered question came back answered: %+v", got[1])
	}
}

func TestSaveAnswerReplacesOnReRecord(t *testing.T) {
	h := testHistory(t)

	first := models.AnswerSummary{
		SessionID:   "sess-1",
		QuestionID:  "q1",
		Transcript:  "first take",
		RecordingID: "rec-1",
		Answered:    true,
		CompletedAt: time.Now(),
	}
	if err := h.SaveAnswer(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := first
	second.Transcript = "second take"
	second.RecordingID = "rec-2"
	second.CompletedAt = first.CompletedAt.Add(time.Minute)
	if err := h.SaveAnswer(second); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, err := h.AnswersForSession("sess-1")
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("re-record should replace, got %d rows", len(got))
	}
	if got[0].RecordingID != "rec-2" || got[0].Transcript != "second take" {
		t.Fatalf("stale answer survived: %+v", got[0])
	}
}
