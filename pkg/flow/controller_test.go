package flow

import (
	"errors"
	"testing"
	"time"

	"interview-engine/pkg/models"
)

func threeQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Text: "Tell me about yourself", ExpectedDuration: 60},
		{ID: "q2", Text: "Describe a hard bug", ExpectedDuration: 120},
		{ID: "q3", Text: "Why this role", ExpectedDuration: 90},
	}
}

func TestLinearFlow(t *testing.T) {
	c := NewController(threeQuestions())

	if c.Phase() != models.PhaseIdle {
		t.Fatalf("expected idle, got %s", c.Phase())
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i, want := range []string{"q1", "q2", "q3"} {
		q, ok := c.Current()
		if !ok || q.ID != want {
			t.Fatalf("question %d: expected %s, got %v", i, want, q.ID)
		}
		if err := c.BeginRecording(); err != nil {
			t.Fatalf("begin recording %s: %v", want, err)
		}
		if err := c.StopRecording(); err != nil {
			t.Fatalf("stop recording %s: %v", want, err)
		}
		if _, err := c.Advance(); err != nil {
			t.Fatalf("advance from %s: %v", want, err)
		}
	}

	if c.Phase() != models.PhaseFinished {
		t.Fatalf("expected finished, got %s", c.Phase())
	}
}

func TestIllegalTransitions(t *testing.T) {
	c := NewController(threeQuestions())

	if err := c.BeginRecording(); !errors.Is(err, models.ErrIllegalTransition) {
		t.Fatalf("recording from idle: %v", err)
	}
	if err := c.StopRecording(); !errors.Is(err, models.ErrIllegalTransition) {
		t.Fatalf("stop from idle: %v", err)
	}
	if _, err := c.Advance(); !errors.Is(err, models.ErrIllegalTransition) {
		t.Fatalf("advance from idle: %v", err)
	}

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(); !errors.Is(err, models.ErrIllegalTransition) {
		t.Fatalf("double start: %v", err)
	}
	if err := c.StopRecording(); !errors.Is(err, models.ErrIllegalTransition) {
		t.Fatalf("stop while presenting: %v", err)
	}
}

func TestNavigationBlockedWhileRecording(t *testing.T) {
	c := NewController(threeQuestions())
	c.Start()

	if err := c.Navigate(2); err != nil {
		t.Fatalf("navigate while presenting: %v", err)
	}
	if q, _ := c.Current(); q.ID != "q3" {
		t.Fatalf("expected q3, got %s", q.ID)
	}

	c.BeginRecording()
	if err := c.Navigate(0); !errors.Is(err, models.ErrIllegalTransition) {
		t.Fatalf("navigate while recording should fail: %v", err)
	}

	c.StopRecording()
	if err := c.Navigate(0); err != nil {
		t.Fatalf("navigate while reviewing: %v", err)
	}
	if c.Phase() != models.PhasePresenting {
		t.Fatalf("navigation should present, got %s", c.Phase())
	}
}

func TestNavigateOutOfRange(t *testing.T) {
	c := NewController(threeQuestions())
	c.Start()

	if err := c.Navigate(3); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if err := c.Navigate(-1); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestTickFiresSoftLimitOnce(t *testing.T) {
	c := NewController([]models.Question{{ID: "q1", ExpectedDuration: 2}})
	c.Start()
	c.BeginRecording()

	if c.Tick(time.Second) {
		t.Fatal("limit fired too early")
	}
	if !c.Tick(time.Second) {
		t.Fatal("limit should fire at expected duration")
	}
	if c.Tick(time.Second) {
		t.Fatal("limit must fire only once per recording")
	}
	if c.ElapsedSeconds() != 3 {
		t.Fatalf("expected 3s elapsed, got %d", c.ElapsedSeconds())
	}
}

func TestTickOnlyCountsWhileRecording(t *testing.T) {
	c := NewController(threeQuestions())
	c.Start()

	c.Tick(5 * time.Second)
	if c.ElapsedSeconds() != 0 {
		t.Fatalf("elapsed advanced while presenting: %d", c.ElapsedSeconds())
	}
}

func TestAbandonFromAnyPhase(t *testing.T) {
	c := NewController(threeQuestions())
	c.Start()
	c.BeginRecording()

	c.Abandon()
	if c.Phase() != models.PhaseIdle {
		t.Fatalf("expected idle after abandon, got %s", c.Phase())
	}

	// A fresh run is allowed after abandonment.
	if err := c.Start(); err != nil {
		t.Fatalf("restart after abandon: %v", err)
	}
}

func TestStartWithNoQuestions(t *testing.T) {
	c := NewController(nil)
	if err := c.Start(); err == nil {
		t.Fatal("expected error starting an empty session")
	}
}
