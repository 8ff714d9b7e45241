package flow

import (
	"fmt"
	"time"

	"interview-engine/pkg/models"
)

// Controller is the session state machine. It tracks the current
// question, elapsed time while recording, and guards every phase
// transition. It holds no goroutines or timers of its own; the
// orchestrator drives it with Tick on its event loop.
type Controller struct {
	questions []models.Question
	idx       int
	phase     models.Phase
	elapsed   time.Duration
	timeUp    bool
}

func NewController(questions []models.Question) *Controller {
	return &Controller{questions: questions, phase: models.PhaseIdle}
}

func (c *Controller) Phase() models.Phase { return c.phase }

// Current returns the question the session is on. Valid while the
// phase is not idle or finished.
func (c *Controller) Current() (models.Question, bool) {
	if c.phase == models.PhaseIdle || c.phase == models.PhaseFinished {
		return models.Question{}, false
	}
	return c.questions[c.idx], true
}

func (c *Controller) Questions() []models.Question { return c.questions }

func (c *Controller) ElapsedSeconds() int {
	return int(c.elapsed / time.Second)
}

// Start begins the session: idle → presenting, on the first question.
func (c *Controller) Start() error {
	if c.phase != models.PhaseIdle {
		return c.illegal(models.PhasePresenting)
	}
	if len(c.questions) == 0 {
		return fmt.Errorf("session has no questions")
	}
	c.idx = 0
	c.phase = models.PhasePresenting
	c.elapsed = 0
	return nil
}

// BeginRecording moves presenting → recording and restarts the
// per-question clock. Callers verify capture preconditions (camera
// permission) first; on their failure the phase stays presenting.
func (c *Controller) BeginRecording() error {
	if c.phase != models.PhasePresenting {
		return c.illegal(models.PhaseRecording)
	}
	c.phase = models.PhaseRecording
	c.elapsed = 0
	c.timeUp = false
	return nil
}

// StopRecording moves recording → reviewing. The countdown stops with it.
func (c *Controller) StopRecording() error {
	if c.phase != models.PhaseRecording {
		return c.illegal(models.PhaseReviewing)
	}
	c.phase = models.PhaseReviewing
	return nil
}

// Advance moves reviewing → presenting on the next question, or
// → finished when none remains.
func (c *Controller) Advance() (models.Phase, error) {
	if c.phase != models.PhaseReviewing {
		return c.phase, c.illegal(models.PhasePresenting)
	}
	if c.idx+1 >= len(c.questions) {
		c.phase = models.PhaseFinished
		return c.phase, nil
	}
	c.idx++
	c.phase = models.PhasePresenting
	c.elapsed = 0
	return c.phase, nil
}

// Navigate jumps to the question at index i, outside the linear flow.
// Permitted only while presenting or reviewing, never while recording,
// so an in-progress capture cannot be orphaned.
func (c *Controller) Navigate(i int) error {
	if c.phase != models.PhasePresenting && c.phase != models.PhaseReviewing {
		return c.illegal(models.PhasePresenting)
	}
	if i < 0 || i >= len(c.questions) {
		return fmt.Errorf("question index %d out of range", i)
	}
	c.idx = i
	c.phase = models.PhasePresenting
	c.elapsed = 0
	return nil
}

// Abandon resets to idle from any phase.
func (c *Controller) Abandon() {
	c.phase = models.PhaseIdle
	c.idx = 0
	c.elapsed = 0
	c.timeUp = false
}

// Tick advances the recording clock. It reports true exactly once per
// recording when elapsed time reaches the question's expected duration;
// the soft limit signals a clean stop, it does not truncate media.
func (c *Controller) Tick(d time.Duration) bool {
	if c.phase != models.PhaseRecording {
		return false
	}
	c.elapsed += d
	limit := time.Duration(c.questions[c.idx].ExpectedDuration) * time.Second
	if !c.timeUp && limit > 0 && c.elapsed >= limit {
		c.timeUp = true
		return true
	}
	return false
}

func (c *Controller) illegal(to models.Phase) error {
	return fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, c.phase, to)
}
