package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"interview-engine/pkg/capture"
	"interview-engine/pkg/flow"
	"interview-engine/pkg/inference"
	"interview-engine/pkg/metrics"
	"interview-engine/pkg/models"
	"interview-engine/pkg/store"
	"interview-engine/pkg/transcription"
)

// Session orchestrates one interview run. All session state is mutated
// on a single event-loop goroutine; external callers post commands onto
// it, mirroring the one-thread-per-tab model the browser client runs
// under. Teardown is reachable from the single Close entry point on
// every exit path.
type Session struct {
	id  string
	log *logrus.Entry

	loader    *inference.Loader
	analyzer  *inference.Analyzer
	capture   *capture.Manager
	telemetry TelemetrySink

	flow        *flow.Controller
	tracker     *metrics.Tracker
	recognizer  *transcription.RemoteRecognizer
	coordinator *transcription.Coordinator
	stream      *capture.Stream
	recordings  store.RecordingStore
	archiver    *store.Archiver

	model        atomic.Pointer[inference.ModelHandle]
	capHandle    *capture.Handle
	transHandle  *transcription.Handle
	startedAt    time.Time
	answered     map[string]struct{}
	tickInterval time.Duration

	analysisBusy atomic.Bool
	closed       atomic.Bool

	cmds   chan func()
	events chan Event
	done   chan struct{}

	onClose func(models.SessionSummary)
}

// TelemetrySink receives live telemetry. Satisfied by telemetry.Publisher.
type TelemetrySink interface {
	PublishMetrics(ctx context.Context, sessionID string, m models.FaceMetrics)
	PublishPhase(ctx context.Context, sessionID string, phase models.Phase)
}

// Config wires a session's collaborators.
type Config struct {
	Questions      []models.Question
	MimeType       string
	SmoothingBlend float64
	TickInterval   time.Duration

	Log       *logrus.Entry
	Loader    *inference.Loader
	Analyzer  *inference.Analyzer
	Capture   *capture.Manager
	Archiver  *store.Archiver
	Telemetry TelemetrySink
	OnClose   func(models.SessionSummary)
}

func newSession(cfg Config) *Session {
	id := uuid.New().String()
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Second
	}

	recognizer := transcription.NewRemoteRecognizer()
	log := cfg.Log.WithField("session_id", id)

	s := &Session{
		id:           id,
		log:          log,
		loader:       cfg.Loader,
		analyzer:     cfg.Analyzer,
		capture:      cfg.Capture,
		telemetry:    cfg.Telemetry,
		flow:         flow.NewController(cfg.Questions),
		tracker:      metrics.NewTracker(cfg.SmoothingBlend),
		recognizer:   recognizer,
		coordinator:  transcription.NewCoordinator(recognizer, log),
		stream:       capture.NewStream(cfg.MimeType),
		recordings:   store.NewMemoryStore(),
		archiver:     cfg.Archiver,
		startedAt:    time.Now(),
		answered:     make(map[string]struct{}),
		tickInterval: tick,
		cmds:         make(chan func(), 64),
		events:       make(chan Event, 128),
		done:         make(chan struct{}),
		onClose:      cfg.OnClose,
	}

	go s.run()
	go s.warmModel()
	return s
}

func (s *Session) ID() string { return s.id }

// Events is the outbound event stream for this session's observers.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed when the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// run is the session event loop. Every state mutation happens here.
func (s *Session) run() {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-s.cmds:
			fn()
		case <-ticker.C:
			if s.flow.Tick(s.tickInterval) {
				// Soft time limit reached: signal a clean stop. The
				// capture's buffered chunks are flushed, not truncated.
				s.log.Debug("question time limit reached, stopping recording")
				if err := s.commitCurrent(); err != nil {
					s.log.WithError(err).Warn("auto-stop failed")
				}
			}
		case <-s.done:
			return
		}
	}
}

// warmModel loads the face model in the background. Failure degrades
// analysis to no metrics without blocking the session.
func (s *Session) warmModel() {
	handle, err := s.loader.Load(context.Background())
	if err != nil {
		s.log.WithError(err).Warn("analysis unavailable for this session")
		s.emit(Event{Type: EventWarning, Message: "face analysis unavailable"})
		return
	}
	s.model.Store(handle)
}

// post schedules fn on the event loop, dropping it if the session is
// already closed.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

// do runs fn on the event loop and waits for its result.
func (s *Session) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- func() { reply <- fn() }:
	case <-s.done:
		return fmt.Errorf("session %s is closed", s.id)
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return fmt.Errorf("session %s is closed", s.id)
	}
}

func (s *Session) emit(ev Event) {
	ev.SessionID = s.id
	select {
	case s.events <- ev:
	default:
		s.log.WithField("event", ev.Type).Debug("dropping event, observer is slow")
	}
}

func (s *Session) emitPhase() {
	ev := Event{
		Type:           EventPhase,
		Phase:          s.flow.Phase(),
		ElapsedSeconds: s.flow.ElapsedSeconds(),
	}
	if q, ok := s.flow.Current(); ok {
		ev.Question = &q
	}
	s.emit(ev)
	if s.telemetry != nil {
		s.telemetry.PublishPhase(context.Background(), s.id, s.flow.Phase())
	}
}

// Start begins the session on its first question.
func (s *Session) Start() error {
	return s.do(func() error {
		if err := s.flow.Start(); err != nil {
			return err
		}
		s.emitPhase()
		return nil
	})
}

// BeginRecording starts capture and transcription for the current
// question. When camera/microphone permission is absent the call fails
// and the phase stays presenting.
func (s *Session) BeginRecording() error {
	return s.do(func() error {
		if s.flow.Phase() != models.PhasePresenting {
			return fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, s.flow.Phase(), models.PhaseRecording)
		}
		if !s.stream.Live() {
			s.emit(Event{Type: EventError, Message: "camera or microphone access is denied; allow access to record"})
			return models.ErrPermissionDenied
		}

		capHandle, err := s.capture.Start(s.stream)
		if err != nil {
			if ce, ok := models.IsCaptureError(err); ok && ce.Reason == models.CaptureUnsupported {
				s.emit(Event{Type: EventError, Message: "this browser cannot record the selected media format"})
			} else {
				s.emit(Event{Type: EventError, Message: "recording could not be started"})
			}
			return err
		}

		transHandle, err := s.coordinator.Start(s.onTranscript, s.onTranscriptError)
		if err != nil {
			// Soft failure: recording proceeds without a transcript.
			s.log.WithError(err).Warn("starting without live transcription")
			s.emit(Event{Type: EventWarning, Message: "live transcription unavailable"})
			transHandle = nil
		}

		if err := s.flow.BeginRecording(); err != nil {
			capHandle.Discard()
			if transHandle != nil {
				transHandle.Stop()
			}
			return err
		}

		s.capHandle = capHandle
		s.transHandle = transHandle
		s.tracker.ResetWindow()
		s.emitPhase()
		return nil
	})
}

// StopRecording ends the current capture and commits the answer.
func (s *Session) StopRecording() error {
	return s.do(s.commitCurrent)
}

// commitCurrent runs on the event loop: recording -> reviewing, with
// the assembled payload and finalized transcript joined into a
// Recording and pushed to the store.
func (s *Session) commitCurrent() error {
	q, ok := s.flow.Current()
	if !ok {
		return fmt.Errorf("%w: no current question", models.ErrIllegalTransition)
	}
	if err := s.flow.StopRecording(); err != nil {
		return err
	}

	duration := s.flow.ElapsedSeconds()

	var payload models.MediaPayload
	var capErr error
	if s.capHandle != nil {
		payload, capErr = s.capHandle.Stop()
		s.capHandle = nil
	}

	transcript := ""
	if s.transHandle != nil {
		s.transHandle.Stop()
		transcript = s.transHandle.Transcript()
		s.transHandle = nil
	}

	answer := models.AnswerSummary{
		SessionID:       s.id,
		QuestionID:      q.ID,
		QuestionText:    q.Text,
		Transcript:      transcript,
		DurationSeconds: duration,
		DominantEmotion: s.tracker.Dominant(),
		CompletedAt:     time.Now(),
	}

	if capErr != nil {
		// The question is marked unanswered; the flow still advances.
		s.log.WithError(capErr).WithField("question_id", q.ID).Warn("capture failed, question unanswered")
		s.emit(Event{Type: EventError, Message: "recording failed for this question; it is marked unanswered"})
		s.submitArchive(store.ArchiveJob{Answer: answer})
		s.emitPhase()
		return nil
	}

	// Re-recording after back-navigation replaces the earlier answer so
	// question IDs stay unique within the session.
	for _, prev := range s.recordings.List() {
		if prev.QuestionID == q.ID {
			_ = s.recordings.Remove(prev.ID)
		}
	}

	rec := models.NewRecording(q.ID, payload, duration, transcript)
	if err := s.recordings.Add(rec); err != nil {
		return fmt.Errorf("commit recording: %w", err)
	}
	// Tracked per question ID, so a re-record counts once.
	s.answered[q.ID] = struct{}{}

	answer.RecordingID = rec.ID
	answer.Answered = true
	s.submitArchive(store.ArchiveJob{Recording: rec, Answer: answer})

	s.log.WithFields(logrus.Fields{
		"question_id":  q.ID,
		"recording_id": rec.ID,
		"duration":     duration,
		"chunks":       payload.Chunks,
	}).Info("answer committed")

	s.emit(Event{Type: EventRecordingCommitted, RecordingID: rec.ID, Transcript: transcript})
	s.emitPhase()
	return nil
}

func (s *Session) submitArchive(job store.ArchiveJob) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Submit(job); err != nil {
		s.log.WithError(err).Warn("answer not archived")
	}
}

// Advance moves reviewing -> presenting (next question) or finished.
func (s *Session) Advance() error {
	return s.do(func() error {
		phase, err := s.flow.Advance()
		if err != nil {
			return err
		}
		s.emitPhase()
		if phase == models.PhaseFinished {
			s.log.WithField("answered", len(s.answered)).Info("session finished")
		}
		return nil
	})
}

// Navigate jumps to the question at index i. Rejected while recording.
func (s *Session) Navigate(i int) error {
	return s.do(func() error {
		if err := s.flow.Navigate(i); err != nil {
			return err
		}
		s.emitPhase()
		return nil
	})
}

// Abandon discards any in-flight recording, resets to idle, and
// releases every acquired resource. Committed recordings stay in the
// store so they remain reviewable; Destroy clears them.
func (s *Session) Abandon() {
	s.close(true)
}

// Finish tears the session down keeping its committed work.
func (s *Session) Finish() {
	s.close(false)
}

// Destroy is the final teardown: it abandons the session if still live
// and drops every stored recording.
func (s *Session) Destroy() {
	s.close(true)
	s.recordings.Clear()
}

// close is the single teardown entry point. After it returns no
// background task of this session is running.
func (s *Session) close(abandoned bool) {
	if s.closed.Swap(true) {
		return
	}

	teardown := func() {
		if s.capHandle != nil {
			s.capHandle.Discard()
			s.capHandle = nil
		}
		if s.transHandle != nil {
			s.transHandle.Stop()
			s.transHandle = nil
		}
		s.flow.Abandon()
		s.stream.Close()

		if s.onClose != nil {
			s.onClose(models.SessionSummary{
				SessionID: s.id,
				StartedAt: s.startedAt,
				EndedAt:   time.Now(),
				Questions: len(s.flow.Questions()),
				Answered:  len(s.answered),
				Abandoned: abandoned,
			})
		}
	}

	// Run teardown on the loop so it cannot race a command, then stop
	// the loop itself.
	done := make(chan struct{})
	select {
	case s.cmds <- func() { teardown(); close(done) }:
		<-done
	case <-s.done:
	}
	close(s.done)
	s.log.WithField("abandoned", abandoned).Info("session closed")
}

// State snapshots the current session state.
func (s *Session) State() models.SessionState {
	var state models.SessionState
	err := s.do(func() error {
		state = models.SessionState{
			SessionID:      s.id,
			Questions:      s.flow.Questions(),
			ElapsedSeconds: s.flow.ElapsedSeconds(),
			Phase:          s.flow.Phase(),
			IsRecording:    s.flow.Phase() == models.PhaseRecording,
		}
		if q, ok := s.flow.Current(); ok {
			state.CurrentQuestionID = q.ID
		}
		return nil
	})
	if err != nil {
		return models.SessionState{SessionID: s.id, Phase: models.PhaseIdle}
	}
	return state
}

// Recordings lists committed recordings in insertion order.
func (s *Session) Recordings() []*models.Recording {
	return s.recordings.List()
}

// Recording fetches one committed recording.
func (s *Session) Recording(id string) (*models.Recording, error) {
	return s.recordings.Get(id)
}

// DeleteRecording drops a recording from the session's store.
func (s *Session) DeleteRecording(id string) error {
	return s.recordings.Remove(id)
}

// SubmitFrame feeds one captured video frame into the analysis loop.
// Frames arriving while an analysis is in flight are skipped; the
// sequence tracker drops any completion that would apply a stale frame
// over a newer one.
func (s *Session) SubmitFrame(frame []byte) {
	model := s.model.Load()
	if s.closed.Load() || model == nil {
		return
	}
	seq := s.tracker.NextSeq()
	if !s.analysisBusy.CompareAndSwap(false, true) {
		return // frame-skip: previous analysis still running
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		det, err := s.analyzer.Analyze(ctx, frame, model)
		s.analysisBusy.Store(false)
		if err != nil {
			s.log.WithError(err).Debug("frame analysis failed")
			return
		}

		s.post(func() {
			m, applied := s.tracker.Commit(seq, det)
			if !applied {
				return
			}
			s.emit(Event{Type: EventMetrics, Metrics: &m})
			if s.telemetry != nil {
				s.telemetry.PublishMetrics(context.Background(), s.id, m)
			}
		})
	}()
}

// SubmitChunk feeds one media chunk from the browser recorder into the
// active capture, if any.
func (s *Session) SubmitChunk(data []byte) {
	if s.closed.Load() {
		return
	}
	s.stream.Push(data)
}

// Speech relays a platform speech-recognition event.
func (s *Session) Speech(text string, final bool) {
	if s.closed.Load() {
		return
	}
	s.recognizer.Deliver(text, final)
}

// SpeechError relays a speech-recognition failure.
func (s *Session) SpeechError(reason string) {
	if s.closed.Load() {
		return
	}
	s.recognizer.Fail(fmt.Errorf("%s", reason))
}

// RevokePermission marks camera/microphone access as withdrawn.
func (s *Session) RevokePermission() {
	s.stream.Revoke()
}

// Metrics returns the latest smoothed face metrics.
func (s *Session) Metrics() models.FaceMetrics {
	return s.tracker.Current()
}

// onTranscript runs on the recognizer's delivery path.
func (s *Session) onTranscript(partial, transcript string) {
	s.emit(Event{Type: EventTranscript, Partial: partial, Transcript: transcript})
}

func (s *Session) onTranscriptError(err error) {
	s.emit(Event{Type: EventWarning, Message: "live transcription stopped; the recording continues"})
}
