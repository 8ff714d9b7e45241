package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"interview-engine/pkg/capture"
	"interview-engine/pkg/config"
	"interview-engine/pkg/inference"
	"interview-engine/pkg/models"
	"interview-engine/pkg/store"
	"interview-engine/pkg/telemetry"
)

// Engine owns the process-wide collaborators (model loader, capture
// manager, persistence workers) and the set of live sessions. The
// loader is constructed and torn down here, never as an implicit
// process singleton.
type Engine struct {
	cfg *config.Config
	log *logrus.Entry

	loader    *inference.Loader
	analyzer  *inference.Analyzer
	capture   *capture.Manager
	archiver  *store.Archiver
	history   *store.HistoryStore
	telemetry *telemetry.Publisher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewEngine(cfg *config.Config, payloads store.PayloadStore, history *store.HistoryStore, log *logrus.Entry) *Engine {
	return &Engine{
		cfg:       cfg,
		log:       log,
		loader:    inference.NewLoader(cfg.Inference.BaseURL, cfg.Inference.RequestTimeout, log),
		analyzer:  inference.NewAnalyzer(cfg.Inference.BaseURL, cfg.Inference.RequestTimeout, log),
		capture:   capture.NewManager(cfg.Engine.SupportedMimeTypes, log),
		archiver:  store.NewArchiver(payloads, history, cfg.Engine.CommitWorkers, cfg.Engine.CommitQueueSize, log),
		history:   history,
		telemetry: telemetry.NewPublisher(cfg.Redis.Address, cfg.Redis.TTL, log),
		sessions:  make(map[string]*Session),
	}
}

// Start launches the persistence workers and warms the model cache.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.archiver.Start(e.ctx)

	if e.cfg.Inference.BaseURL != "" {
		go func() {
			if _, err := e.loader.Load(e.ctx); err != nil {
				e.log.WithError(err).Warn("model warm-up failed")
			}
		}()
	}
	return nil
}

// CreateSession builds and starts a session over the given questions.
func (e *Engine) CreateSession(questions []models.Question, mimeType string) *Session {
	if mimeType == "" && len(e.cfg.Engine.SupportedMimeTypes) > 0 {
		mimeType = e.cfg.Engine.SupportedMimeTypes[0]
	}

	s := newSession(Config{
		Questions:      questions,
		MimeType:       mimeType,
		SmoothingBlend: e.cfg.Engine.SmoothingBlend,
		TickInterval:   e.cfg.Engine.TickInterval,
		Log:            e.log,
		Loader:         e.loader,
		Analyzer:       e.analyzer,
		Capture:        e.capture,
		Archiver:       e.archiver,
		Telemetry:      e.telemetry,
		OnClose:        e.sessionClosed,
	})

	e.mu.Lock()
	e.sessions[s.ID()] = s
	e.mu.Unlock()

	e.log.WithField("session_id", s.ID()).Info("session created")
	return s
}

// Session looks up a live session.
func (e *Engine) Session(id string) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// Abandon stops a session, discarding any in-flight recording. The
// session stays registered so its committed recordings remain
// reviewable until Remove.
func (e *Engine) Abandon(id string) error {
	s, err := e.Session(id)
	if err != nil {
		return err
	}
	s.Abandon()
	return nil
}

// Finish tears a session down keeping its committed work.
func (e *Engine) Finish(id string) error {
	s, err := e.Session(id)
	if err != nil {
		return err
	}
	s.Finish()
	return nil
}

// Remove is the final teardown: the session is unregistered and its
// stored media released.
func (e *Engine) Remove(id string) error {
	s, err := e.Session(id)
	if err != nil {
		return err
	}
	s.Destroy()

	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()
	return nil
}

func (e *Engine) sessionClosed(sum models.SessionSummary) {
	if e.history != nil {
		if err := e.history.SaveSession(sum); err != nil {
			e.log.WithError(err).Warn("session summary not persisted")
		}
	}
}

// Shutdown closes every session and the shared collaborators.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	open := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		open = append(open, s)
	}
	e.mu.Unlock()

	for _, s := range open {
		s.Destroy()
	}

	e.mu.Lock()
	e.sessions = make(map[string]*Session)
	e.mu.Unlock()

	// Drain the archive queue while the context is still live; workers
	// bail out early on a cancelled context and would drop queued jobs.
	e.archiver.Stop()

	e.loader.Close()
	if e.cancel != nil {
		e.cancel()
	}
	if err := e.telemetry.Close(); err != nil {
		e.log.WithError(err).Warn("telemetry close failed")
	}
	e.log.Info("engine stopped")
}
