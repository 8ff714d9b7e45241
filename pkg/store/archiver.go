package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"interview-engine/pkg/models"
)

// ArchiveJob carries one committed answer to the persistence tiers.
// Recording may be nil for unanswered questions; the answer row is
// still written.
type ArchiveJob struct {
	Recording *models.Recording
	Answer    models.AnswerSummary
}

// Archiver writes committed recordings to the payload and history
// stores off the session event loop, through a small worker pool.
type Archiver struct {
	payloads PayloadStore
	history  *HistoryStore
	log      *logrus.Entry

	workers int
	jobs    chan ArchiveJob
	wg      sync.WaitGroup
}

func NewArchiver(payloads PayloadStore, history *HistoryStore, workers, queueSize int, log *logrus.Entry) *Archiver {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Archiver{
		payloads: payloads,
		history:  history,
		log:      log,
		workers:  workers,
		jobs:     make(chan ArchiveJob, queueSize),
	}
}

// Start launches the worker pool.
func (a *Archiver) Start(ctx context.Context) {
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go a.worker(ctx)
	}
}

// Submit enqueues a job without blocking the caller.
func (a *Archiver) Submit(job ArchiveJob) error {
	select {
	case a.jobs <- job:
		return nil
	default:
		return fmt.Errorf("archive queue is full")
	}
}

// Stop drains outstanding jobs and waits for the workers.
func (a *Archiver) Stop() {
	close(a.jobs)
	a.wg.Wait()
}

func (a *Archiver) worker(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case job, ok := <-a.jobs:
			if !ok {
				return
			}
			a.process(job)
		case <-ctx.Done():
			return
		}
	}
}

func (a *Archiver) process(job ArchiveJob) {
	if a.payloads != nil && job.Recording != nil {
		if err := a.payloads.Save(job.Recording); err != nil {
			a.log.WithError(err).WithField("recording_id", job.Recording.ID).
				Error("failed to persist recording payload")
		}
	}
	if a.history != nil {
		if err := a.history.SaveAnswer(job.Answer); err != nil {
			a.log.WithError(err).WithField("question_id", job.Answer.QuestionID).
				Error("failed to persist answer")
		}
	}
}
