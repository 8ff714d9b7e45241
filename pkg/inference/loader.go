package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"interview-engine/pkg/models"
)

// ModelHandle identifies a loaded face-analysis model.
type ModelHandle struct {
	Version  string    `json:"version"`
	Labels   []string  `json:"labels"`
	LoadedAt time.Time `json:"-"`
}

// Loader fetches and caches the face model manifest once per process.
// Concurrent Load calls while a fetch is in flight share that fetch
// instead of issuing duplicate requests. A successful load is cached
// for the loader's lifetime; a failed one may be retried.
type Loader struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	handle  *ModelHandle
	lastErr error
	pending chan struct{}
}

func NewLoader(baseURL string, timeout time.Duration, log *logrus.Entry) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Load returns the cached model handle, joining any in-flight fetch.
func (l *Loader) Load(ctx context.Context) (*ModelHandle, error) {
	if l.baseURL == "" {
		return nil, models.ErrModelUnavailable
	}

	l.mu.Lock()
	if l.handle != nil {
		h := l.handle
		l.mu.Unlock()
		return h, nil
	}
	if l.pending == nil {
		l.pending = make(chan struct{})
		go l.fetch(l.pending)
	}
	pending := l.pending
	l.mu.Unlock()

	select {
	case <-pending:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.ctx.Done():
		return nil, fmt.Errorf("%w: loader closed", models.ErrModelUnavailable)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle != nil {
		return l.handle, nil
	}
	return nil, l.lastErr
}

func (l *Loader) fetch(pending chan struct{}) {
	handle, err := l.fetchManifest()

	l.mu.Lock()
	if err != nil {
		l.lastErr = fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
		l.log.WithError(err).Warn("model load failed, analysis disabled")
	} else {
		l.handle = handle
		l.log.WithField("version", handle.Version).Info("face model loaded")
	}
	l.pending = nil
	close(pending)
	l.mu.Unlock()
}

func (l *Loader) fetchManifest() (*ModelHandle, error) {
	req, err := http.NewRequestWithContext(l.ctx, http.MethodGet, l.baseURL+"/model/manifest", nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("manifest %s: %s", resp.Status, string(body))
	}

	var handle ModelHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return nil, fmt.Errorf("manifest decode: %w", err)
	}
	if handle.Version == "" {
		return nil, fmt.Errorf("manifest missing model version")
	}
	handle.LoadedAt = time.Now()
	return &handle, nil
}

// Close cancels any in-flight load. Waiters receive ErrModelUnavailable.
func (l *Loader) Close() {
	l.cancel()
}
