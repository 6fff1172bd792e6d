package preview

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/livedoc-dev/livedoc/internal/metrics"
	"github.com/livedoc-dev/livedoc/internal/pipeline"
	"github.com/livedoc-dev/livedoc/internal/render"
	"github.com/livedoc-dev/livedoc/internal/watch"
	"github.com/livedoc-dev/livedoc/pkg/reactive"
)

// Session binds one render pipeline to one connected client. The
// session owns the pipeline for its whole life and drives it to
// torn-down exactly once when the client disconnects or the server
// stops.
type Session struct {
	ID        string
	CreatedAt time.Time

	pipeline *pipeline.Pipeline
	mounts   *Mounts
	logger   *slog.Logger

	closeOnce sync.Once
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fatal on entropy failure: predictable IDs are dangerous.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession constructs a session with its own watcher, mount registry,
// and pipeline, and starts the initial render.
func newSession(ctx context.Context, invoker *render.Invoker, sourcePath string, interval time.Duration, logger *slog.Logger) *Session {
	id := generateSessionID()
	log := logger.With("session_id", id)

	watcher := watch.NewWatcher(sourcePath, interval)
	mounts := NewMounts()
	p := pipeline.New(invoker, watcher, mounts, log)

	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		pipeline:  p,
		mounts:    mounts,
		logger:    log,
	}

	p.Start(ctx)
	metrics.RecordSessionStart()
	log.Info("session started", "source", sourcePath, "auto_reload", watcher.Enabled())

	return s
}

// CurrentOutput returns the latest rendered content, blocking until the
// first render completes. A render failure with no prior good output
// returns the error instead; the session stays alive either way.
func (s *Session) CurrentOutput(ctx context.Context) (string, error) {
	return s.pipeline.CurrentOutput(ctx)
}

// Output exposes the pipeline's content signal for live subscribers.
func (s *Session) Output() *reactive.Signal[string] {
	return s.pipeline.Output()
}

// Errors exposes the pipeline's render-failure signal.
func (s *Session) Errors() *reactive.Signal[string] {
	return s.pipeline.Errors()
}

// State returns the underlying pipeline state.
func (s *Session) State() pipeline.State {
	return s.pipeline.State()
}

// Mounts returns the session's asset mount registry.
func (s *Session) Mounts() *Mounts {
	return s.mounts
}

// Close tears down the session's pipeline synchronously and drops its
// asset mounts. Once it returns, no temp files for this session remain
// and no asset URL resolves to them. Idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pipeline.Close()
		s.mounts.Clear()
		metrics.RecordSessionEnd()
		s.logger.Info("session closed")
	})
	return err
}
