package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/livedoc-dev/livedoc/internal/errors"
	"github.com/livedoc-dev/livedoc/internal/metrics"
	"github.com/livedoc-dev/livedoc/internal/render"
	"github.com/livedoc-dev/livedoc/internal/watch"
	"github.com/livedoc-dev/livedoc/pkg/reactive"
)

// State represents the pipeline's lifecycle state.
type State int

const (
	StateIdle      State = iota // no render has occurred yet
	StateRendering              // a render invocation is outstanding
	StateReady                  // holds a current result
	StateTornDown               // terminal; session ended
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateReady:
		return "ready"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Mounter maps a side-asset directory into the session server's URL
// space. Implemented by the preview server's mount registry.
type Mounter interface {
	Mount(name, dir string) error
}

// Pipeline is the reactive core: it recomputes the rendered artifact
// whenever the watched file changes and exposes the latest content as a
// signal. At most one recompute runs at a time; changes arriving while
// one is in flight coalesce into exactly one follow-up.
type Pipeline struct {
	invoker *render.Invoker
	watcher *watch.Watcher
	mounts  Mounter
	logger  *slog.Logger
	tracer  trace.Tracer

	// output holds the latest Ready content. Subscribers (the live
	// update hub) are notified on every completed swap.
	output *reactive.Signal[string]

	// errText holds the latest recompute failure rendered as text, or
	// "" after a successful recompute. Drives the browser error overlay.
	errText *reactive.Signal[string]

	mu        sync.Mutex
	state     State
	rendering bool
	pending   bool // change arrived while rendering
	closed    bool
	current   *render.Result
	renderErr error

	// done is closed when a render cycle's outcome is readable. It is
	// re-armed when a render starts with nothing to serve, so a retry
	// after a failed first render blocks readers until its own outcome.
	done chan struct{}

	// wg tracks the in-flight recompute goroutine so teardown can wait
	// for it instead of leaking its artifact.
	wg sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a pipeline bound to a watcher, invoker, and mount
// registry. Call Start before reading output.
func New(invoker *render.Invoker, watcher *watch.Watcher, mounts Mounter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		invoker: invoker,
		watcher: watcher,
		mounts:  mounts,
		logger:  logger.With("component", "pipeline", "source", watcher.Path()),
		tracer:  otel.Tracer("livedoc/pipeline"),
		output:  reactive.NewSignal(""),
		errText: reactive.NewSignal(""),
		done:    make(chan struct{}),
	}
}

// Start subscribes to the watcher and kicks off the initial render.
// The watcher's poll interval is the only debounce window; no extra
// coalescing delay is added.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.watcher.OnChange(func(watch.Change) {
		p.Invalidate()
	})
	go p.watcher.Start(p.ctx)

	p.Invalidate()
}

// Output returns the signal holding the latest rendered content.
func (p *Pipeline) Output() *reactive.Signal[string] {
	return p.output
}

// Errors returns the signal holding the latest render failure text, or
// the empty string after a successful render.
func (p *Pipeline) Errors() *reactive.Signal[string] {
	return p.errText
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastError returns the most recent recompute failure, or nil if the
// last recompute succeeded.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderErr
}

// Invalidate schedules a recompute. If one is already in flight the
// change is recorded and exactly one follow-up runs after it completes.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduleLocked()
}

// scheduleLocked starts the render loop if it is not already running.
// Caller must hold p.mu.
func (p *Pipeline) scheduleLocked() {
	if p.closed {
		return
	}
	if p.rendering {
		p.pending = true
		return
	}
	if p.current == nil {
		// Nothing to serve yet: readers must wait for this cycle's
		// outcome, not a previous failure.
		p.rearmDoneLocked()
	}
	p.rendering = true
	p.state = StateRendering
	p.wg.Add(1)
	go p.renderLoop()
}

// renderLoop runs recomputes serially until no follow-up is pending.
func (p *Pipeline) renderLoop() {
	defer p.wg.Done()

	for {
		result, err := p.recompute(p.ctx)

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			// Teardown raced the render: the fresh result was never
			// published, so discard its files here. Close wakes any
			// waiters.
			p.discard(result)
			return
		}

		var superseded *render.Result
		if err != nil {
			// Stay on the last Ready content. A missing source file is
			// retried by the next poll; a content error waits for the
			// next change.
			p.renderErr = err
			if p.current != nil {
				p.state = StateReady
			} else {
				p.state = StateIdle
			}
			p.logger.Warn("render failed", "error", err)
		} else {
			superseded = p.current
			p.current = result
			p.renderErr = nil
			p.state = StateReady
		}
		content := ""
		if p.current != nil {
			content = p.current.Content
		}
		// rendering stays true through the publish below: a concurrent
		// Invalidate can only flag a follow-up, never start a second
		// loop that could publish an older result after a newer one.
		p.mu.Unlock()

		if err == nil {
			// Swap is visible before the old result's files disappear;
			// deletion happens off the read path.
			p.output.Set(content)
			p.errText.Set("")
			if superseded != nil {
				go p.discard(superseded)
			}
		} else {
			p.errText.Set(errorText(err))
		}

		p.mu.Lock()
		p.completeLocked()
		runAgain := p.pending
		p.pending = false
		if !runAgain || p.closed {
			p.rendering = false
			p.mu.Unlock()
			return
		}
		p.state = StateRendering
		p.mu.Unlock()
	}
}

// recompute performs one render invocation and mounts its asset
// directory.
func (p *Pipeline) recompute(ctx context.Context) (*render.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.recompute",
		trace.WithAttributes(attribute.String("livedoc.source", p.watcher.Path())))
	defer span.End()

	result, err := p.invoker.Invoke(ctx, p.watcher.Path())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRender("error", 0)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("livedoc.render_ms", result.Duration.Milliseconds()))
	span.SetStatus(codes.Ok, "")
	metrics.RecordRender("success", result.Duration.Seconds())

	if result.AssetDir != "" && p.mounts != nil {
		// Derived mount name: the asset directory's base name.
		name := filepath.Base(result.AssetDir)
		if err := p.mounts.Mount(name, result.AssetDir); err != nil {
			// Mount trouble is not fatal to the render.
			p.logger.Warn("asset mount skipped", "dir", result.AssetDir, "error", err)
		}
	}

	return result, nil
}

// CurrentOutput returns the latest Ready content, computing it first if
// the pipeline is still Idle. It blocks the caller until a recompute
// outcome exists; later readers observe the old content while a fresh
// recompute is in flight, never a partial result. After a failed render
// with nothing to serve, a new call schedules a retry and waits for its
// outcome instead of replaying the stale error.
func (p *Pipeline) CurrentOutput(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", errors.Newf(errors.CategoryServer, "pipeline is torn down")
	}
	if p.state == StateIdle && !p.rendering {
		p.scheduleLocked()
	}
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return p.current.Content, nil
	}
	if p.renderErr != nil {
		return "", p.renderErr
	}
	return "", errors.Newf(errors.CategoryServer, "pipeline is torn down")
}

// Close tears the pipeline down: it stops the watcher, waits for any
// in-flight recompute, and deletes the current artifact synchronously.
// Idempotent; the second call is a no-op.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.pending = false
	p.state = StateTornDown
	cancel := p.cancel
	p.mu.Unlock()

	p.watcher.Stop()
	if cancel != nil {
		cancel()
	}

	// Wait for the in-flight render; renderLoop discards its result
	// once it sees closed.
	p.wg.Wait()

	p.mu.Lock()
	current := p.current
	p.current = nil
	p.mu.Unlock()

	if current != nil {
		if err := render.Cleanup(current); err != nil {
			p.logger.Warn("teardown cleanup failed", "error", err)
			metrics.RecordCleanupFailure()
		}
	}

	p.mu.Lock()
	p.completeLocked()
	p.mu.Unlock()
	return nil
}

// discard deletes a result's files, logging failures.
func (p *Pipeline) discard(result *render.Result) {
	if result == nil {
		return
	}
	if err := render.Cleanup(result); err != nil {
		p.logger.Warn("cleanup failed", "artifact", result.ArtifactPath, "error", err)
		metrics.RecordCleanupFailure()
	}
}

// completeLocked marks the current render cycle's outcome readable.
// Caller must hold p.mu.
func (p *Pipeline) completeLocked() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

// rearmDoneLocked replaces an already-closed done channel so new
// readers wait for the next cycle. Caller must hold p.mu.
func (p *Pipeline) rearmDoneLocked() {
	select {
	case <-p.done:
		p.done = make(chan struct{})
	default:
	}
}

// errorText formats a recompute failure for display, preferring the
// compiler output carried in a coded error's detail.
func errorText(err error) string {
	var pe *errors.PreviewError
	if stderrors.As(err, &pe) && pe.Detail != "" {
		return pe.Error() + "\n\n" + pe.Detail
	}
	return err.Error()
}
