package preview

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livedoc-dev/livedoc/internal/errors"
	"github.com/livedoc-dev/livedoc/internal/metrics"
	"github.com/livedoc-dev/livedoc/internal/render"
	"github.com/livedoc-dev/livedoc/internal/watch"
	"github.com/livedoc-dev/livedoc/pkg/reactive"
)

// Options configure the preview server. The handler binding for the
// output slot is injected by the server and is not caller-overridable.
type Options struct {
	// SourcePath is the document to preview. Must be readable.
	SourcePath string

	// AutoReload toggles source polling. When false the document is
	// rendered once at session start and never again.
	AutoReload bool

	// PollInterval is the watcher poll interval; it is also the only
	// debounce window. Defaults to watch.DefaultInterval.
	PollInterval time.Duration

	// Address is the listen address (host:port).
	Address string

	// Renderer compiles the document. Defaults to a CommandRenderer
	// when constructed via config; tests inject fakes.
	Renderer render.Renderer

	// RenderOptions pass through to the invoker. Reserved keys are
	// rejected at construction.
	RenderOptions render.Options

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Logger is the base logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the preview server shell: it accepts browser sessions,
// binds one pipeline to each, and streams rendered output over
// WebSocket.
type Server struct {
	opts    Options
	invoker *render.Invoker
	logger  *slog.Logger

	httpServer *http.Server

	mu       sync.Mutex
	sessions map[string]*Session
}

// New validates the options and constructs the server. Misconfiguration
// (unreadable source, bad option keys) fails here, synchronously,
// before any session is accepted.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Address == "" {
		opts.Address = "localhost:4848"
	}
	if opts.Renderer == nil {
		return nil, errors.New(errors.CodeServerStart).WithDetail("no renderer configured")
	}

	if err := readableFile(opts.SourcePath); err != nil {
		return nil, errors.New(errors.CodeServerStart).Wrap(err)
	}

	invoker, err := render.NewInvoker(opts.Renderer, opts.RenderOptions)
	if err != nil {
		return nil, err
	}

	return &Server{
		opts:     opts,
		invoker:  invoker,
		logger:   opts.Logger.With("component", "preview"),
		sessions: make(map[string]*Session),
	}, nil
}

// Router builds the HTTP routes: the shell page, the live WebSocket
// endpoint, per-session mounted assets, metrics, and health.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/_livedoc/live", s.handleLive)
	r.Get(AssetPrefix+"{session}/{name}/*", s.handleAsset)
	r.Head(AssetPrefix+"{session}/{name}/*", s.handleAsset)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return r
}

// Run binds the listen address and serves until ctx is cancelled. A
// bind failure surfaces immediately as a ServerStartFailure; nothing
// else crosses this boundary.
func (s *Server) Run(ctx context.Context) error {
	metrics.Init(metrics.Config{})

	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return errors.New(errors.CodeServerStart).Wrap(err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("preview server running",
		"address", s.opts.Address,
		"source", s.opts.SourcePath,
		"auto_reload", s.opts.AutoReload)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.New(errors.CodeServerStart).Wrap(err)
		}
		return nil
	}
}

// Shutdown closes all sessions, then the HTTP server. Session teardown
// runs synchronously so no temp files survive the call.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("preview server stopped")
	return nil
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// pollInterval resolves the effective watcher interval for new
// sessions. Zero disables polling entirely.
func (s *Server) pollInterval() time.Duration {
	if !s.opts.AutoReload {
		return 0
	}
	if s.opts.PollInterval > 0 {
		return s.opts.PollInterval
	}
	return watch.DefaultInterval
}

// readableFile verifies path names a readable regular file.
func readableFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a document", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// handleIndex serves the shell page with the single output slot. The
// first render arrives over the live socket.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	title := filepath.Base(s.opts.SourcePath)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s — livedoc</title></head>
<body>
<div id="livedoc-output"></div>
%s
</body>
</html>`, html.EscapeString(title), LiveClientScript)
}

// handleAsset resolves the owning session from the URL and serves the
// requested file from that session's mounts. Assets of a closed session
// are gone: the session is no longer in the registry.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sid, name, rel, ok := splitAssetPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	sess, found := s.sessions[sid]
	s.mu.Unlock()
	if !found {
		http.NotFound(w, r)
		return
	}

	sess.Mounts().serve(w, r, name, rel)
}

// handleLive upgrades the connection, creates a session owning its own
// pipeline and mounts, and streams every completed render until
// disconnect.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	upgrader := newUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := &liveConn{conn: conn}

	sess := newSession(r.Context(), s.invoker, s.opts.SourcePath, s.pollInterval(), s.logger)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		sess.Close()
		client.close()
	}()

	// Relative links in the artifact resolve against this session's
	// slice of the asset URL space.
	assetBase := AssetPrefix + sess.ID + "/"

	// Push every swap of the content signal to this client.
	outputListener := reactive.ListenerFunc(func() {
		client.send(Message{Type: TypeUpdate, HTML: sess.Output().Get(), AssetBase: assetBase})
	})
	sess.Output().Subscribe(outputListener)
	defer sess.Output().Unsubscribe(outputListener)

	errListener := reactive.ListenerFunc(func() {
		if msg := sess.Errors().Get(); msg != "" {
			client.send(Message{Type: TypeError, Error: msg})
		} else {
			client.send(Message{Type: TypeClear})
		}
	})
	sess.Errors().Subscribe(errListener)
	defer sess.Errors().Unsubscribe(errListener)

	// Initial content: block until the first render completes. A
	// failed first render shows the error overlay, not a dead session.
	if content, err := sess.CurrentOutput(r.Context()); err != nil {
		client.send(Message{Type: TypeError, Error: err.Error()})
	} else {
		client.send(Message{Type: TypeUpdate, HTML: content, AssetBase: assetBase})
	}

	client.readUntilClosed()
}
