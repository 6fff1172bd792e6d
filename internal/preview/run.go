package preview

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Run is the top-level invocation surface: it constructs the server,
// installs signal handling, and blocks until shutdown. On fatal
// misconfiguration it fails synchronously before any session is
// accepted; it returns nil on a clean stop.
func Run(opts Options) error {
	srv, err := New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	return srv.Run(ctx)
}
