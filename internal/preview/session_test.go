package preview

import (
	"context"
	"strings"
	"testing"

	"github.com/livedoc-dev/livedoc/internal/pipeline"
	"github.com/livedoc-dev/livedoc/internal/render"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	inv, err := render.NewInvoker(&stubRenderer{}, render.Options{})
	if err != nil {
		t.Fatal(err)
	}

	sess := newSession(context.Background(), inv, writeSourceDoc(t), 0, quietLogger())
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestSession_CurrentOutput(t *testing.T) {
	sess := newTestSession(t)

	content, err := sess.CurrentOutput(context.Background())
	if err != nil {
		t.Fatalf("CurrentOutput() error: %v", err)
	}
	if !strings.Contains(content, "render 1") {
		t.Errorf("content = %q", content)
	}
	if sess.State() != pipeline.StateReady {
		t.Errorf("State() = %v, want %v", sess.State(), pipeline.StateReady)
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	sess := newTestSession(t)

	if _, err := sess.CurrentOutput(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := sess.Mounts().Mount("doc_files", t.TempDir()); err != nil {
		t.Fatal(err)
	}

	if err := sess.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if sess.State() != pipeline.StateTornDown {
		t.Errorf("State() = %v, want %v", sess.State(), pipeline.StateTornDown)
	}
	if sess.Mounts().Len() != 0 {
		t.Errorf("Mounts().Len() = %d, want 0 after close", sess.Mounts().Len())
	}
}

func TestGenerateSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateSessionID()
		if len(id) != 32 {
			t.Fatalf("id length = %d, want 32 hex chars", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}
