package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/livedoc-dev/livedoc/internal/errors"
)

// fakeRenderer writes a canned artifact instead of shelling out.
type fakeRenderer struct {
	mu       sync.Mutex
	content  string
	assets   map[string]string // relative path -> content inside the asset dir
	failWith error
	requests []Request
}

func (f *fakeRenderer) Render(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	failWith := f.failWith
	content := f.content
	assets := f.assets
	f.mu.Unlock()

	if failWith != nil {
		return "", failWith
	}
	if err := os.WriteFile(req.OutputPath, []byte(content), 0644); err != nil {
		return "", err
	}
	if len(assets) > 0 {
		dir := AssetDirFor(req.OutputPath)
		for rel, body := range assets {
			path := filepath.Join(dir, rel)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return "", err
			}
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				return "", err
			}
		}
	}
	return req.OutputPath, nil
}

func (f *fakeRenderer) lastRequest(t *testing.T) Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no render requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("# title"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInvoker_Invoke(t *testing.T) {
	source := writeSource(t)
	renderer := &fakeRenderer{content: "<html>out</html>"}

	inv, err := NewInvoker(renderer, Options{SatisfiedDeps: []string{"katex"}})
	if err != nil {
		t.Fatal(err)
	}

	result, err := inv.Invoke(context.Background(), source)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	defer Cleanup(result)

	if result.Content != "<html>out</html>" {
		t.Errorf("Content = %q", result.Content)
	}
	if filepath.Base(result.ArtifactPath) != "doc.html" {
		t.Errorf("ArtifactPath = %q, want doc.html base", result.ArtifactPath)
	}
	if result.AssetDir != "" {
		t.Errorf("AssetDir = %q, want empty when no assets produced", result.AssetDir)
	}
	if result.Duration <= 0 {
		t.Error("Duration not recorded")
	}

	req := renderer.lastRequest(t)
	if req.SelfContained {
		t.Error("SelfContained = true, want false for live sessions")
	}
	if req.RuntimeMode != RuntimeReactive {
		t.Errorf("RuntimeMode = %q, want %q", req.RuntimeMode, RuntimeReactive)
	}
	if len(req.SatisfiedDeps) != 1 || req.SatisfiedDeps[0] != "katex" {
		t.Errorf("SatisfiedDeps = %v", req.SatisfiedDeps)
	}
}

func TestInvoker_Invoke_DetectsAssetDir(t *testing.T) {
	source := writeSource(t)
	renderer := &fakeRenderer{
		content: "<html/>",
		assets:  map[string]string{"style.css": "body{}", "js/app.js": "//"},
	}

	inv, err := NewInvoker(renderer, Options{})
	if err != nil {
		t.Fatal(err)
	}

	result, err := inv.Invoke(context.Background(), source)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	defer Cleanup(result)

	if result.AssetDir == "" {
		t.Fatal("AssetDir empty, want detected sibling directory")
	}
	if got, want := result.AssetDir, AssetDirFor(result.ArtifactPath); got != want {
		t.Errorf("AssetDir = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(result.AssetDir, "js", "app.js")); err != nil {
		t.Errorf("nested asset missing: %v", err)
	}
}

func TestInvoker_Invoke_MissingSource(t *testing.T) {
	renderer := &fakeRenderer{content: "<html/>"}
	inv, err := NewInvoker(renderer, Options{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = inv.Invoke(context.Background(), filepath.Join(t.TempDir(), "gone.md"))
	if !errors.IsCode(err, errors.CodeSourceUnavailable) {
		t.Errorf("error = %v, want code %s", err, errors.CodeSourceUnavailable)
	}
	if len(renderer.requests) != 0 {
		t.Error("renderer invoked despite missing source")
	}
}

func TestInvoker_Invoke_RenderFailureCleansUp(t *testing.T) {
	source := writeSource(t)
	renderer := &fakeRenderer{failWith: fmt.Errorf("exit status 1")}

	inv, err := NewInvoker(renderer, Options{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = inv.Invoke(context.Background(), source)
	if !errors.IsCode(err, errors.CodeRenderFailure) {
		t.Errorf("error = %v, want code %s", err, errors.CodeRenderFailure)
	}

	// The allocated temp dir must not survive a failed render.
	req := renderer.lastRequest(t)
	if _, statErr := os.Stat(filepath.Dir(req.OutputPath)); !os.IsNotExist(statErr) {
		t.Errorf("temp dir survived failed render: %v", statErr)
	}
}

func TestNewInvoker_RejectsReservedOptions(t *testing.T) {
	_, err := NewInvoker(&fakeRenderer{}, Options{
		Extra: map[string]string{"output": "/etc/passwd"},
	})
	if !errors.IsCode(err, errors.CodeConfigInvalid) {
		t.Errorf("error = %v, want code %s", err, errors.CodeConfigInvalid)
	}
}

func TestCleanup(t *testing.T) {
	source := writeSource(t)
	renderer := &fakeRenderer{
		content: "<html/>",
		assets:  map[string]string{"style.css": "body{}"},
	}
	inv, err := NewInvoker(renderer, Options{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := inv.Invoke(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}

	if err := Cleanup(result); err != nil {
		t.Errorf("Cleanup() error: %v", err)
	}
	if _, err := os.Stat(result.ArtifactPath); !os.IsNotExist(err) {
		t.Error("artifact survived cleanup")
	}
	if _, err := os.Stat(result.AssetDir); !os.IsNotExist(err) {
		t.Error("asset dir survived cleanup")
	}

	// Nil and double cleanup are harmless.
	if err := Cleanup(nil); err != nil {
		t.Errorf("Cleanup(nil) = %v", err)
	}
	if err := Cleanup(result); err != nil {
		t.Errorf("second Cleanup() = %v", err)
	}
}

func TestAssetDirFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/tmp/x/doc.html", "/tmp/x/doc_files"},
		{"report.html", "report_files"},
		{"/tmp/no-ext", "/tmp/no-ext_files"},
	}
	for _, tt := range tests {
		if got := AssetDirFor(tt.in); got != tt.want {
			t.Errorf("AssetDirFor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/home/me/doc.md", "doc.html"},
		{"notes.qmd", "notes.html"},
		{"plain", "plain.html"},
	}
	for _, tt := range tests {
		if got := outputName(tt.in); got != tt.want {
			t.Errorf("outputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommandRenderer_ArgOrder(t *testing.T) {
	// Verify the reserved flags come from the request, never from Extra.
	req := Request{
		SourcePath:    "doc.md",
		OutputPath:    "/tmp/doc.html",
		RuntimeMode:   RuntimeReactive,
		SatisfiedDeps: []string{"katex"},
		Extra:         map[string]string{"toc": "true"},
	}

	r := &CommandRenderer{Command: "false", Args: []string{"render"}}
	// The command itself fails (binary "false"), but the error must be
	// a coded render failure carrying the exec error.
	_, err := r.Render(context.Background(), req)
	if !errors.IsCode(err, errors.CodeRenderFailure) {
		t.Errorf("error = %v, want code %s", err, errors.CodeRenderFailure)
	}
}
