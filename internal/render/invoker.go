package render

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/livedoc-dev/livedoc/internal/errors"
)

// AssetDirSuffix is the fixed naming convention for the sibling
// directory of supporting files produced by non-self-contained output.
const AssetDirSuffix = "_files"

// Request describes one render invocation. Constructed fresh per
// recomputation and never mutated after construction.
type Request struct {
	// SourcePath is the document to compile.
	SourcePath string

	// OutputPath is where the compiler must write the artifact.
	OutputPath string

	// SelfContained is always false: assets are split into a sibling
	// directory so the session server can mount them.
	SelfContained bool

	// RuntimeMode is always RuntimeReactive for live sessions.
	RuntimeMode RuntimeMode

	// SatisfiedDeps suppresses duplicate asset emission.
	SatisfiedDeps []string

	// Extra is the validated user pass-through option bag.
	Extra map[string]string
}

// Result is the product of one successful render. It is owned
// exclusively by the pipeline that produced it until superseded.
type Result struct {
	// ArtifactPath is the rendered output file.
	ArtifactPath string

	// AssetDir is the sibling directory of supporting files, or ""
	// when the render produced none.
	AssetDir string

	// Content is the artifact's full text.
	Content string

	// Duration is how long the compiler invocation took.
	Duration time.Duration
}

// Renderer is the external document compiler. Implementations return
// the path of the written artifact; errors propagate unchanged.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// CommandRenderer shells out to a compiler binary such as pandoc or a
// quarto-style tool.
type CommandRenderer struct {
	// Command is the compiler binary.
	Command string

	// Args are fixed arguments prepended to every invocation.
	Args []string
}

// Render runs the compiler and returns the artifact path it was asked
// to produce.
func (r *CommandRenderer) Render(ctx context.Context, req Request) (string, error) {
	args := append([]string{}, r.Args...)
	args = append(args, req.SourcePath, "--"+optOutput, req.OutputPath)
	if !req.SelfContained {
		args = append(args, "--no-"+optSelfContained)
	}
	args = append(args, "--"+optRuntime, string(req.RuntimeMode))
	for _, dep := range req.SatisfiedDeps {
		args = append(args, "--satisfied-dep", dep)
	}
	for _, k := range sortedKeys(req.Extra) {
		args = append(args, "--"+k, req.Extra[k])
	}

	cmd := exec.CommandContext(ctx, r.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		output := stderr.String()
		if output == "" {
			output = stdout.String()
		}
		return "", errors.New(errors.CodeRenderFailure).WithDetail(output).Wrap(err)
	}

	return req.OutputPath, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Invoker wraps a Renderer with path bookkeeping: it allocates the
// temporary output destination, forces the reserved options, and
// resolves the asset directory after a successful render.
type Invoker struct {
	renderer Renderer
	opts     Options
}

// NewInvoker validates opts and returns an invoker bound to renderer.
func NewInvoker(renderer Renderer, opts Options) (*Invoker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Invoker{renderer: renderer, opts: opts}, nil
}

// Invoke compiles sourcePath into a fresh temporary artifact and reads
// its content. The caller owns the returned result's files and must
// delete them when it is superseded or torn down.
func (inv *Invoker) Invoke(ctx context.Context, sourcePath string) (*Result, error) {
	start := time.Now()

	if _, err := os.Stat(sourcePath); err != nil {
		return nil, errors.New(errors.CodeSourceUnavailable).Wrap(err)
	}

	tmpDir, err := os.MkdirTemp("", "livedoc-render-")
	if err != nil {
		return nil, errors.New(errors.CodeRenderFailure).Wrap(err)
	}

	outputPath := filepath.Join(tmpDir, outputName(sourcePath))

	req := Request{
		SourcePath:    sourcePath,
		OutputPath:    outputPath,
		SelfContained: false,
		RuntimeMode:   RuntimeReactive,
		SatisfiedDeps: inv.opts.SatisfiedDeps,
		Extra:         inv.opts.Extra,
	}

	artifact, err := inv.renderer.Render(ctx, req)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, errors.FromError(err, errors.CodeRenderFailure)
	}

	content, err := os.ReadFile(artifact)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, errors.New(errors.CodeRenderFailure).Wrap(err)
	}

	result := &Result{
		ArtifactPath: artifact,
		Content:      string(content),
		Duration:     time.Since(start),
	}

	// Deterministic sibling directory; its absence is not an error.
	assetDir := AssetDirFor(artifact)
	if info, err := os.Stat(assetDir); err == nil && info.IsDir() {
		result.AssetDir = assetDir
	}

	return result, nil
}

// Cleanup deletes a result's artifact and asset directory. Failures are
// reported but never fatal: the OS eventually collects the temp area.
func Cleanup(result *Result) error {
	if result == nil {
		return nil
	}

	var firstErr error
	// The artifact lives in its own temp dir; removing the dir takes
	// the asset directory with it.
	if result.ArtifactPath != "" {
		if err := os.RemoveAll(filepath.Dir(result.ArtifactPath)); err != nil {
			firstErr = err
		}
	}
	if result.AssetDir != "" {
		if err := os.RemoveAll(result.AssetDir); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return errors.New(errors.CodeCleanupFailure).Wrap(firstErr)
	}
	return nil
}

// AssetDirFor returns the deterministic asset directory for an output
// file: the base name with the extension replaced by AssetDirSuffix.
func AssetDirFor(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + AssetDirSuffix
}

// outputName derives the artifact file name from the source document.
func outputName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".html"
}
