package main

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/livedoc-dev/livedoc/internal/config"
	"github.com/livedoc-dev/livedoc/internal/preview"
	"github.com/livedoc-dev/livedoc/internal/render"
)

func previewCmd() *cobra.Command {
	var (
		port        int
		host        string
		openBrowser bool
		noWatch     bool
		renderer    string
		deps        []string
	)

	cmd := &cobra.Command{
		Use:   "preview [source]",
		Short: "Start the live preview server",
		Long: `Start the live preview server for a document.

The server watches the source file, re-renders it through the
configured compiler when it changes, and streams the result to
connected browsers.

Examples:
  livedoc preview doc.md
  livedoc preview doc.md --port=8080
  livedoc preview doc.md --renderer=pandoc --no-watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return runPreview(source, port, host, openBrowser, noWatch, renderer, deps)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from livedoc.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from livedoc.json)")
	cmd.Flags().BoolVarP(&openBrowser, "open", "o", false, "Open browser on start")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Render once per session, never re-render")
	cmd.Flags().StringVar(&renderer, "renderer", "", "Compiler binary (default from livedoc.json)")
	cmd.Flags().StringSliceVar(&deps, "dep", nil, "Dependency identifier already satisfied by the server (repeatable)")

	return cmd
}

func runPreview(source string, port int, host string, openBrowser, noWatch bool, renderer string, deps []string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if source != "" {
		cfg.Source = source
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if openBrowser {
		cfg.Server.OpenBrowser = true
	}
	if noWatch {
		cfg.Watch.Disabled = true
	}
	if renderer != "" {
		cfg.Renderer.Command = renderer
	}
	if len(deps) > 0 {
		cfg.Renderer.SatisfiedDeps = append(cfg.Renderer.SatisfiedDeps, deps...)
	}

	if cfg.Source == "" {
		errorMsg("no source document given")
		info("Pass a path: livedoc preview doc.md")
		return fmt.Errorf("missing source document")
	}
	if cfg.Renderer.Command == "" {
		errorMsg("no renderer configured")
		info("Set renderer.command in livedoc.json or pass --renderer")
		return fmt.Errorf("missing renderer command")
	}
	if _, err := exec.LookPath(cfg.Renderer.Command); err != nil {
		errorMsg("renderer %q is not installed or not in PATH", cfg.Renderer.Command)
		return err
	}

	printBanner()
	fmt.Println("  preview")
	fmt.Println()
	success("Serving %s at %s", cfg.Source, cfg.URL())

	if cfg.Server.OpenBrowser {
		go func() {
			// Give the listener a moment to come up.
			time.Sleep(200 * time.Millisecond)
			openURL(cfg.URL())
		}()
	}

	return preview.Run(preview.Options{
		SourcePath:   cfg.Source,
		AutoReload:   !cfg.Watch.Disabled,
		PollInterval: cfg.PollInterval(),
		Address:      cfg.Address(),
		Renderer: &render.CommandRenderer{
			Command: cfg.Renderer.Command,
			Args:    cfg.Renderer.Args,
		},
		RenderOptions: render.Options{
			SatisfiedDeps: cfg.Renderer.SatisfiedDeps,
			Extra:         cfg.Renderer.Options,
		},
	})
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd

	switch {
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	case commandExists("start"):
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}

	cmd.Start()
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
