package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦╦  ╦╔═╗╔╦╗╔═╗╔═╗
  ║  ║╚╗╔╝║╣  ║║║ ║║
  ╩═╝╩ ╚╝ ╚═╝═╩╝╚═╝╚═╝
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "livedoc",
		Short: "Live preview for compiled documents",
		Long: `Livedoc is a live-preview server for documents compiled by an
external renderer.

Edit your source document; livedoc watches the file, re-renders it
when it changes, and streams the result to your browser without a
page reload. Features:

  • Reactive re-render pipeline per browser session
  • Debounced recompilation (coalesced, never overlapping)
  • Side-asset mounting for relative links
  • Error overlay in the browser on render failure`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		previewCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the livedoc ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
