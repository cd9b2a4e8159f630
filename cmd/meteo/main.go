package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nasa-meteo/dashboard/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔╗╔╔═╗╔═╗╔═╗  ╔╦╗╔═╗╔╦╗╔═╗╔═╗
  ║║║╠═╣╚═╗╠═╣  ║║║║╣  ║ ║╣ ║ ║
  ╝╚╝╩ ╩╚═╝╩ ╩  ╩ ╩╚═╝ ╩ ╚═╝╚═╝
`

// projectFlags are shared by every command that reads the project.
type projectFlags struct {
	dir        string
	configFile string
}

func main() {
	if !colorTerminal(os.Stderr) {
		errors.DisableColors()
	}
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var pf projectFlags

	rootCmd := &cobra.Command{
		Use:   "meteo",
		Short: "NASA Météo dashboard server",
		Long: `meteo serves the NASA Météo dashboard.

Every page load resolves the route table, lazily loads the route's
view and renders it inside the document shell. Browsers then keep a
live connection open and navigate over it.

Configuration is read from meteo.json (server, views, metrics) and
meteo.build.yaml (plugins, defines, aliases), both optional.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&pf.dir, "dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().StringVarP(&pf.configFile, "config", "c", "", "Path to meteo.json (default: nearest meteo.json above --dir)")

	rootCmd.AddCommand(
		serveCmd(&pf),
		routesCmd(&pf),
		resolveCmd(&pf),
		buildCmd(&pf),
		versionCmd(),
	)
	return rootCmd
}

// colorTerminal reports whether f is a terminal and NO_COLOR is unset.
func colorTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
