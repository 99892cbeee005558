// Command stepper records a step-by-step trace of JavaScript programs.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stepper/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "stepper",
	Short: "Trace JavaScript programs one step at a time",
	Long: `stepper instruments a JavaScript program, runs it in an isolated worker
and prints every statement and expression it evaluated, with the values and
scopes seen at that moment.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		on, err := readColorMode(mode)
		if err != nil {
			return err
		}
		color.NoColor = !on
		stop, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		stopProfiling = stop
		return nil
	},
}

var stopProfiling = func() {}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("config", "", "path to stepper.toml (default: nearest one above the working directory)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("trace", "", "write internal trace events to file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "internal trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "ring", "internal trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer capacity for internal trace events")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit internal trace heartbeats at this interval (0 disables)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to file")

	err := rootCmd.Execute()
	stopProfiling()
	if err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func readColorMode(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "", nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

func colorEnabled() bool {
	return !color.NoColor
}

func settingsFor(cmd *cobra.Command) (settings, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return settings{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	return loadSettings(path)
}
