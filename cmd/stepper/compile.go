package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"stepper/internal/diagfmt"
	"stepper/internal/instrument"
	"stepper/internal/jsprint"
	"stepper/internal/observ"
	"stepper/internal/source"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file.js|->",
	Short: "Print the instrumented form of a program without running it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().Bool("detail", true, "report expressions, not only statements")
	compileCmd.Flags().String("ns", "", "name of the reporter global")
	compileCmd.Flags().String("format", "js", "output format (js|json)")
	compileCmd.Flags().String("preset", "", "compile a built-in example instead of a file")
	compileCmd.Flags().String("indent", "  ", "indentation of the printed program")
	compileCmd.Flags().Int("context", 1, "source lines shown around a diagnostic")
	compileCmd.Flags().Int("width", 0, "clip source lines in diagnostics to this width (0 = unlimited)")
	compileCmd.Flags().String("path-mode", "auto", "how paths are shown in diagnostics (auto|absolute|relative|basename)")
}

var errCompileFailed = errors.New("compilation failed")

func runCompile(cmd *cobra.Command, args []string) error {
	_, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := settingsFor(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("detail") {
		s.Detail, _ = cmd.Flags().GetBool("detail")
	}
	if ns, _ := cmd.Flags().GetString("ns"); ns != "" {
		s.Namespace = ns
	}
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "js" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be js or json)", format)
	}

	presetName, _ := cmd.Flags().GetString("preset")
	var jobs []job
	if presetName != "" {
		jobs, err = collectJobs(cmd, nil, []string{presetName})
	} else {
		if len(args) == 0 {
			return errors.New("missing program: pass a file, \"-\" or --preset")
		}
		jobs, err = collectJobs(cmd, args, nil)
	}
	if err != nil {
		return err
	}
	file := jobs[0].file

	timer := observ.NewTimer()
	var prog *instrument.Program
	err = timer.Measure("instrument", func() error {
		var cerr error
		prog, cerr = instrument.CompileSource(file.Path, file.Content, instrument.Options{
			Detail:    s.Detail,
			Namespace: s.Namespace,
		})
		return cerr
	})
	if showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings"); showTimings {
		defer fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}

	var ce *instrument.CompileError
	if errors.As(err, &ce) {
		if werr := writeCompileError(cmd, file, ce, format); werr != nil {
			return werr
		}
		return errCompileFailed
	}
	if err != nil {
		return err
	}

	indent, _ := cmd.Flags().GetString("indent")
	text := jsprint.PrintWith(prog.AST, jsprint.Options{Indent: indent})
	if format == "json" {
		return writeCompiledJSON(cmd.OutOrStdout(), prog, text)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), text)
	return err
}

func writeCompileError(cmd *cobra.Command, file *source.File, ce *instrument.CompileError, format string) error {
	modeValue, _ := cmd.Flags().GetString("path-mode")
	mode, err := readPathMode(modeValue)
	if err != nil {
		return err
	}
	if format == "json" {
		return diagfmt.JSON(cmd.OutOrStdout(), ce.Diagnostics, file, diagfmt.JSONOpts{
			PathMode:     mode,
			IncludeNotes: true,
		})
	}

	contextLines, _ := cmd.Flags().GetInt("context")
	ctx, err := safecast.Conv[int8](contextLines)
	if err != nil {
		return fmt.Errorf("invalid --context %d: %w", contextLines, err)
	}
	widthValue, _ := cmd.Flags().GetInt("width")
	width, err := safecast.Conv[uint8](widthValue)
	if err != nil {
		return fmt.Errorf("invalid --width %d: %w", widthValue, err)
	}
	return diagfmt.Pretty(cmd.ErrOrStderr(), ce.Diagnostics, file, diagfmt.PrettyOpts{
		Color:     colorEnabled(),
		Context:   ctx,
		PathMode:  mode,
		Width:     width,
		ShowNotes: true,
	})
}

func readPathMode(value string) (diagfmt.PathMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return diagfmt.PathModeAuto, nil
	case "absolute":
		return diagfmt.PathModeAbsolute, nil
	case "relative":
		return diagfmt.PathModeRelative, nil
	case "basename":
		return diagfmt.PathModeBasename, nil
	default:
		return 0, fmt.Errorf("invalid --path-mode %q (expected auto|absolute|relative|basename)", value)
	}
}

type siteJSON struct {
	Category string      `json:"category"`
	Time     string      `json:"time,omitempty"`
	Type     string      `json:"type"`
	Loc      *source.Loc `json:"loc,omitempty"`
}

type compiledJSON struct {
	Namespace  string     `json:"namespace"`
	Slots      int        `json:"slots"`
	Sites      []siteJSON `json:"sites"`
	Transpiled string     `json:"transpiled"`
}

func writeCompiledJSON(w io.Writer, prog *instrument.Program, text string) error {
	out := compiledJSON{
		Namespace:  prog.Namespace,
		Slots:      prog.Slots,
		Sites:      make([]siteJSON, 0, len(prog.Sites)),
		Transpiled: text,
	}
	for _, site := range prog.Sites {
		out.Sites = append(out.Sites, siteJSON{
			Category: string(site.Category),
			Time:     string(site.Time),
			Type:     site.Type,
			Loc:      site.Loc,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
