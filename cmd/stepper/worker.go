package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stepper/internal/host"
)

// workerCmd is what "--isolation process" starts: it serves requests from
// stdin and writes messages to stdout until stdin closes.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Serve trace requests over stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tracer, cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		s, err := settingsFor(cmd)
		if err != nil {
			return err
		}
		opts := s.workerOptions()
		flags := cmd.Flags()
		opts.ID, _ = flags.GetUint64("id")
		if d, _ := flags.GetDuration("poll-interval"); d > 0 {
			opts.PollInterval = d
		}
		if d, _ := flags.GetDuration("ceiling"); d > 0 {
			opts.Ceiling = d
		}
		if d, _ := flags.GetDuration("heartbeat"); d > 0 {
			opts.HeartbeatInterval = d
		}
		if flags.Changed("max-steps") {
			opts.MaxSteps, _ = flags.GetInt("max-steps")
		}
		opts.Tracer = tracer

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return host.NewWorker(opts).Serve(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	workerCmd.Flags().Uint64("id", 1, "instance id sent with every heartbeat")
	workerCmd.Flags().Duration("poll-interval", 0, "how often progress is sent")
	workerCmd.Flags().Duration("ceiling", 0, "stop a run after this long")
	workerCmd.Flags().Duration("heartbeat", 0, "heartbeat interval")
	workerCmd.Flags().Int("max-steps", 0, "stop a run after this many steps (negative = unlimited)")
}
