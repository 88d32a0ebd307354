package app

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/motwatch/internal/dvsa"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/pkg/options"
)

var errNoVehicles = errors.New("no vehicles configured, set --poll.vehicles or pass registrations")

func newCheckCommand(ctx context.Context, opts *ctlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [REGISTRATION...]",
		Short: "Run one poll cycle over the configured vehicles",
		Long: `check runs exactly one poll cycle, with the same concurrency and error
handling as the daemon, and prints the result. It exits non-zero when the
cycle is aborted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validateAPI(); err != nil {
				return err
			}
			entries := args
			if len(entries) == 0 {
				entries = opts.PollOptions.Vehicles
			}
			client := dvsa.NewClientFromOptions(opts.MotOptions)
			return runCheck(ctx, cmd.OutOrStdout(), client, entries, opts.PollOptions, clock.RealClock{})
		},
	}
}

func runCheck(ctx context.Context, out io.Writer, client poller.Lookuper, entries []string, pollOpts *options.PollOptions, clk clock.WithTicker) error {
	registrations := dvsa.ParseRegistrations(entries...)
	if len(registrations) == 0 {
		return errNoVehicles
	}

	coordinator := poller.New(client, poller.StaticRegistrations(registrations), poller.Config{
		CycleTimeout: pollOpts.CycleTimeout,
		Clock:        clk,
	})
	if err := coordinator.Refresh(ctx); err != nil {
		return err
	}

	printReports(out, coordinator.Snapshot().Reports(clk.Now(), pollOpts.WarnDays))
	return nil
}
