package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/motwatch/internal/dvsa"
	"github.com/autopeer-io/motwatch/internal/mot"
)

type vehicleLookuper interface {
	Lookup(ctx context.Context, registration string) (mot.Document, error)
	LookupVIN(ctx context.Context, vin string) (mot.Document, error)
}

func newLookupCommand(ctx context.Context, opts *ctlOptions) *cobra.Command {
	var byVIN bool
	cmd := &cobra.Command{
		Use:   "lookup REGISTRATION...",
		Short: "Look vehicles up directly on the MOT history API",
		Example: `  motctl lookup AB12CDE "XY99 ZZZ"
  motctl lookup --vin WF0XXXGCDX1234567`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validateAPI(); err != nil {
				return err
			}
			client := dvsa.NewClientFromOptions(opts.MotOptions)
			reports, err := lookupAll(ctx, client, args, byVIN, clock.RealClock{}, opts.PollOptions.WarnDays)
			if err != nil {
				return err
			}
			printReports(cmd.OutOrStdout(), reports)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byVIN, "vin", false, "Treat the arguments as vehicle identification numbers.")
	return cmd
}

// lookupAll queries every identifier in turn. Per-vehicle failures become
// error reports. Rejected credentials stop the run.
func lookupAll(ctx context.Context, client vehicleLookuper, ids []string, byVIN bool, clk clock.PassiveClock, warnDays int) ([]mot.Report, error) {
	reports := make([]mot.Report, 0, len(ids))
	for _, id := range ids {
		key := dvsa.Normalize(id)

		var (
			doc mot.Document
			err error
		)
		if byVIN {
			doc, err = client.LookupVIN(ctx, key)
		} else {
			doc, err = client.Lookup(ctx, key)
		}

		switch {
		case err == nil:
		case errors.Is(err, dvsa.ErrAuth):
			return nil, fmt.Errorf("lookup of %s failed: %w", key, err)
		case errors.Is(err, dvsa.ErrNotFound):
			doc = mot.NotFoundMarker()
		default:
			doc = mot.APIErrorMarker(err.Error())
		}
		reports = append(reports, mot.BuildReport(key, doc, clk.Now(), warnDays))
	}
	return reports, nil
}
