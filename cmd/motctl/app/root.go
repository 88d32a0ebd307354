package app

import (
	"context"

	"github.com/spf13/cobra"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/motwatch/pkg/app"
	"github.com/autopeer-io/motwatch/pkg/log"
	"github.com/autopeer-io/motwatch/pkg/options"
)

// configName is shared with the daemon so both read the same file and
// MOTWATCH_ environment.
const configName = "motwatch"

type ctlOptions struct {
	MotOptions  *options.MotOptions  `json:"mot" mapstructure:"mot"`
	PollOptions *options.PollOptions `json:"poll" mapstructure:"poll"`
	Log         *log.Options         `json:"log" mapstructure:"log"`

	configFile *string
}

func newCtlOptions() *ctlOptions {
	o := &ctlOptions{
		MotOptions:  options.NewMotOptions(),
		PollOptions: options.NewPollOptions(),
		Log:         log.NewOptions(),
	}
	// Tables go to stdout.
	o.Log.Level = "warn"
	o.Log.OutputPaths = []string{"stderr"}
	return o
}

func (o *ctlOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.MotOptions.AddFlags(fss.FlagSet("mot"))
	o.PollOptions.AddFlags(fss.FlagSet("poll"))
	o.Log.AddFlags(fss.FlagSet("log"))
	o.configFile = app.AddConfigFlag(fss.FlagSet("global"), configName)
	return fss
}

func (o *ctlOptions) load(cmd *cobra.Command) error {
	if _, err := app.LoadConfig(configName, cmd.Flags(), *o.configFile, o); err != nil {
		return err
	}
	o.MotOptions.Complete()
	if err := utilerrors.NewAggregate(o.Log.Validate()); err != nil {
		return err
	}
	log.Init(o.Log)
	return nil
}

// validateAPI is run by the commands that talk to the MOT API.
func (o *ctlOptions) validateAPI() error {
	errs := []error{}
	errs = append(errs, o.MotOptions.Validate()...)
	errs = append(errs, o.PollOptions.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// NewMotctlCommand returns the motctl root command.
func NewMotctlCommand(ctx context.Context) *cobra.Command {
	opts := newCtlOptions()
	cmd := &cobra.Command{
		Use:   "motctl",
		Short: "Query the MOT history API and a running motwatch",
		Long: `motctl looks vehicles up directly on the MOT history API, runs a single
poll cycle over the configured vehicles, or asks a running motwatch for its
poller health. It reads the same configuration file and MOTWATCH_ environment
as the daemon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	fss := opts.Flags()
	for _, f := range fss.FlagSets {
		cmd.PersistentFlags().AddFlagSet(f)
	}

	cmd.AddCommand(
		newLookupCommand(ctx, opts),
		newCheckCommand(ctx, opts),
		newStatusCommand(ctx),
	)
	return cmd
}
