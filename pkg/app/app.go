package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"
)

const usageColumns = 100

// RunFunc is the body of the command. It runs after the options are loaded,
// completed and validated.
type RunFunc func() error

// App is a cobra command whose options come from defaults, a config file,
// the environment and flags, in increasing order of precedence.
type App struct {
	name           string
	shortDesc      string
	description    string
	options        NamedFlagSetOptions
	runFunc        RunFunc
	args           cobra.PositionalArgs
	onConfigChange ConfigChangeFunc

	cmd *cobra.Command
}

// Option configures an App.
type Option func(*App)

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithConfigWatch watches the loaded config file and calls fn on every change.
func WithConfigWatch(fn ConfigChangeFunc) Option {
	return func(a *App) { a.onConfigChange = fn }
}

// NewApp builds the command. Call Run, or Command to embed it.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
	}

	cfgFile := AddConfigFlag(fss.FlagSet("global"), a.name)
	for _, f := range fss.FlagSets {
		cmd.Flags().AddFlagSet(f)
	}
	cliflag.SetUsageAndHelpFunc(cmd, fss, usageColumns)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.run(cmd, *cfgFile)
	}
	a.cmd = cmd
}

func (a *App) run(cmd *cobra.Command, cfgFile string) error {
	if a.options != nil {
		v, err := LoadConfig(a.name, cmd.Flags(), cfgFile, a.options)
		if err != nil {
			return err
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
		if a.onConfigChange != nil {
			watchConfig(v, a.onConfigChange)
		}
	}

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits non-zero on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
