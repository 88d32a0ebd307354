package options

import (
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultPollInterval is six hours.
	DefaultPollInterval = 21600 * time.Second

	// DefaultWarnDays is the window in which an MOT is reported as expiring soon.
	DefaultWarnDays = 30
)

var _ IOptions = (*PollOptions)(nil)

// PollOptions configures the poll coordinator.
type PollOptions struct {
	// Vehicles is free text. Entries may themselves hold several
	// registrations separated by commas or semicolons.
	Vehicles []string `json:"vehicles" mapstructure:"vehicles"`

	Interval     time.Duration `json:"interval" mapstructure:"interval"`
	CycleTimeout time.Duration `json:"cycle-timeout" mapstructure:"cycle-timeout"`
	WarnDays     int           `json:"warn-days" mapstructure:"warn-days"`
}

// NewPollOptions returns PollOptions with defaults.
func NewPollOptions() *PollOptions {
	return &PollOptions{
		Interval:     DefaultPollInterval,
		CycleTimeout: 5 * time.Minute,
		WarnDays:     DefaultWarnDays,
	}
}

// Validate checks interval and timeout.
func (o *PollOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Interval <= 0 {
		errs = append(errs, errNonPositive("poll.interval"))
	}
	if o.CycleTimeout <= 0 {
		errs = append(errs, errNonPositive("poll.cycle-timeout"))
	}
	return errs
}

// AddFlags adds the poll flags to fs.
func (o *PollOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.Vehicles, "poll.vehicles", o.Vehicles, "Registrations to track, separated by commas or semicolons.")
	fs.DurationVar(&o.Interval, "poll.interval", o.Interval, "Time between poll cycles.")
	fs.DurationVar(&o.CycleTimeout, "poll.cycle-timeout", o.CycleTimeout, "Upper bound on the duration of one poll cycle.")
	fs.IntVar(&o.WarnDays, "poll.warn-days", o.WarnDays, "Days before the due date at which status becomes expires_soon.")
}
