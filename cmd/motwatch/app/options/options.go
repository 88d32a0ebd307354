package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/motwatch/internal/watcher"
	"github.com/autopeer-io/motwatch/pkg/app"
	"github.com/autopeer-io/motwatch/pkg/log"
	"github.com/autopeer-io/motwatch/pkg/options"
)

type WatcherOptions struct {
	MotOptions  *options.MotOptions  `json:"mot" mapstructure:"mot"`
	PollOptions *options.PollOptions `json:"poll" mapstructure:"poll"`
	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	GrpcOptions *options.GrpcOptions `json:"grpc" mapstructure:"grpc"`
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	S3Options   *options.S3Options   `json:"s3" mapstructure:"s3"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*WatcherOptions)(nil)

func NewWatcherOptions() *WatcherOptions {
	o := &WatcherOptions{
		MotOptions:  options.NewMotOptions(),
		PollOptions: options.NewPollOptions(),
		HttpOptions: options.NewHttpOptions(),
		GrpcOptions: options.NewGrpcOptions(),
		MqttOptions: options.NewMqttOptions(),
		S3Options:   options.NewS3Options(),
		Log:         log.NewOptions(),
	}

	return o
}

func (o *WatcherOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.MotOptions.AddFlags(fss.FlagSet("mot"))
	o.PollOptions.AddFlags(fss.FlagSet("poll"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *WatcherOptions) Complete() error {
	o.MotOptions.Complete()
	return nil
}

func (o *WatcherOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.MotOptions.Validate()...)
	errs = append(errs, o.PollOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *WatcherOptions) Config() (*watcher.Config, error) {
	return &watcher.Config{
		MotOptions:  o.MotOptions,
		PollOptions: o.PollOptions,
		HttpOptions: o.HttpOptions,
		GrpcOptions: o.GrpcOptions,
		MqttOptions: o.MqttOptions,
		S3Options:   o.S3Options,
	}, nil
}
