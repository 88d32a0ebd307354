package app

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/motwatch/cmd/motwatch/app/options"
	"github.com/autopeer-io/motwatch/internal/watcher"
	"github.com/autopeer-io/motwatch/pkg/app"
	"github.com/autopeer-io/motwatch/pkg/log"
)

const (
	commandName = "motwatch"
	commandDesc = `motwatch polls the DVSA MOT history API for a list of vehicles and
serves the derived MOT status, due dates and mileage estimates over HTTP.
It can also publish every report to MQTT and archive the latest snapshot to
S3 compatible storage.

The tracked vehicle list is reloaded when the config file changes.`
)

func NewApp() *app.App {
	opts := options.NewWatcherOptions()
	running := &atomic.Pointer[watcher.Watcher]{}
	application := app.NewApp(
		commandName,
		"Track MOT status of a set of vehicles",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithConfigWatch(reloadVehicles(running)),
		app.WithRunFunc(run(opts, running)),
	)
	return application
}

func run(opts *options.WatcherOptions, running *atomic.Pointer[watcher.Watcher]) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		w, err := cfg.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		running.Store(w)

		return w.Run(ctx)
	}
}

func reloadVehicles(running *atomic.Pointer[watcher.Watcher]) app.ConfigChangeFunc {
	return func(v *viper.Viper, _ fsnotify.Event) {
		w := running.Load()
		if w == nil {
			return
		}
		w.UpdateRegistrations(vehicles(v))
	}
}

// vehicles keeps a single string whole so that ParseRegistrations, not
// whitespace, decides where one registration ends.
func vehicles(v *viper.Viper) []string {
	switch val := v.Get("poll.vehicles").(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []string:
		return val
	default:
		return cast.ToStringSlice(val)
	}
}
