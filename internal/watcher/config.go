package watcher

import (
	"fmt"

	"github.com/autopeer-io/motwatch/internal/dvsa"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/internal/watcher/notifier"
	"github.com/autopeer-io/motwatch/internal/watcher/server"
	grpcserver "github.com/autopeer-io/motwatch/internal/watcher/server/grpc"
	httpserver "github.com/autopeer-io/motwatch/internal/watcher/server/http"
	"github.com/autopeer-io/motwatch/internal/watcher/storage"
	"github.com/autopeer-io/motwatch/pkg/options"
)

type Config struct {
	MotOptions  *options.MotOptions
	PollOptions *options.PollOptions
	HttpOptions *options.HttpOptions
	GrpcOptions *options.GrpcOptions
	MqttOptions *options.MqttOptions
	S3Options   *options.S3Options
}

// NewWatcher assembles the poller and every enabled adapter around it.
func (cfg *Config) NewWatcher() (*Watcher, error) {
	client := dvsa.NewClientFromOptions(cfg.MotOptions)
	registrations := NewRegistrationStore(cfg.PollOptions.Vehicles...)
	warnDays := cfg.PollOptions.WarnDays

	coordinator := poller.New(client, registrations, poller.Config{
		Interval:     cfg.PollOptions.Interval,
		CycleTimeout: cfg.PollOptions.CycleTimeout,
	})

	manager := server.NewManager(coordinator)
	manager.Add(httpserver.NewServer(cfg.HttpOptions, coordinator, warnDays, nil))

	if cfg.GrpcOptions != nil && cfg.GrpcOptions.Enabled {
		grpcSrv := grpcserver.NewServer(cfg.GrpcOptions)
		coordinator.AddListener(grpcSrv)
		manager.Add(grpcSrv)
	}

	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		mqttNotifier, err := notifier.NewMQTTNotifier(cfg.MqttOptions, warnDays)
		if err != nil {
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
		coordinator.AddListener(mqttNotifier)
		manager.Add(mqttNotifier)
	}

	var archiver *storage.Archiver
	if cfg.S3Options != nil && cfg.S3Options.Enabled {
		provider, err := storage.NewMinIO(cfg.S3Options)
		if err != nil {
			return nil, fmt.Errorf("failed to init snapshot archive: %w", err)
		}
		archiver = storage.NewArchiver(provider, cfg.S3Options.ObjectKey, warnDays, nil)
		coordinator.AddListener(archiver)
	}

	return &Watcher{
		client:          client,
		coordinator:     coordinator,
		registrations:   registrations,
		manager:         manager,
		archiver:        archiver,
		validateOnStart: cfg.MotOptions.ValidateOnStart,
	}, nil
}
