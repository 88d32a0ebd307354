package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/autopeer-io/motwatch/internal/dvsa"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/internal/watcher/server"
	"github.com/autopeer-io/motwatch/internal/watcher/storage"
	"github.com/autopeer-io/motwatch/pkg/log"
)

// Watcher is the motwatch daemon.
type Watcher struct {
	client          poller.Lookuper
	coordinator     *poller.Coordinator
	registrations   *RegistrationStore
	manager         *server.Manager
	archiver        *storage.Archiver
	validateOnStart bool
}

// Run checks credentials and storage if configured, then polls and serves until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info("Starting motwatch...", "vehicles", len(w.registrations.Registrations()))

	if w.validateOnStart {
		if err := ValidateCredentials(ctx, w.client, w.registrations.Registrations()); err != nil {
			return err
		}
	}

	if w.archiver != nil {
		if err := w.archiver.Prepare(ctx); err != nil {
			return fmt.Errorf("failed to prepare snapshot archive: %w", err)
		}
	}

	return w.manager.Start(ctx)
}

// UpdateRegistrations replaces the tracked vehicles. The next cycle uses the new list.
func (w *Watcher) UpdateRegistrations(entries []string) {
	if w.registrations.Set(entries...) {
		log.Info("Tracked vehicles updated", "vehicles", w.registrations.Registrations())
	}
}

// Coordinator exposes the poller, mainly for tests.
func (w *Watcher) Coordinator() *poller.Coordinator {
	return w.coordinator
}

// ValidateCredentials looks up the first registration. Rejected credentials
// are fatal. Any other failure is only logged since the vehicle itself may be
// the problem.
func ValidateCredentials(ctx context.Context, client poller.Lookuper, registrations []string) error {
	if len(registrations) == 0 {
		log.Warn("No vehicles tracked, skipping credential validation")
		return nil
	}

	reg := registrations[0]
	_, err := client.Lookup(ctx, reg)
	switch {
	case err == nil:
		log.Info("Credentials validated", "registration", reg)
	case errors.Is(err, dvsa.ErrAuth):
		return fmt.Errorf("credential validation failed: %w", err)
	default:
		log.Warn("Credential validation lookup failed", "registration", reg, "error", err)
	}
	return nil
}
