package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/motwatch/internal/mot"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/pkg/log"
)

const uploadTimeout = 30 * time.Second

// ArchivedSnapshot is the object written on every settled cycle.
type ArchivedSnapshot struct {
	UpdatedAt time.Time               `json:"updatedAt"`
	Vehicles  map[string]mot.Document `json:"vehicles"`
	Reports   []mot.Report            `json:"reports"`
}

// Archiver keeps the latest settled snapshot in object storage.
type Archiver struct {
	provider  Provider
	objectKey string
	warnDays  int
	clock     clock.PassiveClock
	logger    log.Logger
}

var _ poller.Listener = (*Archiver)(nil)

// NewArchiver returns an Archiver writing to objectKey.
func NewArchiver(provider Provider, objectKey string, warnDays int, clk clock.PassiveClock) *Archiver {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Archiver{
		provider:  provider,
		objectKey: objectKey,
		warnDays:  warnDays,
		clock:     clk,
		logger:    log.WithName("archive").WithValues("objectKey", objectKey),
	}
}

// Prepare checks the bucket before the first upload.
func (a *Archiver) Prepare(ctx context.Context) error {
	return a.provider.CheckBucket(ctx)
}

// OnSettled uploads snap. A failed upload is logged and the next cycle tries again.
func (a *Archiver) OnSettled(ctx context.Context, snap *poller.Snapshot) {
	body, err := json.Marshal(ArchivedSnapshot{
		UpdatedAt: snap.UpdatedAt(),
		Vehicles:  snap.Vehicles(),
		Reports:   snap.Reports(a.clock.Now(), a.warnDays),
	})
	if err != nil {
		a.logger.Error(err, "Failed to encode snapshot")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	if err := a.provider.PutObject(ctx, a.objectKey, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		a.logger.Error(err, "Failed to archive snapshot")
		return
	}
	a.logger.Debug("Snapshot archived", "bytes", len(body))
}

// OnAborted leaves the previous archive in place.
func (a *Archiver) OnAborted(context.Context, error) {}
