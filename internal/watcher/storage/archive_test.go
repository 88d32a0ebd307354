package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/motwatch/internal/mot"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/pkg/options"
)

type fakeProvider struct {
	checked     int
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeProvider) CheckBucket(context.Context) error {
	f.checked++
	return f.err
}

func (f *fakeProvider) PutObject(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(body)) != size {
		return errors.New("size mismatch")
	}
	f.key, f.contentType, f.body = key, contentType, body
	return nil
}

type lookups map[string]mot.Document

func (l lookups) Lookup(_ context.Context, reg string) (mot.Document, error) {
	return l[reg], nil
}

var now = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func TestArchiverUploadsSettledSnapshot(t *testing.T) {
	provider := &fakeProvider{}
	archiver := NewArchiver(provider, "snapshots/latest.json", 30, clocktesting.NewFakeClock(now))
	require.NoError(t, archiver.Prepare(t.Context()))
	assert.Equal(t, 1, provider.checked)

	c := poller.New(lookups{
		"AB12CDE": {"registration": "AB12CDE", "motTestDueDate": "2025-06-20"},
	}, poller.StaticRegistrations{"AB12CDE"}, poller.Config{
		Clock:     clocktesting.NewFakeClock(now),
		Listeners: []poller.Listener{archiver},
	})
	require.NoError(t, c.Refresh(t.Context()))

	assert.Equal(t, "snapshots/latest.json", provider.key)
	assert.Equal(t, "application/json", provider.contentType)

	var archived ArchivedSnapshot
	require.NoError(t, json.Unmarshal(provider.body, &archived))
	assert.True(t, now.Equal(archived.UpdatedAt))
	assert.Contains(t, archived.Vehicles, "AB12CDE")
	require.Len(t, archived.Reports, 1)
	assert.Equal(t, mot.StatusExpiresSoon, archived.Reports[0].Status)
}

func TestArchiverSurvivesUploadFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	archiver := NewArchiver(provider, "latest.json", 30, clocktesting.NewFakeClock(now))

	c := poller.New(lookups{}, poller.StaticRegistrations{"AB12CDE"}, poller.Config{
		Clock:     clocktesting.NewFakeClock(now),
		Listeners: []poller.Listener{archiver},
	})
	require.NoError(t, c.Refresh(t.Context()))
	assert.Nil(t, provider.body)
	assert.Error(t, archiver.Prepare(t.Context()))
}

func TestArchiverIgnoresAbortedCycles(t *testing.T) {
	provider := &fakeProvider{}
	archiver := NewArchiver(provider, "latest.json", 30, nil)

	archiver.OnAborted(t.Context(), errors.New("poll cycle aborted"))
	assert.Nil(t, provider.body)
}

func TestNewMinIO(t *testing.T) {
	opts := options.NewS3Options()
	opts.Endpoint = "minio.local:9000"
	opts.InsecureSkipVerify = true

	p, err := NewMinIO(opts)
	require.NoError(t, err)
	assert.Equal(t, "motwatch", p.bucketName)

	opts.Endpoint = "http://minio.local:9000"
	_, err = NewMinIO(opts)
	assert.Error(t, err)
}
