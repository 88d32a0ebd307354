package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/motwatch/internal/mot"
)

func TestSnapshotReports(t *testing.T) {
	snap := newSnapshot(
		[]string{"AB12CDE", "XY99ZZZ"},
		map[string]mot.Document{
			"AB12CDE": {"registration": "AB12CDE", "motTestDueDate": "2025-07-01"},
			"XY99ZZZ": mot.NotFoundMarker(),
		},
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	)

	reports := snap.Reports(time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), 30)
	require.Len(t, reports, 2)
	assert.Equal(t, "AB12CDE", reports[0].Registration)
	assert.Equal(t, mot.StatusExpiresSoon, reports[0].Status)
	assert.Equal(t, mot.ErrorNotFound, reports[1].Error)
}

func TestSnapshotCopiesAreIndependent(t *testing.T) {
	regs := []string{"AB12CDE"}
	snap := newSnapshot(regs, map[string]mot.Document{"AB12CDE": {}}, time.Now())

	regs[0] = "CHANGED"
	snap.Registrations()[0] = "CHANGED"
	delete(snap.Vehicles(), "AB12CDE")

	assert.Equal(t, []string{"AB12CDE"}, snap.Registrations())
	assert.Equal(t, 1, snap.Len())
}
