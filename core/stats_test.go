package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStats(t *testing.T) {

	var w = newWorkflow()
	w.store.stages[w.released.ID].IsEndStage = true

	w.release(w.planning)
	w.release(w.review)
	w.release(w.released)

	var foreign = w.release(w.planning)
	foreign.OwnerID = w.qaOnly.ID()
	w.store.releases[foreign.ID] = *foreign

	w.store.InsertBlackout(&Blackout{TenantID: w.tenant.ID, Name: "Freeze", StartDate: date(2024, 12, 20), EndDate: date(2025, 1, 2)})

	tests := []struct {
		name string
		user DBUser
		now  time.Time
		want Stats
	}{
		{"owner during freeze", w.owner, date(2024, 12, 24), Stats{MyOpenReleases: 2, AllOpenReleases: 3, CurrentBlackout: true}},
		{"other user", w.qaOnly, date(2025, 3, 1), Stats{MyOpenReleases: 1, AllOpenReleases: 3}},
		{"nothing owned", w.manager, date(2024, 12, 19), Stats{AllOpenReleases: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := w.db.UserStats(tt.user, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *stats)
		})
	}

	_, err := w.db.UserStats(nil, date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrUnauthorized)
}
