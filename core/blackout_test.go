package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackoutOverlaps(t *testing.T) {

	var b = &Blackout{
		StartDate: date(2024, 7, 10),
		EndDate:   date(2024, 7, 20),
	}

	tests := []struct {
		start, end time.Time
		want       bool
	}{
		{date(2024, 7, 1), date(2024, 7, 9), false},
		{date(2024, 7, 1), date(2024, 7, 10), true},
		{date(2024, 7, 12), date(2024, 7, 14), true},
		{date(2024, 7, 20), date(2024, 7, 25), true},
		{date(2024, 7, 21), date(2024, 7, 25), false},
		{date(2024, 7, 1), date(2024, 8, 1), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Overlaps(tt.start, tt.end), "%s - %s", tt.start.Format("2006-01-02"), tt.end.Format("2006-01-02"))
	}
}

func TestBlackoutAffects(t *testing.T) {
	var b = &Blackout{Environments: []int{1, 2}}
	assert.True(t, b.Affects([]int{2, 3}))
	assert.False(t, b.Affects([]int{3}))
	assert.False(t, b.Affects(nil))
}

func TestCreateBlackout(t *testing.T) {

	var w = newWorkflow()

	assert.ErrorIs(t, w.db.CreateBlackout(w.owner, &Blackout{Name: "Freeze", StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2)}), ErrUnauthorized)
	assert.ErrorIs(t, w.db.CreateBlackout(w.tenantBoss, &Blackout{Name: "Freeze", StartDate: date(2024, 1, 2), EndDate: date(2024, 1, 2)}), ErrInvalidDates)
	assert.ErrorIs(t, w.db.CreateBlackout(w.tenantBoss, &Blackout{Name: "", StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2)}), ErrEmptyName)

	var b = &Blackout{Name: "Freeze", StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2)}
	assert.NoError(t, w.db.CreateBlackout(w.tenantBoss, b))
	assert.Equal(t, w.tenant.ID, b.TenantID)
	assert.Equal(t, w.tenantBoss.ID(), b.OwnerID)
}

func TestEditBlackout(t *testing.T) {

	var w = newWorkflow()
	var b = &Blackout{Name: "Freeze", StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 2)}
	require.NoError(t, w.db.CreateBlackout(w.tenantBoss, b))

	otherBoss, _ := w.store.InsertUser(w.tenant.ID, "boss2@acme.test", true)

	tests := []struct {
		name    string
		user    DBUser
		edit    func(b *Blackout)
		wantErr error
	}{
		{"not a tenant owner", w.owner, func(b *Blackout) {}, ErrUnauthorized},
		{"not the creator", otherBoss, func(b *Blackout) {}, ErrUnauthorized},
		{"empty name", w.tenantBoss, func(b *Blackout) { b.Name = " " }, ErrEmptyName},
		{"reversed dates", w.tenantBoss, func(b *Blackout) { b.EndDate = date(2023, 12, 31) }, ErrInvalidDates},
		{"unknown environment", w.tenantBoss, func(b *Blackout) { b.Environments = []int{9999} }, ErrNotFound},
		{"new name", w.tenantBoss, func(b *Blackout) { b.Name = "Winter freeze" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edited, err := w.store.GetBlackout(w.tenant.ID, b.ID)
			require.NoError(t, err)
			tt.edit(edited)
			err = w.db.EditBlackout(tt.user, edited)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	stored, err := w.store.GetBlackout(w.tenant.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Winter freeze", stored.Name)
	assert.Equal(t, date(2024, 1, 2), stored.EndDate)
}

func TestRemoveBlackout(t *testing.T) {

	var w = newWorkflow()
	var b = &Blackout{Name: "Freeze", StartDate: date(2024, 7, 10), EndDate: date(2024, 7, 20)}
	require.NoError(t, w.db.CreateBlackout(w.tenantBoss, b))

	assert.ErrorIs(t, w.db.RemoveBlackout(w.owner, b, date(2024, 7, 1)), ErrUnauthorized)
	assert.ErrorIs(t, w.db.RemoveBlackout(w.tenantBoss, b, date(2024, 7, 10)), ErrBlackoutStarted, "active")
	assert.ErrorIs(t, w.db.RemoveBlackout(w.tenantBoss, b, date(2024, 8, 1)), ErrBlackoutStarted, "expired")

	require.NoError(t, w.db.RemoveBlackout(w.tenantBoss, b, date(2024, 7, 9)))
	_, err := w.store.GetBlackout(w.tenant.ID, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	w.db.WaitNotifications()
	messages, _ := w.store.GetMessages(w.tenantBoss, 10, 0)
	require.Len(t, messages, 2)
	assert.ElementsMatch(t, []string{"Blackout 'Freeze' Was Created", "Blackout 'Freeze' Was Deleted"}, []string{messages[0].Title, messages[1].Title})
}
