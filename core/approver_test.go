package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeApprovers(t *testing.T) {

	tests := []struct {
		name   string
		groups []ApproverGroup
		want   []ApproverGroup
	}{
		{
			name:   "nil",
			groups: nil,
			want:   []ApproverGroup{},
		},
		{
			name:   "empty group is dropped",
			groups: []ApproverGroup{{}, {Roles: []int{}, Teams: []int{}}},
			want:   []ApproverGroup{},
		},
		{
			name:   "ids are sorted and unique",
			groups: []ApproverGroup{{Roles: []int{3, 1, 3}, Teams: []int{2, 2}}},
			want:   []ApproverGroup{{Roles: []int{1, 3}, Teams: []int{2}}},
		},
		{
			name:   "duplicate groups",
			groups: []ApproverGroup{{Roles: []int{1, 2}}, {Roles: []int{2, 1}}},
			want:   []ApproverGroup{{Roles: []int{1, 2}, Teams: []int{}}},
		},
		{
			name:   "role and team with the same id are different",
			groups: []ApproverGroup{{Roles: []int{1}}, {Teams: []int{1}}},
			want: []ApproverGroup{
				{Roles: []int{1}, Teams: []int{}},
				{Roles: []int{}, Teams: []int{1}},
			},
		},
		{
			name:   "database ids are ignored",
			groups: []ApproverGroup{{ID: 7, Teams: []int{4}}},
			want:   []ApproverGroup{{Roles: []int{}, Teams: []int{4}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeApprovers(tt.groups))
		})
	}
}

func TestIsAuthorized(t *testing.T) {

	var w = newWorkflow()

	tests := []struct {
		name  string
		group ApproverGroup
		user  DBUser
		want  bool
	}{
		{"vacuous group", ApproverGroup{}, w.owner, true},
		{"any of the roles", ApproverGroup{Roles: []int{w.releaseManager.ID, w.qa.ID}}, w.qaOnly, true},
		{"none of the roles", ApproverGroup{Roles: []int{w.releaseManager.ID}}, w.qaOnly, false},
		{"team only", ApproverGroup{Teams: []int{w.platform.ID}}, w.qaPlatform, true},
		{"role and team", ApproverGroup{Roles: []int{w.qa.ID}, Teams: []int{w.platform.ID}}, w.qaPlatform, true},
		{"role but not team", ApproverGroup{Roles: []int{w.qa.ID}, Teams: []int{w.platform.ID}}, w.qaOnly, false},
		{"nil user", ApproverGroup{Roles: []int{w.qa.ID}}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.db.IsAuthorized(tt.user, tt.group)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAuthorizedUnknownRole(t *testing.T) {

	var w = newWorkflow()

	_, err := w.db.IsAuthorized(w.qaOnly, ApproverGroup{Roles: []int{9999}})
	assert.ErrorIs(t, err, ErrApproverIntegrity)
	assert.False(t, IsNotFound(err))

	_, err = w.db.IsAuthorized(w.qaOnly, ApproverGroup{Roles: []int{w.qa.ID}, Teams: []int{9999}})
	assert.ErrorIs(t, err, ErrApproverIntegrity)
	assert.False(t, IsNotFound(err))
}

func TestValidateApprovers(t *testing.T) {

	var w = newWorkflow()

	tests := []struct {
		name    string
		groups  []ApproverGroup
		wantErr error
	}{
		{"known", []ApproverGroup{{Roles: []int{w.qa.ID}, Teams: []int{w.platform.ID}}}, nil},
		{"unknown role", []ApproverGroup{{Roles: []int{9999}}}, ErrInvalidApprover},
		{"unknown team", []ApproverGroup{{Roles: []int{w.qa.ID}, Teams: []int{9999}}}, ErrInvalidApprover},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.db.ValidateApprovers(w.tenant.ID, tt.groups)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, IsNotFound(err))
		})
	}
}

func TestIsAuthorizedForConnectionWithoutUser(t *testing.T) {

	var w = newWorkflow()
	conn, ok, err := w.store.ConnectionBetween(w.tenant.ID, w.planning.ID, w.cancelled.ID)
	require.NoError(t, err)
	require.True(t, ok)

	authorized, err := w.db.IsAuthorizedForConnection(nil, conn, w.release(w.planning))
	require.NoError(t, err)
	assert.False(t, authorized)
}
