package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

type testUser struct {
	id          int
	name        string
	tenantID    int
	tenantOwner bool
}

func (u *testUser) ID() int             { return u.id }
func (u *testUser) Name() string        { return u.name }
func (u *testUser) TenantID() int       { return u.tenantID }
func (u *testUser) IsTenantOwner() bool { return u.tenantOwner }

// memStore implements all DB interfaces in memory.
type memStore struct {
	nextID int

	tenants      map[int]*Tenant
	users        map[int]*testUser
	roles        map[int]*Role
	userRoles    map[[2]int]bool // user, role
	teams        map[int]*Team
	teamMembers  map[[2]int]bool // user, team
	stages       map[int]*Stage
	conns        []*Connection
	releases     map[int]Release
	blackouts    []*Blackout
	comments     []*Comment
	environments []*Environment

	mu         sync.Mutex
	messages   []*Message
	messageErr error
}

func newMemStore() *memStore {
	return &memStore{
		tenants:     make(map[int]*Tenant),
		users:       make(map[int]*testUser),
		roles:       make(map[int]*Role),
		userRoles:   make(map[[2]int]bool),
		teams:       make(map[int]*Team),
		teamMembers: make(map[[2]int]bool),
		stages:      make(map[int]*Stage),
		releases:    make(map[int]Release),
	}
}

func newTestDB() (*CoreDB, *memStore) {
	var s = newMemStore()
	return &CoreDB{
		BlackoutDB:    s,
		CommentDB:     s,
		ConnectionDB:  s,
		EnvironmentDB: s,
		MessageDB:     s,
		ReleaseDB:     s,
		RoleDB:        s,
		StageDB:       s,
		TeamDB:        s,
		TenantDB:      s,
		UserDB:        s,
	}, s
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

// TenantDB

func (s *memStore) GetTenant(id int) (*Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		var clone = *t
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) GetTenantByName(name string) (*Tenant, error) {
	for _, t := range s.tenants {
		if t.Name == name {
			var clone = *t
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) InsertTenant(name string) (*Tenant, error) {
	var t = &Tenant{ID: s.id(), Name: name}
	s.tenants[t.ID] = t
	var clone = *t
	return &clone, nil
}

func (s *memStore) SetInitialStage(t *Tenant, stageID int) error {
	s.tenants[t.ID].InitialStage = stageID
	t.InitialStage = stageID
	return nil
}

// UserDB

func (s *memStore) ChangePassword(u DBUser, old, new string) error { return nil }

func (s *memStore) GetUser(id int) (DBUser, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) GetUserByName(name string) (DBUser, error) {
	for _, u := range s.users {
		if u.name == name {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetUsers(tenantID int) ([]DBUser, error) {
	var result []DBUser
	for _, u := range s.users {
		if u.tenantID == tenantID {
			result = append(result, u)
		}
	}
	return result, nil
}

func (s *memStore) InsertUser(tenantID int, name string, tenantOwner bool) (DBUser, error) {
	var u = &testUser{
		id:          s.id(),
		name:        name,
		tenantID:    tenantID,
		tenantOwner: tenantOwner,
	}
	s.users[u.id] = u
	return u, nil
}

func (s *memStore) LoginUser(name, password string) (DBUser, error) {
	return s.GetUserByName(name)
}

func (s *memStore) SetPassword(u DBUser, password string) error { return nil }

// RoleDB

func (s *memStore) GetRole(tenantID, id int) (*Role, error) {
	if r, ok := s.roles[id]; ok && r.TenantID == tenantID {
		return r, nil
	}
	return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
}

func (s *memStore) GetRoleByName(tenantID int, name string) (*Role, error) {
	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Name == name {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetRoles(tenantID int) ([]*Role, error) {
	var result []*Role
	for _, r := range s.roles {
		if r.TenantID == tenantID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *memStore) GrantRole(u DBUser, roleID int) error {
	if _, err := s.GetRole(u.TenantID(), roleID); err != nil {
		return err
	}
	s.userRoles[[2]int{u.ID(), roleID}] = true
	return nil
}

func (s *memStore) HasRole(u DBUser, roleID int) (bool, error) {
	if _, err := s.GetRole(u.TenantID(), roleID); err != nil {
		return false, err
	}
	return s.userRoles[[2]int{u.ID(), roleID}], nil
}

func (s *memStore) InsertRole(tenantID int, name string) (*Role, error) {
	var r = &Role{ID: s.id(), TenantID: tenantID, Name: name}
	s.roles[r.ID] = r
	return r, nil
}

// TeamDB

func (s *memStore) GetTeam(tenantID, id int) (*Team, error) {
	if t, ok := s.teams[id]; ok && t.TenantID == tenantID {
		return t, nil
	}
	return nil, fmt.Errorf("team %d: %w", id, ErrNotFound)
}

func (s *memStore) GetTeamByName(tenantID int, name string) (*Team, error) {
	for _, t := range s.teams {
		if t.TenantID == tenantID && t.Name == name {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetTeams(tenantID int) ([]*Team, error) {
	var result []*Team
	for _, t := range s.teams {
		if t.TenantID == tenantID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *memStore) InTeam(u DBUser, teamID int) (bool, error) {
	if _, err := s.GetTeam(u.TenantID(), teamID); err != nil {
		return false, err
	}
	return s.teamMembers[[2]int{u.ID(), teamID}], nil
}

func (s *memStore) InsertTeam(tenantID int, name string) (*Team, error) {
	var t = &Team{ID: s.id(), TenantID: tenantID, Name: name}
	s.teams[t.ID] = t
	return t, nil
}

func (s *memStore) JoinTeam(u DBUser, teamID int, manager bool) error {
	s.teamMembers[[2]int{u.ID(), teamID}] = true
	return nil
}

// StageDB

func (s *memStore) GetStage(tenantID, id int) (*Stage, error) {
	if st, ok := s.stages[id]; ok && st.TenantID == tenantID {
		var clone = *st
		return &clone, nil
	}
	return nil, fmt.Errorf("stage %d: %w", id, ErrNotFound)
}

func (s *memStore) GetStageByName(tenantID int, name string) (*Stage, error) {
	for _, st := range s.stages {
		if st.TenantID == tenantID && st.Name == name {
			var clone = *st
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetStages(tenantID int) ([]*Stage, error) {
	var result []*Stage
	for _, st := range s.stages {
		if st.TenantID == tenantID {
			result = append(result, st)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *memStore) InsertStage(st *Stage) error {
	st.ID = s.id()
	var clone = *st
	s.stages[st.ID] = &clone
	return nil
}

func (s *memStore) UpdateStage(st *Stage) error {
	var clone = *st
	s.stages[st.ID] = &clone
	return nil
}

// ConnectionDB

func copyConnection(conn *Connection) *Connection {
	var clone = *conn
	clone.Approvers = append([]ApproverGroup{}, conn.Approvers...)
	return &clone
}

func (s *memStore) ConnectionBetween(tenantID, fromStageID, toStageID int) (*Connection, bool, error) {
	for _, conn := range s.conns {
		if conn.TenantID == tenantID && conn.From.ID == fromStageID && conn.To.ID == toStageID {
			return copyConnection(conn), true, nil
		}
	}
	return nil, false, nil
}

func (s *memStore) DeleteConnection(conn *Connection) error {
	for i, c := range s.conns {
		if c.ID == conn.ID {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) GetConnection(tenantID, id int) (*Connection, error) {
	for _, conn := range s.conns {
		if conn.TenantID == tenantID && conn.ID == id {
			return copyConnection(conn), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetConnections(tenantID int) ([]*Connection, error) {
	var result []*Connection
	for _, conn := range s.conns {
		if conn.TenantID == tenantID {
			result = append(result, copyConnection(conn))
		}
	}
	return result, nil
}

func (s *memStore) InsertConnection(conn *Connection) error {
	conn.ID = s.id()
	if conn.Approvers == nil {
		conn.Approvers = []ApproverGroup{}
	}
	s.conns = append(s.conns, copyConnection(conn))
	return nil
}

func (s *memStore) Outgoing(tenantID, fromStageID int) ([]*Connection, error) {
	var result []*Connection
	for _, conn := range s.conns {
		if conn.TenantID == tenantID && conn.From.ID == fromStageID {
			result = append(result, copyConnection(conn))
		}
	}
	return result, nil
}

func (s *memStore) UpdateConnection(conn *Connection, groups []ApproverGroup) error {
	for _, c := range s.conns {
		if c.ID == conn.ID {
			c.OwnerOnly = conn.OwnerOnly
			c.OwnerIncluded = conn.OwnerIncluded
			c.Approvers = append([]ApproverGroup{}, groups...)
			conn.Approvers = append([]ApproverGroup{}, groups...)
			return nil
		}
	}
	return ErrNotFound
}

// ReleaseDB

func (s *memStore) DeleteRelease(r *Release) error {
	delete(s.releases, r.ID)
	return nil
}

func (s *memStore) GetRelease(tenantID, id int) (*Release, error) {
	if r, ok := s.releases[id]; ok && r.TenantID == tenantID {
		return &r, nil
	}
	return nil, fmt.Errorf("release %d: %w", id, ErrNotFound)
}

func (s *memStore) GetReleaseByIdentifier(identifier string) (*Release, error) {
	for _, r := range s.releases {
		if r.Identifier == identifier {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetReleases(tenantID int, limit, offset int) ([]*Release, error) {
	var result []*Release
	for _, r := range s.releases {
		if r.TenantID == tenantID {
			var clone = r
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (s *memStore) CountOpenReleases(tenantID, ownerID int) (int, error) {
	var n = 0
	for _, r := range s.releases {
		if r.TenantID != tenantID || (ownerID != 0 && r.OwnerID != ownerID) {
			continue
		}
		if st, ok := s.stages[r.CurrentStage]; ok && !st.IsEndStage {
			n++
		}
	}
	return n, nil
}

func (s *memStore) InsertRelease(r *Release) error {
	r.ID = s.id()
	s.releases[r.ID] = *r
	return nil
}

func (s *memStore) UpdateRelease(r *Release) error {
	stored, ok := s.releases[r.ID]
	if !ok {
		return ErrNotFound
	}
	var updated = *r
	updated.CurrentStage = stored.CurrentStage
	updated.PendingApproval = stored.PendingApproval
	updated.NextStage = stored.NextStage
	s.releases[r.ID] = updated
	return nil
}

func (s *memStore) UpdateReleaseState(before, after *Release) error {
	stored, ok := s.releases[before.ID]
	if !ok || !sameStageState(&stored, before) {
		return ErrConflict
	}
	stored.CurrentStage = after.CurrentStage
	stored.PendingApproval = after.PendingApproval
	stored.NextStage = after.NextStage
	s.releases[before.ID] = stored
	return nil
}

// BlackoutDB

func (s *memStore) GetBlackouts(tenantID int) ([]*Blackout, error) {
	var result []*Blackout
	for _, b := range s.blackouts {
		if b.TenantID == tenantID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (s *memStore) InsertBlackout(b *Blackout) error {
	b.ID = s.id()
	s.blackouts = append(s.blackouts, b)
	return nil
}

func (s *memStore) GetBlackout(tenantID, id int) (*Blackout, error) {
	for _, b := range s.blackouts {
		if b.TenantID == tenantID && b.ID == id {
			var clone = *b
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("blackout %d: %w", id, ErrNotFound)
}

func (s *memStore) UpdateBlackout(b *Blackout) error {
	for i, stored := range s.blackouts {
		if stored.ID == b.ID {
			var clone = *b
			s.blackouts[i] = &clone
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) DeleteBlackout(b *Blackout) error {
	for i, stored := range s.blackouts {
		if stored.ID == b.ID {
			s.blackouts = append(s.blackouts[:i], s.blackouts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// CommentDB

func (s *memStore) DeleteComment(cm *Comment) error {
	for i, stored := range s.comments {
		if stored.ID == cm.ID {
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) GetComment(tenantID, id int) (*Comment, error) {
	for _, cm := range s.comments {
		if cm.TenantID == tenantID && cm.ID == id {
			var clone = *cm
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
}

func (s *memStore) GetComments(tenantID, releaseID int) ([]*Comment, error) {
	var result = []*Comment{}
	for i := len(s.comments) - 1; i >= 0; i-- {
		if cm := s.comments[i]; cm.TenantID == tenantID && cm.ReleaseID == releaseID {
			result = append(result, cm)
		}
	}
	return result, nil
}

func (s *memStore) InsertComment(cm *Comment) error {
	cm.ID = s.id()
	var clone = *cm
	s.comments = append(s.comments, &clone)
	return nil
}

// EnvironmentDB

func (s *memStore) GetEnvironmentByName(tenantID int, name string) (*Environment, error) {
	for _, e := range s.environments {
		if e.TenantID == tenantID && e.Name == name {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetEnvironments(tenantID int) ([]*Environment, error) {
	var result []*Environment
	for _, e := range s.environments {
		if e.TenantID == tenantID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *memStore) InsertEnvironment(tenantID int, name string) (*Environment, error) {
	var e = &Environment{ID: s.id(), TenantID: tenantID, Name: name}
	s.environments = append(s.environments, e)
	return e, nil
}

// MessageDB

func (s *memStore) GetMessages(u DBUser, limit, offset int) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ToUser == u.ID() {
			result = append(result, s.messages[i])
		}
	}
	return result, nil
}

func (s *memStore) InsertMessage(m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messageErr != nil {
		return s.messageErr
	}
	m.ID = len(s.messages) + 1
	s.messages = append(s.messages, m)
	return nil
}

var errStoreDown = errors.New("store is down")

// fixture

// workflow is the tenant setup of the transition tests:
//
//	Planning -> Review      approvers: role QA and team Platform
//	Review -> Released      approvers: role Release Manager, owner included
//	Planning -> Cancelled   open
//	Review -> Planning      owner only
//	Review -> Hotfix        approvers: group without roles and teams
type workflow struct {
	db    *CoreDB
	store *memStore

	tenant                                         *Tenant
	planning, review, released, cancelled, hotfix  *Stage
	qa, releaseManager                             *Role
	platform                                       *Team
	owner, qaPlatform, qaOnly, manager, tenantBoss DBUser
}

func newWorkflow() *workflow {

	var db, s = newTestDB()
	var w = &workflow{db: db, store: s}

	w.tenant, _ = s.InsertTenant("acme")

	var stage = func(name string) *Stage {
		var st = &Stage{TenantID: w.tenant.ID, Name: name, AllowReleaseDelete: name == "Planning"}
		s.InsertStage(st)
		return st
	}
	w.planning = stage("Planning")
	w.review = stage("Review")
	w.released = stage("Released")
	w.cancelled = stage("Cancelled")
	w.hotfix = stage("Hotfix")
	s.SetInitialStage(w.tenant, w.planning.ID)

	w.qa, _ = s.InsertRole(w.tenant.ID, "QA")
	w.releaseManager, _ = s.InsertRole(w.tenant.ID, "Release Manager")
	w.platform, _ = s.InsertTeam(w.tenant.ID, "Platform")

	w.owner, _ = s.InsertUser(w.tenant.ID, "owner@acme.test", false)
	w.qaPlatform, _ = s.InsertUser(w.tenant.ID, "qa-platform@acme.test", false)
	w.qaOnly, _ = s.InsertUser(w.tenant.ID, "qa@acme.test", false)
	w.manager, _ = s.InsertUser(w.tenant.ID, "manager@acme.test", false)
	w.tenantBoss, _ = s.InsertUser(w.tenant.ID, "boss@acme.test", true)

	s.GrantRole(w.qaPlatform, w.qa.ID)
	s.JoinTeam(w.qaPlatform, w.platform.ID, false)
	s.GrantRole(w.qaOnly, w.qa.ID)
	s.GrantRole(w.manager, w.releaseManager.ID)

	var connect = func(from, to *Stage, ownerOnly, ownerIncluded bool, groups ...ApproverGroup) {
		s.InsertConnection(&Connection{
			TenantID:      w.tenant.ID,
			From:          *from,
			To:            *to,
			OwnerOnly:     ownerOnly,
			OwnerIncluded: ownerIncluded,
			Approvers:     groups,
		})
	}
	connect(w.planning, w.review, false, false, ApproverGroup{Roles: []int{w.qa.ID}, Teams: []int{w.platform.ID}})
	connect(w.review, w.released, false, true, ApproverGroup{Roles: []int{w.releaseManager.ID}})
	connect(w.planning, w.cancelled, false, false)
	connect(w.review, w.planning, true, false)
	connect(w.review, w.hotfix, false, false, ApproverGroup{})

	return w
}

// release inserts a release of w.owner in the given stage.
func (w *workflow) release(stage *Stage) *Release {
	var r = &Release{
		TenantID:     w.tenant.ID,
		Identifier:   fmt.Sprintf("REL%05d", len(w.store.releases)),
		Name:         "Spring release",
		OwnerID:      w.owner.ID(),
		CurrentStage: stage.ID,
	}
	w.store.InsertRelease(r)
	return r
}
