// Package seed loads the workflow of a tenant from a YAML file.
//
// Loading is idempotent: tenants, stages, environments, roles and teams are looked up by name
// and only created if they don't exist. Connections are only inserted if there is none between the two stages yet.
package seed

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wansing/releasecab/core"
	"gopkg.in/yaml.v3"
)

// Workflow is the content of a seed file.
type Workflow struct {
	Tenant       string       `yaml:"tenant"`
	Environments []string     `yaml:"environments"`
	Roles        []string     `yaml:"roles"`
	Teams        []string     `yaml:"teams"`
	Stages       []Stage      `yaml:"stages"`
	Connections  []Connection `yaml:"connections"`
	Blackouts    []Blackout   `yaml:"blackouts"`
}

type Stage struct {
	Name               string `yaml:"name"`
	Description        string `yaml:"description"`
	Initial            bool   `yaml:"initial"` // new releases start here
	IsEndStage         bool   `yaml:"end"`
	AllowReleaseDelete bool   `yaml:"allow_release_delete"`
}

type Connection struct {
	From          string     `yaml:"from"`
	To            string     `yaml:"to"`
	OwnerOnly     bool       `yaml:"owner_only"`
	OwnerIncluded bool       `yaml:"owner_included"`
	Approvers     []Approver `yaml:"approvers"`
}

// Approver refers to roles and teams by name.
type Approver struct {
	Roles []string `yaml:"roles"`
	Teams []string `yaml:"teams"`
}

type Blackout struct {
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description"`
	Start        time.Time `yaml:"start"`
	End          time.Time `yaml:"end"`
	Environments []string  `yaml:"environments"`
}

// Parse decodes a workflow and rejects unknown fields.
func Parse(r io.Reader) (*Workflow, error) {
	var w = &Workflow{}
	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(w); err != nil {
		return nil, fmt.Errorf("decoding workflow: %w", err)
	}
	if w.Tenant == "" {
		return nil, fmt.Errorf("workflow has no tenant")
	}
	var initial = 0
	for _, s := range w.Stages {
		if s.Initial {
			initial++
		}
	}
	if initial > 1 {
		return nil, fmt.Errorf("workflow has %d initial stages", initial)
	}
	return w, nil
}

// LoadFile parses the file and loads it into db.
func LoadFile(db *core.CoreDB, filename string) (*core.Tenant, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return Load(db, w)
}

// Load creates everything which the workflow describes and which does not exist yet.
func Load(db *core.CoreDB, w *Workflow) (*core.Tenant, error) {

	tenant, err := db.GetTenantByName(w.Tenant)
	if core.IsNotFound(err) {
		tenant, err = db.InsertTenant(w.Tenant)
	}
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", w.Tenant, err)
	}

	var environments = make(map[string]int)
	for _, name := range w.Environments {
		env, err := db.GetEnvironmentByName(tenant.ID, name)
		if core.IsNotFound(err) {
			env, err = db.InsertEnvironment(tenant.ID, name)
		}
		if err != nil {
			return nil, fmt.Errorf("environment %s: %w", name, err)
		}
		environments[name] = env.ID
	}

	var roles = make(map[string]int)
	for _, name := range w.Roles {
		role, err := db.GetRoleByName(tenant.ID, name)
		if core.IsNotFound(err) {
			role, err = db.InsertRole(tenant.ID, name)
		}
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", name, err)
		}
		roles[name] = role.ID
	}

	var teams = make(map[string]int)
	for _, name := range w.Teams {
		team, err := db.GetTeamByName(tenant.ID, name)
		if core.IsNotFound(err) {
			team, err = db.InsertTeam(tenant.ID, name)
		}
		if err != nil {
			return nil, fmt.Errorf("team %s: %w", name, err)
		}
		teams[name] = team.ID
	}

	var stages = make(map[string]*core.Stage)
	for _, s := range w.Stages {
		stage, err := db.GetStageByName(tenant.ID, s.Name)
		if core.IsNotFound(err) {
			stage = &core.Stage{
				TenantID:           tenant.ID,
				Name:               s.Name,
				Description:        s.Description,
				IsEndStage:         s.IsEndStage,
				AllowReleaseDelete: s.AllowReleaseDelete,
			}
			err = db.InsertStage(stage)
		}
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.Name, err)
		}
		stages[s.Name] = stage
		if s.Initial && tenant.InitialStage != stage.ID {
			if err := db.SetInitialStage(tenant, stage.ID); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range w.Connections {
		from, ok := stages[c.From]
		if !ok {
			return nil, fmt.Errorf("connection %s -> %s: unknown stage %s", c.From, c.To, c.From)
		}
		to, ok := stages[c.To]
		if !ok {
			return nil, fmt.Errorf("connection %s -> %s: unknown stage %s", c.From, c.To, c.To)
		}

		_, exists, err := db.ConnectionBetween(tenant.ID, from.ID, to.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		var groups = make([]core.ApproverGroup, 0, len(c.Approvers))
		for _, a := range c.Approvers {
			var g core.ApproverGroup
			for _, name := range a.Roles {
				id, ok := roles[name]
				if !ok {
					return nil, fmt.Errorf("connection %s -> %s: unknown role %s", c.From, c.To, name)
				}
				g.Roles = append(g.Roles, id)
			}
			for _, name := range a.Teams {
				id, ok := teams[name]
				if !ok {
					return nil, fmt.Errorf("connection %s -> %s: unknown team %s", c.From, c.To, name)
				}
				g.Teams = append(g.Teams, id)
			}
			groups = append(groups, g)
		}

		var conn = &core.Connection{
			TenantID:      tenant.ID,
			From:          *from,
			To:            *to,
			OwnerOnly:     c.OwnerOnly,
			OwnerIncluded: c.OwnerIncluded,
			Approvers:     core.NormalizeApprovers(groups),
		}
		if err := db.InsertConnection(conn); err != nil {
			return nil, fmt.Errorf("connection %s -> %s: %w", c.From, c.To, err)
		}
	}

	if len(w.Blackouts) > 0 {
		existing, err := db.GetBlackouts(tenant.ID)
		if err != nil {
			return nil, err
		}
		var have = make(map[string]struct{}, len(existing))
		for _, b := range existing {
			have[b.Name] = struct{}{}
		}
		for _, b := range w.Blackouts {
			if _, ok := have[b.Name]; ok {
				continue
			}
			if !b.Start.Before(b.End) {
				return nil, fmt.Errorf("blackout %s: %w", b.Name, core.ErrInvalidDates)
			}
			var blackout = &core.Blackout{
				TenantID:    tenant.ID,
				Name:        b.Name,
				Description: b.Description,
				StartDate:   b.Start,
				EndDate:     b.End,
			}
			for _, name := range b.Environments {
				id, ok := environments[name]
				if !ok {
					return nil, fmt.Errorf("blackout %s: unknown environment %s", b.Name, name)
				}
				blackout.Environments = append(blackout.Environments, id)
			}
			if err := db.InsertBlackout(blackout); err != nil {
				return nil, fmt.Errorf("blackout %s: %w", b.Name, err)
			}
		}
	}

	return tenant, nil
}
