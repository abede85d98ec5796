package core

import (
	"fmt"
)

// Outcome is the result of a stage transition request.
type Outcome int

const (
	RejectedNoConnection Outcome = iota
	ApprovedImmediate
	PendingApproval
)

func (o Outcome) String() string {
	switch o {
	case RejectedNoConnection:
		return "rejected_no_connection"
	case ApprovedImmediate:
		return "approved"
	case PendingApproval:
		return "pending_approval"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler, so outcomes are rendered as strings in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, candidate := range []Outcome{RejectedNoConnection, ApprovedImmediate, PendingApproval} {
		if string(text) == candidate.String() {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome: %q", text)
}

// A Decision is the result of DecideTransition.
type Decision struct {
	Outcome    Outcome
	Connection *Connection // nil if rejected
	Release    Release     // resulting state, equals the input if rejected
}

// DecideTransition decides whether the user can move the release to the target stage.
// It does not modify r and does not write anything.
//
// If there is no connection from the current stage to the target stage, the outcome is RejectedNoConnection.
// This includes requests for the current stage, unless a connection to itself is configured.
// If the user is authorized for the connection, the outcome is ApprovedImmediate.
// Else the outcome is PendingApproval. Unauthorized users are never rejected, because a later request of an authorized user completes the transition.
func (c *CoreDB) DecideTransition(r *Release, targetStageID int, u DBUser) (Decision, error) {

	var decision = Decision{
		Outcome: RejectedNoConnection,
		Release: *r,
	}

	conn, ok, err := c.ConnectionDB.ConnectionBetween(r.TenantID, r.CurrentStage, targetStageID)
	if err != nil {
		return Decision{}, fmt.Errorf("looking up connection: %w", err)
	}
	if !ok {
		return decision, nil
	}

	decision.Connection = conn

	authorized, err := c.IsAuthorizedForConnection(u, conn, r)
	if err != nil {
		return Decision{}, err
	}

	if authorized {
		decision.Outcome = ApprovedImmediate
		decision.Release.advance(targetStageID)
	} else {
		decision.Outcome = PendingApproval
		decision.Release.await(targetStageID)
	}

	return decision, nil
}

// RequestTransition gets the release from the tenant of the user, decides about the transition and stores the result.
// If the release has been modified concurrently, ErrConflict is returned.
func (c *CoreDB) RequestTransition(u DBUser, releaseID, targetStageID int) (Decision, error) {

	if u == nil {
		return Decision{}, ErrUnauthorized
	}

	r, err := c.ReleaseDB.GetRelease(u.TenantID(), releaseID)
	if err != nil {
		return Decision{}, err
	}

	return c.transition(u, r, targetStageID)
}

// ApprovePending requests the pending transition of the release again, on behalf of u.
func (c *CoreDB) ApprovePending(u DBUser, releaseID int) (Decision, error) {

	if u == nil {
		return Decision{}, ErrUnauthorized
	}

	r, err := c.ReleaseDB.GetRelease(u.TenantID(), releaseID)
	if err != nil {
		return Decision{}, err
	}

	if !r.PendingApproval {
		return Decision{}, ErrNotPending
	}

	return c.transition(u, r, r.NextStage)
}

func (c *CoreDB) transition(u DBUser, r *Release, targetStageID int) (Decision, error) {

	decision, err := c.DecideTransition(r, targetStageID, u)
	if err != nil {
		return Decision{}, err
	}

	if decision.Outcome != RejectedNoConnection && !sameStageState(r, &decision.Release) {
		if err := c.ReleaseDB.UpdateReleaseState(r, &decision.Release); err != nil {
			return Decision{}, err
		}
	}

	transitionsTotal.WithLabelValues(decision.Outcome.String()).Inc()
	c.notifyDecision(u, decision)

	return decision, nil
}

func (c *CoreDB) notifyDecision(u DBUser, d Decision) {

	if d.Connection == nil {
		return
	}

	var owner DBUser = u
	if d.Release.OwnerID != u.ID() {
		var err error
		owner, err = c.GetTenantUser(d.Release.TenantID, d.Release.OwnerID)
		if err != nil {
			return // no recipient
		}
	}

	switch d.Outcome {
	case ApprovedImmediate:
		c.Notify(
			owner,
			fmt.Sprintf("Release '%s' Moved to '%s'", d.Release.Name, d.Connection.To.Name),
			fmt.Sprintf("Release '%s' was moved from '%s' to '%s' by %s", d.Release.Name, d.Connection.From.Name, d.Connection.To.Name, u.Name()),
		)
	case PendingApproval:
		c.Notify(
			owner,
			fmt.Sprintf("Release '%s' Awaits Approval", d.Release.Name),
			fmt.Sprintf("%s requested to move release '%s' from '%s' to '%s', which requires approval", u.Name(), d.Release.Name, d.Connection.From.Name, d.Connection.To.Name),
		)
	}
}
