// Package policy answers who may do what to whose data. It draws a hard
// line between two questions: can an actor reach a record at all
// (CanAccess) and can they see its decrypted financial values (CanViewRaw).
// Staff roles pass the first check and always fail the second, so support
// operations run on encrypted blobs without ever decrypting them through
// this layer.
package policy

import (
	"context"
	"errors"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/logging"
)

// Role is derived at call time from identity plus the roles table; it is
// never cached or persisted as a separate mutable entity.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
)

// RoleStore resolves a stored role for a user id, returning
// common.ErrNotFound when no role record exists.
type RoleStore interface {
	RoleOf(ctx context.Context, userID string) (Role, error)
}

// Policy implements the access predicates. All predicates are total boolean
// functions: they never fail for a valid actor/target pair, and a failing
// role lookup degrades to the least privileged role.
type Policy struct {
	roles RoleStore

	// rootPrincipal is the break-glass admin identity, configured at
	// startup and checked before any store lookup. It is deliberately kept
	// out of the roles table so admin access does not depend on the very
	// store it is meant to audit.
	rootPrincipal string

	log logging.Logger
}

func New(roles RoleStore, rootPrincipal string, log logging.Logger) *Policy {
	return &Policy{roles: roles, rootPrincipal: rootPrincipal, log: log}
}

// RoleOf resolves the actor's role. The root principal is admin
// unconditionally; everyone else resolves via the roles store, defaulting
// to user when no record exists or the lookup fails.
func (p *Policy) RoleOf(ctx context.Context, actorID string) Role {
	if p.rootPrincipal != "" && actorID == p.rootPrincipal {
		return RoleAdmin
	}

	role, err := p.roles.RoleOf(ctx, actorID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			p.log.Warn(ctx, "role lookup failed, defaulting to user", "actor", actorID, "error", err.Error())
		}
		return RoleUser
	}
	switch role {
	case RoleAdmin, RoleSupport, RoleUser:
		return role
	default:
		return RoleUser
	}
}

// CanAccess reports whether the actor may reach the target's record at all.
// Self-access is always allowed; staff may reach any record. Passing this
// check says nothing about raw-value visibility.
func (p *Policy) CanAccess(ctx context.Context, actorID, targetID string) bool {
	if actorID == targetID {
		return true
	}
	role := p.RoleOf(ctx, actorID)
	return role == RoleAdmin || role == RoleSupport
}

// CanViewRaw reports whether the actor may see decrypted financial values.
// Only the data subject qualifies; no role bypasses this.
func (p *Policy) CanViewRaw(ctx context.Context, actorID, targetID string) bool {
	return actorID == targetID
}

// CanModify reports whether the actor may change the target's data. Only
// the data subject qualifies; no role bypasses this.
func (p *Policy) CanModify(ctx context.Context, actorID, targetID string) bool {
	return actorID == targetID
}
