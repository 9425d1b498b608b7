// Package audit implements the append-only record of who did what to whose
// data. Entries are immutable once written: the API surface exposes insert
// and read, never update or delete.
package audit

import "time"

// ActorType identifies what kind of principal performed the action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAdmin  ActorType = "admin"
	ActorSystem ActorType = "system"
)

// Action is the closed set of auditable operations. Record rejects values
// outside this set so ad hoc action strings cannot leak into the trail.
type Action string

const (
	ActionDataAccess       Action = "data_access"
	ActionDataExport       Action = "data_export"
	ActionDataDeletionSoft Action = "data_deletion_soft"
	ActionDataDeletionHard Action = "data_deletion_hard"
	ActionConsentGiven     Action = "consent_given"
	ActionConsentWithdrawn Action = "consent_withdrawn"
	ActionConsentUpdated   Action = "consent_updated"
	ActionAdminAction      Action = "admin_action"
	ActionProfileUpdated   Action = "profile_updated"
	ActionAIAnalysisUsed   Action = "ai_analysis_used"
)

var validActions = map[Action]struct{}{
	ActionDataAccess: {}, ActionDataExport: {},
	ActionDataDeletionSoft: {}, ActionDataDeletionHard: {},
	ActionConsentGiven: {}, ActionConsentWithdrawn: {}, ActionConsentUpdated: {},
	ActionAdminAction: {}, ActionProfileUpdated: {}, ActionAIAnalysisUsed: {},
}

// Entry is one immutable audit record. ID and CreatedAt are assigned by the
// service at write time; caller-supplied values for them are ignored.
type Entry struct {
	ID           string
	ActorID      string
	ActorType    ActorType
	TargetUserID string
	Action       Action

	// Details is a sanitized JSON payload; free-form input is normalized or
	// truncated before storage, never rejected.
	Details string

	ResourceType string
	ResourceID   string
	CreatedAt    time.Time
	IPAddress    string
	UserAgent    string
}

// Meta carries request attribution for an audit entry.
type Meta struct {
	IPAddress string
	UserAgent string
}
