package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/finwise/dataguard/internal/obs"
)

// maxDetailsLen bounds details payloads that are not valid JSON. Malformed
// details are truncated rather than rejected: losing the audit record is
// worse than losing detail fidelity.
const maxDetailsLen = 500

var ErrUnknownAction = errors.New("unknown audit action")

// Service assigns ids and timestamps, sanitizes details, and writes entries
// through a Recorder. Entry ids are ULIDs so the append-only trail sorts by
// time without a separate sequence.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Record writes one audit entry and returns its id. The timestamp is
// assigned here unconditionally; a caller-supplied timestamp is ignored.
func (s *Service) Record(ctx context.Context, e Entry) (string, error) {
	if _, ok := validActions[e.Action]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, e.Action)
	}
	if e.ActorType == "" {
		e.ActorType = ActorUser
	}

	e.ID = ulid.Make().String()
	e.CreatedAt = s.now().UTC()
	e.Details = sanitizeDetails(e.Details)

	if err := s.store.Insert(ctx, &e); err != nil {
		return "", fmt.Errorf("audit write: %w", err)
	}
	obs.AuditWrites.WithLabelValues(string(e.Action)).Inc()
	return e.ID, nil
}

// ListByTarget returns the most recent entries concerning one user.
func (s *Service) ListByTarget(ctx context.Context, targetUserID string, limit int) ([]Entry, error) {
	return s.store.ListByTarget(ctx, targetUserID, limit)
}

// sanitizeDetails normalizes a free-form details payload. Valid JSON is
// re-serialized, which strips anything non-JSON-serializable; anything else
// is truncated to maxDetailsLen.
func sanitizeDetails(details string) string {
	if details == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(details), &v); err == nil {
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	if len(details) > maxDetailsLen {
		return details[:maxDetailsLen]
	}
	return details
}

// The typed shims below fix the action value and shape details consistently
// per action kind, so call sites cannot drift into ad hoc detail schemas.

func (s *Service) DataAccess(ctx context.Context, actorID string, actorType ActorType, targetUserID, resourceType, resourceID string, fields []string, meta Meta) (string, error) {
	details, _ := json.Marshal(map[string]any{"fields": fields})
	return s.Record(ctx, Entry{
		ActorID: actorID, ActorType: actorType, TargetUserID: targetUserID,
		Action: ActionDataAccess, Details: string(details),
		ResourceType: resourceType, ResourceID: resourceID,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
}

// ConsentChange records consent_given, consent_withdrawn, or
// consent_updated with the before/after boolean per consent type.
func (s *Service) ConsentChange(ctx context.Context, actorID string, actorType ActorType, targetUserID string, action Action, consentType string, before, after bool, meta Meta) (string, error) {
	details, _ := json.Marshal(map[string]any{
		"consentType": consentType,
		"before":      before,
		"after":       after,
	})
	return s.Record(ctx, Entry{
		ActorID: actorID, ActorType: actorType, TargetUserID: targetUserID,
		Action: action, Details: string(details),
		ResourceType: "consent", ResourceID: targetUserID,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
}

func (s *Service) DataDeletion(ctx context.Context, actorID string, actorType ActorType, targetUserID string, hard bool, meta Meta) (string, error) {
	action := ActionDataDeletionSoft
	if hard {
		action = ActionDataDeletionHard
	}
	return s.Record(ctx, Entry{
		ActorID: actorID, ActorType: actorType, TargetUserID: targetUserID,
		Action:       action,
		ResourceType: "financial_profile", ResourceID: targetUserID,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
}

func (s *Service) AdminAction(ctx context.Context, actorID, targetUserID, description string, meta Meta) (string, error) {
	details, _ := json.Marshal(map[string]any{"description": description})
	return s.Record(ctx, Entry{
		ActorID: actorID, ActorType: ActorAdmin, TargetUserID: targetUserID,
		Action: ActionAdminAction, Details: string(details),
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
}

func (s *Service) AIAnalysis(ctx context.Context, actorID string, actorType ActorType, targetUserID, feature string, meta Meta) (string, error) {
	details, _ := json.Marshal(map[string]any{"feature": feature})
	return s.Record(ctx, Entry{
		ActorID: actorID, ActorType: actorType, TargetUserID: targetUserID,
		Action: ActionAIAnalysisUsed, Details: string(details),
		ResourceType: "financial_profile", ResourceID: targetUserID,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
}

func (s *Service) DataExport(ctx context.Context, actorID string, actorType ActorType, targetUserID, destination string, meta Meta) (string, error) {
	details, _ := json.Marshal(map[string]any{"destination": destination})
	return s.Record(ctx, Entry{
		ActorID: actorID, ActorType: actorType, TargetUserID: targetUserID,
		Action: ActionDataExport, Details: string(details),
		ResourceType: "export_bundle", ResourceID: targetUserID,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
}

func (s *Service) ProfileUpdate(ctx context.Context, actorID string, actorType ActorType, targetUserID string, fields []string, meta Meta) (string, error) {
	details, _ := json.Marshal(map[string]any{"fields": fields})
	return s.Record(ctx, Entry{
		ActorID: actorID, ActorType: actorType, TargetUserID: targetUserID,
		Action: ActionProfileUpdated, Details: string(details),
		ResourceType: "financial_profile", ResourceID: targetUserID,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
}
