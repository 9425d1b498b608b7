// Package protect is the caller-facing surface of the data-protection core.
// Every operation runs the same shape: ask the access policy whether the
// actor may act, move field values through the codec, record the access in
// the audit trail, and keep all diagnostics behind the masking logger.
package protect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/finwise/dataguard/internal/audit"
	"github.com/finwise/dataguard/internal/codec"
	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/consent"
	"github.com/finwise/dataguard/internal/export"
	"github.com/finwise/dataguard/internal/logging"
	"github.com/finwise/dataguard/internal/mask"
	"github.com/finwise/dataguard/internal/obs"
	"github.com/finwise/dataguard/internal/policy"
	"github.com/finwise/dataguard/internal/records"
)

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   string
	Type audit.ActorType
}

// Meta carries request attribution through to consent and audit records.
type Meta struct {
	IPAddress string
	UserAgent string
}

func (m Meta) audit() audit.Meta {
	return audit.Meta{IPAddress: m.IPAddress, UserAgent: m.UserAgent}
}

func (m Meta) consent() consent.Meta {
	return consent.Meta{IPAddress: m.IPAddress, UserAgent: m.UserAgent}
}

// AccessPolicy is the subset of the policy layer used here.
type AccessPolicy interface {
	RoleOf(ctx context.Context, actorID string) policy.Role
	CanAccess(ctx context.Context, actorID, targetID string) bool
	CanViewRaw(ctx context.Context, actorID, targetID string) bool
	CanModify(ctx context.Context, actorID, targetID string) bool
}

// Auditor is the subset of the audit service used here.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) (string, error)
	DataAccess(ctx context.Context, actorID string, actorType audit.ActorType, targetUserID, resourceType, resourceID string, fields []string, meta audit.Meta) (string, error)
	ConsentChange(ctx context.Context, actorID string, actorType audit.ActorType, targetUserID string, action audit.Action, consentType string, before, after bool, meta audit.Meta) (string, error)
	DataDeletion(ctx context.Context, actorID string, actorType audit.ActorType, targetUserID string, hard bool, meta audit.Meta) (string, error)
	AIAnalysis(ctx context.Context, actorID string, actorType audit.ActorType, targetUserID, feature string, meta audit.Meta) (string, error)
	DataExport(ctx context.Context, actorID string, actorType audit.ActorType, targetUserID, destination string, meta audit.Meta) (string, error)
	ProfileUpdate(ctx context.Context, actorID string, actorType audit.ActorType, targetUserID string, fields []string, meta audit.Meta) (string, error)
	ListByTarget(ctx context.Context, targetUserID string, limit int) ([]audit.Entry, error)
}

// ConsentManager is the subset of the consent service used here.
type ConsentManager interface {
	Flags(ctx context.Context, userID string) (*consent.Record, error)
	Update(ctx context.Context, userID string, changes consent.Changes, version string, meta consent.Meta) (*consent.UpdateResult, error)
	WithdrawAll(ctx context.Context, userID string, meta consent.Meta) (*consent.UpdateResult, error)
}

// Service wires the core components together.
type Service struct {
	policy   AccessPolicy
	codec    *codec.Codec
	profiles records.Repository
	consents ConsentManager
	auditor  Auditor
	exporter export.Uploader
	log      logging.Logger
}

func NewService(p AccessPolicy, c *codec.Codec, profiles records.Repository, consents ConsentManager, auditor Auditor, exporter export.Uploader, log logging.Logger) *Service {
	return &Service{
		policy:   p,
		codec:    c,
		profiles: profiles,
		consents: consents,
		auditor:  auditor,
		exporter: exporter,
		log:      mask.NewSafeLogger(log),
	}
}

// ReadProfile returns the target's financial profile. The data subject gets
// decrypted values; staff who pass the access check get the document with
// envelopes intact, because raw-value visibility is a separate, stricter
// question. The read is audited either way.
func (s *Service) ReadProfile(ctx context.Context, actor Actor, targetUserID string, meta Meta) (*records.Profile, error) {
	if !s.policy.CanAccess(ctx, actor.ID, targetUserID) {
		s.denied(ctx, actor, targetUserID, "can_access", meta)
		return nil, common.ErrAuthorizationDenied
	}

	p, err := s.profiles.Get(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	if s.policy.CanViewRaw(ctx, actor.ID, targetUserID) {
		doc, err := s.codec.DecryptFields(p.Doc, records.EncryptedFields)
		if err != nil {
			s.log.Error(ctx, "profile decrypt failed", "target", targetUserID, "error", err.Error())
			return nil, fmt.Errorf("read profile: %w", err)
		}
		p.Doc = doc
	}

	s.auditBestEffort(ctx, func() error {
		_, err := s.auditor.DataAccess(ctx, actor.ID, actor.Type, targetUserID,
			"financial_profile", targetUserID, presentEncryptedFields(p.Doc), meta.audit())
		return err
	})
	return p, nil
}

// WriteProfile encrypts every schema-financial field and persists the
// document. The write path always stores envelopes, never plaintext.
func (s *Service) WriteProfile(ctx context.Context, actor Actor, targetUserID string, doc map[string]any, meta Meta) error {
	if !s.policy.CanModify(ctx, actor.ID, targetUserID) {
		s.denied(ctx, actor, targetUserID, "can_modify", meta)
		return common.ErrAuthorizationDenied
	}

	encrypted, err := s.codec.EncryptFields(doc, records.EncryptedFields)
	if err != nil {
		s.log.Error(ctx, "profile encrypt failed", "target", targetUserID, "error", err.Error())
		return fmt.Errorf("write profile: %w", err)
	}

	if err := s.profiles.Save(ctx, &records.Profile{UserID: targetUserID, Doc: encrypted}); err != nil {
		return err
	}

	s.auditBestEffort(ctx, func() error {
		_, err := s.auditor.ProfileUpdate(ctx, actor.ID, actor.Type, targetUserID,
			presentEncryptedFields(doc), meta.audit())
		return err
	})
	return nil
}

// ConsentFlags returns the target's consent record. Staff pass the access
// check here: consent flags carry no financial values.
func (s *Service) ConsentFlags(ctx context.Context, actor Actor, targetUserID string) (*consent.Record, error) {
	if !s.policy.CanAccess(ctx, actor.ID, targetUserID) {
		return nil, common.ErrAuthorizationDenied
	}
	return s.consents.Flags(ctx, targetUserID)
}

// UpdateConsent applies a partial consent update and writes one audit entry
// per changed consent type: consent_given on a grant, consent_withdrawn on
// a revocation, consent_updated otherwise.
func (s *Service) UpdateConsent(ctx context.Context, actor Actor, targetUserID string, changes consent.Changes, version string, meta Meta) (*consent.Record, error) {
	if !s.policy.CanModify(ctx, actor.ID, targetUserID) {
		s.denied(ctx, actor, targetUserID, "can_modify", meta)
		return nil, common.ErrAuthorizationDenied
	}

	res, err := s.consents.Update(ctx, targetUserID, changes, version, meta.consent())
	if err != nil {
		return nil, err
	}

	s.auditConsentChanges(ctx, actor, targetUserID, changes, res, meta)
	return res.Record, nil
}

// WithdrawConsent revokes every consent flag, writing a consent_withdrawn
// entry per flag that was set.
func (s *Service) WithdrawConsent(ctx context.Context, actor Actor, targetUserID string, meta Meta) (*consent.Record, error) {
	if !s.policy.CanModify(ctx, actor.ID, targetUserID) {
		s.denied(ctx, actor, targetUserID, "can_modify", meta)
		return nil, common.ErrAuthorizationDenied
	}

	res, err := s.consents.WithdrawAll(ctx, targetUserID, meta.consent())
	if err != nil {
		return nil, err
	}

	before := res.Before
	s.auditBestEffort(ctx, func() error {
		var firstErr error
		record := func(consentType string, was bool) {
			if !was {
				return
			}
			_, err := s.auditor.ConsentChange(ctx, actor.ID, actor.Type, targetUserID,
				audit.ActionConsentWithdrawn, consentType, true, false, meta.audit())
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		record("onboardingData", before.OnboardingDataConsent)
		record("aiAnalysis", before.AIAnalysisConsent)
		record("marketing", before.MarketingConsent != nil && *before.MarketingConsent)
		return firstErr
	})
	return res.Record, nil
}

// AnalyzeWithAI gates AI features on explicit consent and returns only a
// masked view of the profile. Uses of the feature are audited.
func (s *Service) AnalyzeWithAI(ctx context.Context, actor Actor, targetUserID, feature string, meta Meta) (map[string]any, error) {
	if !s.policy.CanViewRaw(ctx, actor.ID, targetUserID) {
		s.denied(ctx, actor, targetUserID, "can_view_raw", meta)
		return nil, common.ErrAuthorizationDenied
	}

	flags, err := s.consents.Flags(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrConsentRequired
		}
		return nil, err
	}
	if !flags.AIAnalysisConsent {
		return nil, common.ErrConsentRequired
	}

	p, err := s.profiles.Get(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	doc, err := s.codec.DecryptFields(p.Doc, records.EncryptedFields)
	if err != nil {
		return nil, fmt.Errorf("ai analysis: %w", err)
	}

	s.auditBestEffort(ctx, func() error {
		_, err := s.auditor.AIAnalysis(ctx, actor.ID, actor.Type, targetUserID, feature, meta.audit())
		return err
	})

	masked, _ := mask.Value(doc).(map[string]any)
	return masked, nil
}

// SoftDeleteProfile marks the profile deleted without destroying data.
func (s *Service) SoftDeleteProfile(ctx context.Context, actor Actor, targetUserID string, meta Meta) error {
	return s.deleteProfile(ctx, actor, targetUserID, false, meta)
}

// HardDeleteProfile removes the profile row. The audit trail survives.
func (s *Service) HardDeleteProfile(ctx context.Context, actor Actor, targetUserID string, meta Meta) error {
	return s.deleteProfile(ctx, actor, targetUserID, true, meta)
}

func (s *Service) deleteProfile(ctx context.Context, actor Actor, targetUserID string, hard bool, meta Meta) error {
	if !s.policy.CanModify(ctx, actor.ID, targetUserID) {
		s.denied(ctx, actor, targetUserID, "can_modify", meta)
		return common.ErrAuthorizationDenied
	}

	var err error
	if hard {
		err = s.profiles.HardDelete(ctx, targetUserID)
	} else {
		err = s.profiles.SoftDelete(ctx, targetUserID)
	}
	if err != nil {
		return err
	}

	s.auditBestEffort(ctx, func() error {
		_, err := s.auditor.DataDeletion(ctx, actor.ID, actor.Type, targetUserID, hard, meta.audit())
		return err
	})
	return nil
}

// ExportUserData bundles the decrypted profile, consent record, and recent
// audit trail, uploads it to object storage, and returns a time-limited
// download URL. Self-only: the bundle contains raw values.
func (s *Service) ExportUserData(ctx context.Context, actor Actor, targetUserID string, meta Meta) (string, error) {
	if !s.policy.CanViewRaw(ctx, actor.ID, targetUserID) {
		s.denied(ctx, actor, targetUserID, "can_view_raw", meta)
		return "", common.ErrAuthorizationDenied
	}

	p, err := s.profiles.Get(ctx, targetUserID)
	if err != nil {
		return "", err
	}
	doc, err := s.codec.DecryptFields(p.Doc, records.EncryptedFields)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	bundle := map[string]any{
		"userId":  targetUserID,
		"profile": doc,
	}
	if flags, err := s.consents.Flags(ctx, targetUserID); err == nil {
		bundle["consent"] = flags
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}
	if trail, err := s.auditor.ListByTarget(ctx, targetUserID, 500); err == nil {
		bundle["auditTrail"] = trail
	} else {
		return "", err
	}

	body, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export encode: %w", err)
	}

	key := export.BundleKey(targetUserID)
	if err := s.exporter.Upload(ctx, key, body); err != nil {
		return "", fmt.Errorf("export upload: %w", err)
	}
	url, err := s.exporter.PresignDownload(ctx, key)
	if err != nil {
		return "", fmt.Errorf("export presign: %w", err)
	}

	s.auditBestEffort(ctx, func() error {
		_, err := s.auditor.DataExport(ctx, actor.ID, actor.Type, targetUserID, key, meta.audit())
		return err
	})
	return url, nil
}

func (s *Service) auditConsentChanges(ctx context.Context, actor Actor, targetUserID string, changes consent.Changes, res *consent.UpdateResult, meta Meta) {
	s.auditBestEffort(ctx, func() error {
		var firstErr error
		record := func(consentType string, requested *bool, before bool) {
			if requested == nil {
				return
			}
			after := *requested
			action := audit.ActionConsentUpdated
			switch {
			case !before && after:
				action = audit.ActionConsentGiven
			case before && !after:
				action = audit.ActionConsentWithdrawn
			}
			_, err := s.auditor.ConsentChange(ctx, actor.ID, actor.Type, targetUserID,
				action, consentType, before, after, meta.audit())
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		record("onboardingData", changes.OnboardingDataConsent, res.Before.OnboardingDataConsent)
		record("aiAnalysis", changes.AIAnalysisConsent, res.Before.AIAnalysisConsent)
		record("marketing", changes.MarketingConsent, res.Before.MarketingConsent != nil && *res.Before.MarketingConsent)
		return firstErr
	})
}

// denied audits a policy denial and counts it. Denied attempts are part of
// the trail: knowing who tried matters as much as knowing who succeeded.
func (s *Service) denied(ctx context.Context, actor Actor, targetUserID, check string, meta Meta) {
	obs.AuthzDenials.WithLabelValues(check).Inc()

	action := audit.ActionDataAccess
	if actor.Type == audit.ActorAdmin {
		action = audit.ActionAdminAction
	}
	details, _ := json.Marshal(map[string]any{"denied": true, "check": check})

	s.auditBestEffort(ctx, func() error {
		_, err := s.auditor.Record(ctx, audit.Entry{
			ActorID:      actor.ID,
			ActorType:    actor.Type,
			TargetUserID: targetUserID,
			Action:       action,
			Details:      string(details),
			ResourceType: "financial_profile",
			ResourceID:   targetUserID,
			IPAddress:    meta.IPAddress,
			UserAgent:    meta.UserAgent,
		})
		return err
	})
}

// auditBestEffort runs an audit write and logs (masked) instead of failing
// the primary operation. Audit here is observability, not primary
// correctness; revisit if the deployment needs guaranteed audit durability.
func (s *Service) auditBestEffort(ctx context.Context, fn func() error) {
	if err := fn(); err != nil {
		s.log.Error(ctx, "audit write failed", "error", err.Error())
	}
}

// presentEncryptedFields lists which schema-financial fields a document
// actually carries; field names are safe for audit details, values never
// appear.
func presentEncryptedFields(doc map[string]any) []string {
	var fields []string
	for _, f := range records.EncryptedFields {
		if v, ok := doc[f]; ok && v != nil {
			fields = append(fields, f)
		}
	}
	return fields
}
