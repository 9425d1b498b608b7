// Package consent tracks per-user privacy consent flags with versioning and
// timestamps. The flags are independent booleans, not an enum: a user can
// hold AI-analysis consent without onboarding consent and vice versa.
package consent

import "time"

// Record is the stored consent state for one user. It is created on the
// first consent action and mutated in place afterwards; it is never
// hard-deleted by this subsystem.
type Record struct {
	ID                    string
	UserID                string
	OnboardingDataConsent bool
	AIAnalysisConsent     bool
	MarketingConsent      *bool
	ConsentVersion        string

	// ConsentedAt anchors when a primary consent flag last transitioned
	// from false to true. A repeated grant (true to true) does not move it;
	// withdrawal does not erase it.
	ConsentedAt   time.Time
	LastUpdatedAt time.Time

	IPAddress string
	UserAgent string
}

// Flags is a snapshot of the boolean consent state, used to report
// before/after values to the audit trail.
type Flags struct {
	OnboardingDataConsent bool
	AIAnalysisConsent     bool
	MarketingConsent      *bool
}

func (r *Record) flags() Flags {
	return Flags{
		OnboardingDataConsent: r.OnboardingDataConsent,
		AIAnalysisConsent:     r.AIAnalysisConsent,
		MarketingConsent:      r.MarketingConsent,
	}
}

// Changes is a partial update: nil fields are left untouched.
type Changes struct {
	OnboardingDataConsent *bool
	AIAnalysisConsent     *bool
	MarketingConsent      *bool
}

// Meta carries request attribution recorded alongside consent mutations.
type Meta struct {
	IPAddress string
	UserAgent string
}
