package capture

import (
	"net/url"
	"strings"
	"time"
)

// CleanupMode selects the domain-specific cleanup pass.
type CleanupMode string

const (
	// CleanupGeneric runs only the generic consent/overlay pass.
	CleanupGeneric CleanupMode = "generic"
	// CleanupConsentGateway targets full-page consent gateway interstitials.
	CleanupConsentGateway CleanupMode = "consent-gateway"
	// CleanupCookieNotice targets dismissible cookie notice bars.
	CleanupCookieNotice CleanupMode = "cookie-notice"
	// CleanupAdSlots suppresses ad slot containers left behind after load.
	CleanupAdSlots CleanupMode = "ad-slots"
)

// Profile is an immutable per-domain capture configuration. Profiles are
// static data created at init; a session resolves one once and never
// changes it mid-capture.
type Profile struct {
	ID string

	// NavTimeout bounds the whole navigation wait.
	NavTimeout time.Duration

	// AllowCommitFallback lets the DOM poller resolve success
	// CommitFallbackDelay after commit even without meaningful content,
	// for pages that commit but never fire a clean finish event.
	AllowCommitFallback bool
	CommitFallbackDelay time.Duration

	// StrictSnapshot evaluates all escalation tiers up front and accepts
	// the best detail score instead of failing outright.
	StrictSnapshot bool

	// SettleDelay is the fixed pause after navigation before cleanup.
	SettleDelay time.Duration

	// Cleanup pass counts and pacing, before and after the settle wait.
	PreCleanupPasses  int
	PreCleanupPacing  time.Duration
	PostCleanupPasses int
	PostCleanupPacing time.Duration

	// MeaningfulTimeout bounds the meaningfulness poll loop.
	MeaningfulTimeout time.Duration

	// Stability settle check: StabilitySamples consecutive in-bounds
	// samples within StabilityTimeout, with mutation idle of at least
	// StabilityIdleThreshold. Zero samples disables the check.
	StabilityTimeout       time.Duration
	StabilityIdleThreshold time.Duration
	StabilitySamples       int

	// AggressiveHydration scrolls through the page to force lazy
	// hydration before the settle check.
	AggressiveHydration bool

	// Cleanup selects the domain-specific pass.
	Cleanup CleanupMode

	// HostReadyTimeout bounds the host-specific readiness wait. Only
	// evaluated for strict profiles; zero disables it.
	HostReadyTimeout time.Duration
}

// DefaultProfileID is the profile used when no domain root matches.
const DefaultProfileID = "default"

var defaultProfile = Profile{
	ID:                DefaultProfileID,
	NavTimeout:        25 * time.Second,
	SettleDelay:       1200 * time.Millisecond,
	PreCleanupPasses:  2,
	PreCleanupPacing:  600 * time.Millisecond,
	PostCleanupPasses: 1,
	PostCleanupPacing: 400 * time.Millisecond,
	MeaningfulTimeout: 8 * time.Second,
	Cleanup:           CleanupGeneric,
}

// profiles maps a domain root to its variant. Roots are disjoint, so the
// first match wins without tie-break.
var profiles = map[string]Profile{
	"nytimes.com": {
		ID:                     "nytimes",
		NavTimeout:             35 * time.Second,
		StrictSnapshot:         true,
		SettleDelay:            1800 * time.Millisecond,
		PreCleanupPasses:       3,
		PreCleanupPacing:       700 * time.Millisecond,
		PostCleanupPasses:      2,
		PostCleanupPacing:      500 * time.Millisecond,
		MeaningfulTimeout:      12 * time.Second,
		StabilityTimeout:       6 * time.Second,
		StabilityIdleThreshold: 700 * time.Millisecond,
		StabilitySamples:       2,
		Cleanup:                CleanupCookieNotice,
		HostReadyTimeout:       8 * time.Second,
	},
	"lemonde.fr": {
		ID:                     "lemonde",
		NavTimeout:             30 * time.Second,
		StrictSnapshot:         true,
		SettleDelay:            1500 * time.Millisecond,
		PreCleanupPasses:       3,
		PreCleanupPacing:       600 * time.Millisecond,
		PostCleanupPasses:      2,
		PostCleanupPacing:      500 * time.Millisecond,
		MeaningfulTimeout:      10 * time.Second,
		StabilityTimeout:       5 * time.Second,
		StabilityIdleThreshold: 700 * time.Millisecond,
		StabilitySamples:       2,
		Cleanup:                CleanupConsentGateway,
		HostReadyTimeout:       6 * time.Second,
	},
	"youtube.com": {
		ID:                  "youtube",
		NavTimeout:          30 * time.Second,
		AllowCommitFallback: true,
		CommitFallbackDelay: 4 * time.Second,
		SettleDelay:         2 * time.Second,
		PreCleanupPasses:    2,
		PreCleanupPacing:    800 * time.Millisecond,
		PostCleanupPasses:   2,
		PostCleanupPacing:   600 * time.Millisecond,
		MeaningfulTimeout:   10 * time.Second,
		AggressiveHydration: true,
		Cleanup:             CleanupAdSlots,
	},
}

// ResolveProfile maps a target URL to its capture Profile. Pure and total:
// the host is lower-cased and matched against known domain roots with
// exact-or-subdomain-suffix comparison; anything else (including malformed
// or hostless URLs) resolves to the default profile.
func ResolveProfile(rawURL string) Profile {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultProfile
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return defaultProfile
	}
	for root, p := range profiles {
		if host == root || strings.HasSuffix(host, "."+root) {
			return p
		}
	}
	return defaultProfile
}
