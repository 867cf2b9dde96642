package auth

import "time"

// DefaultRotationThreshold keeps rotations to roughly once per six days
// on an active seven-day credential while guaranteeing the client gets a
// replacement before a hard re-login would be forced.
const DefaultRotationThreshold = 24 * time.Hour

// ThresholdRotationPolicy rotates a refresh credential once its remaining
// lifetime drops below Threshold. Pure decision, no side effects.
type ThresholdRotationPolicy struct {
	Threshold time.Duration
}

var _ RotationPolicy = ThresholdRotationPolicy{}

// NewRotationPolicy builds the policy from config, falling back to the
// default threshold.
func NewRotationPolicy(cfg Config) ThresholdRotationPolicy {
	threshold := cfg.GetRotationThreshold()
	if threshold <= 0 {
		threshold = DefaultRotationThreshold
	}
	return ThresholdRotationPolicy{Threshold: threshold}
}

// ShouldRotate reports whether a credential expiring at expiresAt should
// be replaced now. Exactly at the threshold does not rotate: rotate iff
// remaining lifetime is strictly below it.
func (p ThresholdRotationPolicy) ShouldRotate(expiresAt, now time.Time) bool {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultRotationThreshold
	}
	return expiresAt.Sub(now) < threshold
}
