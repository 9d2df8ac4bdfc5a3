package types

import "fmt"

// ConfigError signals a malformed or missing configuration value, caught at
// startup before any venue is contacted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// TransientNetworkError wraps a network-layer failure a caller should
// retry with backoff: timeouts, connection resets, 5xx responses.
type TransientNetworkError struct {
	Venue string
	Op    string
	Err   error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: %s: transient network error: %v", e.Venue, e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// AuthError signals a rejected credential or expired session on a venue.
// Not retryable without a fresh credential refresh.
type AuthError struct {
	Venue  string
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: auth error: %s", e.Venue, e.Reason)
}

// ValidationError signals a request rejected by venue-side validation
// (tick size, min size, malformed payload). Not retryable as-is.
type ValidationError struct {
	Venue  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation error on %s: %s", e.Venue, e.Field, e.Reason)
}

// StaleQuoteError signals a quote read from the store older than the
// configured freshness window at the moment it was consulted.
type StaleQuoteError struct {
	Fingerprint string
	Venue       string
	AgeMs       int64
	MaxAgeMs    int64
}

func (e *StaleQuoteError) Error() string {
	return fmt.Sprintf("stale quote for %s on %s: age %dms exceeds max %dms", e.Fingerprint, e.Venue, e.AgeMs, e.MaxAgeMs)
}

// PartialFillError signals a two-leg execution where one leg filled and
// the other did not, leaving a one-sided position that requires hedging
// or unwind accounting.
type PartialFillError struct {
	Fingerprint  string
	FilledVenue  string
	StrandedLeg  string
	FilledShares string
}

func (e *PartialFillError) Error() string {
	return fmt.Sprintf("partial fill on %s: %s leg filled %s shares, %s leg stranded", e.Fingerprint, e.FilledVenue, e.FilledShares, e.StrandedLeg)
}

// NonceConflictError signals a client-tracked nonce rejected by the venue
// as stale or already consumed, requiring a nonce resync before retry.
type NonceConflictError struct {
	Venue string
	Nonce uint64
}

func (e *NonceConflictError) Error() string {
	return fmt.Sprintf("%s: nonce conflict at %d", e.Venue, e.Nonce)
}
