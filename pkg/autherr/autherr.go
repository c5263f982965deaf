package autherr

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of authentication failures the flow reacts to.
type Kind string

const (
	// KindInvalidInput is a local validation failure; it never reaches the
	// network and is always recoverable by editing the field.
	KindInvalidInput Kind = "invalid_input"
	// KindCredentialRejected means the server refused the
	// identifier/password/code pair.
	KindCredentialRejected Kind = "credential_rejected"
	// KindChallengeExpired means the multifactor nonce was rejected or
	// rotated; a fresh code must be requested.
	KindChallengeExpired Kind = "challenge_expired"
	// KindSiteNotDiscoverable means self-hosted site discovery failed.
	KindSiteNotDiscoverable Kind = "site_not_discoverable"
	// KindSocialExchangeFailed means the third-party token exchange failed
	// or was cancelled.
	KindSocialExchangeFailed Kind = "social_exchange_failed"
	// KindNetworkUnavailable is a transport-level failure; retrying in the
	// same state is permitted.
	KindNetworkUnavailable Kind = "network_unavailable"
	// KindFatal is anything unclassifiable; the flow must restart.
	KindFatal Kind = "fatal"
)

// RecoveryHint tells the UI layer what action gets the user unstuck.
type RecoveryHint string

const (
	HintRetry                    RecoveryHint = "retry"
	HintContactSupport           RecoveryHint = "contact_support"
	HintSwitchToPasswordEntry    RecoveryHint = "switch_to_password_entry"
	HintSwitchToSiteAddressEntry RecoveryHint = "switch_to_site_address_entry"
	HintReenterCredentials       RecoveryHint = "reenter_credentials"
)

// FallbackMessage replaces any classified message that would otherwise be
// empty.
const FallbackMessage = "Log in failed. Please try again."

// Error is a classified authentication failure with a user-presentable
// message and a recovery hint.
type Error struct {
	Kind    Kind
	Message string
	Hint    RecoveryHint
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the flow can continue after this error.
func (e *Error) Recoverable() bool {
	return e.Kind != KindFatal
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a classified error.
func New(kind Kind, message string, hint RecoveryHint) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Hint:    hint,
	}
}

// Wrap wraps an underlying error with a classification.
func Wrap(err error, kind Kind, message string, hint RecoveryHint) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Hint:    hint,
		Err:     err,
	}
}

// IsKind checks whether an error carries a specific kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind extracts the kind from an error. Unclassified errors report
// KindFatal.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}
