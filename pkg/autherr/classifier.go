package autherr

import (
	"errors"
	"strings"
)

// Step identifies which flow step a raw failure came from. The same raw
// code classifies differently depending on the step.
type Step string

const (
	StepAuthentication Step = "authentication"
	StepTwoFactor      Step = "two_factor"
	StepSiteDiscovery  Step = "site_discovery"
	StepAvailability   Step = "availability"
	StepMagicLink      Step = "magic_link"
	StepSync           Step = "sync"
)

// Context is the flow state the classifier needs alongside the raw error.
type Context struct {
	Step Step

	// SocialInProgress marks that a third-party social sign-in was being
	// exchanged when the failure happened. Unclassifiable failures then
	// become SocialExchangeFailed so the flow tears the session down.
	SocialInProgress bool
}

// Classify translates a raw facade error into the closed taxonomy. It is the
// single place raw domain/code pairs are inspected; no other component may
// look at them.
func Classify(err error, ctx Context) *Error {
	if err == nil {
		return nil
	}

	// Already classified errors pass through untouched.
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var fe *FacadeError
	if !errors.As(err, &fe) {
		return unclassified(err, ctx)
	}

	if fe.Domain == DomainNetwork {
		return Wrap(err, KindNetworkUnavailable,
			"The network is unavailable. Check your connection and try again.", HintRetry)
	}

	if ctx.Step == StepSiteDiscovery || fe.Domain == DomainDiscovery {
		return classifyDiscovery(fe)
	}

	switch fe.Domain {
	case DomainAuth:
		return classifyAuth(fe, ctx)
	case DomainSocial:
		return socialFailure(fe)
	}

	return unclassified(err, ctx)
}

func classifyAuth(fe *FacadeError, ctx Context) *Error {
	switch fe.Code {
	case CodeForbidden:
		message := "It looks like the username or password is incorrect."
		hint := HintReenterCredentials
		if ctx.Step == StepTwoFactor {
			message = "That verification code was incorrect."
		}
		return Wrap(fe, KindCredentialRejected, message, hint)
	case CodeNonceExpired:
		return Wrap(fe, KindChallengeExpired,
			"Your verification attempt expired. Please try again with a new code.", HintRetry)
	}

	if ctx.SocialInProgress {
		return socialFailure(fe)
	}

	// Anything else from the auth domain surfaces the server-supplied text
	// (XML-RPC fault strings reach the user this way), trimmed, with the
	// generic fallback when the server sent nothing usable.
	return Wrap(fe, KindFatal, passthroughMessage(fe), HintContactSupport)
}

func classifyDiscovery(fe *FacadeError) *Error {
	switch fe.Code {
	case CodeBadRequest:
		return Wrap(fe, KindSiteNotDiscoverable,
			"That doesn't look like a valid site address. Check it and try again.",
			HintSwitchToSiteAddressEntry)
	case CodeNoEndpoint:
		return Wrap(fe, KindSiteNotDiscoverable,
			"It looks like this is a Jetpack-connected site. Log in with your WordPress.com account instead.",
			HintSwitchToSiteAddressEntry)
	default:
		return Wrap(fe, KindSiteNotDiscoverable,
			"We couldn't find a WordPress site at that address.",
			HintSwitchToSiteAddressEntry)
	}
}

func socialFailure(err error) *Error {
	return Wrap(err, KindSocialExchangeFailed,
		"We were unable to connect to your social account. Please try again.", HintRetry)
}

func unclassified(err error, ctx Context) *Error {
	if ctx.SocialInProgress {
		return socialFailure(err)
	}
	return Wrap(err, KindFatal, FallbackMessage, HintContactSupport)
}

func passthroughMessage(fe *FacadeError) string {
	message := strings.TrimSpace(fe.Message)
	if message == "" {
		return FallbackMessage
	}
	return message
}
