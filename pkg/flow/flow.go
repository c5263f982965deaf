package flow

import (
	"github.com/wordpress-mobile/authflow/pkg/autherr"
	"github.com/wordpress-mobile/authflow/pkg/challenge"
)

// State identifies where in the authentication journey a flow instance is.
type State string

const (
	// StateIdle is the initial state: nothing entered yet.
	StateIdle State = "idle"
	// StateIdentifierEntered means the user submitted an email or username
	// and the flow is deciding what to do with it.
	StateIdentifierEntered State = "identifier_entered"
	// StateResolvingAccountKind is the transient busy state while the flow
	// checks reserved usernames and hosted-account availability.
	StateResolvingAccountKind State = "resolving_account_kind"
	// StateSelfHostedAddressEntry asks for the independent install's address.
	StateSelfHostedAddressEntry State = "self_hosted_address_entry"
	// StateSelfHostedCredentialEntry asks for credentials against a
	// discovered self-hosted endpoint.
	StateSelfHostedCredentialEntry State = "self_hosted_credential_entry"
	// StateWPComPasswordEntry asks for the hosted-account password.
	StateWPComPasswordEntry State = "wpcom_password_entry"
	// StateMagicLinkOffered offers to email a passwordless login link.
	StateMagicLinkOffered State = "magic_link_offered"
	// StateAuthenticating is the transient busy state while credentials,
	// codes or tokens are being verified.
	StateAuthenticating State = "authenticating"
	// StateChallengePending waits for a second-factor code. The pending
	// challenge carries the nonce and accepted code lengths.
	StateChallengePending State = "challenge_pending"
	// StateNeedsSocialAccountConnection means an existing hosted account was
	// found for the social identity and needs to be linked by password.
	StateNeedsSocialAccountConnection State = "needs_social_account_connection"
	// StateSyncing runs the post-authentication account sync.
	StateSyncing State = "syncing"

	// Terminal states.
	StateCompleted    State = "completed"
	StateCancelled    State = "cancelled"
	StateFatalFailure State = "fatal_failure"
)

// Terminal reports whether a state ends the flow.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFatalFailure
}

// Notice is a one-time prompt attached to a single transition.
type Notice string

const (
	NoticeNone Notice = ""
	// NoticeReservedUsername explains that the entered name cannot belong
	// to a hosted account. Emitted as a dead-end when the flow is
	// restricted to hosted accounts only.
	NoticeReservedUsername Notice = "reserved_username"
	// NoticeMagicLinkSent confirms the link email went out.
	NoticeMagicLinkSent Notice = "magic_link_sent"
	// NoticeOneTimeCodeSent confirms a fresh one-time code went out.
	NoticeOneTimeCodeSent Notice = "one_time_code_sent"
	// NoticeReenterEmail asks the user to re-enter their email because a
	// deep-link token arrived without a continuation record.
	NoticeReenterEmail Notice = "reenter_email"
)

// Config controls product-level variants of the journey.
type Config struct {
	// RestrictToWPCom removes the self-hosted branches entirely; reserved
	// usernames become a dead-end explanatory prompt instead.
	RestrictToWPCom bool

	// OfferMagicLinks enables the passwordless branch for recognized hosted
	// emails.
	OfferMagicLinks bool

	// WPComDomainHint is the domain passed to the secure credential store
	// when prefilling saved credentials.
	WPComDomainHint string
}

// DefaultConfig returns the standard journey configuration.
func DefaultConfig() Config {
	return Config{
		OfferMagicLinks: true,
		WPComDomainHint: "wordpress.com",
	}
}

// Transition is the (state, context) tuple emitted to observers on every
// state change.
type Transition struct {
	State State
	Busy  bool

	// Err is the classified failure that produced this transition, nil on
	// success paths.
	Err *autherr.Error

	// Notice is a one-time prompt for this transition only.
	Notice Notice

	// Challenge is the pending multifactor challenge while in
	// StateChallengePending.
	Challenge *challenge.Info

	// ConnectionEmail is the hosted-account email awaiting social linking
	// while in StateNeedsSocialAccountConnection.
	ConnectionEmail string

	// RequiredTwoFactor reports that a second factor was satisfied during
	// this attempt. Kept for analytics.
	RequiredTwoFactor bool
}

// Observer receives flow transitions. Observers are pure subscribers: they
// must not mutate the flow except through its input operations.
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(t Transition)

func (f ObserverFunc) OnTransition(t Transition) { f(t) }
