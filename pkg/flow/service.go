package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/wordpress-mobile/authflow/pkg/autherr"
	"github.com/wordpress-mobile/authflow/pkg/credentials"
	"github.com/wordpress-mobile/authflow/pkg/magiclink"
	"github.com/wordpress-mobile/authflow/pkg/validate"
)

// Dependencies contains the external collaborators a flow instance calls.
// Auth, Availability, Sync and MagicLinks are required; the rest may be nil
// when the product variant doesn't use them.
type Dependencies struct {
	Auth            AuthenticationFacade
	Discovery       SiteDiscoveryFacade
	Availability    AccountAvailabilityFacade
	CredentialStore SecureCredentialStore
	SocialProvider  SocialIdentityProvider
	Sync            SyncCollaborator
	MagicLinks      *magiclink.Service
	LocalState      LocalState
}

// Flow drives a single authentication attempt through the journey. There is
// exactly one logical flow per attempt: it issues at most one in-flight
// facade call at a time, processes events strictly in arrival order, and
// ignores re-submissions while an operation is outstanding.
type Flow struct {
	mu     sync.Mutex
	config Config
	deps   Dependencies

	state State
	creds *credentials.Credentials
	busy  bool

	// generation is bumped by Cancel and Restart. A facade response carrying
	// an old generation is discarded instead of applied, so a dismissed flow
	// can never be resurrected by a late reply.
	generation uint64

	// returnState is the credential-entry state that produced the current
	// in-flight attempt; recoverable rejections return the flow there.
	returnState State

	observers []Observer

	session            *Session
	endpointURL        string
	connectionEmail    string
	pendingLinkToken   string
	consumedLinkToken  string
	socialDisconnected bool
}

// New creates a flow instance in StateIdle.
func New(config Config, deps Dependencies, purpose credentials.Purpose) *Flow {
	return &Flow{
		config: config,
		deps:   deps,
		state:  StateIdle,
		creds:  credentials.New(purpose),
	}
}

// AddObserver subscribes to flow transitions.
func (f *Flow) AddObserver(observer Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, observer)
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Busy reports whether a facade call is in flight.
func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Credentials returns the credential bag owned by this flow. Callers must
// treat it as read-only; mutation happens only through flow operations.
func (f *Flow) Credentials() *credentials.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

// Session returns the authenticated session once the flow completed.
func (f *Flow) Session() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// EndpointURL returns the discovered self-hosted endpoint, if any.
func (f *Flow) EndpointURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpointURL
}

// ConnectionEmail returns the hosted-account email awaiting social linking.
func (f *Flow) ConnectionEmail() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectionEmail
}

// IsCancellable reports whether the user may cancel the flow. Cancellation
// is only safe when an authenticated account or self-hosted site already
// exists locally, so the user is never left with nothing usable.
func (f *Flow) IsCancellable(ctx context.Context) bool {
	if f.deps.LocalState == nil {
		return false
	}
	return f.deps.LocalState.HasExistingAccounts(ctx)
}

// PrefillStoredCredentials consults the OS credential store and, on a hit,
// prefills the identifier and password. Valid while no attempt is in flight.
func (f *Flow) PrefillStoredCredentials(ctx context.Context) (bool, error) {
	if f.deps.CredentialStore == nil {
		return false, nil
	}

	gen, ok := f.begin(stateUnchanged, nil, StateIdle, StateIdentifierEntered)
	if !ok {
		return false, nil
	}

	stored, err := f.deps.CredentialStore.Find(ctx, f.config.WPComDomainHint)
	if err != nil {
		// A store failure is never surfaced; the user just types instead.
		slog.Error("Secure credential store lookup failed", "err", err)
		f.finish(gen, nil, NoticeNone, nil)
		return false, nil
	}
	if stored == nil {
		f.finish(gen, nil, NoticeNone, nil)
		return false, nil
	}

	f.finish(gen, nil, NoticeNone, func() {
		f.creds.SetIdentifier(stored.Username)
		f.creds.SetPassword(stored.Password)
		f.creds.SetAccountKind(credentials.AccountKindWordPressCloud)
		f.state = StateWPComPasswordEntry
	})
	return true, nil
}

// identifierEntryStates are the states from which the user may (re)enter the
// identifier step. Re-entering it from a later step clears any pending
// two-factor nonce belonging to a different identifier.
var identifierEntryStates = []State{
	StateIdle,
	StateIdentifierEntered,
	StateWPComPasswordEntry,
	StateMagicLinkOffered,
	StateSelfHostedAddressEntry,
	StateSelfHostedCredentialEntry,
	StateChallengePending,
	StateNeedsSocialAccountConnection,
}

// SubmitIdentifier processes the email or username the user identified with
// and resolves what kind of account it belongs to.
func (f *Flow) SubmitIdentifier(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || !validate.ContainsNoWhitespace(identifier) {
		return f.inputError("Please enter a valid email address or username.")
	}

	if validate.IsEmail(identifier) {
		return f.submitEmail(ctx, identifier)
	}
	return f.submitUsername(identifier)
}

// submitUsername routes a non-email identifier. No network call is needed:
// reserved names short-circuit to self-hosted entry, anything else is
// trusted to belong to the hosted service until the facade says otherwise.
func (f *Flow) submitUsername(username string) error {
	if !validate.UsernameWithinMaxLength(username) {
		return f.inputError("Usernames can contain at most 50 characters.")
	}

	if validate.IsUsernameReserved(username) {
		if f.config.RestrictToWPCom {
			f.emit(nil, NoticeReservedUsername, func() {
				f.creds.SetIdentifier(username)
				f.state = StateIdentifierEntered
			}, identifierEntryStates...)
			return nil
		}
		f.emit(nil, NoticeNone, func() {
			f.creds.SetIdentifier(username)
			f.creds.SetAccountKind(credentials.AccountKindSelfHosted)
			f.state = StateSelfHostedAddressEntry
		}, identifierEntryStates...)
		return nil
	}

	f.emit(nil, NoticeNone, func() {
		f.creds.SetIdentifier(username)
		f.creds.SetAccountKind(credentials.AccountKindWordPressCloud)
		f.state = StateWPComPasswordEntry
	}, identifierEntryStates...)
	return nil
}

// submitEmail resolves an email identifier against hosted-account
// availability, or redeems a deep-link token waiting for its email.
func (f *Flow) submitEmail(ctx context.Context, email string) error {
	var linkToken string
	gen, ok := f.begin(StateResolvingAccountKind, func() {
		f.creds.SetIdentifier(email)
		f.creds.SetEmailAddress(email)
		linkToken = f.pendingLinkToken
		f.pendingLinkToken = ""
	}, identifierEntryStates...)
	if !ok {
		return nil
	}

	if linkToken != "" {
		return f.redeemLinkToken(ctx, gen, email, linkToken)
	}

	available, err := f.deps.Availability.IsEmailAvailable(ctx, email)
	if err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepAvailability})
		f.finish(gen, classified, NoticeNone, func() { f.state = StateIdentifierEntered })
		return classified
	}

	if f.creds.Purpose() == credentials.PurposeSignup {
		return f.resolveSignupEmail(gen, available)
	}
	return f.resolveLoginEmail(gen, available)
}

func (f *Flow) resolveLoginEmail(gen uint64, available bool) error {
	// Available means no hosted account exists for the address: an explicit
	// unknown-email signal, so fall back to self-hosted entry.
	if available {
		if f.config.RestrictToWPCom {
			classified := autherr.New(autherr.KindCredentialRejected,
				"We can't find an account with that email address.", autherr.HintReenterCredentials)
			f.finish(gen, classified, NoticeNone, func() { f.state = StateIdentifierEntered })
			return classified
		}
		f.finish(gen, nil, NoticeNone, func() { f.state = StateSelfHostedAddressEntry })
		return nil
	}

	f.finish(gen, nil, NoticeNone, func() {
		f.creds.SetAccountKind(credentials.AccountKindWordPressCloud)
		if f.config.OfferMagicLinks {
			f.state = StateMagicLinkOffered
		} else {
			f.state = StateWPComPasswordEntry
		}
	})
	return nil
}

func (f *Flow) resolveSignupEmail(gen uint64, available bool) error {
	if !available {
		classified := autherr.New(autherr.KindInvalidInput,
			"That email address is already in use. Log in instead.", autherr.HintSwitchToPasswordEntry)
		f.finish(gen, classified, NoticeNone, func() { f.state = StateIdentifierEntered })
		return classified
	}

	f.finish(gen, nil, NoticeNone, func() {
		f.creds.SetAccountKind(credentials.AccountKindWordPressCloud)
		f.state = StateMagicLinkOffered
	})
	return nil
}

// SubmitSiteAddress normalizes and discovers a self-hosted site address.
func (f *Flow) SubmitSiteAddress(ctx context.Context, address string) error {
	if f.config.RestrictToWPCom {
		slog.Debug("Ignoring site address submission, flow is restricted to hosted accounts")
		return nil
	}

	normalized := validate.NormalizeSiteAddress(address)
	if normalized == "" || !validate.ContainsNoWhitespace(normalized) {
		return f.inputError("Please enter a valid site address.")
	}

	gen, ok := f.begin(StateSelfHostedAddressEntry, nil, StateSelfHostedAddressEntry)
	if !ok {
		return nil
	}

	endpoint, err := f.deps.Discovery.Discover(ctx, normalized)
	if err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepSiteDiscovery})
		f.finish(gen, classified, NoticeNone, nil)
		return classified
	}

	f.finish(gen, nil, NoticeNone, func() {
		f.creds.SetSiteAddress(normalized)
		f.creds.SetAccountKind(credentials.AccountKindSelfHosted)
		f.endpointURL = endpoint
		f.state = StateSelfHostedCredentialEntry
	})
	return nil
}

// SubmitPassword verifies the entered password against the resolved account.
// From StateNeedsSocialAccountConnection it links the social identity to the
// existing hosted account instead.
func (f *Flow) SubmitPassword(ctx context.Context, password string) error {
	if password == "" {
		return f.inputError("Please enter your password.")
	}

	gen, ok := f.begin(StateAuthenticating, func() {
		if f.returnState == StateNeedsSocialAccountConnection {
			f.creds.SetIdentifier(f.connectionEmail)
			f.creds.SetEmailAddress(f.connectionEmail)
			f.creds.SetAccountKind(credentials.AccountKindWordPressCloud)
		}
		f.creds.SetPassword(password)
	}, StateWPComPasswordEntry, StateSelfHostedCredentialEntry, StateNeedsSocialAccountConnection)
	if !ok {
		return nil
	}

	if !f.Credentials().PopulatedForSignIn() {
		classified := autherr.New(autherr.KindInvalidInput,
			"Please fill out all the fields.", autherr.HintReenterCredentials)
		f.finish(gen, classified, NoticeNone, func() { f.state = f.returnState })
		return classified
	}

	result, err := f.deps.Auth.SignIn(ctx, f.signInRequest())
	if err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepAuthentication})
		f.failAuthentication(gen, classified)
		return classified
	}

	f.applySignInResult(ctx, gen, result, false)
	return nil
}

// SubmitCode submits a second-factor code for the pending challenge. Codes
// matching no accepted channel length are rejected client-side without a
// network call.
func (f *Flow) SubmitCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	f.mu.Lock()
	info := f.creds.PendingChallenge()
	f.mu.Unlock()
	if info == nil {
		slog.Debug("Ignoring code submission, no challenge pending")
		return nil
	}

	channel, nonce, ok := info.ResolveSubmission(code)
	if !ok {
		return f.inputError("That doesn't look like a valid verification code.")
	}

	gen, began := f.begin(StateAuthenticating, func() {
		f.creds.SetMultifactorCode(code)
	}, StateChallengePending)
	if !began {
		return nil
	}

	result, err := f.deps.Auth.SubmitChallengeCode(ctx, ChallengeSubmission{
		UserID:  info.UserID(),
		Channel: channel,
		Nonce:   nonce,
		Code:    code,
	})
	if err != nil {
		// The server may rotate the nonce inside a rejection; the old nonce
		// is guaranteed to fail a second time, so overwrite it first. The
		// entered code is always wiped after a submission attempt.
		var rejection *ChallengeRejection
		if errors.As(err, &rejection) {
			err = rejection.Cause
			f.mutateIfCurrent(gen, func() { info.RotateNonce(rejection.RotatedNonce) })
		}
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepTwoFactor})
		f.finish(gen, classified, NoticeNone, func() {
			f.creds.ClearMultifactorCode()
			if classified.Recoverable() {
				f.state = StateChallengePending
			} else {
				f.state = StateFatalFailure
			}
		})
		return classified
	}

	f.mutateIfCurrent(gen, func() {
		f.creds.ClearMultifactorCode()
		f.creds.RequiredTwoFactor = true
	})
	f.applySignInResult(ctx, gen, result, true)
	return nil
}

// RequestOneTimeCode asks the facade to send a fresh code over SMS.
func (f *Flow) RequestOneTimeCode(ctx context.Context) error {
	gen, ok := f.begin(StateChallengePending, nil, StateChallengePending)
	if !ok {
		return nil
	}

	if err := f.deps.Auth.RequestOneTimeCode(ctx, f.signInRequest()); err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepTwoFactor})
		f.finish(gen, classified, NoticeNone, nil)
		return classified
	}

	f.finish(gen, nil, NoticeOneTimeCodeSent, nil)
	return nil
}

// RequestMagicLink emails a passwordless login link and persists the
// continuation so the flow can resume after the app is suspended. A new
// request silently overwrites an unconsumed previous continuation.
func (f *Flow) RequestMagicLink(ctx context.Context) error {
	gen, ok := f.begin(StateMagicLinkOffered, nil, StateMagicLinkOffered)
	if !ok {
		return nil
	}

	params := magiclink.RequestParams{
		Email:   f.Credentials().EmailAddress(),
		Purpose: f.Credentials().Purpose(),
	}
	if err := f.deps.MagicLinks.Request(ctx, params); err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepMagicLink})
		f.finish(gen, classified, NoticeNone, nil)
		return classified
	}

	f.finish(gen, nil, NoticeMagicLinkSent, nil)
	return nil
}

// ChoosePasswordEntry switches from the magic-link offer to password entry.
func (f *Flow) ChoosePasswordEntry() {
	f.emit(nil, NoticeNone, func() {
		f.state = StateWPComPasswordEntry
	}, StateMagicLinkOffered)
}

// ResumeFromDeepLink redeems an externally delivered magic-link token. The
// continuation record is consumed exactly once; resuming again with an
// already-consumed token is a no-op. A token with no continuation record
// falls back to asking the user to re-enter their email.
func (f *Flow) ResumeFromDeepLink(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return f.inputError("That login link is not valid.")
	}

	f.mu.Lock()
	if token == f.consumedLinkToken {
		f.mu.Unlock()
		slog.Debug("Ignoring already-consumed magic link token")
		return nil
	}
	f.mu.Unlock()

	gen, ok := f.begin(StateAuthenticating, nil, resumeStates...)
	if !ok {
		return nil
	}

	resumption, err := f.deps.MagicLinks.Resume(ctx, token)
	if err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepMagicLink})
		f.finish(gen, classified, NoticeNone, func() { f.state = StateFatalFailure })
		return classified
	}

	if resumption.Degraded {
		f.finish(gen, nil, NoticeReenterEmail, func() {
			f.pendingLinkToken = token
			f.state = StateIdentifierEntered
		})
		return nil
	}

	f.mutateIfCurrent(gen, func() {
		f.creds.SetIdentifier(resumption.Email)
		f.creds.SetEmailAddress(resumption.Email)
		f.creds.SetAccountKind(credentials.AccountKindWordPressCloud)
	})
	return f.redeemLinkToken(ctx, gen, resumption.Email, token)
}

// redeemLinkToken authenticates with a stored email plus deep-link token.
// Callers have already moved the flow into a busy transient state; when that
// state wasn't StateAuthenticating yet, the switch is emitted so observers
// see the authenticating step.
func (f *Flow) redeemLinkToken(ctx context.Context, gen uint64, email, token string) error {
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		slog.Info("Discarding stale facade response")
		return nil
	}
	f.consumedLinkToken = token
	entering := f.state != StateAuthenticating
	f.state = StateAuthenticating
	var transition Transition
	var observers []Observer
	if entering {
		transition = f.transitionLocked(nil, NoticeNone)
		observers = f.observersLocked()
	}
	f.mu.Unlock()
	if entering {
		notifyAll(observers, transition)
	}

	result, err := f.deps.Auth.SignInWithLinkToken(ctx, email, token)
	if err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepAuthentication})
		f.finish(gen, classified, NoticeNone, func() {
			if classified.Recoverable() {
				f.state = StateIdentifierEntered
			} else {
				f.state = StateFatalFailure
			}
		})
		return classified
	}

	f.applySignInResult(ctx, gen, result, false)
	return nil
}

// resumeStates are the states a deep link may arrive in. The app may have
// been relaunched into any pre-authentication step. After a fatal failure
// the flow must be restarted first, so deep links are ignored there.
var resumeStates = []State{
	StateIdle,
	StateIdentifierEntered,
	StateWPComPasswordEntry,
	StateMagicLinkOffered,
	StateSelfHostedAddressEntry,
	StateSelfHostedCredentialEntry,
	StateChallengePending,
	StateNeedsSocialAccountConnection,
}

// socialEntryStates are the states offering social sign-in buttons.
var socialEntryStates = []State{
	StateIdle,
	StateIdentifierEntered,
	StateMagicLinkOffered,
	StateWPComPasswordEntry,
}

// SubmitSocialToken exchanges a third-party identity token obtained by the
// UI layer. Failures tear down the half-open social session and return the
// flow to the identifier step.
func (f *Flow) SubmitSocialToken(ctx context.Context, token, email string, service credentials.SocialService) error {
	if token == "" {
		return f.inputError("The social sign-in attempt did not produce a token.")
	}

	gen, ok := f.begin(StateAuthenticating, func() {
		if email != "" {
			f.creds.SetIdentifier(email)
			f.creds.SetEmailAddress(email)
		}
		f.creds.SetSocialIdentity(token, service)
		f.socialDisconnected = false
	}, socialEntryStates...)
	if !ok {
		return nil
	}

	outcome, err := f.deps.Auth.SignInWithSocialToken(ctx, token, service)
	if err != nil {
		classified := autherr.Classify(err, autherr.Context{
			Step:             autherr.StepAuthentication,
			SocialInProgress: true,
		})
		f.disconnectSocial(ctx)
		f.finish(gen, classified, NoticeNone, func() {
			f.creds.ClearSocialIdentity()
			f.state = StateIdentifierEntered
		})
		return classified
	}

	switch {
	case outcome.Challenge != nil:
		f.finish(gen, nil, NoticeNone, func() {
			f.creds.SetChallenge(outcome.Challenge)
			f.state = StateChallengePending
		})
	case outcome.NeedsAccountConnection:
		f.disconnectSocial(ctx)
		f.finish(gen, nil, NoticeNone, func() {
			f.creds.ClearSocialIdentity()
			f.connectionEmail = outcome.ConnectionEmail
			f.state = StateNeedsSocialAccountConnection
		})
	default:
		f.completeAuthentication(ctx, gen, outcome.Session)
	}
	return nil
}

// RetrySync re-runs the post-authentication sync after a transport failure.
func (f *Flow) RetrySync(ctx context.Context) error {
	f.mu.Lock()
	session := f.session
	f.mu.Unlock()
	if session == nil {
		slog.Debug("Ignoring sync retry, no authenticated session")
		return nil
	}

	gen, ok := f.begin(StateSyncing, nil, StateSyncing)
	if !ok {
		return nil
	}
	f.runSync(ctx, gen, session)
	return nil
}

// Cancel ends the flow at the user's request. It is rejected when no local
// account or site exists. In-flight facade calls are not aborted; their
// responses are discarded when they arrive.
func (f *Flow) Cancel(ctx context.Context) bool {
	if !f.IsCancellable(ctx) {
		slog.Info("Cancellation rejected, no local accounts exist")
		return false
	}

	f.mu.Lock()
	if f.state.Terminal() {
		f.mu.Unlock()
		return false
	}
	f.generation++
	f.busy = false
	f.state = StateCancelled
	f.creds.ClearChallenge()
	transition := f.transitionLocked(nil, NoticeNone)
	observers := f.observersLocked()
	f.mu.Unlock()

	notifyAll(observers, transition)
	return true
}

// Restart abandons the current attempt and starts over from StateIdle.
// Partial state (password, code, challenge) is wiped; this is the only way
// out of StateFatalFailure.
func (f *Flow) Restart(purpose credentials.Purpose) {
	f.mu.Lock()
	f.generation++
	f.busy = false
	f.creds = credentials.New(purpose)
	f.state = StateIdle
	f.session = nil
	f.endpointURL = ""
	f.connectionEmail = ""
	f.pendingLinkToken = ""
	f.socialDisconnected = false
	transition := f.transitionLocked(nil, NoticeNone)
	observers := f.observersLocked()
	f.mu.Unlock()

	notifyAll(observers, transition)
}

// applySignInResult routes a facade verification outcome: either into the
// challenge loop or on through sync to completion. The previously entered
// password is kept when a challenge interrupts the attempt.
func (f *Flow) applySignInResult(ctx context.Context, gen uint64, result SignInResult, viaChallenge bool) {
	if result.Challenge != nil {
		f.finish(gen, nil, NoticeNone, func() {
			f.creds.SetChallenge(result.Challenge)
			f.state = StateChallengePending
		})
		return
	}
	if viaChallenge {
		f.mutateIfCurrent(gen, func() { f.creds.ClearChallenge() })
	}
	f.completeAuthentication(ctx, gen, result.Session)
}

// completeAuthentication runs the sync step and finishes the flow.
func (f *Flow) completeAuthentication(ctx context.Context, gen uint64, session *Session) {
	if session == nil {
		classified := autherr.New(autherr.KindFatal, autherr.FallbackMessage, autherr.HintContactSupport)
		f.finish(gen, classified, NoticeNone, func() { f.state = StateFatalFailure })
		return
	}

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		slog.Info("Discarding authentication result for a dismissed flow")
		return
	}
	f.session = session
	f.state = StateSyncing
	transition := f.transitionLocked(nil, NoticeNone)
	observers := f.observersLocked()
	f.mu.Unlock()
	notifyAll(observers, transition)

	f.runSync(ctx, gen, session)
}

func (f *Flow) runSync(ctx context.Context, gen uint64, session *Session) {
	if err := f.deps.Sync.Sync(ctx, *session); err != nil {
		classified := autherr.Classify(err, autherr.Context{Step: autherr.StepSync})
		if classified.Kind == autherr.KindNetworkUnavailable {
			// Same-state retry is permitted; the session is kept.
			f.finish(gen, classified, NoticeNone, nil)
			return
		}
		f.finish(gen, classified, NoticeNone, func() { f.state = StateFatalFailure })
		return
	}

	f.finish(gen, nil, NoticeNone, func() { f.state = StateCompleted })
}

// failAuthentication applies a classified sign-in failure: recoverable
// rejections return to the credential-entry state that produced the attempt
// with the password intact, anything fatal ends the flow.
func (f *Flow) failAuthentication(gen uint64, classified *autherr.Error) {
	f.finish(gen, classified, NoticeNone, func() {
		if classified.Recoverable() {
			f.state = f.returnState
		} else {
			f.state = StateFatalFailure
		}
	})
}

// disconnectSocial tears down the in-progress social session exactly once
// per attempt. The lock is never held across the provider call.
func (f *Flow) disconnectSocial(ctx context.Context) {
	if f.deps.SocialProvider == nil {
		return
	}
	f.mu.Lock()
	if f.socialDisconnected {
		f.mu.Unlock()
		return
	}
	f.socialDisconnected = true
	f.mu.Unlock()

	if err := f.deps.SocialProvider.Disconnect(ctx); err != nil {
		slog.Error("Failed to disconnect social session", "err", err)
	}
}

func (f *Flow) signInRequest() SignInRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return SignInRequest{
		Identifier:  f.creds.Identifier(),
		Password:    f.creds.Password(),
		SiteAddress: f.creds.SiteAddress(),
		AccountKind: f.creds.AccountKind(),
	}
}

// stateUnchanged tells begin to stay in the current state while busy.
const stateUnchanged State = ""

// begin checks the busy guard and the allowed source states, records the
// return state, enters the transient state with the busy flag set and
// notifies observers. The mutate hook runs under the lock before the
// transition is built. Returns false when the event must be ignored.
func (f *Flow) begin(transient State, mutate func(), allowed ...State) (uint64, bool) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		slog.Debug("Ignoring submission while an operation is in flight")
		return 0, false
	}
	if !stateAllowed(f.state, allowed) {
		f.mu.Unlock()
		slog.Debug("Ignoring submission in current state", "state", f.state)
		return 0, false
	}
	f.busy = true
	f.returnState = f.state
	gen := f.generation
	if mutate != nil {
		mutate()
	}
	if transient != stateUnchanged {
		f.state = transient
	}
	transition := f.transitionLocked(nil, NoticeNone)
	observers := f.observersLocked()
	f.mu.Unlock()

	notifyAll(observers, transition)
	return gen, true
}

// finish applies the outcome of a facade call unless the flow was cancelled
// or restarted while the call was in flight, in which case the response is
// discarded.
func (f *Flow) finish(gen uint64, err *autherr.Error, notice Notice, mutate func()) {
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		slog.Info("Discarding stale facade response")
		return
	}
	f.busy = false
	if mutate != nil {
		mutate()
	}
	transition := f.transitionLocked(err, notice)
	observers := f.observersLocked()
	f.mu.Unlock()

	notifyAll(observers, transition)
}

// emit applies a direct, non-busy transition.
func (f *Flow) emit(err *autherr.Error, notice Notice, mutate func(), allowed ...State) {
	f.mu.Lock()
	if f.busy || !stateAllowed(f.state, allowed) {
		f.mu.Unlock()
		slog.Debug("Ignoring event in current state", "state", f.state)
		return
	}
	if mutate != nil {
		mutate()
	}
	transition := f.transitionLocked(err, notice)
	observers := f.observersLocked()
	f.mu.Unlock()

	notifyAll(observers, transition)
}

// mutateIfCurrent runs a mutation under the lock unless the generation moved
// on. No transition is emitted.
func (f *Flow) mutateIfCurrent(gen uint64, mutate func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return false
	}
	mutate()
	return true
}

// inputError reports a local validation failure without any state change.
// It still reaches observers so the UI can clear any pending spinner.
func (f *Flow) inputError(message string) error {
	classified := autherr.New(autherr.KindInvalidInput, message, autherr.HintReenterCredentials)

	f.mu.Lock()
	transition := f.transitionLocked(classified, NoticeNone)
	observers := f.observersLocked()
	f.mu.Unlock()

	notifyAll(observers, transition)
	return classified
}

func (f *Flow) transitionLocked(err *autherr.Error, notice Notice) Transition {
	return Transition{
		State:             f.state,
		Busy:              f.busy,
		Err:               err,
		Notice:            notice,
		Challenge:         f.creds.PendingChallenge(),
		ConnectionEmail:   f.connectionEmail,
		RequiredTwoFactor: f.creds.RequiredTwoFactor,
	}
}

func (f *Flow) observersLocked() []Observer {
	return append([]Observer(nil), f.observers...)
}

func notifyAll(observers []Observer, transition Transition) {
	for _, observer := range observers {
		observer.OnTransition(transition)
	}
}

func stateAllowed(state State, allowed []State) bool {
	if state.Terminal() {
		return false
	}
	for _, s := range allowed {
		if s == state {
			return true
		}
	}
	return false
}
