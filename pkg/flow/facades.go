package flow

import (
	"context"
	"fmt"

	"github.com/wordpress-mobile/authflow/pkg/challenge"
	"github.com/wordpress-mobile/authflow/pkg/credentials"
)

// Session is the opaque authenticated session handed to the sync
// collaborator. The flow never inspects the token.
type Session struct {
	Token  string
	UserID int64
}

// SignInRequest carries the credentials for a sign-in attempt.
type SignInRequest struct {
	Identifier  string
	Password    string
	SiteAddress string
	AccountKind credentials.AccountKind
}

// SignInResult is the outcome of a credential or token verification: either
// an authenticated session, or a multifactor challenge that must be
// satisfied first.
type SignInResult struct {
	Session   *Session
	Challenge *challenge.Info
}

// ChallengeSubmission is a second-factor code submission.
type ChallengeSubmission struct {
	UserID  int64
	Channel challenge.Channel
	Nonce   string
	Code    string
}

// ChallengeRejection is returned by SubmitChallengeCode when the server
// refused the code. When the server rotates the nonce in the rejection, the
// replacement rides along and must overwrite the stored nonce before any
// retry.
type ChallengeRejection struct {
	RotatedNonce string
	Cause        error
}

func (e *ChallengeRejection) Error() string {
	return fmt.Sprintf("challenge rejected: %v", e.Cause)
}

func (e *ChallengeRejection) Unwrap() error { return e.Cause }

// SocialSignInOutcome is the result of exchanging a third-party identity
// token. Exactly one of the three branches is set.
type SocialSignInOutcome struct {
	Session *Session

	// NeedsAccountConnection means an existing hosted account matching the
	// social identity was found and must be linked with its password.
	NeedsAccountConnection bool
	ConnectionEmail        string

	// Challenge means the hosted account requires a second factor.
	Challenge *challenge.Info
}

// AuthenticationFacade is the network boundary for credential verification.
// Implementations are out of scope for the core; see pkg/devfacade for the
// in-memory reference used by tests and the demo server.
type AuthenticationFacade interface {
	SignIn(ctx context.Context, request SignInRequest) (SignInResult, error)
	SubmitChallengeCode(ctx context.Context, submission ChallengeSubmission) (SignInResult, error)
	RequestOneTimeCode(ctx context.Context, request SignInRequest) error
	RequestAuthenticationLink(ctx context.Context, email string, purpose credentials.Purpose) error
	SignInWithLinkToken(ctx context.Context, email, token string) (SignInResult, error)
	SignInWithSocialToken(ctx context.Context, token string, service credentials.SocialService) (SocialSignInOutcome, error)
}

// SiteDiscoveryFacade resolves a user-entered site address to a usable
// endpoint URL.
type SiteDiscoveryFacade interface {
	Discover(ctx context.Context, siteAddress string) (endpointURL string, err error)
}

// AccountAvailabilityFacade answers whether an email has a hosted account.
// Available (true) means no hosted account exists for the address.
type AccountAvailabilityFacade interface {
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
}

// StoredCredential is a username/password pair found in an OS-level store.
type StoredCredential struct {
	Username string
	Password string
}

// SecureCredentialStore is the read-only view of the OS credential store.
type SecureCredentialStore interface {
	Find(ctx context.Context, domainHint string) (*StoredCredential, error)
}

// SocialIdentityProvider is the third-party identity SDK boundary. The core
// only needs to tear sessions down; token acquisition happens in the UI
// layer and arrives through SubmitSocialToken.
type SocialIdentityProvider interface {
	Disconnect(ctx context.Context) error
}

// SyncCollaborator synchronizes the authenticated account into local state.
// Invoked once per successful authentication before the flow completes.
type SyncCollaborator interface {
	Sync(ctx context.Context, session Session) error
}

// LocalState answers whether any authenticated account or self-hosted site
// already exists locally. Cancellation is only safe when one does.
type LocalState interface {
	HasExistingAccounts(ctx context.Context) bool
}
