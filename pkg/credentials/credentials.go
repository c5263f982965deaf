package credentials

import (
	"github.com/wordpress-mobile/authflow/pkg/challenge"
)

// AccountKind describes where the account being signed into lives.
type AccountKind string

const (
	// AccountKindUnknown means the account has not been resolved yet.
	AccountKindUnknown AccountKind = "unknown"
	// AccountKindWordPressCloud is an account on the hosted wordpress.com service.
	AccountKindWordPressCloud AccountKind = "wordpress_cloud"
	// AccountKindSelfHosted is an account on an independently operated install.
	AccountKindSelfHosted AccountKind = "self_hosted"
)

// Purpose describes why the flow was started.
type Purpose string

const (
	PurposeLogin  Purpose = "login"
	PurposeSignup Purpose = "signup"
)

// SocialService identifies a third-party identity provider.
type SocialService string

const (
	SocialServiceGoogle SocialService = "google"
	SocialServiceApple  SocialService = "apple"
)

// Credentials holds everything the user has entered during an in-progress
// authentication attempt, plus metadata about the attempt itself. It is
// exclusively owned by the single active flow instance and is discarded when
// the flow terminates; it is never persisted.
type Credentials struct {
	identifier       string
	password         string
	siteAddress      string
	emailAddress     string
	multifactorCode  string
	socialToken      string
	socialService    SocialService
	accountKind      AccountKind
	purpose          Purpose
	pendingChallenge *challenge.Info

	// RequiredTwoFactor records that a two-factor challenge was satisfied
	// during this attempt. Kept after the challenge is discarded.
	RequiredTwoFactor bool
}

// New creates an empty credential bag for a fresh flow.
func New(purpose Purpose) *Credentials {
	return &Credentials{
		accountKind: AccountKindUnknown,
		purpose:     purpose,
	}
}

func (c *Credentials) Identifier() string { return c.identifier }
func (c *Credentials) Password() string { return c.password }
func (c *Credentials) SiteAddress() string { return c.siteAddress }
func (c *Credentials) EmailAddress() string { return c.emailAddress }
func (c *Credentials) MultifactorCode() string { return c.multifactorCode }
func (c *Credentials) AccountKind() AccountKind { return c.accountKind }
func (c *Credentials) Purpose() Purpose { return c.purpose }
func (c *Credentials) PendingChallenge() *challenge.Info { return c.pendingChallenge }

// SocialIdentity returns the social token and service, if a social sign-in is
// in progress.
func (c *Credentials) SocialIdentity() (token string, service SocialService, ok bool) {
	return c.socialToken, c.socialService, c.socialToken != ""
}

// SetIdentifier stores the email or username the user identified with.
// Changing the identifier clears the password so a stale password is never
// submitted against a different account, and drops any pending challenge,
// since a nonce issued for one identifier is meaningless for another.
func (c *Credentials) SetIdentifier(identifier string) {
	if identifier == c.identifier {
		return
	}
	c.identifier = identifier
	c.password = ""
	c.ClearChallenge()
}

func (c *Credentials) SetPassword(password string) {
	c.password = password
}

func (c *Credentials) SetSiteAddress(siteAddress string) {
	c.siteAddress = siteAddress
}

func (c *Credentials) SetEmailAddress(emailAddress string) {
	c.emailAddress = emailAddress
}

func (c *Credentials) SetMultifactorCode(code string) {
	c.multifactorCode = code
}

// ClearMultifactorCode wipes the one-time code. Codes are time-sensitive, so
// the flow calls this after every submission attempt, success or failure.
func (c *Credentials) ClearMultifactorCode() {
	c.multifactorCode = ""
}

func (c *Credentials) SetSocialIdentity(token string, service SocialService) {
	c.socialToken = token
	c.socialService = service
}

// ClearSocialIdentity drops the in-progress social identity, used when a
// social exchange fails and the half-open session is torn down.
func (c *Credentials) ClearSocialIdentity() {
	c.socialToken = ""
	c.socialService = ""
}

func (c *Credentials) SetAccountKind(kind AccountKind) {
	c.accountKind = kind
}

// SetChallenge records a server-issued multifactor challenge.
func (c *Credentials) SetChallenge(info *challenge.Info) {
	c.pendingChallenge = info
}

// ClearChallenge wipes the pending challenge and any entered code.
func (c *Credentials) ClearChallenge() {
	c.pendingChallenge = nil
	c.multifactorCode = ""
}

// PopulatedForSignIn reports whether enough fields are present to attempt a
// sign-in: identifier and password, plus a site address unless the account is
// on the hosted service.
func (c *Credentials) PopulatedForSignIn() bool {
	if c.identifier == "" || c.password == "" {
		return false
	}
	if c.accountKind == AccountKindWordPressCloud {
		return true
	}
	return c.siteAddress != ""
}
