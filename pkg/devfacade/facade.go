package devfacade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/wordpress-mobile/authflow/pkg/autherr"
	"github.com/wordpress-mobile/authflow/pkg/challenge"
	"github.com/wordpress-mobile/authflow/pkg/credentials"
	"github.com/wordpress-mobile/authflow/pkg/flow"
	"github.com/wordpress-mobile/authflow/pkg/notification"
)

// Accepted code lengths per channel. Resolution by length is how the flow
// picks a channel, so the three must differ.
const (
	authenticatorCodeLength = 6
	smsCodeLength           = 7
	backupCodeLength        = 8
)

const linkTokenTTL = 15 * time.Minute

type pendingChallenge struct {
	userID  int64
	smsCode string
	issued  time.Time
}

type linkGrant struct {
	email   string
	purpose credentials.Purpose
	issued  time.Time
}

// SocialIdentity is a verified third-party identity a registered token
// resolves to.
type SocialIdentity struct {
	Service credentials.SocialService
	Subject string
	Email   string
}

// Facade implements the authentication and availability facades against the
// in-memory directory.
type Facade struct {
	mu           sync.Mutex
	directory    *Directory
	sessions     *SessionIssuer
	notices      *notification.Manager
	challenges   map[string]*pendingChallenge
	linkTokens   map[string]linkGrant
	socialTokens map[string]SocialIdentity
	linkBaseURL  string
	now          func() time.Time
}

var (
	_ flow.AuthenticationFacade      = (*Facade)(nil)
	_ flow.AccountAvailabilityFacade = (*Facade)(nil)
)

func NewFacade(directory *Directory, sessions *SessionIssuer, notices *notification.Manager) *Facade {
	return &Facade{
		directory:    directory,
		sessions:     sessions,
		notices:      notices,
		challenges:   make(map[string]*pendingChallenge),
		linkTokens:   make(map[string]linkGrant),
		socialTokens: make(map[string]SocialIdentity),
		linkBaseURL:  "wordpress://magic-login",
		now:          time.Now,
	}
}

// RegisterSocialToken makes an opaque token resolvable to a third-party
// identity, the way an SDK hands one to the app after consent.
func (f *Facade) RegisterSocialToken(token string, identity SocialIdentity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.socialTokens[token] = identity
}

// SignIn verifies a password against the directory.
func (f *Facade) SignIn(ctx context.Context, request flow.SignInRequest) (flow.SignInResult, error) {
	account := f.directory.FindByIdentifier(request.Identifier)
	if account == nil || !account.verifyPassword(request.Password) {
		return flow.SignInResult{}, autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeForbidden, "incorrect username or password")
	}
	if request.AccountKind == credentials.AccountKindSelfHosted && account.SiteAddress == "" {
		return flow.SignInResult{}, autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeForbidden, "account does not belong to this site")
	}

	if account.RequiresTwoFactor() {
		info, err := f.issueChallenge(account)
		if err != nil {
			return flow.SignInResult{}, err
		}
		return flow.SignInResult{Challenge: info}, nil
	}
	return f.sessionResult(account)
}

// SubmitChallengeCode verifies a second-factor code. Rejections rotate the
// nonce; the replacement rides along on the rejection.
func (f *Facade) SubmitChallengeCode(ctx context.Context, submission flow.ChallengeSubmission) (flow.SignInResult, error) {
	f.mu.Lock()
	pending, ok := f.challenges[submission.Nonce]
	f.mu.Unlock()
	if !ok {
		return flow.SignInResult{}, autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeNonceExpired, "verification prompt expired")
	}

	account := f.directory.byID(pending.userID)
	if account == nil {
		return flow.SignInResult{}, autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeNotFound, "unknown account")
	}

	valid := false
	switch submission.Channel {
	case challenge.ChannelAuthenticatorApp:
		valid = f.validatePasscode(account, submission.Code)
	case challenge.ChannelSMS:
		valid = pending.smsCode != "" && pending.smsCode == submission.Code
	case challenge.ChannelBackupCode:
		valid = f.directory.consumeBackupCode(account.UserID, submission.Code)
	}

	if !valid {
		rotated := f.rotateChallenge(submission.Nonce, pending)
		return flow.SignInResult{}, &flow.ChallengeRejection{
			RotatedNonce: rotated,
			Cause:        autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeForbidden, "incorrect verification code"),
		}
	}

	f.mu.Lock()
	delete(f.challenges, submission.Nonce)
	f.mu.Unlock()
	return f.sessionResult(account)
}

// RequestOneTimeCode generates a fresh SMS code for the account's pending
// challenge and delivers it through the notification manager.
func (f *Facade) RequestOneTimeCode(ctx context.Context, request flow.SignInRequest) error {
	account := f.directory.FindByIdentifier(request.Identifier)
	if account == nil {
		return autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeNotFound, "unknown account")
	}
	if account.phoneNumber == "" {
		return autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeBadRequest, "no phone number on file")
	}

	code := randomDigits(smsCodeLength)
	f.mu.Lock()
	for _, pending := range f.challenges {
		if pending.userID == account.UserID {
			pending.smsCode = code
		}
	}
	f.mu.Unlock()

	return f.notices.Send(notification.OneTimeCodeNotice, notification.NotificationData{
		To:   account.Email,
		Data: map[string]string{"Code": code},
	})
}

// RequestAuthenticationLink emails a one-shot login or signup link.
func (f *Facade) RequestAuthenticationLink(ctx context.Context, email string, purpose credentials.Purpose) error {
	if purpose == credentials.PurposeLogin && !f.directory.HasHostedEmail(email) {
		return autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeNotFound, "no account for this email")
	}

	token := uuid.New().String()
	f.mu.Lock()
	f.linkTokens[token] = linkGrant{email: email, purpose: purpose, issued: f.now()}
	f.mu.Unlock()

	noticeType := notification.MagicLinkLoginNotice
	if purpose == credentials.PurposeSignup {
		noticeType = notification.MagicLinkSignupNotice
	}
	link := fmt.Sprintf("%s?token=%s", f.linkBaseURL, token)
	return f.notices.Send(noticeType, notification.NotificationData{
		To:   email,
		Data: map[string]string{"Link": link},
	})
}

// SignInWithLinkToken redeems a one-shot link token. Signup grants create
// the account on redemption.
func (f *Facade) SignInWithLinkToken(ctx context.Context, email, token string) (flow.SignInResult, error) {
	f.mu.Lock()
	grant, ok := f.linkTokens[token]
	if ok {
		delete(f.linkTokens, token)
	}
	f.mu.Unlock()

	if !ok || f.now().Sub(grant.issued) > linkTokenTTL {
		return flow.SignInResult{}, autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeNonceExpired, "login link expired")
	}
	if email != "" && email != grant.email {
		return flow.SignInResult{}, autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeUnauthorized, "login link was issued for a different email")
	}

	account := f.directory.FindByIdentifier(grant.email)
	if account == nil {
		if grant.purpose != credentials.PurposeSignup {
			return flow.SignInResult{}, autherr.NewFacadeError(autherr.DomainAuth, autherr.CodeNotFound, "no account for this email")
		}
		created, err := f.directory.Add(AccountSpec{Email: grant.email, Password: uuid.New().String()})
		if err != nil {
			return flow.SignInResult{}, fmt.Errorf("failed to create account: %w", err)
		}
		slog.Info("Account created from signup link", "email", created.Email, "userID", created.UserID)
		account = created
	}
	return f.sessionResult(account)
}

// SignInWithSocialToken exchanges a third-party identity token.
func (f *Facade) SignInWithSocialToken(ctx context.Context, token string, service credentials.SocialService) (flow.SocialSignInOutcome, error) {
	f.mu.Lock()
	identity, ok := f.socialTokens[token]
	f.mu.Unlock()
	if !ok || identity.Service != service {
		return flow.SocialSignInOutcome{}, autherr.NewFacadeError(autherr.DomainSocial, autherr.CodeUnauthorized, "identity token was not accepted")
	}

	account := f.directory.FindByIdentifier(identity.Email)
	if account == nil {
		return flow.SocialSignInOutcome{}, autherr.NewFacadeError(autherr.DomainSocial, autherr.CodeNotFound, "no account for this identity")
	}

	f.directory.mu.Lock()
	subject, linked := account.socialSubjects[service]
	f.directory.mu.Unlock()
	if !linked || subject != identity.Subject {
		return flow.SocialSignInOutcome{NeedsAccountConnection: true, ConnectionEmail: account.Email}, nil
	}

	if account.RequiresTwoFactor() {
		info, err := f.issueChallenge(account)
		if err != nil {
			return flow.SocialSignInOutcome{}, err
		}
		return flow.SocialSignInOutcome{Challenge: info}, nil
	}

	result, err := f.sessionResult(account)
	if err != nil {
		return flow.SocialSignInOutcome{}, err
	}
	return flow.SocialSignInOutcome{Session: result.Session}, nil
}

// IsEmailAvailable reports whether no hosted account uses the email.
func (f *Facade) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	return !f.directory.HasHostedEmail(email), nil
}

func (f *Facade) issueChallenge(account *Account) (*challenge.Info, error) {
	lengths := make(map[challenge.Channel]int)
	if account.totpSecret != "" {
		lengths[challenge.ChannelAuthenticatorApp] = authenticatorCodeLength
	}
	if account.phoneNumber != "" {
		lengths[challenge.ChannelSMS] = smsCodeLength
	}
	if len(account.backupCodes) > 0 {
		lengths[challenge.ChannelBackupCode] = backupCodeLength
	}

	nonce := uuid.New().String()
	pending := &pendingChallenge{userID: account.UserID, issued: f.now()}

	// SMS-primary accounts get a code sent with the prompt itself.
	if account.phoneNumber != "" && account.totpSecret == "" {
		pending.smsCode = randomDigits(smsCodeLength)
		err := f.notices.Send(notification.OneTimeCodeNotice, notification.NotificationData{
			To:   account.Email,
			Data: map[string]string{"Code": pending.smsCode},
		})
		if err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	f.challenges[nonce] = pending
	f.mu.Unlock()
	return challenge.New(nonce, account.UserID, lengths), nil
}

// rotateChallenge rekeys the pending challenge under a fresh nonce so the
// rejected one cannot be replayed.
func (f *Facade) rotateChallenge(oldNonce string, pending *pendingChallenge) string {
	rotated := uuid.New().String()
	f.mu.Lock()
	delete(f.challenges, oldNonce)
	f.challenges[rotated] = pending
	f.mu.Unlock()
	return rotated
}

func (f *Facade) validatePasscode(account *Account, passcode string) bool {
	if account.totpSecret == "" {
		return false
	}
	valid, err := totp.ValidateCustom(passcode, account.totpSecret, f.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to validate totp passcode", "error", err)
		return false
	}
	return valid
}

func (f *Facade) sessionResult(account *Account) (flow.SignInResult, error) {
	token, err := f.sessions.IssueToken(account)
	if err != nil {
		return flow.SignInResult{}, fmt.Errorf("failed to issue session: %w", err)
	}
	return flow.SignInResult{Session: &flow.Session{Token: token, UserID: account.UserID}}, nil
}

// GeneratePasscode produces the current TOTP passcode for a secret. Tests
// use it to play the authenticator app's part.
func GeneratePasscode(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	return code, nil
}

// randomDigits returns n decimal digits drawn from a UUID's bytes.
func randomDigits(n int) string {
	raw := uuid.New()
	digits := make([]byte, n)
	for i := 0; i < n; i++ {
		digits[i] = '0' + raw[i%len(raw)]%10
	}
	return string(digits)
}
