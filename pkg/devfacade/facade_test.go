package devfacade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordpress-mobile/authflow/pkg/autherr"
	"github.com/wordpress-mobile/authflow/pkg/challenge"
	"github.com/wordpress-mobile/authflow/pkg/credentials"
	"github.com/wordpress-mobile/authflow/pkg/flow"
	"github.com/wordpress-mobile/authflow/pkg/notification"
)

type testEnv struct {
	directory *Directory
	facade    *Facade
	notifier  *notification.MockNotifier
}

func setupFacade(t *testing.T) *testEnv {
	t.Helper()
	directory := NewDirectory()
	notifier := &notification.MockNotifier{}
	facade := NewFacade(directory, NewSessionIssuer("test-secret"), notification.NewManager(notifier))
	return &testEnv{directory: directory, facade: facade, notifier: notifier}
}

func (e *testEnv) addAccount(t *testing.T, spec AccountSpec) *Account {
	t.Helper()
	account, err := e.directory.Add(spec)
	require.NoError(t, err)
	return account
}

func requireFacadeCode(t *testing.T, err error, domain string, code int) {
	t.Helper()
	var fe *autherr.FacadeError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain, fe.Domain)
	assert.Equal(t, code, fe.Code)
}

func TestFacade_SignIn(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{Email: "alice@example.com", Username: "alice", Password: "secret"})

	t.Run("ByEmail", func(t *testing.T) {
		result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "alice@example.com", Password: "secret"})
		require.NoError(t, err)
		require.NotNil(t, result.Session)
		assert.Equal(t, account.UserID, result.Session.UserID)
		assert.NotEmpty(t, result.Session.Token)
		assert.Nil(t, result.Challenge)
	})

	t.Run("ByUsername", func(t *testing.T) {
		result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "alice", Password: "secret"})
		require.NoError(t, err)
		require.NotNil(t, result.Session)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "alice@example.com", Password: "nope"})
		requireFacadeCode(t, err, autherr.DomainAuth, autherr.CodeForbidden)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		_, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "ghost@example.com", Password: "secret"})
		requireFacadeCode(t, err, autherr.DomainAuth, autherr.CodeForbidden)
	})
}

func TestFacade_SignInSessionTokenParses(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{Email: "alice@example.com", Username: "alice", Password: "secret"})

	result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "alice", Password: "secret"})
	require.NoError(t, err)

	claims, err := env.facade.sessions.ParseToken(result.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, account.Email, claims.Email)
	assert.Equal(t, "alice", claims.Username)
}

func TestFacade_AuthenticatorChallenge(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{Email: "secured@example.com", Password: "secret"})
	secret, err := env.directory.EnableAuthenticator(account.UserID)
	require.NoError(t, err)

	result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "secured@example.com", Password: "secret"})
	require.NoError(t, err)
	require.Nil(t, result.Session)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, account.UserID, result.Challenge.UserID())

	length, ok := result.Challenge.AcceptedLength(challenge.ChannelAuthenticatorApp)
	require.True(t, ok)
	assert.Equal(t, authenticatorCodeLength, length)

	code, err := GeneratePasscode(secret)
	require.NoError(t, err)

	final, err := env.facade.SubmitChallengeCode(ctx, flow.ChallengeSubmission{
		UserID:  account.UserID,
		Channel: challenge.ChannelAuthenticatorApp,
		Nonce:   result.Challenge.Nonce(),
		Code:    code,
	})
	require.NoError(t, err)
	require.NotNil(t, final.Session)
}

func TestFacade_WrongCodeRotatesNonce(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{Email: "secured@example.com", Password: "secret"})
	secret, err := env.directory.EnableAuthenticator(account.UserID)
	require.NoError(t, err)

	result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "secured@example.com", Password: "secret"})
	require.NoError(t, err)
	nonce := result.Challenge.Nonce()

	_, err = env.facade.SubmitChallengeCode(ctx, flow.ChallengeSubmission{
		UserID:  account.UserID,
		Channel: challenge.ChannelAuthenticatorApp,
		Nonce:   nonce,
		Code:    "000000",
	})
	var rejection *flow.ChallengeRejection
	require.ErrorAs(t, err, &rejection)
	require.NotEmpty(t, rejection.RotatedNonce)
	assert.NotEqual(t, nonce, rejection.RotatedNonce)
	requireFacadeCode(t, rejection.Cause, autherr.DomainAuth, autherr.CodeForbidden)

	// The old nonce is dead.
	code, err := GeneratePasscode(secret)
	require.NoError(t, err)
	_, err = env.facade.SubmitChallengeCode(ctx, flow.ChallengeSubmission{
		UserID:  account.UserID,
		Channel: challenge.ChannelAuthenticatorApp,
		Nonce:   nonce,
		Code:    code,
	})
	requireFacadeCode(t, err, autherr.DomainAuth, autherr.CodeNonceExpired)

	// The rotated nonce works.
	final, err := env.facade.SubmitChallengeCode(ctx, flow.ChallengeSubmission{
		UserID:  account.UserID,
		Channel: challenge.ChannelAuthenticatorApp,
		Nonce:   rejection.RotatedNonce,
		Code:    code,
	})
	require.NoError(t, err)
	require.NotNil(t, final.Session)
}

func TestFacade_SMSChallenge(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{
		Email:       "sms@example.com",
		Password:    "secret",
		PhoneNumber: "+15555550100",
	})

	result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "sms@example.com", Password: "secret"})
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)

	// SMS-primary accounts get a code with the prompt itself.
	require.Len(t, env.notifier.Sent, 1)
	assert.Equal(t, notification.OneTimeCodeNotice, env.notifier.Sent[0].Type)
	code := env.notifier.Sent[0].Data.Data["Code"]
	require.Len(t, code, smsCodeLength)

	final, err := env.facade.SubmitChallengeCode(ctx, flow.ChallengeSubmission{
		UserID:  account.UserID,
		Channel: challenge.ChannelSMS,
		Nonce:   result.Challenge.Nonce(),
		Code:    code,
	})
	require.NoError(t, err)
	require.NotNil(t, final.Session)
}

func TestFacade_RequestOneTimeCodeReplacesCode(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{
		Email:       "sms@example.com",
		Password:    "secret",
		PhoneNumber: "+15555550100",
	})

	result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "sms@example.com", Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, env.facade.RequestOneTimeCode(ctx, flow.SignInRequest{Identifier: "sms@example.com"}))
	require.Len(t, env.notifier.Sent, 2)
	fresh := env.notifier.Sent[1].Data.Data["Code"]

	final, err := env.facade.SubmitChallengeCode(ctx, flow.ChallengeSubmission{
		UserID:  account.UserID,
		Channel: challenge.ChannelSMS,
		Nonce:   result.Challenge.Nonce(),
		Code:    fresh,
	})
	require.NoError(t, err)
	require.NotNil(t, final.Session)
}

func TestFacade_BackupCodeSingleUse(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{
		Email:       "backup@example.com",
		Password:    "secret",
		BackupCodes: []string{"12345678"},
	})

	result, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "backup@example.com", Password: "secret"})
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)

	final, err := env.facade.SubmitChallengeCode(ctx, flow.ChallengeSubmission{
		UserID:  account.UserID,
		Channel: challenge.ChannelBackupCode,
		Nonce:   result.Challenge.Nonce(),
		Code:    "12345678",
	})
	require.NoError(t, err)
	require.NotNil(t, final.Session)

	// The consumed code no longer counts as a second factor, so the next
	// sign-in succeeds outright.
	again, err := env.facade.SignIn(ctx, flow.SignInRequest{Identifier: "backup@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, again.Session)
}

func linkTokenFromNotice(t *testing.T, sent notification.SentNotice) string {
	t.Helper()
	link := sent.Data.Data["Link"]
	i := strings.Index(link, "token=")
	require.GreaterOrEqual(t, i, 0, "no token in link %q", link)
	return link[i+len("token="):]
}

func TestFacade_MagicLinkLogin(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{Email: "alice@example.com", Password: "secret"})

	require.NoError(t, env.facade.RequestAuthenticationLink(ctx, "alice@example.com", credentials.PurposeLogin))
	require.Len(t, env.notifier.Sent, 1)
	assert.Equal(t, notification.MagicLinkLoginNotice, env.notifier.Sent[0].Type)
	token := linkTokenFromNotice(t, env.notifier.Sent[0])

	result, err := env.facade.SignInWithLinkToken(ctx, "alice@example.com", token)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, account.UserID, result.Session.UserID)

	// Tokens are one-shot.
	_, err = env.facade.SignInWithLinkToken(ctx, "alice@example.com", token)
	requireFacadeCode(t, err, autherr.DomainAuth, autherr.CodeNonceExpired)
}

func TestFacade_MagicLinkLoginUnknownEmail(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()

	err := env.facade.RequestAuthenticationLink(ctx, "ghost@example.com", credentials.PurposeLogin)
	requireFacadeCode(t, err, autherr.DomainAuth, autherr.CodeNotFound)
}

func TestFacade_MagicLinkSignupCreatesAccount(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()

	require.NoError(t, env.facade.RequestAuthenticationLink(ctx, "new@example.com", credentials.PurposeSignup))
	require.Len(t, env.notifier.Sent, 1)
	assert.Equal(t, notification.MagicLinkSignupNotice, env.notifier.Sent[0].Type)
	token := linkTokenFromNotice(t, env.notifier.Sent[0])

	result, err := env.facade.SignInWithLinkToken(ctx, "new@example.com", token)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.True(t, env.directory.HasEmail("new@example.com"))
}

func TestFacade_LinkTokenEmailMismatch(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	env.addAccount(t, AccountSpec{Email: "alice@example.com", Password: "secret"})

	require.NoError(t, env.facade.RequestAuthenticationLink(ctx, "alice@example.com", credentials.PurposeLogin))
	token := linkTokenFromNotice(t, env.notifier.Sent[0])

	_, err := env.facade.SignInWithLinkToken(ctx, "other@example.com", token)
	requireFacadeCode(t, err, autherr.DomainAuth, autherr.CodeUnauthorized)
}

func TestFacade_SignInWithSocialToken(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	account := env.addAccount(t, AccountSpec{Email: "alice@example.com", Password: "secret"})

	t.Run("UnknownToken", func(t *testing.T) {
		_, err := env.facade.SignInWithSocialToken(ctx, "bogus", credentials.SocialServiceGoogle)
		requireFacadeCode(t, err, autherr.DomainSocial, autherr.CodeUnauthorized)
	})

	env.facade.RegisterSocialToken("g-token", SocialIdentity{
		Service: credentials.SocialServiceGoogle,
		Subject: "google-sub-1",
		Email:   "alice@example.com",
	})

	t.Run("ServiceMismatch", func(t *testing.T) {
		_, err := env.facade.SignInWithSocialToken(ctx, "g-token", credentials.SocialServiceApple)
		requireFacadeCode(t, err, autherr.DomainSocial, autherr.CodeUnauthorized)
	})

	t.Run("UnlinkedNeedsConnection", func(t *testing.T) {
		outcome, err := env.facade.SignInWithSocialToken(ctx, "g-token", credentials.SocialServiceGoogle)
		require.NoError(t, err)
		assert.True(t, outcome.NeedsAccountConnection)
		assert.Equal(t, "alice@example.com", outcome.ConnectionEmail)
		assert.Nil(t, outcome.Session)
	})

	require.NoError(t, env.directory.LinkSocial(account.UserID, credentials.SocialServiceGoogle, "google-sub-1"))

	t.Run("LinkedSignsIn", func(t *testing.T) {
		outcome, err := env.facade.SignInWithSocialToken(ctx, "g-token", credentials.SocialServiceGoogle)
		require.NoError(t, err)
		require.NotNil(t, outcome.Session)
		assert.Equal(t, account.UserID, outcome.Session.UserID)
	})

	t.Run("LinkedWithTwoFactorChallenges", func(t *testing.T) {
		_, err := env.directory.EnableAuthenticator(account.UserID)
		require.NoError(t, err)
		outcome, err := env.facade.SignInWithSocialToken(ctx, "g-token", credentials.SocialServiceGoogle)
		require.NoError(t, err)
		assert.Nil(t, outcome.Session)
		require.NotNil(t, outcome.Challenge)
	})
}

func TestFacade_IsEmailAvailable(t *testing.T) {
	env := setupFacade(t)
	ctx := context.Background()
	env.addAccount(t, AccountSpec{Email: "alice@example.com", Password: "secret"})

	available, err := env.facade.IsEmailAvailable(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = env.facade.IsEmailAvailable(ctx, "free@example.com")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestSiteDirectory_Discover(t *testing.T) {
	sites := NewSiteDirectory()
	sites.AddSite("mysite.example.com", Site{EndpointURL: "http://mysite.example.com/xmlrpc.php"})
	sites.AddSite("jetpack.example.com", Site{JetpackManaged: true})
	ctx := context.Background()

	t.Run("Known", func(t *testing.T) {
		endpoint, err := sites.Discover(ctx, "http://mysite.example.com")
		require.NoError(t, err)
		assert.Equal(t, "http://mysite.example.com/xmlrpc.php", endpoint)
	})

	t.Run("NormalizedLookup", func(t *testing.T) {
		endpoint, err := sites.Discover(ctx, "MySite.Example.Com/wp-admin/")
		require.NoError(t, err)
		assert.Equal(t, "http://mysite.example.com/xmlrpc.php", endpoint)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := sites.Discover(ctx, "not an address")
		requireFacadeCode(t, err, autherr.DomainDiscovery, autherr.CodeBadRequest)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := sites.Discover(ctx, "nowhere.example.com")
		requireFacadeCode(t, err, autherr.DomainDiscovery, autherr.CodeNotFound)
	})

	t.Run("JetpackManaged", func(t *testing.T) {
		_, err := sites.Discover(ctx, "jetpack.example.com")
		requireFacadeCode(t, err, autherr.DomainDiscovery, autherr.CodeNoEndpoint)
	})
}

func TestMemoryLocalState(t *testing.T) {
	state := &MemoryLocalState{}
	ctx := context.Background()

	assert.False(t, state.HasExistingAccounts(ctx))
	require.NoError(t, state.Sync(ctx, flow.Session{Token: "t", UserID: 1}))
	assert.True(t, state.HasExistingAccounts(ctx))
	assert.Len(t, state.Sessions(), 1)

	state.SyncErr = errors.New("sync failed")
	assert.Error(t, state.Sync(ctx, flow.Session{Token: "t2", UserID: 2}))
	assert.Len(t, state.Sessions(), 1)
}

func TestStaticCredentialStore(t *testing.T) {
	ctx := context.Background()

	empty := &StaticCredentialStore{}
	found, err := empty.Find(ctx, "wordpress.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	store := &StaticCredentialStore{
		Credential: &flow.StoredCredential{Username: "alice", Password: "pw"},
		Domain:     "wordpress.com",
	}
	found, err = store.Find(ctx, "wordpress.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)

	found, err = store.Find(ctx, "other.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}
