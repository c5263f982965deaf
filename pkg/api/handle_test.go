package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordpress-mobile/authflow/pkg/credentials"
	"github.com/wordpress-mobile/authflow/pkg/devfacade"
	"github.com/wordpress-mobile/authflow/pkg/flow"
	"github.com/wordpress-mobile/authflow/pkg/magiclink"
	"github.com/wordpress-mobile/authflow/pkg/notification"
)

const testSecret = "test-secret"

func setupServer(t *testing.T) (http.Handler, *devfacade.Directory) {
	t.Helper()

	directory := devfacade.NewDirectory()
	facade := devfacade.NewFacade(directory, devfacade.NewSessionIssuer(testSecret),
		notification.NewManager(&notification.MockNotifier{}))
	localState := &devfacade.MemoryLocalState{}
	magicLinks := magiclink.NewService(magiclink.NewInMemRepository(), facade)

	f := flow.New(flow.DefaultConfig(), flow.Dependencies{
		Auth:         facade,
		Discovery:    devfacade.NewSiteDirectory(),
		Availability: facade,
		Sync:         localState,
		MagicLinks:   magicLinks,
		LocalState:   localState,
	}, credentials.PurposeLogin)

	auth := jwtauth.New("HS256", []byte(testSecret), nil)
	return Router(NewHandle(f), auth), directory
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeFlow(t *testing.T, rec *httptest.ResponseRecorder) FlowResponse {
	t.Helper()
	var resp FlowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRouter_LoginJourney(t *testing.T) {
	handler, directory := setupServer(t)
	_, err := directory.Add(devfacade.AccountSpec{Email: "alice@example.com", Username: "alice", Password: "secret"})
	require.NoError(t, err)

	rec := postJSON(t, handler, "/flow/identifier", IdentifierRequest{Identifier: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeFlow(t, rec)
	assert.Equal(t, string(flow.StateWPComPasswordEntry), state.State)

	rec = postJSON(t, handler, "/flow/password", PasswordRequest{Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	state = decodeFlow(t, rec)
	assert.Equal(t, string(flow.StateCompleted), state.State)
	require.NotEmpty(t, state.SessionToken)

	// The issued session token opens the protected endpoint.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+state.SessionToken)
	whoami := httptest.NewRecorder()
	handler.ServeHTTP(whoami, req)
	require.Equal(t, http.StatusOK, whoami.Code)

	var identity WhoamiResponse
	require.NoError(t, json.Unmarshal(whoami.Body.Bytes(), &identity))
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "alice", identity.Username)
}

func TestRouter_WrongPasswordSurfacesError(t *testing.T) {
	handler, directory := setupServer(t)
	_, err := directory.Add(devfacade.AccountSpec{Email: "alice@example.com", Username: "alice", Password: "secret"})
	require.NoError(t, err)

	postJSON(t, handler, "/flow/identifier", IdentifierRequest{Identifier: "alice"})
	rec := postJSON(t, handler, "/flow/password", PasswordRequest{Password: "wrong"})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeFlow(t, rec)
	assert.Equal(t, string(flow.StateWPComPasswordEntry), state.State)
	require.NotNil(t, state.Error)
	assert.Equal(t, "credential_rejected", state.Error.Kind)
	assert.NotEmpty(t, state.Error.Message)
}

func TestRouter_GetFlow(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/flow", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeFlow(t, rec)
	assert.Equal(t, string(flow.StateIdle), state.State)
	assert.False(t, state.Busy)
}

func TestRouter_MalformedBody(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/flow/identifier", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UnknownSocialService(t *testing.T) {
	handler, _ := setupServer(t)

	rec := postJSON(t, handler, "/flow/social", SocialTokenRequest{Token: "t", Service: "myspace"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CancelRejectedWithoutLocalAccounts(t *testing.T) {
	handler, _ := setupServer(t)

	rec := postJSON(t, handler, "/flow/cancel", struct{}{})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_WhoamiRequiresToken(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
