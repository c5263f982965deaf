package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/wordpress-mobile/authflow/pkg/credentials"
	"github.com/wordpress-mobile/authflow/pkg/flow"
)

// Handle exposes one flow instance over HTTP. It observes the flow and
// serves the latest transition as the response to every operation, so
// clients always get the state the operation ended in.
type Handle struct {
	flow *flow.Flow

	mu   sync.Mutex
	last flow.Transition
}

func NewHandle(f *flow.Flow) *Handle {
	h := &Handle{
		flow: f,
		last: flow.Transition{State: f.State()},
	}
	f.AddObserver(flow.ObserverFunc(h.onTransition))
	return h
}

func (h *Handle) onTransition(t flow.Transition) {
	h.mu.Lock()
	h.last = t
	h.mu.Unlock()
}

func (h *Handle) snapshot(r *http.Request) FlowResponse {
	h.mu.Lock()
	last := h.last
	h.mu.Unlock()

	token := ""
	if session := h.flow.Session(); session != nil {
		token = session.Token
	}
	return flowResponse(last, h.flow.IsCancellable(r.Context()), h.flow.EndpointURL(), token)
}

// respond writes the current flow snapshot. Flow operations surface their
// failures through transitions, so an operation error never changes the
// status code; only malformed requests do.
func (h *Handle) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.Debug("Flow operation rejected", "state", h.flow.State(), "err", err)
	}
	render.JSON(w, r, h.snapshot(r))
}

func (h *Handle) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"code": "invalid_request", "message": message})
}

// Get current flow state
// (GET /flow)
func (h *Handle) GetFlow(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.snapshot(r))
}

// Submit the email or username
// (POST /flow/identifier)
func (h *Handle) PostIdentifier(w http.ResponseWriter, r *http.Request) {
	var data IdentifierRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		h.badRequest(w, r, "unable to parse body")
		return
	}
	h.respond(w, r, h.flow.SubmitIdentifier(r.Context(), data.Identifier))
}

// Submit the self-hosted site address
// (POST /flow/site-address)
func (h *Handle) PostSiteAddress(w http.ResponseWriter, r *http.Request) {
	var data SiteAddressRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		h.badRequest(w, r, "unable to parse body")
		return
	}
	h.respond(w, r, h.flow.SubmitSiteAddress(r.Context(), data.SiteAddress))
}

// Submit the password
// (POST /flow/password)
func (h *Handle) PostPassword(w http.ResponseWriter, r *http.Request) {
	var data PasswordRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		h.badRequest(w, r, "unable to parse body")
		return
	}
	h.respond(w, r, h.flow.SubmitPassword(r.Context(), data.Password))
}

// Submit a second-factor code
// (POST /flow/code)
func (h *Handle) PostCode(w http.ResponseWriter, r *http.Request) {
	var data CodeRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		h.badRequest(w, r, "unable to parse body")
		return
	}
	h.respond(w, r, h.flow.SubmitCode(r.Context(), data.Code))
}

// Ask for a fresh one-time code over SMS
// (POST /flow/one-time-code)
func (h *Handle) PostOneTimeCode(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.flow.RequestOneTimeCode(r.Context()))
}

// Ask for a magic link email
// (POST /flow/magic-link)
func (h *Handle) PostMagicLink(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.flow.RequestMagicLink(r.Context()))
}

// Switch from the magic-link offer to password entry
// (POST /flow/password-entry)
func (h *Handle) PostPasswordEntry(w http.ResponseWriter, r *http.Request) {
	h.flow.ChoosePasswordEntry()
	h.respond(w, r, nil)
}

// Resume from a magic-link deep link
// (POST /flow/resume)
func (h *Handle) PostResume(w http.ResponseWriter, r *http.Request) {
	var data ResumeRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		h.badRequest(w, r, "unable to parse body")
		return
	}
	h.respond(w, r, h.flow.ResumeFromDeepLink(r.Context(), data.Token))
}

// Submit a third-party identity token
// (POST /flow/social)
func (h *Handle) PostSocial(w http.ResponseWriter, r *http.Request) {
	var data SocialTokenRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		h.badRequest(w, r, "unable to parse body")
		return
	}
	service := credentials.SocialService(data.Service)
	switch service {
	case credentials.SocialServiceGoogle, credentials.SocialServiceApple:
	default:
		h.badRequest(w, r, "unknown social service")
		return
	}
	h.respond(w, r, h.flow.SubmitSocialToken(r.Context(), data.Token, data.Email, service))
}

// Retry a failed account sync
// (POST /flow/retry-sync)
func (h *Handle) PostRetrySync(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.flow.RetrySync(r.Context()))
}

// Cancel the flow
// (POST /flow/cancel)
func (h *Handle) PostCancel(w http.ResponseWriter, r *http.Request) {
	if !h.flow.Cancel(r.Context()) {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]string{"code": "not_cancellable", "message": "no existing account to fall back to"})
		return
	}
	h.respond(w, r, nil)
}

// Restart the flow from scratch
// (POST /flow/restart)
func (h *Handle) PostRestart(w http.ResponseWriter, r *http.Request) {
	var data RestartRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		h.badRequest(w, r, "unable to parse body")
		return
	}
	purpose := credentials.PurposeLogin
	if data.Purpose == string(credentials.PurposeSignup) {
		purpose = credentials.PurposeSignup
	}
	h.flow.Restart(purpose)
	h.respond(w, r, nil)
}

// Prefill saved credentials from the OS store
// (POST /flow/prefill)
func (h *Handle) PostPrefill(w http.ResponseWriter, r *http.Request) {
	found, err := h.flow.PrefillStoredCredentials(r.Context())
	if err != nil {
		slog.Debug("Credential prefill failed", "err", err)
	}
	resp := h.snapshot(r)
	render.JSON(w, r, map[string]any{"found": found, "flow": resp})
}

// Return the authenticated identity from the session token
// (GET /whoami)
func (h *Handle) GetWhoami(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"code": "unauthorized", "message": "missing or invalid session token"})
		return
	}
	resp := WhoamiResponse{}
	if sub, ok := claims["sub"].(string); ok {
		resp.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		resp.Email = email
	}
	if username, ok := claims["username"].(string); ok {
		resp.Username = username
	}
	render.JSON(w, r, resp)
}
