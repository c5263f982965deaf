package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// Router assembles the demo server's routes: the public flow endpoints plus
// the JWT-protected identity endpoint.
func Router(h *Handle, auth *jwtauth.JWTAuth) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/flow", func(r chi.Router) {
		r.Get("/", h.GetFlow)
		r.Post("/identifier", h.PostIdentifier)
		r.Post("/site-address", h.PostSiteAddress)
		r.Post("/password", h.PostPassword)
		r.Post("/code", h.PostCode)
		r.Post("/one-time-code", h.PostOneTimeCode)
		r.Post("/magic-link", h.PostMagicLink)
		r.Post("/password-entry", h.PostPasswordEntry)
		r.Post("/resume", h.PostResume)
		r.Post("/social", h.PostSocial)
		r.Post("/retry-sync", h.PostRetrySync)
		r.Post("/cancel", h.PostCancel)
		r.Post("/restart", h.PostRestart)
		r.Post("/prefill", h.PostPrefill)
	})

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(auth))
		r.Use(jwtauth.Authenticator(auth))
		r.Get("/whoami", h.GetWhoami)
	})

	return r
}
