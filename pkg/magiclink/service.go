package magiclink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wordpress-mobile/authflow/pkg/credentials"
)

// LinkRequester is the slice of the authentication facade the magic-link
// service needs: asking the server to email a login link.
type LinkRequester interface {
	RequestAuthenticationLink(ctx context.Context, email string, purpose credentials.Purpose) error
}

// RequestParams describes a magic-link request.
type RequestParams struct {
	Email             string
	Purpose           credentials.Purpose
	RelatedAccountRef string
}

// Resumption is the outcome of redeeming a deep-link token.
type Resumption struct {
	Token             string
	Email             string
	Purpose           credentials.Purpose
	RelatedAccountRef string

	// Degraded marks that no continuation record was found for the token,
	// so the caller must ask the user to re-enter their email before the
	// token can be used.
	Degraded bool
}

// Service requests magic links and resumes flows from their deep links.
type Service struct {
	repository Repository
	requester  LinkRequester
	now        func() time.Time
}

// NewService creates a magic-link service.
func NewService(repository Repository, requester LinkRequester) *Service {
	return &Service{
		repository: repository,
		requester:  requester,
		now:        time.Now,
	}
}

// Request asks the facade to email a link and, only on success, persists the
// continuation record. Issuing a new request while a previous continuation
// is unconsumed silently overwrites it.
func (s *Service) Request(ctx context.Context, params RequestParams) error {
	if err := s.requester.RequestAuthenticationLink(ctx, params.Email, params.Purpose); err != nil {
		return fmt.Errorf("failed to request authentication link: %w", err)
	}

	continuation := Continuation{
		RequestedEmail:    params.Email,
		Purpose:           params.Purpose,
		RelatedAccountRef: params.RelatedAccountRef,
		RequestedAt:       s.now().UTC(),
	}
	if err := s.repository.Put(ctx, continuation); err != nil {
		// The link is already on its way; resuming will go through the
		// degraded re-enter-email path instead.
		slog.Error("Failed to persist magic link continuation", "err", err)
		return fmt.Errorf("failed to persist continuation: %w", err)
	}

	slog.Info("Magic link requested", "purpose", params.Purpose)
	return nil
}

// Resume consumes the continuation record for an externally delivered
// deep-link token. The record is deleted exactly once; resuming again with
// no record present yields a Degraded resumption, not an error.
func (s *Service) Resume(ctx context.Context, token string) (Resumption, error) {
	continuation, err := s.repository.Take(ctx)
	if err != nil {
		return Resumption{}, fmt.Errorf("failed to read continuation: %w", err)
	}

	if continuation == nil {
		slog.Info("No magic link continuation found, falling back to email re-entry")
		return Resumption{Token: token, Purpose: credentials.PurposeLogin, Degraded: true}, nil
	}

	return Resumption{
		Token:             token,
		Email:             continuation.RequestedEmail,
		Purpose:           continuation.Purpose,
		RelatedAccountRef: continuation.RelatedAccountRef,
	}, nil
}
