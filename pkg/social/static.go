package social

import (
	"context"
	"sync"

	"github.com/wordpress-mobile/authflow/pkg/flow"
)

// StaticProvider is the provider used in tests: it records Disconnect calls
// and never talks to a network.
type StaticProvider struct {
	mu          sync.Mutex
	disconnects int

	// DisconnectErr, when set, is returned from Disconnect.
	DisconnectErr error
}

var _ flow.SocialIdentityProvider = (*StaticProvider)(nil)

func (s *StaticProvider) Disconnect(ctx context.Context) error {
	if s.DisconnectErr != nil {
		return s.DisconnectErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	return nil
}

// Disconnects returns how many times Disconnect succeeded.
func (s *StaticProvider) Disconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}
