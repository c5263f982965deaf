package devfacade

import (
	"context"
	"sync"

	"github.com/wordpress-mobile/authflow/pkg/flow"
)

// StaticCredentialStore returns one fixed saved credential, or nothing.
type StaticCredentialStore struct {
	Credential *flow.StoredCredential
	// Domain limits the credential to lookups for that domain hint. Empty
	// matches every hint.
	Domain string
}

var _ flow.SecureCredentialStore = (*StaticCredentialStore)(nil)

func (s *StaticCredentialStore) Find(ctx context.Context, domainHint string) (*flow.StoredCredential, error) {
	if s.Credential == nil {
		return nil, nil
	}
	if s.Domain != "" && s.Domain != domainHint {
		return nil, nil
	}
	return s.Credential, nil
}

// MemoryLocalState tracks synced sessions and doubles as the sync
// collaborator: Sync records the session, making cancellation possible
// afterwards.
type MemoryLocalState struct {
	mu       sync.Mutex
	sessions []flow.Session

	// SyncErr, when set, is returned from Sync instead of recording.
	SyncErr error
}

var (
	_ flow.LocalState       = (*MemoryLocalState)(nil)
	_ flow.SyncCollaborator = (*MemoryLocalState)(nil)
)

func (m *MemoryLocalState) Sync(ctx context.Context, session flow.Session) error {
	if m.SyncErr != nil {
		return m.SyncErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *MemoryLocalState) HasExistingAccounts(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions) > 0
}

// Sessions returns a copy of the synced sessions.
func (m *MemoryLocalState) Sessions() []flow.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]flow.Session(nil), m.sessions...)
}
