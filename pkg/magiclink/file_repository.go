package magiclink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const continuationFileName = "magiclink_continuation.json"

// FileRepository implements Repository using file-based storage, so the
// continuation survives full process termination. This is the repository a
// real client should use.
type FileRepository struct {
	dataDir string
	mutex   sync.Mutex
}

// NewFileRepository creates a file-backed continuation repository rooted at
// dataDir, creating the directory if needed.
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileRepository{dataDir: dataDir}, nil
}

func (r *FileRepository) filePath() string {
	return filepath.Join(r.dataDir, continuationFileName)
}

// Put persists the continuation, overwriting any previous record.
func (r *FileRepository) Put(ctx context.Context, continuation Continuation) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	data, err := json.MarshalIndent(continuation, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal continuation: %w", err)
	}
	if err := os.WriteFile(r.filePath(), data, 0600); err != nil {
		return fmt.Errorf("failed to save continuation: %w", err)
	}
	return nil
}

// Take reads and deletes the continuation. A missing record is not an error.
func (r *FileRepository) Take(ctx context.Context) (*Continuation, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	continuation, err := r.read()
	if err != nil || continuation == nil {
		return nil, err
	}
	if err := os.Remove(r.filePath()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to delete continuation: %w", err)
	}
	return continuation, nil
}

// Peek reads the continuation without consuming it.
func (r *FileRepository) Peek(ctx context.Context) (*Continuation, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.read()
}

func (r *FileRepository) read() (*Continuation, error) {
	data, err := os.ReadFile(r.filePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read continuation: %w", err)
	}

	var continuation Continuation
	if err := json.Unmarshal(data, &continuation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal continuation: %w", err)
	}
	return &continuation, nil
}
