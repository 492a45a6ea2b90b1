// Package credentials keeps the orgctl session on the local filesystem.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"gopkg.in/yaml.v3"
)

const (
	fileVersion = 1
	fileName    = "session.yaml"
)

// sessionFile is the on-disk layout.
type sessionFile struct {
	Version int             `yaml:"version"`
	URL     string          `yaml:"url"`
	Session *models.Session `yaml:"session"`
}

// SessionFile stores one session in a YAML file readable only by its owner.
// A session saved for a different project URL is ignored.
type SessionFile struct {
	path string
	url  string

	mu sync.Mutex
}

var _ store.SessionStorage = (*SessionFile)(nil)

// NewSessionFile creates the storage for the project at projectURL.
// If dir is empty, uses ~/.organizehub/
func NewSessionFile(dir, projectURL string) (*SessionFile, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".organizehub")
	}

	return &SessionFile{path: filepath.Join(dir, fileName), url: projectURL}, nil
}

// Path returns the location of the session file.
func (f *SessionFile) Path() string {
	return f.path
}

func (f *SessionFile) Load(ctx context.Context) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sf sessionFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", f.path, err)
	}

	if sf.URL != f.url {
		log.Debug().Str("path", f.path).Str("url", sf.URL).Msg("session belongs to another project, ignoring")
		return nil, nil
	}

	return sf.Session, nil
}

func (f *SessionFile) Save(ctx context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(sessionFile{Version: fileVersion, URL: f.url, Session: session})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to temp file first
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	log.Debug().Str("path", f.path).Msg("session saved")
	return nil
}

func (f *SessionFile) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
