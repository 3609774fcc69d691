// Package prompt loads versioned extraction prompts from a directory.
// Layout: <dir>/versions.json lists versions and the active one; each
// version's content lives in <dir>/<id>_extract.txt.
package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pcax/internal/domain"
	"pcax/internal/port"
)

// versionsFile mirrors the on-disk versions.json shape.
type versionsFile struct {
	ActiveVersion string         `json:"active_version"`
	Versions      []versionEntry `json:"versions"`
}

type versionEntry struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Store is a filesystem-backed port.PromptStore.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a prompt store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) load() (*versionsFile, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "versions.json"))
	if err != nil {
		return nil, fmt.Errorf("reading prompt versions: %w", err)
	}
	var vf versionsFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("parsing prompt versions: %w", err)
	}
	return &vf, nil
}

func (s *Store) readContent(id string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+"_extract.txt"))
	if err != nil {
		return "", fmt.Errorf("reading prompt %s: %w", id, err)
	}
	return string(data), nil
}

// Active returns the currently active prompt version with content loaded.
func (s *Store) Active() (*port.PromptVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vf, err := s.load()
	if err != nil {
		return nil, err
	}
	id := vf.ActiveVersion
	if id == "" && len(vf.Versions) > 0 {
		id = vf.Versions[0].ID
	}
	if id == "" {
		return nil, domain.ErrPromptNotFound
	}
	return s.get(vf, id)
}

// Get returns a specific prompt version with content loaded.
func (s *Store) Get(versionID string) (*port.PromptVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vf, err := s.load()
	if err != nil {
		return nil, err
	}
	return s.get(vf, versionID)
}

func (s *Store) get(vf *versionsFile, id string) (*port.PromptVersion, error) {
	for _, v := range vf.Versions {
		if v.ID == id {
			content, err := s.readContent(id)
			if err != nil {
				return nil, err
			}
			return &port.PromptVersion{
				ID:      v.ID,
				Name:    v.Name,
				Active:  id == vf.ActiveVersion,
				Content: content,
			}, nil
		}
	}
	return nil, domain.ErrPromptNotFound
}

// List returns all known versions without content.
func (s *Store) List() ([]port.PromptVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vf, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]port.PromptVersion, 0, len(vf.Versions))
	for _, v := range vf.Versions {
		out = append(out, port.PromptVersion{
			ID:     v.ID,
			Name:   v.Name,
			Active: v.ID == vf.ActiveVersion,
		})
	}
	return out, nil
}

// SetActive marks versionID as active and rewrites versions.json.
func (s *Store) SetActive(versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vf, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for _, v := range vf.Versions {
		if v.ID == versionID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrPromptNotFound
	}
	vf.ActiveVersion = versionID

	data, err := json.MarshalIndent(vf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding prompt versions: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, "versions.json"), data, 0o644)
}
