// Package identity persists the reviewer's {name, phone} pair and notices
// when it is cleared or replaced behind the running chat.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"kabiseo/internal/session"
)

// FileName is the identity file inside the config directory.
const FileName = "identity.yaml"

var (
	// ErrNoIdentity means nobody is logged in.
	ErrNoIdentity = errors.New("identity: not logged in")

	// ErrInvalidIdentity wraps every validation failure.
	ErrInvalidIdentity = errors.New("identity: invalid")
)

// Normalize trims both fields and strips spaces and dashes from the phone.
func Normalize(name, phone string) session.Identity {
	phone = strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
	return session.Identity{Name: strings.TrimSpace(name), Phone: phone}
}

// Validate requires a name and an all-digit phone.
func Validate(id session.Identity) error {
	if strings.TrimSpace(id.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidIdentity)
	}
	if id.Phone == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidIdentity)
	}
	for _, r := range id.Phone {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: phone must contain digits only", ErrInvalidIdentity)
		}
	}
	return nil
}

// Store reads and writes the identity file.
type Store struct {
	Path string
}

// NewStore returns a store for dir/identity.yaml.
func NewStore(dir string) *Store {
	return &Store{Path: filepath.Join(dir, FileName)}
}

// Load returns the saved identity, or ErrNoIdentity when there is none.
func (s *Store) Load() (session.Identity, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return session.Identity{}, ErrNoIdentity
		}
		return session.Identity{}, fmt.Errorf("failed to read identity: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (session.Identity, error) {
	var id session.Identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return session.Identity{}, fmt.Errorf("failed to parse identity: %w", err)
	}
	id = Normalize(id.Name, id.Phone)
	if id.Empty() {
		return session.Identity{}, ErrNoIdentity
	}
	if err := Validate(id); err != nil {
		return session.Identity{}, err
	}
	return id, nil
}

// Save validates and writes id with owner-only permissions. The write goes
// through a temp file so a watcher never observes a half-written identity.
func (s *Store) Save(id session.Identity) error {
	id = Normalize(id.Name, id.Phone)
	if err := Validate(id); err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}
	data, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write identity: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	return nil
}

// Clear logs out. Clearing an absent identity is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return nil
}
