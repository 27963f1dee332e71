package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var ErrNoCredentials = fmt.Errorf("username and password are required")

// Authentication is the persisted token set of the last session.
type Authentication struct {
	Token             string `json:"token"`
	SecondFactorToken string `json:"second_factor_token,omitempty"`
}

// Document is the on-disk credential file.
type Document struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TOTPSecret string `json:"totp_secret,omitempty"`
	GroupID    string `json:"group_id"`
	UserAgent  string `json:"user_agent,omitempty"`

	Authentication *Authentication `json:"authentication,omitempty"`
}

// Credentials returns the long-lived secrets held by the document.
func (d *Document) Credentials() (core.Credentials, error) {
	if d.Username == "" || d.Password == "" {
		return core.Credentials{}, ErrNoCredentials
	}
	return core.Credentials{
		Username:   d.Username,
		Password:   d.Password,
		TOTPSecret: d.TOTPSecret,
	}, nil
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".vrcban", "credentials.json"), nil
}

// Load reads the credential document at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening credential file '%s': %w", path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var doc Document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding credential file '%s': %w", path, err)
	}
	return &doc, nil
}

// Save atomically replaces the credential document at path.
// The document is written to a temporary file in the same directory which is then renamed over the old one.
func Save(path string, doc *Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating credential directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("creating temporary credential file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpPath)
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding credentials to '%s': %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing '%s': %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing '%s': %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("restricting permissions of '%s': %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing credential file '%s': %w", path, err)
	}
	return nil
}

var _ core.SessionStore = (*FileStore)(nil)

// FileStore keeps a credential document in memory and writes it back whenever the session changes.
type FileStore struct {
	path string

	mu  sync.Mutex
	doc *Document
}

// Open loads the document at path. A missing file yields an empty document
// so that credentials can be supplied through the environment instead.
func Open(path string) (*FileStore, error) {
	doc, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		doc = &Document{}
	}
	return &FileStore{path: path, doc: doc}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Document returns a copy of the current document.
func (s *FileStore) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := *s.doc
	if s.doc.Authentication != nil {
		auth := *s.doc.Authentication
		cpy.Authentication = &auth
	}
	return cpy
}

// Update applies fn to the document and persists the result.
func (s *FileStore) Update(fn func(doc *Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.doc)
	return Save(s.path, s.doc)
}

func (s *FileStore) LoadSession() (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.Authentication == nil {
		return core.Session{}, nil
	}
	return core.Session{
		AuthToken:         s.doc.Authentication.Token,
		SecondFactorToken: s.doc.Authentication.SecondFactorToken,
		UserAgent:         s.doc.UserAgent,
	}, nil
}

func (s *FileStore) SaveSession(sess core.Session) error {
	return s.Update(func(doc *Document) {
		if sess.IsZero() {
			doc.Authentication = nil
			return
		}
		doc.Authentication = &Authentication{
			Token:             sess.AuthToken,
			SecondFactorToken: sess.SecondFactorToken,
		}
		if sess.UserAgent != "" {
			doc.UserAgent = sess.UserAgent
		}
	})
}
