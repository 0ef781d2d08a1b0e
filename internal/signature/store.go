// Package signature stores one enrolled reference signature per
// protected identity and verifies submitted samples against it. The
// "signature" is a deterministic digest of whatever sample the caller
// provides (voiceprint bytes in the original system); this store does
// no signal processing.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// validOwner matches alphanumeric, dash, underscore, and dot characters only.
var validOwner = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateOwner rejects owner IDs that could cause path traversal.
func validateOwner(id string) error {
	if id == "" {
		return fmt.Errorf("owner id must not be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("owner id must not contain '..'")
	}
	if !validOwner.MatchString(id) {
		return fmt.Errorf("owner id contains invalid characters")
	}
	return nil
}

// enrollment is the on-disk record for one owner.
type enrollment struct {
	OwnerID    string    `json:"owner_id"`
	Digest     string    `json:"digest"` // sha256:<hex>
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Store manages enrollment files on disk, one JSON file per owner.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store backed by the given directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create signature directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the default signature store directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "commandgate-signatures")
	}
	return filepath.Join(home, ".commandgate", "signatures")
}

// Enroll digests the sample and stores it for ownerID, replacing any
// prior enrollment. There is never more than one digest per owner.
// Callers must gate this behind an AdminOverride-or-higher verdict.
func (s *Store) Enroll(ownerID string, sample []byte) error {
	if err := validateOwner(ownerID); err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	if len(sample) == 0 {
		return fmt.Errorf("signature sample must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := enrollment{
		OwnerID:    ownerID,
		Digest:     digest(sample),
		EnrolledAt: time.Now().UTC(),
	}
	return s.writeAtomic(s.path(ownerID), e)
}

// Verify digests the sample and compares it against the enrolled digest
// for ownerID. No enrollment, invalid owner, or empty sample all return
// false. The comparison is constant-time.
func (s *Store) Verify(ownerID string, sample []byte) bool {
	if validateOwner(ownerID) != nil || len(sample) == 0 {
		return false
	}

	s.mu.Lock()
	e, err := s.read(ownerID)
	s.mu.Unlock()
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(e.Digest), []byte(digest(sample))) == 1
}

// Enrolled reports whether ownerID has a stored digest.
func (s *Store) Enrolled(ownerID string) bool {
	if validateOwner(ownerID) != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.read(ownerID)
	return err == nil
}

func digest(sample []byte) string {
	h := sha256.Sum256(sample)
	return "sha256:" + hex.EncodeToString(h[:])
}

func (s *Store) path(ownerID string) string {
	return filepath.Join(s.dir, ownerID+".json")
}

func (s *Store) read(ownerID string) (*enrollment, error) {
	data, err := os.ReadFile(s.path(ownerID))
	if err != nil {
		return nil, err
	}
	var e enrollment
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) writeAtomic(path string, e enrollment) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
