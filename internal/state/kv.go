// internal/state/kv.go
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// KV is a file-backed string-keyed blob store: one JSON file per key under
// <root>/storage/. Last writer wins; there is no cross-process locking.
type KV struct {
	root string
	mu   sync.RWMutex
}

// NewKV creates a KV store rooted at the given data directory.
func NewKV(root string) *KV {
	return &KV{root: root}
}

func (s *KV) dir() string {
	return filepath.Join(s.root, "storage")
}

func (s *KV) path(key string) string {
	return filepath.Join(s.dir(), sanitizeKey(key)+".json")
}

// sanitizeKey maps a storage key to a safe file name. Keys embed user and
// session ids which may carry separators (e.g. "telegram:42"), so unsafe
// bytes are hex-escaped rather than collapsed: distinct keys must never
// share a file.
func sanitizeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}

// Get returns the blob stored under key. A missing key is not an error.
func (s *KV) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Put writes the blob under key atomically (temp file then rename).
func (s *KV) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Delete removes the blob under key. Deleting a missing key is a no-op.
func (s *KV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
