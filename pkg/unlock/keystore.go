package unlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// keystore holds the symmetric keys recovered during one unlock session.
// Keys are persisted in a private directory so a crashed session leaves
// them recoverable; the directory is removed when the session ends.
type keystore struct {
	dir  string
	keys []sessionKey
	next int
}

type sessionKey struct {
	file string
	key  []byte
}

func openKeystore(root string) (*keystore, error) {
	dir := filepath.Join(root, "session-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session keystore: %w", err)
	}
	return &keystore{dir: dir}, nil
}

func (ks *keystore) put(key []byte) error {
	ks.next++
	file := filepath.Join(ks.dir, strconv.Itoa(ks.next)+".key")
	if err := os.WriteFile(file, key, 0o600); err != nil {
		return fmt.Errorf("store session key: %w", err)
	}
	ks.keys = append(ks.keys, sessionKey{file: file, key: key})
	return nil
}

// retire drops the i-th key once it has opened its file.
func (ks *keystore) retire(i int) error {
	k := ks.keys[i]
	ks.keys = append(ks.keys[:i], ks.keys[i+1:]...)
	if err := os.Remove(k.file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("retire session key: %w", err)
	}
	return nil
}

func (ks *keystore) close() error {
	ks.keys = nil
	if err := os.RemoveAll(ks.dir); err != nil {
		return fmt.Errorf("remove session keystore: %w", err)
	}
	return nil
}
