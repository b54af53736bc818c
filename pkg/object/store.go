package object

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a requested object is absent from the store.
// It wraps os.ErrNotExist.
var ErrNotFound = fmt.Errorf("object not found: %w", os.ErrNotExist)

// KeySuffix marks the sidecar file holding an object's symmetric key.
const KeySuffix = ".key"

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Objects are stored as their raw bytes. An object may carry a key sidecar,
// objects/ab/cdef0123....key, once it has been encrypted into the pool.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir returns the objects directory.
func (s *Store) Dir() string {
	return filepath.Join(s.root, "objects")
}

// Path returns the filesystem path for a given hash.
func (s *Store) Path(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// KeyPath returns the path of the key sidecar for h.
func (s *Store) KeyPath(h Hash) string {
	return s.Path(h) + KeySuffix
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if !IsHash(string(h)) {
		return false
	}
	_, err := os.Stat(s.Path(h))
	return err == nil
}

// Write stores data and returns its content hash.
func (s *Store) Write(data []byte) (Hash, error) {
	h := HashBytes(data)
	if err := s.WriteIfAbsent(h, data); err != nil {
		return "", err
	}
	return h, nil
}

// WriteIfAbsent stores data under h unless an object with that hash already
// exists. The caller is responsible for h matching data.
func (s *Store) WriteIfAbsent(h Hash, data []byte) error {
	if !IsHash(string(h)) {
		return fmt.Errorf("object write: %w: %q", ErrInvalidHash, h)
	}
	// Fast path: already exists.
	if s.Has(h) {
		return nil
	}
	if err := writeFileAtomic(s.Path(h), data, 0o644); err != nil {
		return fmt.Errorf("object write %s: %w", h, err)
	}
	return nil
}

// Read retrieves the raw content of an object.
func (s *Store) Read(h Hash) ([]byte, error) {
	if !IsHash(string(h)) {
		return nil, fmt.Errorf("object read: %w: %q", ErrInvalidHash, h)
	}
	data, err := os.ReadFile(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(t *TreeObj) (Hash, error) {
	return s.Write(MarshalTree(t))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	t, err := UnmarshalTree(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return t, nil
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Key sidecars
// ---------------------------------------------------------------------------

// HasKey reports whether h already has a key sidecar, i.e. it has been
// encrypted into the pool.
func (s *Store) HasKey(h Hash) bool {
	if !IsHash(string(h)) {
		return false
	}
	_, err := os.Stat(s.KeyPath(h))
	return err == nil
}

// WriteKey stores the symmetric key used to encrypt h.
func (s *Store) WriteKey(h Hash, key []byte) error {
	if !IsHash(string(h)) {
		return fmt.Errorf("object key write: %w: %q", ErrInvalidHash, h)
	}
	if err := writeFileAtomic(s.KeyPath(h), key, 0o600); err != nil {
		return fmt.Errorf("object key write %s: %w", h, err)
	}
	return nil
}

// ReadKey returns the symmetric key sidecar of h.
func (s *Store) ReadKey(h Hash) ([]byte, error) {
	if !IsHash(string(h)) {
		return nil, fmt.Errorf("object key read: %w: %q", ErrInvalidHash, h)
	}
	key, err := os.ReadFile(s.KeyPath(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object key read %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("object key read %s: %w", h, err)
	}
	return key, nil
}

// KeyedObjects returns, in hash order, every object that has a key sidecar.
func (s *Store) KeyedObjects() ([]Hash, error) {
	var out []Hash
	err := filepath.WalkDir(s.Dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.Dir() {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), KeySuffix) {
			return nil
		}
		shard := filepath.Base(filepath.Dir(path))
		h := shard + strings.TrimSuffix(d.Name(), KeySuffix)
		if IsHash(h) {
			out = append(out, Hash(h))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("object list keys: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// writeFileAtomic writes data to path via a temp file in the same directory
// followed by a rename.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
