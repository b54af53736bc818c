// Package ledger tracks numbered snapshot versions. Version n maps to the
// commit hash that was HEAD when it was recorded, plus the symmetric key
// that sealed that HEAD value into the pool.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/odvcencio/cryptogot/pkg/object"
)

// KeySuffix marks a version key file: versions/{n}.key.
const KeySuffix = ".key"

// ErrNoVersion is returned when a requested version is not recorded.
var ErrNoVersion = fmt.Errorf("version not recorded: %w", os.ErrNotExist)

// Ledger is the versions/ directory.
type Ledger struct {
	dir string
}

// Entry is one recorded version.
type Entry struct {
	Version int
	Commit  object.Hash
	HasKey  bool
}

// New returns a Ledger over dir. The directory is created on first write.
func New(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Dir returns the ledger directory.
func (l *Ledger) Dir() string { return l.dir }

func (l *Ledger) pointerPath(n int) string {
	return filepath.Join(l.dir, strconv.Itoa(n))
}

func (l *Ledger) keyPath(n int) string {
	return l.pointerPath(n) + KeySuffix
}

// Versions returns every recorded version number in ascending order.
func (l *Ledger) Versions() ([]int, error) {
	return l.scan("")
}

// KeyedVersions returns, ascending, every version with a retained key.
func (l *Ledger) KeyedVersions() ([]int, error) {
	return l.scan(KeySuffix)
}

func (l *Ledger) scan(suffix string) ([]int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read versions: %w", err)
	}
	var out []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if suffix != "" {
			var ok bool
			if name, ok = strings.CutSuffix(name, suffix); !ok {
				continue
			}
		}
		n, ok := ParseVersion(name)
		if !ok {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// Latest returns the highest recorded version. ok is false when nothing
// has been recorded yet.
func (l *Ledger) Latest() (n int, ok bool, err error) {
	vs, err := l.Versions()
	if err != nil || len(vs) == 0 {
		return 0, false, err
	}
	return vs[len(vs)-1], true, nil
}

// Next returns one more than the highest recorded version, or 1.
func (l *Ledger) Next() (int, error) {
	n, ok, err := l.Latest()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return n + 1, nil
}

// Append records commit under the next version number and returns it.
func (l *Ledger) Append(commit object.Hash) (int, error) {
	n, err := l.Next()
	if err != nil {
		return 0, err
	}
	if err := l.Record(n, commit); err != nil {
		return 0, err
	}
	return n, nil
}

// Record writes version n, replacing any previous value.
func (l *Ledger) Record(n int, commit object.Hash) error {
	if n < 1 {
		return fmt.Errorf("record version %d: version numbers start at 1", n)
	}
	if !object.IsHash(string(commit)) {
		return fmt.Errorf("record version %d: %w: %q", n, object.ErrInvalidHash, commit)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("versions mkdir: %w", err)
	}
	if err := os.WriteFile(l.pointerPath(n), []byte(string(commit)+"\n"), 0o644); err != nil {
		return fmt.Errorf("record version %d: %w", n, err)
	}
	return nil
}

// Read returns the commit recorded for version n.
func (l *Ledger) Read(n int) (object.Hash, error) {
	data, err := os.ReadFile(l.pointerPath(n))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read version %d: %w", n, ErrNoVersion)
		}
		return "", fmt.Errorf("read version %d: %w", n, err)
	}
	h, err := object.ParseHash(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("read version %d: %w", n, err)
	}
	return h, nil
}

// SaveKey retains the symmetric key that sealed version n's HEAD value.
func (l *Ledger) SaveKey(n int, key []byte) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("versions mkdir: %w", err)
	}
	if err := os.WriteFile(l.keyPath(n), key, 0o600); err != nil {
		return fmt.Errorf("save version key %d: %w", n, err)
	}
	return nil
}

// ReadKey returns the retained key of version n.
func (l *Ledger) ReadKey(n int) ([]byte, error) {
	key, err := os.ReadFile(l.keyPath(n))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read version key %d: %w", n, ErrNoVersion)
		}
		return nil, fmt.Errorf("read version key %d: %w", n, err)
	}
	return key, nil
}

// Entries lists every recorded version, newest first.
func (l *Ledger) Entries() ([]Entry, error) {
	vs, err := l.Versions()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		h, err := l.Read(vs[i])
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(l.keyPath(vs[i]))
		out = append(out, Entry{Version: vs[i], Commit: h, HasKey: statErr == nil})
	}
	return out, nil
}

// ParseVersion parses a purely numeric version name.
func ParseVersion(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
