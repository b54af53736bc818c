package lock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/cryptogot/pkg/keys"
)

// Manifest is the append-only list of recipient fingerprints the pool has
// already been wrapped for. One fingerprint per line.
type Manifest struct {
	path string
}

// NewManifest returns the manifest stored at path.
func NewManifest(path string) *Manifest {
	return &Manifest{path: path}
}

// Known returns the set of recorded fingerprints.
func (m *Manifest) Known() (map[string]bool, error) {
	f, err := os.Open(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("read recipients: %w", err)
	}
	defer f.Close()

	known := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		known[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recipients: %w", err)
	}
	return known, nil
}

// Unknown returns the recipients not yet recorded, in input order, with
// duplicates removed.
func (m *Manifest) Unknown(recipients []keys.Recipient) ([]keys.Recipient, error) {
	known, err := m.Known()
	if err != nil {
		return nil, err
	}
	var out []keys.Recipient
	for _, rc := range recipients {
		if known[rc.Fingerprint] {
			continue
		}
		known[rc.Fingerprint] = true
		out = append(out, rc)
	}
	return out, nil
}

// Add records recipients as wrapped for.
func (m *Manifest) Add(recipients []keys.Recipient) error {
	if len(recipients) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("recipients mkdir: %w", err)
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("recipients open: %w", err)
	}
	defer f.Close()
	for _, rc := range recipients {
		if _, err := fmt.Fprintln(f, rc.Fingerprint); err != nil {
			return fmt.Errorf("recipients write: %w", err)
		}
	}
	return nil
}
