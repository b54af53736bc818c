package repo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/odvcencio/cryptogot/pkg/object"
)

// IndexEntry is one staged file: the blob hash and the repository-relative
// slash path it was read from.
type IndexEntry struct {
	Hash object.Hash
	Path string
}

// Index is the ordered staging list. Later entries for the same path
// supersede earlier ones.
type Index struct {
	Entries []IndexEntry
}

// ReadIndex loads .cryptogot/index. Each line is "<hash> <path>". A missing
// file is an empty index.
func (r *Repo) ReadIndex() (*Index, error) {
	f, err := os.Open(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Index{}, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	defer f.Close()

	ix := &Index{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		hash, p, ok := strings.Cut(line, " ")
		if !ok || !object.IsHash(hash) || p == "" {
			return nil, fmt.Errorf("read index: malformed line %d: %q", lineNo, line)
		}
		ix.Entries = append(ix.Entries, IndexEntry{Hash: object.Hash(hash), Path: cleanRelPath(p)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return ix, nil
}

// appendIndex adds entries to the end of the index file.
func (r *Repo) appendIndex(entries []IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s\n", e.Hash, e.Path)
	}
	f, err := os.OpenFile(r.indexPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("index open: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("index write: %w", err)
	}
	return nil
}

// truncateIndex empties the index after a commit.
func (r *Repo) truncateIndex() error {
	if err := os.WriteFile(r.indexPath(), nil, 0o644); err != nil {
		return fmt.Errorf("index truncate: %w", err)
	}
	return nil
}

// Take removes every entry for p and returns the one staged last.
func (ix *Index) Take(p string) (IndexEntry, bool) {
	p = cleanRelPath(p)
	var found IndexEntry
	ok := false
	kept := ix.Entries[:0]
	for _, e := range ix.Entries {
		if e.Path == p {
			found, ok = e, true
			continue
		}
		kept = append(kept, e)
	}
	ix.Entries = kept
	return found, ok
}

// rehydrate puts the files of a previous snapshot in front of the staged
// entries, so anything staged since takes precedence.
func (ix *Index) rehydrate(files []TreeFileEntry) {
	merged := make([]IndexEntry, 0, len(files)+len(ix.Entries))
	for _, f := range files {
		merged = append(merged, IndexEntry{Hash: f.Hash, Path: cleanRelPath(f.Path)})
	}
	ix.Entries = append(merged, ix.Entries...)
}

// cleanRelPath normalizes a repository-relative path to slash form without
// a leading separator.
func cleanRelPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
