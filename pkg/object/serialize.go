package object

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj as one line per entry:
//
//	blob <name> <hash>
//	tree <name> <hash>
//
// Entries are emitted in name order so the hash of a directory does not
// depend on the order the file system listed it in.
func MarshalTree(t *TreeObj) []byte {
	entries := make([]TreeEntry, len(t.Entries))
	copy(entries, t.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s %s\n", e.Kind, e.Name, e.Hash)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj. Entry names may contain spaces; the kind
// is the first field and the hash the last.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	t := &TreeObj{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		kind, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal tree: malformed line %q", line)
		}
		sp := strings.LastIndexByte(rest, ' ')
		if sp <= 0 {
			return nil, fmt.Errorf("unmarshal tree: malformed line %q", line)
		}
		name, hash := rest[:sp], rest[sp+1:]
		if !IsHash(hash) {
			return nil, fmt.Errorf("unmarshal tree: bad hash in line %q", line)
		}
		switch Kind(kind) {
		case KindBlob, KindTree:
		default:
			return nil, fmt.Errorf("unmarshal tree: unknown entry kind %q", kind)
		}
		t.Entries = append(t.Entries, TreeEntry{Kind: Kind(kind), Name: name, Hash: Hash(hash)})
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree <hash>
//	parent <hash>      (omitted for the first commit)
//	author <name>
//	date <RFC 3339>
//	message <text>
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	if c.Parent != "" {
		fmt.Fprintf(&buf, "parent %s\n", c.Parent)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "date %s\n", c.Date.Format(time.RFC3339))
	fmt.Fprintf(&buf, "message %s\n", c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj. Everything after "message " up to the
// final newline is the message, so multi-line messages round-trip.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	c := &CommitObj{}
	text := string(data)
	sawMessage := false
	for text != "" {
		if msg, ok := strings.CutPrefix(text, "message "); ok {
			c.Message = strings.TrimSuffix(msg, "\n")
			sawMessage = true
			break
		}
		line, rest, _ := strings.Cut(text, "\n")
		text = rest

		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parent = Hash(val)
		case "author":
			c.Author = val
		case "date":
			ts, err := time.Parse(time.RFC3339, val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: invalid date %q: %w", val, err)
			}
			c.Date = ts
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header %q", key)
		}
	}
	if !IsHash(string(c.TreeHash)) {
		return nil, fmt.Errorf("unmarshal commit: missing or invalid tree hash")
	}
	if !sawMessage {
		return nil, fmt.Errorf("unmarshal commit: missing message")
	}
	return c, nil
}
