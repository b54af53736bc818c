package object

import "time"

// Hash is a 40-character hex-encoded SHA-1 digest.
type Hash string

// Kind identifies the kind of a tree entry.
type Kind string

const (
	KindBlob Kind = "blob"
	KindTree Kind = "tree"
)

// Blob holds raw file data. Path is the repository-relative path the blob
// was read from, if known; it is not part of the hashed content.
type Blob struct {
	Hash Hash
	Data []byte
	Path string
}

// NewBlob hashes data and returns the resulting Blob.
func NewBlob(data []byte, path string) *Blob {
	return &Blob{Hash: HashBytes(data), Data: data, Path: path}
}

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Kind Kind
	Name string
	Hash Hash
}

// TreeObj is a directory snapshot. Name is the directory's own name and is
// not serialized.
type TreeObj struct {
	Name    string
	Entries []TreeEntry // sorted by Name once marshaled
}

// CommitObj represents a commit pointing to a root tree. Parent is empty
// for the first commit.
type CommitObj struct {
	TreeHash Hash
	Parent   Hash
	Author   string
	Date     time.Time
	Message  string
}
