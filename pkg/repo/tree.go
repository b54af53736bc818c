package repo

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/odvcencio/cryptogot/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path string
	Hash object.Hash
}

// buildTreeDir snapshots the working-tree directory rel (slash form, "" for
// the root) bottom-up. Every regular file with an index entry becomes a
// blob entry; the entry is consumed so it cannot be attached twice.
// Subdirectories become tree entries when they end up non-empty, and
// hidden directories are never entered. It returns the tree hash and the
// number of entries, writing nothing when that number is zero.
func (r *Repo) buildTreeDir(ix *Index, rel string) (object.Hash, int, error) {
	dir := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("build tree: read dir %q: %w", rel, err)
	}

	tree := &object.TreeObj{Name: path.Base("/" + rel)}
	for _, d := range dirents {
		childRel := d.Name()
		if rel != "" {
			childRel = rel + "/" + d.Name()
		}

		switch {
		case d.IsDir():
			if isHidden(d.Name()) {
				continue
			}
			sub, n, err := r.buildTreeDir(ix, childRel)
			if err != nil {
				return "", 0, err
			}
			if n == 0 {
				continue
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{Kind: object.KindTree, Name: d.Name(), Hash: sub})
		case d.Type().IsRegular():
			e, ok := ix.Take(childRel)
			if !ok {
				continue
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{Kind: object.KindBlob, Name: d.Name(), Hash: e.Hash})
		}
	}

	if len(tree.Entries) == 0 {
		return "", 0, nil
	}
	h, err := r.Store.WriteTree(tree)
	if err != nil {
		return "", 0, fmt.Errorf("write tree %q: %w", rel, err)
	}
	return h, len(tree.Entries), nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full slash paths.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.Kind == object.KindTree {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{Path: fullPath, Hash: entry.Hash})
		}
	}
	return result, nil
}

// SealedObjects counts the objects a commit references (the commit, its
// root tree and everything below) and how many of them have a key sidecar,
// meaning they are already in the locked pool.
func (r *Repo) SealedObjects(commit object.Hash) (total, sealed int, err error) {
	set, err := r.Store.ReachableSet(commit)
	if err != nil {
		return 0, 0, err
	}
	for h := range set {
		if r.Store.HasKey(h) {
			sealed++
		}
	}
	return len(set), sealed, nil
}
