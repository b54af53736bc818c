package repo

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/odvcencio/cryptogot/pkg/lock"
	"github.com/odvcencio/cryptogot/pkg/object"
)

// CommitResult describes a new commit and its encryption.
type CommitResult struct {
	Hash      object.Hash
	Version   int
	Rewrapped int // wrapped keys written for newly added recipients
	Stats     lock.Stats
}

// now is replaced in tests.
var now = time.Now

// Commit snapshots the working tree and seals it into the locked pool.
//
//  1. Check that the object store and key directory exist and at least one
//     recipient public key loads. Nothing is written otherwise.
//  2. Read the index and, if HEAD exists, put every file of the parent
//     snapshot in front of it so unchanged files carry over.
//  3. Build trees bottom-up over the working directory.
//  4. Write the commit, then HEAD, then the next version record, and clear
//     the index. HEAD is the commit point.
//  5. Wrap existing keys for recipients added since the last commit, then
//     encrypt the new snapshot for every recipient.
func (r *Repo) Commit(message string) (*CommitResult, error) {
	// 1. Preconditions.
	recipients, err := r.recipients()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	author, err := r.Author()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	// 2. Index plus parent snapshot.
	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	parent, err := r.Head()
	if err != nil && !errors.Is(err, ErrNoHead) {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if parent != "" {
		pc, err := r.Store.ReadCommit(parent)
		if err != nil {
			return nil, fmt.Errorf("commit: read parent: %w", err)
		}
		files, err := r.FlattenTree(pc.TreeHash)
		if err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		ix.rehydrate(files)
	}

	// 3. Trees.
	tree, n, err := r.buildTreeDir(ix, "")
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("commit: %w", ErrNothingToCommit)
	}

	// 4. Commit, HEAD, version, index.
	commitHash, err := r.Store.WriteCommit(&object.CommitObj{
		TreeHash: tree,
		Parent:   parent,
		Author:   author,
		Date:     now().UTC().Truncate(time.Second),
		Message:  message,
	})
	if err != nil {
		return nil, fmt.Errorf("commit: write commit: %w", err)
	}
	if err := r.SetHead(commitHash); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	version, err := r.Ledger.Append(commitHash)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if err := r.truncateIndex(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	res := &CommitResult{Hash: commitHash, Version: version}

	// 5. Encryption.
	engine := r.lockEngine()
	res.Rewrapped, err = engine.RewrapForNewRecipients(recipients)
	if err != nil {
		return res, fmt.Errorf("commit %s: rewrap: %w", commitHash, err)
	}
	res.Stats, err = engine.EncryptCommit(commitHash, version, recipients)
	if err != nil {
		return res, fmt.Errorf("commit %s: %w", commitHash, err)
	}
	return res, nil
}

// recipients checks the layout needed to encrypt and loads the public keys.
func (r *Repo) recipients() ([]keys.Recipient, error) {
	if info, err := os.Stat(r.objectsDir()); err != nil || !info.IsDir() {
		return nil, &ConfigError{Resource: "object store", Path: r.objectsDir(), Err: err}
	}
	if info, err := os.Stat(r.Keys.Dir); err != nil || !info.IsDir() {
		return nil, &ConfigError{Resource: "key directory", Path: r.Keys.Dir, Err: err}
	}
	recipients, err := r.Keys.PublicKeys()
	if err != nil {
		if errors.Is(err, keys.ErrNoPublicKeys) {
			return nil, &ConfigError{Resource: "recipient public keys", Path: r.Keys.Dir, Err: err}
		}
		return nil, err
	}
	return recipients, nil
}

// LogEntry is one commit in history.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// History walks the commit history starting from the given hash, following
// parent links, returning up to limit commits newest first. A limit of zero
// or less means no limit.
func (r *Repo) History(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start

	for current != "" && (limit <= 0 || len(entries) < limit) {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			// History that has not been unlocked yet ends the walk.
			if errors.Is(err, os.ErrNotExist) {
				break
			}
			return nil, fmt.Errorf("history: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})
		current = c.Parent
	}
	return entries, nil
}
