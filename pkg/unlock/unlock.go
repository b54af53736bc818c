// Package unlock rebuilds a repository from the locked pool using nothing
// but a private key.
//
// The pool does not say which files are wrapped keys and which are sealed
// objects, so recovery is a trial-and-error process in two passes: first
// every file is tried as a wrapped key, then every remaining file is tried
// against every recovered key.
package unlock

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/odvcencio/cryptogot/pkg/envelope"
	"github.com/odvcencio/cryptogot/pkg/ledger"
	"github.com/odvcencio/cryptogot/pkg/lock"
	"github.com/odvcencio/cryptogot/pkg/logger"
	"github.com/odvcencio/cryptogot/pkg/object"
	"github.com/odvcencio/cryptogot/pkg/pool"
)

// versionMarker matches the plain names sealed HEAD pointers are stored
// under.
var versionMarker = regexp.MustCompile(`^\d+(\.head)?$`)

// Engine recovers objects and versions from a pool.
type Engine struct {
	Store  *object.Store
	Ledger *ledger.Ledger
	Pool   *pool.Pool
	// SessionDir is where the per-session keystore directory is created.
	SessionDir string
	Log        logger.Logger
}

// Report summarizes an unlock.
type Report struct {
	KeysRecovered    int
	ObjectsRecovered int
	Versions         int
	Unmatched        int // pool files left because no key opened them
	LeftoverKeys     int // recovered keys that opened nothing

	Version  int         // version materialized, 0 if none
	Commit   object.Hash // commit materialized
	Restored int         // working-tree files written
}

// Run recovers everything priv can open and then materializes the newest
// version into workDir.
func (e *Engine) Run(priv *rsa.PrivateKey, workDir string) (Report, error) {
	rep, err := e.Recover(priv)
	if err != nil {
		return rep, err
	}
	if err := e.Materialize(workDir, &rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// Recover runs key recovery, object recovery and keystore cleanup. Files no
// key opens stay in the pool; everything else is moved into the object
// store or the version ledger and deleted from the pool.
func (e *Engine) Recover(priv *rsa.PrivateKey) (rep Report, err error) {
	ks, err := openKeystore(e.SessionDir)
	if err != nil {
		return rep, err
	}
	defer func() {
		if cerr := ks.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := e.recoverKeys(priv, ks, &rep); err != nil {
		return rep, err
	}
	if err := e.recoverObjects(ks, &rep); err != nil {
		return rep, err
	}
	rep.LeftoverKeys = len(ks.keys)
	e.Log.Infof("unlock: %d keys, %d objects, %d versions recovered; %d files left in pool",
		rep.KeysRecovered, rep.ObjectsRecovered, rep.Versions, rep.Unmatched)
	return rep, nil
}

// recoverKeys tries every pool file as a key wrapped for priv. Anything
// that is not one is skipped silently.
func (e *Engine) recoverKeys(priv *rsa.PrivateKey, ks *keystore, rep *Report) error {
	names, err := e.Pool.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := e.Pool.Read(name)
		if err != nil {
			return err
		}
		key, err := envelope.Unwrap(priv, data)
		if err != nil {
			continue
		}
		if err := ks.put(key); err != nil {
			return err
		}
		if err := e.Pool.Remove(name); err != nil {
			return err
		}
		rep.KeysRecovered++
	}
	e.Log.Debugf("unlock: recovered %d keys from %d pool files", rep.KeysRecovered, len(names))
	return nil
}

// recoverObjects pairs keys with files greedily: files are visited in name
// order and each file takes the first unretired key that opens it. With an
// authenticated cipher a wrong pairing cannot succeed.
func (e *Engine) recoverObjects(ks *keystore, rep *Report) error {
	names, err := e.Pool.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		if len(ks.keys) == 0 {
			rep.Unmatched++
			continue
		}
		data, err := e.Pool.Read(name)
		if err != nil {
			return err
		}
		matched := false
		for i := range ks.keys {
			key := ks.keys[i].key
			content, err := envelope.OpenContent(key, data)
			if err != nil {
				if !errors.Is(err, envelope.ErrMismatch) {
					e.Log.Warnf("unlock: %s: %v", name, err)
				}
				continue
			}
			id, ok := identity(key, name)
			if !ok {
				e.Log.Warnf("unlock: %s opened but its name did not", name)
				continue
			}
			stored, err := e.classify(id, content, key, rep)
			if err != nil {
				return err
			}
			if !stored {
				continue
			}
			if err := e.Pool.Remove(name); err != nil {
				return err
			}
			if err := ks.retire(i); err != nil {
				return err
			}
			matched = true
			break
		}
		if !matched {
			rep.Unmatched++
		}
	}
	return nil
}

// identity recovers the original name of a pool file: a sealed hash, or a
// plain version marker for sealed HEAD pointers.
func identity(key []byte, name string) (string, bool) {
	if id, err := envelope.OpenName(key, name); err == nil {
		return id, true
	}
	if versionMarker.MatchString(name) {
		return strings.TrimSuffix(name, lock.HeadSuffix), true
	}
	return "", false
}

// classify files recovered content either as a version pointer, when the
// identity is a number and the content is a hash, or as a content object.
// It reports false when the payload could not be stored.
func (e *Engine) classify(id string, content, key []byte, rep *Report) (bool, error) {
	if n, ok := ledger.ParseVersion(id); ok {
		commit := strings.TrimSpace(string(content))
		if !object.IsHash(commit) {
			e.Log.Warnf("unlock: version %d does not point at a commit", n)
			return false, nil
		}
		if err := e.Ledger.Record(n, object.Hash(commit)); err != nil {
			return false, err
		}
		if err := e.Ledger.SaveKey(n, key); err != nil {
			return false, err
		}
		rep.Versions++
		e.Log.Debugf("unlock: version %d -> %s", n, commit)
		return true, nil
	}

	h, err := object.ParseHash(id)
	if err != nil {
		e.Log.Warnf("unlock: unrecognized identity %q", id)
		return false, nil
	}
	if got := object.HashBytes(content); got != h {
		e.Log.Warnf("unlock: object %s hashes to %s", h, got)
		return false, nil
	}
	if err := e.Store.WriteIfAbsent(h, content); err != nil {
		return false, err
	}
	if err := e.Store.WriteKey(h, key); err != nil {
		return false, err
	}
	rep.ObjectsRecovered++
	e.Log.Debugf("unlock: object %s", h)
	return true, nil
}

// Materialize writes the newest recorded version's tree into workDir. It is
// a no-op when no version is recorded.
func (e *Engine) Materialize(workDir string, rep *Report) error {
	n, ok, err := e.Ledger.Latest()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	commit, err := e.Ledger.Read(n)
	if err != nil {
		return err
	}
	c, err := e.Store.ReadCommit(commit)
	if err != nil {
		return fmt.Errorf("materialize version %d: %w", n, err)
	}
	written, err := RestoreTree(e.Store, c.TreeHash, workDir)
	if err != nil {
		return fmt.Errorf("materialize version %d: %w", n, err)
	}
	rep.Version = n
	rep.Commit = commit
	rep.Restored = written
	e.Log.Infof("unlock: restored %d files from version %d (%s)", written, n, commit)
	return nil
}
