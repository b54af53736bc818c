// Package lock encrypts committed snapshots into the locked pool.
//
// Every object gets its own fresh AES-256 key. The sealed object is stored
// under a name derived by sealing its hash with that same key, and the key
// is wrapped once per recipient under an unrelated random name, so the pool
// does not say which file is a key and which is content. The raw key stays
// next to the plaintext object as a sidecar; that is what makes adding a
// recipient later a matter of wrapping keys instead of re-encrypting data.
package lock

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/odvcencio/cryptogot/pkg/envelope"
	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/odvcencio/cryptogot/pkg/ledger"
	"github.com/odvcencio/cryptogot/pkg/logger"
	"github.com/odvcencio/cryptogot/pkg/object"
	"github.com/odvcencio/cryptogot/pkg/pool"
)

// HeadSuffix marks the pool file holding a version's sealed HEAD value.
const HeadSuffix = ".head"

// ErrNoRecipients is returned when there is nobody to encrypt for.
var ErrNoRecipients = errors.New("no recipients to encrypt for")

// Engine writes encrypted objects and wrapped keys into a pool.
type Engine struct {
	Store    *object.Store
	Ledger   *ledger.Ledger
	Pool     *pool.Pool
	Manifest *Manifest
	Log      logger.Logger
}

// Stats summarizes one EncryptCommit run.
type Stats struct {
	Objects   int // objects sealed into the pool
	Skipped   int // objects that already had a key sidecar
	Wrapped   int // wrapped-key files written
	HeadFiles int // sealed HEAD pointers written
}

// HeadName returns the pool name of version n's sealed HEAD value.
func HeadName(n int) string {
	return strconv.Itoa(n) + HeadSuffix
}

// EncryptCommit seals commit and everything reachable from its root tree
// into the pool, then seals the HEAD value for version.
//
//  1. Walk the root tree. Objects with a key sidecar are skipped.
//  2. Every other object gets a fresh key; its sealed content is written
//     under its sealed hash, the key is wrapped for each recipient, and the
//     key sidecar is written last.
//  3. The commit object itself is handled the same way.
//  4. The HEAD value is sealed under its own key into "<version>.head",
//     wrapped for each recipient, and the key kept in the version ledger.
func (e *Engine) EncryptCommit(commit object.Hash, version int, recipients []keys.Recipient) (Stats, error) {
	var stats Stats
	if len(recipients) == 0 {
		return stats, ErrNoRecipients
	}

	c, err := e.Store.ReadCommit(commit)
	if err != nil {
		return stats, fmt.Errorf("encrypt commit: %w", err)
	}

	err = e.Store.WalkTree(c.TreeHash, func(h object.Hash, _ object.Kind) error {
		return e.encryptObject(h, recipients, &stats)
	})
	if err != nil {
		return stats, fmt.Errorf("encrypt commit %s: %w", commit, err)
	}
	if err := e.encryptObject(commit, recipients, &stats); err != nil {
		return stats, fmt.Errorf("encrypt commit %s: %w", commit, err)
	}

	if err := e.encryptHead(version, commit, recipients, &stats); err != nil {
		return stats, fmt.Errorf("encrypt head %d: %w", version, err)
	}
	e.Log.Infof("encrypted version %d: %d objects sealed, %d already sealed, %d keys wrapped",
		version, stats.Objects, stats.Skipped, stats.Wrapped)
	return stats, nil
}

func (e *Engine) encryptObject(h object.Hash, recipients []keys.Recipient, stats *Stats) error {
	if e.Store.HasKey(h) {
		stats.Skipped++
		return nil
	}
	data, err := e.Store.Read(h)
	if err != nil {
		return err
	}
	key, err := envelope.NewKey()
	if err != nil {
		return err
	}
	sealed, err := envelope.SealContent(key, data)
	if err != nil {
		return fmt.Errorf("seal %s: %w", h, err)
	}
	name, err := envelope.SealName(key, string(h))
	if err != nil {
		return fmt.Errorf("seal name %s: %w", h, err)
	}
	if err := e.Pool.Write(name, sealed); err != nil {
		return err
	}
	n, err := e.wrapForAll(key, recipients)
	stats.Wrapped += n
	if err != nil {
		return err
	}
	if err := e.Store.WriteKey(h, key); err != nil {
		return err
	}
	stats.Objects++
	e.Log.Debugf("sealed %s", h)
	return nil
}

func (e *Engine) encryptHead(version int, head object.Hash, recipients []keys.Recipient, stats *Stats) error {
	key, err := envelope.NewKey()
	if err != nil {
		return err
	}
	sealed, err := envelope.SealContent(key, []byte(head))
	if err != nil {
		return err
	}
	if err := e.Pool.Write(HeadName(version), sealed); err != nil {
		return err
	}
	n, err := e.wrapForAll(key, recipients)
	stats.Wrapped += n
	if err != nil {
		return err
	}
	if err := e.Ledger.SaveKey(version, key); err != nil {
		return err
	}
	stats.HeadFiles++
	return nil
}

// wrapForAll writes one wrapped copy of key per recipient, each under a
// fresh random name, and returns how many it wrote.
func (e *Engine) wrapForAll(key []byte, recipients []keys.Recipient) (int, error) {
	written := 0
	for _, rc := range recipients {
		wrapped, err := envelope.Wrap(rc.Key, key)
		if err != nil {
			return written, fmt.Errorf("wrap for %s: %w", rc.Name, err)
		}
		name, err := envelope.RandomName()
		if err != nil {
			return written, err
		}
		if err := e.Pool.Write(name, wrapped); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// RewrapForNewRecipients gives recipients that have never been wrapped for
// access to everything already sealed: every object key sidecar and every
// retained version key is wrapped for them under fresh random names. No
// ciphertext is read or rewritten. Recipients are recorded in the manifest
// afterwards, so a second call is a no-op. It returns the number of
// wrapped-key files written.
func (e *Engine) RewrapForNewRecipients(recipients []keys.Recipient) (int, error) {
	fresh, err := e.Manifest.Unknown(recipients)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	written := 0
	hashes, err := e.Store.KeyedObjects()
	if err != nil {
		return 0, err
	}
	for _, h := range hashes {
		key, err := e.Store.ReadKey(h)
		if err != nil {
			return written, err
		}
		n, err := e.wrapForAll(key, fresh)
		written += n
		if err != nil {
			return written, fmt.Errorf("rewrap %s: %w", h, err)
		}
	}

	versions, err := e.Ledger.KeyedVersions()
	if err != nil {
		return written, err
	}
	for _, v := range versions {
		key, err := e.Ledger.ReadKey(v)
		if err != nil {
			return written, err
		}
		n, err := e.wrapForAll(key, fresh)
		written += n
		if err != nil {
			return written, fmt.Errorf("rewrap version %d: %w", v, err)
		}
	}

	if err := e.Manifest.Add(fresh); err != nil {
		return written, err
	}
	for _, rc := range fresh {
		e.Log.Infof("onboarded recipient %s (%s)", rc.Name, rc.Fingerprint)
	}
	return written, nil
}
