package repo

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/odvcencio/cryptogot/pkg/ledger"
	"github.com/odvcencio/cryptogot/pkg/unlock"
)

// Unlock recovers everything in the locked pool that the local private key
// can open, restores the newest version into the working tree and points
// HEAD at it.
func (r *Repo) Unlock() (unlock.Report, error) {
	priv, err := r.Keys.PrivateKey()
	if err != nil {
		if errors.Is(err, keys.ErrNoPrivateKey) {
			return unlock.Report{}, fmt.Errorf("unlock: %w", &ConfigError{Resource: "private key", Path: r.Keys.Dir, Err: err})
		}
		return unlock.Report{}, fmt.Errorf("unlock: %w", err)
	}
	rep, err := r.unlockEngine().Run(priv, r.RootDir)
	if err != nil {
		return rep, fmt.Errorf("unlock: %w", err)
	}
	if rep.KeysRecovered > 0 {
		if err := r.recordUnlockingKey(priv); err != nil {
			return rep, fmt.Errorf("unlock: %w", err)
		}
	}
	if rep.Commit != "" {
		if err := r.SetHead(rep.Commit); err != nil {
			return rep, fmt.Errorf("unlock: %w", err)
		}
	}
	return rep, nil
}

// recordUnlockingKey adds priv's public half to the recipient manifest. The
// pool already holds wraps for it, so the next commit must not rewrap every
// recovered key for it again.
func (r *Repo) recordUnlockingKey(priv *rsa.PrivateKey) error {
	fp, err := keys.Fingerprint(&priv.PublicKey)
	if err != nil {
		return err
	}
	m := r.lockEngine().Manifest
	missing, err := m.Unknown([]keys.Recipient{{Name: "private_key.pem", Key: &priv.PublicKey, Fingerprint: fp}})
	if err != nil {
		return err
	}
	return m.Add(missing)
}

// Rewrap wraps every retained key for recipients in the key ring that the
// pool has not been wrapped for yet. It returns the number of wrapped-key
// files written.
func (r *Repo) Rewrap() (int, error) {
	recipients, err := r.recipients()
	if err != nil {
		return 0, fmt.Errorf("rewrap: %w", err)
	}
	n, err := r.lockEngine().RewrapForNewRecipients(recipients)
	if err != nil {
		return n, fmt.Errorf("rewrap: %w", err)
	}
	return n, nil
}

// Versions lists the version ledger, newest first.
func (r *Repo) Versions() ([]ledger.Entry, error) {
	return r.Ledger.Entries()
}
