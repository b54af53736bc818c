package repo

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/odvcencio/cryptogot/pkg/bundle"
)

// PackBundle packs the locked pool, tagged with the repository ID from
// config.toml. A repository without one gets a fresh ID on its first pack.
func (r *Repo) PackBundle() ([]byte, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	if cfg.Remote.RepoID == "" {
		cfg.Remote.RepoID = uuid.NewString()
		if err := r.WriteConfig(cfg); err != nil {
			return nil, fmt.Errorf("pack: %w", err)
		}
		r.Log.Infof("assigned repository id %s", cfg.Remote.RepoID)
	}
	data, err := bundle.Pack(r.Pool, cfg.Remote.RepoID)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	return data, nil
}

// UnpackBundle adds a bundle's files to the locked pool. A bundle from a
// different repository is refused with bundle.ErrRepoMismatch. A
// repository without an ID adopts the bundle's.
func (r *Repo) UnpackBundle(data []byte) (int, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return 0, fmt.Errorf("unpack: %w", err)
	}
	res, err := bundle.Unpack(r.Pool, data, cfg.Remote.RepoID)
	if err != nil {
		return res.Written, fmt.Errorf("unpack: %w", err)
	}
	if cfg.Remote.RepoID == "" && res.RepoID != "" {
		cfg.Remote.RepoID = res.RepoID
		if err := r.WriteConfig(cfg); err != nil {
			return res.Written, fmt.Errorf("unpack: %w", err)
		}
	}
	return res.Written, nil
}
