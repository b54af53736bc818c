package repo

import (
	"errors"
	"testing"

	"github.com/odvcencio/cryptogot/pkg/bundle"
)

func TestBundleCarriesRepoID(t *testing.T) {
	src := initRepo(t)
	writeFile(t, src, "a.txt", "a")
	addAll(t, src)
	mustCommit(t, src, "one")

	data, err := src.PackBundle()
	if err != nil {
		t.Fatalf("PackBundle: %v", err)
	}
	cfg, err := src.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	id := cfg.Remote.RepoID
	if id == "" {
		t.Fatal("no repository id assigned on pack")
	}
	if cfg.User.Name != "alice" {
		t.Errorf("user.name lost: %+v", cfg.User)
	}
	if again, _ := src.PackBundle(); len(again) == 0 {
		t.Error("second pack empty")
	}
	if cfg, _ := src.ReadConfig(); cfg.Remote.RepoID != id {
		t.Errorf("repository id changed from %s to %s", id, cfg.Remote.RepoID)
	}

	dst := initRepo(t)
	n, err := dst.UnpackBundle(data)
	if err != nil {
		t.Fatalf("UnpackBundle: %v", err)
	}
	if n != 8 {
		t.Errorf("UnpackBundle wrote %d files, want 8", n)
	}
	if cfg, _ := dst.ReadConfig(); cfg.Remote.RepoID != id {
		t.Errorf("clone repository id = %q, want %s", cfg.Remote.RepoID, id)
	}

	// A repository with its own history refuses the bundle.
	other := initRepo(t)
	writeFile(t, other, "b.txt", "b")
	addAll(t, other)
	mustCommit(t, other, "unrelated")
	if _, err := other.PackBundle(); err != nil {
		t.Fatalf("PackBundle: %v", err)
	}
	before := poolCount(t, other)
	if _, err := other.UnpackBundle(data); !errors.Is(err, bundle.ErrRepoMismatch) {
		t.Fatalf("UnpackBundle err = %v, want ErrRepoMismatch", err)
	}
	if after := poolCount(t, other); after != before {
		t.Errorf("pool changed from %d to %d files", before, after)
	}
}
