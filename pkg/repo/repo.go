package repo

import (
	"path/filepath"

	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/odvcencio/cryptogot/pkg/ledger"
	"github.com/odvcencio/cryptogot/pkg/lock"
	"github.com/odvcencio/cryptogot/pkg/logger"
	"github.com/odvcencio/cryptogot/pkg/object"
	"github.com/odvcencio/cryptogot/pkg/pool"
	"github.com/odvcencio/cryptogot/pkg/unlock"
)

// MetaDirName is the name of the repository metadata directory.
const MetaDirName = ".cryptogot"

// Repo represents an opened repository.
type Repo struct {
	RootDir string         // working directory root
	MetaDir string         // .cryptogot/ directory
	Store   *object.Store  // plaintext objects and their key sidecars
	Ledger  *ledger.Ledger // versions/
	Pool    *pool.Pool     // locked/
	Keys    *keys.Ring     // keys/ unless configured otherwise
	Log     logger.Logger
}

func newRepo(root, meta string) *Repo {
	return &Repo{
		RootDir: root,
		MetaDir: meta,
		Store:   object.NewStore(meta),
		Ledger:  ledger.New(filepath.Join(meta, "versions")),
		Pool:    pool.New(filepath.Join(meta, "locked")),
		Keys:    keys.NewRing(filepath.Join(meta, "keys")),
	}
}

func (r *Repo) objectsDir() string { return filepath.Join(r.MetaDir, "objects") }
func (r *Repo) headPath() string   { return filepath.Join(r.MetaDir, "HEAD") }
func (r *Repo) indexPath() string  { return filepath.Join(r.MetaDir, "index") }

func (r *Repo) lockEngine() *lock.Engine {
	return &lock.Engine{
		Store:    r.Store,
		Ledger:   r.Ledger,
		Pool:     r.Pool,
		Manifest: lock.NewManifest(filepath.Join(r.MetaDir, "recipients")),
		Log:      r.Log,
	}
}

func (r *Repo) unlockEngine() *unlock.Engine {
	return &unlock.Engine{
		Store:      r.Store,
		Ledger:     r.Ledger,
		Pool:       r.Pool,
		SessionDir: r.MetaDir,
		Log:        r.Log,
	}
}
