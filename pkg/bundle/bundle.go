// Package bundle packs the locked pool into a single opaque byte string for
// whatever transport moves it between collaborators, and unpacks such a
// bundle back into a pool.
package bundle

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/odvcencio/cryptogot/pkg/pool"
)

// FormatVersion is written into every bundle.
const FormatVersion = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bundle: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 24,
	}.DecMode()
	if err != nil {
		panic("bundle: CBOR decoder initialization failed: " + err.Error())
	}
}

var (
	// ErrFormat reports a bundle this version cannot read.
	ErrFormat = errors.New("unsupported bundle format")
	// ErrRepoMismatch reports a bundle packed from a different repository.
	ErrRepoMismatch = errors.New("bundle belongs to another repository")
)

type file struct {
	Name string `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint"`
}

type envelope struct {
	Version int    `cbor:"1,keyasint"`
	Files   []file `cbor:"2,keyasint"`
	RepoID  string `cbor:"3,keyasint,omitempty"`
}

// Result describes an unpacked bundle.
type Result struct {
	RepoID  string // repository the bundle was packed from, if recorded
	Written int    // pool files added
}

// Pack encodes every file in p, tagged with repoID when it is not empty.
// The encoding is deterministic: files are ordered by name.
func Pack(p *pool.Pool, repoID string) ([]byte, error) {
	names, err := p.Names()
	if err != nil {
		return nil, err
	}
	env := envelope{Version: FormatVersion, Files: make([]file, 0, len(names)), RepoID: repoID}
	for _, name := range names {
		data, err := p.Read(name)
		if err != nil {
			return nil, err
		}
		env.Files = append(env.Files, file{Name: name, Data: data})
	}
	out, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("pack bundle: %w", err)
	}
	return out, nil
}

// Unpack writes the files of a bundle into p. A bundle tagged with a
// repository ID other than repoID is rejected; an empty ID on either side
// matches anything. Files already present in the pool are left untouched;
// names that would escape the pool are rejected before anything is written.
func Unpack(p *pool.Pool, data []byte, repoID string) (Result, error) {
	var res Result
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return res, fmt.Errorf("unpack bundle: %w", err)
	}
	if env.Version != FormatVersion {
		return res, fmt.Errorf("%w: version %d", ErrFormat, env.Version)
	}
	if repoID != "" && env.RepoID != "" && env.RepoID != repoID {
		return res, fmt.Errorf("%w: %s, local %s", ErrRepoMismatch, env.RepoID, repoID)
	}
	res.RepoID = env.RepoID
	for _, f := range env.Files {
		if !pool.ValidName(f.Name) {
			return res, fmt.Errorf("unpack bundle: %w: %q", pool.ErrBadName, f.Name)
		}
	}
	for _, f := range env.Files {
		if p.Has(f.Name) {
			continue
		}
		if err := p.Write(f.Name, f.Data); err != nil {
			return res, err
		}
		res.Written++
	}
	return res, nil
}
