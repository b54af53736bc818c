package lock

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/odvcencio/cryptogot/pkg/envelope"
	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/odvcencio/cryptogot/pkg/ledger"
	"github.com/odvcencio/cryptogot/pkg/logger"
	"github.com/odvcencio/cryptogot/pkg/object"
	"github.com/odvcencio/cryptogot/pkg/pool"
)

var (
	keyOnce  sync.Once
	testPriv [2]*rsa.PrivateKey
)

func recipient(t *testing.T, i int) (keys.Recipient, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		for j := range testPriv {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			testPriv[j] = k
		}
	})
	priv := testPriv[i]
	fp, err := keys.Fingerprint(&priv.PublicKey)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	return keys.Recipient{Name: "r" + string(rune('0'+i)), Key: &priv.PublicKey, Fingerprint: fp}, priv
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	return &Engine{
		Store:    object.NewStore(dir),
		Ledger:   ledger.New(filepath.Join(dir, "versions")),
		Pool:     pool.New(filepath.Join(dir, "locked")),
		Manifest: NewManifest(filepath.Join(dir, "recipients")),
		Log:      logger.Discard(),
	}
}

// helloCommit stores the snapshot of a repository holding hello.txt = "hi".
func helloCommit(t *testing.T, s *object.Store) (commit, tree, blob object.Hash) {
	t.Helper()
	blob, err := s.Write([]byte("hi"))
	if err != nil {
		t.Fatalf("Write blob: %v", err)
	}
	tree, err = s.WriteTree(&object.TreeObj{Entries: []object.TreeEntry{
		{Kind: object.KindBlob, Name: "hello.txt", Hash: blob},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	commit, err = s.WriteCommit(&object.CommitObj{
		TreeHash: tree,
		Author:   "alice",
		Date:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Message:  "first",
	})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	return commit, tree, blob
}

func poolSnapshot(t *testing.T, p *pool.Pool) map[string][]byte {
	t.Helper()
	names, err := p.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	out := make(map[string][]byte, len(names))
	for _, n := range names {
		data, err := p.Read(n)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		out[n] = data
	}
	return out
}

func TestEncryptCommitHelloProducesEightFiles(t *testing.T) {
	e := newEngine(t)
	rc, _ := recipient(t, 0)
	commit, tree, blob := helloCommit(t, e.Store)

	stats, err := e.EncryptCommit(commit, 1, []keys.Recipient{rc})
	if err != nil {
		t.Fatalf("EncryptCommit: %v", err)
	}
	if stats.Objects != 3 || stats.Wrapped != 4 || stats.HeadFiles != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}

	names, _ := e.Pool.Names()
	if len(names) != 8 {
		t.Fatalf("pool holds %d files, want 8: %v", len(names), names)
	}
	if !e.Pool.Has("1.head") {
		t.Error("missing 1.head")
	}
	for _, h := range []object.Hash{commit, tree, blob} {
		if !e.Store.HasKey(h) {
			t.Errorf("no key sidecar for %s", h)
		}
	}
	if _, err := e.Ledger.ReadKey(1); err != nil {
		t.Errorf("version key not retained: %v", err)
	}
}

func TestEncryptCommitRecipientCanOpenEverything(t *testing.T) {
	e := newEngine(t)
	rc, priv := recipient(t, 0)
	commit, tree, blob := helloCommit(t, e.Store)
	if _, err := e.EncryptCommit(commit, 1, []keys.Recipient{rc}); err != nil {
		t.Fatalf("EncryptCommit: %v", err)
	}

	files := poolSnapshot(t, e.Pool)
	var recovered [][]byte
	for name, data := range files {
		if key, err := envelope.Unwrap(priv, data); err == nil {
			recovered = append(recovered, key)
			delete(files, name)
		}
	}
	if len(recovered) != 4 {
		t.Fatalf("recovered %d keys, want 4", len(recovered))
	}

	identities := map[string][]byte{}
	for name, data := range files {
		for _, key := range recovered {
			content, err := envelope.OpenContent(key, data)
			if err != nil {
				continue
			}
			id := name
			if opened, err := envelope.OpenName(key, name); err == nil {
				id = opened
			}
			identities[id] = content
			break
		}
	}
	for _, h := range []object.Hash{commit, tree, blob} {
		want, _ := e.Store.Read(h)
		if got, ok := identities[string(h)]; !ok || !bytes.Equal(got, want) {
			t.Errorf("object %s not recovered from pool", h)
		}
	}
	if got := identities["1.head"]; string(got) != string(commit) {
		t.Errorf("head pointer = %q, want %q", got, commit)
	}
}

func TestEncryptCommitNamesLeakNothing(t *testing.T) {
	e := newEngine(t)
	rc, _ := recipient(t, 0)
	commit, tree, blob := helloCommit(t, e.Store)
	if _, err := e.EncryptCommit(commit, 1, []keys.Recipient{rc}); err != nil {
		t.Fatalf("EncryptCommit: %v", err)
	}
	for name, data := range poolSnapshot(t, e.Pool) {
		for _, h := range []object.Hash{commit, tree, blob} {
			if name == string(h) || bytes.Contains(data, []byte(h)) {
				t.Errorf("pool file %s reveals %s", name, h)
			}
		}
		if bytes.Equal(data, []byte("hi")) {
			t.Errorf("pool file %s holds plaintext", name)
		}
	}
}

func TestEncryptCommitIsResumable(t *testing.T) {
	e := newEngine(t)
	rc, _ := recipient(t, 0)
	commit, _, _ := helloCommit(t, e.Store)
	if _, err := e.EncryptCommit(commit, 1, []keys.Recipient{rc}); err != nil {
		t.Fatalf("EncryptCommit: %v", err)
	}
	stats, err := e.EncryptCommit(commit, 2, []keys.Recipient{rc})
	if err != nil {
		t.Fatalf("second EncryptCommit: %v", err)
	}
	if stats.Objects != 0 || stats.Skipped != 3 || stats.Wrapped != 1 {
		t.Errorf("second run stats = %+v", stats)
	}
	names, _ := e.Pool.Names()
	if len(names) != 10 {
		t.Errorf("pool holds %d files, want 10", len(names))
	}
}

func TestEncryptCommitWrapsPerRecipient(t *testing.T) {
	e := newEngine(t)
	r0, _ := recipient(t, 0)
	r1, _ := recipient(t, 1)
	commit, _, _ := helloCommit(t, e.Store)
	stats, err := e.EncryptCommit(commit, 1, []keys.Recipient{r0, r1})
	if err != nil {
		t.Fatalf("EncryptCommit: %v", err)
	}
	if stats.Wrapped != 8 {
		t.Errorf("Wrapped = %d, want 8", stats.Wrapped)
	}
	names, _ := e.Pool.Names()
	if len(names) != 12 {
		t.Errorf("pool holds %d files, want 12", len(names))
	}
}

func TestEncryptCommitNoRecipients(t *testing.T) {
	e := newEngine(t)
	commit, _, _ := helloCommit(t, e.Store)
	if _, err := e.EncryptCommit(commit, 1, nil); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("err = %v, want ErrNoRecipients", err)
	}
	if names, _ := e.Pool.Names(); len(names) != 0 {
		t.Errorf("pool written without recipients: %v", names)
	}
}

func TestEncryptCommitMissingCommit(t *testing.T) {
	e := newEngine(t)
	rc, _ := recipient(t, 0)
	_, err := e.EncryptCommit(object.HashBytes([]byte("nope")), 1, []keys.Recipient{rc})
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRewrapDoesNotTouchCiphertext(t *testing.T) {
	e := newEngine(t)
	r0, _ := recipient(t, 0)
	r1, priv1 := recipient(t, 1)
	commit, _, _ := helloCommit(t, e.Store)

	if _, err := e.RewrapForNewRecipients([]keys.Recipient{r0}); err != nil {
		t.Fatalf("initial rewrap: %v", err)
	}
	if _, err := e.EncryptCommit(commit, 1, []keys.Recipient{r0}); err != nil {
		t.Fatalf("EncryptCommit: %v", err)
	}
	before := poolSnapshot(t, e.Pool)

	n, err := e.RewrapForNewRecipients([]keys.Recipient{r0, r1})
	if err != nil {
		t.Fatalf("RewrapForNewRecipients: %v", err)
	}
	if n != 4 {
		t.Errorf("wrapped %d files, want 4 (three objects and one version)", n)
	}

	after := poolSnapshot(t, e.Pool)
	for name, data := range before {
		if got, ok := after[name]; !ok || !bytes.Equal(got, data) {
			t.Errorf("pool file %s changed or vanished", name)
		}
	}
	added := 0
	for name, data := range after {
		if _, ok := before[name]; ok {
			continue
		}
		added++
		if _, err := envelope.Unwrap(priv1, data); err != nil {
			t.Errorf("new file %s is not a key wrapped for the new recipient", name)
		}
	}
	if added != 4 {
		t.Errorf("added %d files, want 4", added)
	}

	n, err = e.RewrapForNewRecipients([]keys.Recipient{r0, r1})
	if err != nil {
		t.Fatalf("second rewrap: %v", err)
	}
	if n != 0 {
		t.Errorf("second rewrap wrote %d files, want 0", n)
	}
}

func TestManifest(t *testing.T) {
	m := NewManifest(filepath.Join(t.TempDir(), "sub", "recipients"))
	r0, _ := recipient(t, 0)
	r1, _ := recipient(t, 1)

	unknown, err := m.Unknown([]keys.Recipient{r0, r0, r1})
	if err != nil {
		t.Fatalf("Unknown: %v", err)
	}
	if len(unknown) != 2 {
		t.Fatalf("Unknown = %d recipients, want 2", len(unknown))
	}
	if err := m.Add([]keys.Recipient{r0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	unknown, _ = m.Unknown([]keys.Recipient{r0, r1})
	if len(unknown) != 1 || unknown[0].Fingerprint != r1.Fingerprint {
		t.Errorf("Unknown after Add = %+v", unknown)
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != r0.Fingerprint+"\n" {
		t.Errorf("manifest = %q", data)
	}
}
