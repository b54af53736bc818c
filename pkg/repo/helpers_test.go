package repo

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/odvcencio/cryptogot/pkg/logger"
)

var (
	identityOnce sync.Once
	identities   map[string]*rsa.PrivateKey
)

// identity returns a cached RSA key for one of the test users.
func identity(t *testing.T, name string) *rsa.PrivateKey {
	t.Helper()
	identityOnce.Do(func() {
		identities = map[string]*rsa.PrivateKey{}
		for _, n := range []string{"alice", "bob"} {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			identities[n] = k
		}
	})
	k, ok := identities[name]
	if !ok {
		t.Fatalf("unknown test identity %q", name)
	}
	return k
}

// installKeyPair writes name's key pair into the repository key ring.
func installKeyPair(t *testing.T, r *Repo, name string) {
	t.Helper()
	priv := identity(t, name)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	if err := os.WriteFile(filepath.Join(r.Keys.Dir, "private_key.pem"),
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	installPublicKey(t, r, name)
}

// installPublicKey adds name's public key as a recipient.
func installPublicKey(t *testing.T, r *Repo, name string) {
	t.Helper()
	pub, err := keys.EncodePublicKey(&identity(t, name).PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKey: %v", err)
	}
	if err := os.WriteFile(filepath.Join(r.Keys.Dir, "public_key_"+name+".pem"), pub, 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
}

// initRepo creates a repository owned by alice.
func initRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	r.Log = logger.Discard()
	installKeyPair(t, r, "alice")
	if err := r.WriteConfig(&Config{User: UserConfig{Name: "alice"}}); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	return r
}

func writeFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	p := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func addAll(t *testing.T, r *Repo) {
	t.Helper()
	if _, err := r.Add([]string{r.RootDir}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func mustCommit(t *testing.T, r *Repo, msg string) *CommitResult {
	t.Helper()
	res, err := r.Commit(msg)
	if err != nil {
		t.Fatalf("Commit(%q): %v", msg, err)
	}
	return res
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected directory %s: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("%s is not a directory", path)
	}
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	if string(got) != want {
		t.Errorf("%s = %q, want %q", path, got, want)
	}
}
