// Package keys manages the RSA key pairs that gate access to the locked
// pool: the local private key used to unlock, and the public keys of every
// collaborator that new objects are wrapped for.
package keys

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/ssh"
)

// DefaultBits is the modulus size used by Generate when bits is zero.
const DefaultBits = 2048

var (
	ErrNoPublicKeys = errors.New("no recipient public keys found")
	ErrNoPrivateKey = errors.New("no private key found")
	ErrNotRSA       = errors.New("key is not an RSA key")
)

// Recipient is one collaborator the pool is encrypted for.
type Recipient struct {
	Name        string // file the key was loaded from
	Key         *rsa.PublicKey
	Fingerprint string // SSH SHA256 fingerprint
}

// Ring is a directory of key files. Public keys are files named
// public_key*.pem (PKIX or PKCS#1 PEM) or *.pub (OpenSSH authorized-key
// line). The private key is the first private_key*.pem unless
// PrivateKeyPath is set; PKCS#8, PKCS#1 and OpenSSH encodings are accepted.
type Ring struct {
	Dir            string
	PrivateKeyPath string
}

// NewRing returns a Ring reading keys from dir.
func NewRing(dir string) *Ring {
	return &Ring{Dir: dir}
}

// PublicKeys loads every recipient public key in the ring, ordered by file
// name, with one entry per distinct key. It returns ErrNoPublicKeys when
// there are none.
func (r *Ring) PublicKeys() ([]Recipient, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoPublicKeys, r.Dir)
		}
		return nil, fmt.Errorf("read key dir %s: %w", r.Dir, err)
	}
	var out []Recipient
	for _, e := range entries {
		if e.IsDir() || !isPublicKeyFile(e.Name()) {
			continue
		}
		path := filepath.Join(r.Dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read public key %s: %w", path, err)
		}
		pub, err := ParsePublicKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse public key %s: %w", path, err)
		}
		fp, err := Fingerprint(pub)
		if err != nil {
			return nil, err
		}
		out = append(out, Recipient{Name: e.Name(), Key: pub, Fingerprint: fp})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPublicKeys, r.Dir)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	// The same key saved under two names is still one recipient; the first
	// file name wins.
	seen := make(map[string]bool, len(out))
	uniq := out[:0]
	for _, rc := range out {
		if seen[rc.Fingerprint] {
			continue
		}
		seen[rc.Fingerprint] = true
		uniq = append(uniq, rc)
	}
	return uniq, nil
}

// PrivateKey loads the local private key.
func (r *Ring) PrivateKey() (*rsa.PrivateKey, error) {
	path := r.PrivateKeyPath
	if path == "" {
		var err error
		path, err = r.findPrivateKey()
		if err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoPrivateKey, path)
		}
		return nil, fmt.Errorf("read private key %s: %w", path, err)
	}
	priv, err := ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %w", path, err)
	}
	return priv, nil
}

func (r *Ring) findPrivateKey() (string, error) {
	matches, err := filepath.Glob(filepath.Join(r.Dir, "private_key*.pem"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoPrivateKey, r.Dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Generate creates a new key pair in the ring: private_key.pem (PKCS#8,
// mode 0600) and public_key.pem (PKIX). Existing files are not replaced.
func (r *Ring) Generate(bits int) (Recipient, error) {
	if bits == 0 {
		bits = DefaultBits
	}
	privPath := filepath.Join(r.Dir, "private_key.pem")
	pubPath := filepath.Join(r.Dir, "public_key.pem")
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Stat(p); err == nil {
			return Recipient{}, fmt.Errorf("generate key pair: %s already exists", p)
		}
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return Recipient{}, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return Recipient{}, fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubPEM, err := EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return Recipient{}, err
	}

	if err := os.MkdirAll(r.Dir, 0o700); err != nil {
		return Recipient{}, fmt.Errorf("failed to create key directory %s: %w", r.Dir, err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return Recipient{}, fmt.Errorf("failed to write private key %s: %w", privPath, err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return Recipient{}, fmt.Errorf("failed to write public key %s: %w", pubPath, err)
	}

	fp, err := Fingerprint(&priv.PublicKey)
	if err != nil {
		return Recipient{}, err
	}
	return Recipient{Name: filepath.Base(pubPath), Key: &priv.PublicKey, Fingerprint: fp}, nil
}

// Import adds a collaborator's public key to the ring under
// public_key_<id>.pem. It reports added=false, without writing, when a key
// with the same fingerprint is already present.
func (r *Ring) Import(data []byte) (Recipient, bool, error) {
	pub, err := ParsePublicKey(data)
	if err != nil {
		return Recipient{}, false, fmt.Errorf("import public key: %w", err)
	}
	fp, err := Fingerprint(pub)
	if err != nil {
		return Recipient{}, false, err
	}

	existing, err := r.PublicKeys()
	if err != nil && !errors.Is(err, ErrNoPublicKeys) {
		return Recipient{}, false, err
	}
	for _, rc := range existing {
		if rc.Fingerprint == fp {
			return rc, false, nil
		}
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return Recipient{}, false, fmt.Errorf("import public key: %w", err)
	}
	sum := sha256.Sum256(der)
	name := "public_key_" + hex.EncodeToString(sum[:])[:12] + ".pem"

	encoded, err := EncodePublicKey(pub)
	if err != nil {
		return Recipient{}, false, err
	}
	if err := os.MkdirAll(r.Dir, 0o700); err != nil {
		return Recipient{}, false, fmt.Errorf("import public key: %w", err)
	}
	path := filepath.Join(r.Dir, name)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return Recipient{}, false, fmt.Errorf("import public key: %w", err)
	}
	return Recipient{Name: name, Key: pub, Fingerprint: fp}, true, nil
}

// PublicPEM returns the PKIX PEM encoding of the local key pair's public
// half, the form handed to collaborators.
func (r *Ring) PublicPEM() ([]byte, error) {
	priv, err := r.PrivateKey()
	if err != nil {
		return nil, err
	}
	return EncodePublicKey(&priv.PublicKey)
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// ParsePublicKey accepts a PEM "PUBLIC KEY" (PKIX), a PEM "RSA PUBLIC KEY"
// (PKCS#1) or an OpenSSH authorized-key line.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		switch block.Type {
		case "PUBLIC KEY":
			pub, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			rsaPub, ok := pub.(*rsa.PublicKey)
			if !ok {
				return nil, ErrNotRSA
			}
			return rsaPub, nil
		case "RSA PUBLIC KEY":
			return x509.ParsePKCS1PublicKey(block.Bytes)
		default:
			return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
		}
	}

	sshPub, _, _, _, err := ssh.ParseAuthorizedKey(bytes.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	cpk, ok := sshPub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	rsaPub, ok := cpk.CryptoPublicKey().(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return rsaPub, nil
}

// ParsePrivateKey accepts PKCS#8, PKCS#1 and OpenSSH PEM encodings of an
// unencrypted RSA private key.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	raw, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("private key is passphrase protected")
		}
		return nil, err
	}
	switch k := raw.(type) {
	case *rsa.PrivateKey:
		return k, nil
	default:
		return nil, ErrNotRSA
	}
}

// EncodePublicKey returns the PKIX PEM encoding of pub.
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// Fingerprint returns the SSH SHA256 fingerprint of pub.
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return ssh.FingerprintSHA256(sshPub), nil
}

func isPublicKeyFile(name string) bool {
	if strings.HasPrefix(name, "public_key") && strings.HasSuffix(name, ".pem") {
		return true
	}
	return strings.HasSuffix(name, ".pub")
}
