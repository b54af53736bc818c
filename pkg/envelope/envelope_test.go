package envelope

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
)

var (
	rsaOnce sync.Once
	rsaKeys [2]*rsa.PrivateKey
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	rsaOnce.Do(func() {
		for i := range rsaKeys {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			rsaKeys[i] = k
		}
	})
	return rsaKeys[0], rsaKeys[1]
}

func mustKey(t *testing.T) []byte {
	t.Helper()
	k, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func TestNewKeyIsFresh(t *testing.T) {
	k1, k2 := mustKey(t), mustKey(t)
	if len(k1) != KeySize {
		t.Fatalf("len(key) = %d, want %d", len(k1), KeySize)
	}
	if bytes.Equal(k1, k2) {
		t.Fatal("two keys are identical")
	}
}

func TestContentRoundTrip(t *testing.T) {
	key := mustKey(t)
	for _, data := range [][]byte{
		[]byte("hi"),
		{},
		bytes.Repeat([]byte("compressible "), 1000),
	} {
		sealed, err := SealContent(key, data)
		if err != nil {
			t.Fatalf("SealContent: %v", err)
		}
		got, err := OpenContent(key, sealed)
		if err != nil {
			t.Fatalf("OpenContent: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("round trip = %q, want %q", got, data)
		}
	}
}

func TestSealContentIsRandomized(t *testing.T) {
	key := mustKey(t)
	a, _ := SealContent(key, []byte("same"))
	b, _ := SealContent(key, []byte("same"))
	if bytes.Equal(a, b) {
		t.Error("sealing twice produced identical ciphertext")
	}
}

func TestOpenContentWrongKey(t *testing.T) {
	sealed, err := SealContent(mustKey(t), []byte("secret"))
	if err != nil {
		t.Fatalf("SealContent: %v", err)
	}
	if _, err := OpenContent(mustKey(t), sealed); !errors.Is(err, ErrMismatch) {
		t.Fatalf("OpenContent with wrong key err = %v, want ErrMismatch", err)
	}
}

func TestOpenContentTampered(t *testing.T) {
	key := mustKey(t)
	sealed, _ := SealContent(key, []byte("secret"))
	sealed[len(sealed)-1] ^= 0xff
	if _, err := OpenContent(key, sealed); !errors.Is(err, ErrMismatch) {
		t.Fatalf("err = %v, want ErrMismatch", err)
	}
	if _, err := OpenContent(key, []byte{Version}); !errors.Is(err, ErrMismatch) {
		t.Fatalf("short payload err = %v, want ErrMismatch", err)
	}
}

func TestNameRoundTrip(t *testing.T) {
	key := mustKey(t)
	const id = "c22b5f9178342609428d6f51b2c5af4c0bde6a42"
	name, err := SealName(key, id)
	if err != nil {
		t.Fatalf("SealName: %v", err)
	}
	if strings.Contains(name, id) {
		t.Fatal("sealed name leaks the identity")
	}
	if _, err := hex.DecodeString(name); err != nil {
		t.Fatalf("sealed name is not hex: %v", err)
	}
	got, err := OpenName(key, name)
	if err != nil {
		t.Fatalf("OpenName: %v", err)
	}
	if got != id {
		t.Errorf("OpenName = %q, want %q", got, id)
	}
}

func TestOpenNameMismatch(t *testing.T) {
	key := mustKey(t)
	name, _ := SealName(key, "abc")
	if _, err := OpenName(mustKey(t), name); !errors.Is(err, ErrMismatch) {
		t.Errorf("wrong key err = %v", err)
	}
	if _, err := OpenName(key, "7.head"); !errors.Is(err, ErrMismatch) {
		t.Errorf("non-hex name err = %v", err)
	}
}

func TestNameAndContentDomainsAreSeparate(t *testing.T) {
	key := mustKey(t)
	content, _ := SealContent(key, []byte("data"))
	if _, err := OpenName(key, hex.EncodeToString(content)); !errors.Is(err, ErrMismatch) {
		t.Errorf("content opened as a name: %v", err)
	}
	name, _ := SealName(key, "id")
	raw, _ := hex.DecodeString(name)
	if _, err := OpenContent(key, raw); !errors.Is(err, ErrMismatch) {
		t.Errorf("name opened as content: %v", err)
	}
}

func TestRandomName(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n, err := RandomName()
		if err != nil {
			t.Fatalf("RandomName: %v", err)
		}
		if len(n) != NameLen {
			t.Fatalf("len(%q) = %d, want %d", n, len(n), NameLen)
		}
		if seen[n] {
			t.Fatalf("duplicate name %q", n)
		}
		seen[n] = true
	}
}

func TestWrapUnwrap(t *testing.T) {
	alice, bob := testKeys(t)
	key := mustKey(t)

	wrapped, err := Wrap(&alice.PublicKey, key)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	got, err := Unwrap(alice, wrapped)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("Unwrap returned a different key")
	}

	if _, err := Unwrap(bob, wrapped); !errors.Is(err, ErrMismatch) {
		t.Errorf("Unwrap with other private key err = %v, want ErrMismatch", err)
	}
}

func TestUnwrapRejectsNonKeyPlaintext(t *testing.T) {
	alice, _ := testKeys(t)
	short, err := rsa.EncryptPKCS1v15(rand.Reader, &alice.PublicKey, []byte("sixteen byte msg"))
	if err != nil {
		t.Fatalf("EncryptPKCS1v15: %v", err)
	}
	if _, err := Unwrap(alice, short); !errors.Is(err, ErrMismatch) {
		t.Errorf("16-byte plaintext accepted as key: %v", err)
	}
	if _, err := Unwrap(alice, []byte("not rsa at all")); !errors.Is(err, ErrMismatch) {
		t.Errorf("garbage accepted as key: %v", err)
	}
}

func TestWrapRejectsBadKeyLength(t *testing.T) {
	alice, _ := testKeys(t)
	if _, err := Wrap(&alice.PublicKey, []byte("short")); err == nil {
		t.Fatal("Wrap accepted a short key")
	}
}
