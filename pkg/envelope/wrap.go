package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
)

// Wrap encrypts a raw symmetric key for one recipient with RSA PKCS#1 v1.5.
func Wrap(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("wrap: key is %d bytes, want %d", len(key), KeySize)
	}
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, key)
	if err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}
	return wrapped, nil
}

// Unwrap recovers a symmetric key. A payload only counts as a wrapped key
// when the padding is valid and the plaintext is exactly KeySize bytes;
// anything else is ErrMismatch.
func Unwrap(priv *rsa.PrivateKey, payload []byte) ([]byte, error) {
	if len(payload) != priv.Size() {
		return nil, ErrMismatch
	}
	key, err := rsa.DecryptPKCS1v15(nil, priv, payload)
	if err != nil || len(key) != KeySize {
		return nil, ErrMismatch
	}
	return key, nil
}
