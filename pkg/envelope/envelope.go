// Package envelope holds the cryptographic primitives of the locked pool:
// per-object AES-256-GCM sealing of content and identities, RSA wrapping of
// the per-object keys, and random pool names.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// KeySize is the size in bytes of every symmetric key in the pool.
const KeySize = 32

// Version is the format byte prepended to every sealed payload. It is
// part of the additional authenticated data.
const Version byte = 0x01

// NameLen is the length of a random pool name in hex characters.
const NameLen = 40

// ErrMismatch reports that a key does not open a payload. The unlock
// engine treats it as "try the next candidate", never as a failure.
var ErrMismatch = errors.New("envelope: key does not match payload")

// Domain separators mixed into the AAD so a sealed name can never be
// opened as content and the other way round.
const (
	domainContent byte = 'c'
	domainName    byte = 'n'
)

// NewKey returns a fresh random 256-bit key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// SealContent compresses data and seals it under key.
func SealContent(key, data []byte) ([]byte, error) {
	compressed, err := compressZstd(data)
	if err != nil {
		return nil, fmt.Errorf("seal content: compress: %w", err)
	}
	return seal(key, domainContent, compressed)
}

// OpenContent reverses SealContent. It returns ErrMismatch when key did not
// seal payload.
func OpenContent(key, payload []byte) ([]byte, error) {
	compressed, err := open(key, domainContent, payload)
	if err != nil {
		return nil, err
	}
	data, err := decompressZstd(compressed)
	if err != nil {
		return nil, fmt.Errorf("open content: decompress: %w", err)
	}
	return data, nil
}

// SealName seals an object identity and returns the hex string used as the
// pool file name.
func SealName(key []byte, name string) (string, error) {
	sealed, err := seal(key, domainName, []byte(name))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sealed), nil
}

// OpenName recovers the identity sealed into a pool file name. Names that
// are not hex, or were sealed under another key, yield ErrMismatch.
func OpenName(key []byte, fileName string) (string, error) {
	sealed, err := hex.DecodeString(fileName)
	if err != nil {
		return "", ErrMismatch
	}
	name, err := open(key, domainName, sealed)
	if err != nil {
		return "", err
	}
	return string(name), nil
}

// RandomName returns a fresh 40-character hex identifier for a wrapped-key
// file. Collisions are left to the 160 bits of randomness.
func RandomName() (string, error) {
	var b [NameLen / 2]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return "", fmt.Errorf("random name: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// seal returns version || nonce || ciphertext+tag.
func seal(key []byte, domain byte, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := aead.NonceSize()
	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+aead.Overhead())
	out[0] = Version
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("seal: generating nonce: %w", err)
	}
	return aead.Seal(out, out[1:], plaintext, []byte{Version, domain}), nil
}

func open(key []byte, domain byte, payload []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := aead.NonceSize()
	if len(payload) < 1+nonceSize+aead.Overhead() || payload[0] != Version {
		return nil, ErrMismatch
	}
	plaintext, err := aead.Open(nil, payload[1:1+nonceSize], payload[1+nonceSize:], []byte{Version, domain})
	if err != nil {
		return nil, ErrMismatch
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("envelope: key is %d bytes, want %d", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	return aead, nil
}
