package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 10000
	keyLength     = 32 // AES-256
	saltLength    = 16
)

// CipherStage encrypts document bodies with AES-256-GCM. The key is
// derived from the configured passphrase and a per-store random salt, so
// copying the database file to another machine without the passphrase
// yields nothing readable.
type CipherStage struct {
	aead cipher.AEAD
}

// NewCipherStage derives the store key and prepares the AEAD.
func NewCipherStage(passphrase string, salt []byte) (*CipherStage, error) {
	if len(salt) != saltLength {
		return nil, fmt.Errorf("cipher stage: salt must be %d bytes, got %d", saltLength, len(salt))
	}

	key := pbkdf2.Key([]byte(passphrase), salt, keyIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher stage: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher stage: %w", err)
	}
	return &CipherStage{aead: aead}, nil
}

// Encode seals the body. Output layout: nonce || ciphertext.
// The collection name is bound as additional data, so a ciphertext moved
// between collections fails to open.
func (s *CipherStage) Encode(collection string, body []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encrypt %s: %w", collection, err)
	}
	return s.aead.Seal(nonce, nonce, body, []byte(collection)), nil
}

// Decode opens a sealed body.
func (s *CipherStage) Decode(collection string, sealed []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns {
		return nil, fmt.Errorf("decrypt %s: sealed body too short", collection)
	}
	body, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(collection))
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", collection, err)
	}
	return body, nil
}

// newSalt generates a fresh random salt for a new store.
func newSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
