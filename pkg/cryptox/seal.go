// Package cryptox seals session state before it is written to durable
// storage. Tokens persisted by the console survive restarts on the local
// machine, so they are encrypted at rest with a machine-local key rather
// than stored as plaintext.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	stateKeyOnce sync.Once
	stateKey     []byte
	stateKeyErr  error
	stateKeyPath string // Can be set via SetStateKeyPath before first use
)

// SetStateKeyPath configures where to load the state encryption key from.
// This must be called before any Seal/Open operations.
// If not set, the key is loaded from the ATLAS_STATE_KEY environment variable.
func SetStateKeyPath(path string) {
	stateKeyPath = path
}

// loadStateKey derives a 32-byte key from either:
// 1. File specified by stateKeyPath (if set)
// 2. ATLAS_STATE_KEY environment variable
// 3. Generates an ephemeral key for development (sealed state won't survive restart)
func loadStateKey() ([]byte, error) {
	var keyMaterial []byte

	if stateKeyPath != "" {
		data, err := os.ReadFile(stateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read state key file: %w", err)
		}
		keyMaterial = data
	} else if envKey := os.Getenv("ATLAS_STATE_KEY"); envKey != "" {
		keyMaterial = []byte(envKey)
	} else {
		keyMaterial = make([]byte, 32)
		if _, err := rand.Read(keyMaterial); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral state key: %w", err)
		}
	}

	// Derive a proper 32-byte key regardless of input length
	hash := sha256.Sum256(keyMaterial)
	return hash[:], nil
}

func getStateKey() ([]byte, error) {
	stateKeyOnce.Do(func() {
		stateKey, stateKeyErr = loadStateKey()
	})
	if stateKeyErr != nil {
		return nil, stateKeyErr
	}
	return stateKey, nil
}

// Seal encrypts a state value using XChaCha20-Poly1305.
// The output format is: [24-byte nonce][ciphertext][16-byte auth tag]
func Seal(plaintext []byte) ([]byte, error) {
	key, err := getStateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get state key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// aead.Seal appends the ciphertext and auth tag to nonce
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func Open(sealed []byte) ([]byte, error) {
	key, err := getStateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get state key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed value too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// ResetStateKeyForTesting resets the state key singleton for testing purposes.
// This should ONLY be used in tests.
func ResetStateKeyForTesting() {
	stateKeyOnce = sync.Once{}
	stateKey = nil
	stateKeyErr = nil
}
