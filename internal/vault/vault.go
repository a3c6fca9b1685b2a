package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"tenant-service/prometheus"
)

const (
	// nonceSize is the size of the GCM nonce (12 bytes is standard for AES-GCM)
	nonceSize = 12

	// keyInfo labels the HKDF derivation so the vault key can never collide
	// with a key derived from the same master secret for another purpose
	keyInfo = "tenant-service/integration-secrets/v1"
)

var (
	// ErrNoMasterKey indicates the vault was constructed without a key
	ErrNoMasterKey = errors.New("vault master key not configured")

	// ErrDecryptionFailed indicates the ciphertext could not be opened under
	// the given tenant and integration type. Fatal for that record: there is
	// no fallback to plaintext or to another tenant's associated data.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Vault seals and unseals per-tenant integration secrets with AES-256-GCM.
// The owning tenant id and integration type are bound as authenticated
// associated data, so ciphertext sealed for one tenant cannot be opened as
// belonging to another even if rows are swapped at the storage layer.
//
// The vault is a cryptographic boundary only. It does not re-check tenant
// membership; callers unseal only after an authorize call returned allow.
type Vault struct {
	aead cipher.AEAD
}

// New derives the vault's AES-256 key from the master secret via HKDF and
// prepares the AEAD. The master secret is never retained or logged.
func New(masterKey string) (*Vault, error) {
	if masterKey == "" {
		return nil, ErrNoMasterKey
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive vault key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// associatedData binds the owning tenant and integration type into the
// authentication tag
func associatedData(tenantID, integrationType string) []byte {
	return []byte(tenantID + "|" + integrationType)
}

// Seal encrypts the plaintext for the (tenant, integration type) pair.
// Output format: nonce (12 bytes) || ciphertext.
func (v *Vault) Seal(tenantID, integrationType string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		prometheus.RecordVaultOperation("seal", "error")
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := v.aead.Seal(nonce, nonce, plaintext, associatedData(tenantID, integrationType))
	prometheus.RecordVaultOperation("seal", "ok")
	return ciphertext, nil
}

// Unseal decrypts ciphertext produced by Seal for the same pair. Any
// mismatch in tenant id, integration type, key or ciphertext integrity
// yields ErrDecryptionFailed.
func (v *Vault) Unseal(tenantID, integrationType string, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		prometheus.RecordVaultOperation("unseal", "error")
		return nil, ErrDecryptionFailed
	}

	nonce := ciphertext[:nonceSize]
	sealed := ciphertext[nonceSize:]

	plaintext, err := v.aead.Open(nil, nonce, sealed, associatedData(tenantID, integrationType))
	if err != nil {
		prometheus.RecordVaultOperation("unseal", "error")
		return nil, ErrDecryptionFailed
	}

	prometheus.RecordVaultOperation("unseal", "ok")
	return plaintext, nil
}
