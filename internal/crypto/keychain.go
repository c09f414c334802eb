// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/MKhiriev/reflog-sync/models"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// VaultSentinel is sealed at setup and must decrypt back verbatim on unlock.
	VaultSentinel = "reflog-vault-check"

	defaultIterations = 100_000
	saltSize          = 16
	keySize           = 32
)

// keyChainService is the private implementation of [KeyChainService].
type keyChainService struct {
	iterations int
}

// NewKeyChainService constructs a [KeyChainService] using PBKDF2-SHA256 with
// 100 000 iterations and a 256-bit output.
func NewKeyChainService() KeyChainService {
	return &keyChainService{iterations: defaultIterations}
}

// NewKeyChainServiceWithIterations is [NewKeyChainService] with a custom
// iteration count. Vaults created with a different count store it in
// [models.VaultMeta.Iterations].
func NewKeyChainServiceWithIterations(iterations int) KeyChainService {
	if iterations <= 0 {
		iterations = defaultIterations
	}
	return &keyChainService{iterations: iterations}
}

func (k *keyChainService) GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func (k *keyChainService) DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, k.iterations, keySize, sha256.New)
}

func (k *keyChainService) Iterations() int {
	return k.iterations
}

func (k *keyChainService) NewVerification(key []byte) (models.EncryptedField, error) {
	return EncryptField([]byte(VaultSentinel), key)
}

// Verify implements [KeyChainService]. A wrong passphrase almost always
// fails the GCM tag check; the constant-time compare covers the rest.
func (k *keyChainService) Verify(key []byte, blob models.EncryptedField) error {
	plaintext, err := DecryptField(blob, key)
	if err != nil {
		if errors.Is(err, ErrDecryption) {
			return ErrWrongPassphrase
		}
		return err
	}

	if subtle.ConstantTimeCompare(plaintext, []byte(VaultSentinel)) != 1 {
		return ErrWrongPassphrase
	}
	return nil
}
