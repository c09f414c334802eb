// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crypto implements the client-side cryptography of the journal:
// passphrase key derivation with a sealed sentinel for unlock verification,
// per-field AES-GCM encryption for data at rest, and the sealed sync payload
// codec (JSON → gzip → AES-GCM → base64) used on the wire.
//
// Nothing in this package talks to storage or the network.
package crypto

import "github.com/MKhiriev/reflog-sync/models"

//go:generate mockgen -source=interfaces.go -destination=../mock/keychain_service_mock.go -package=mock

// KeyChainService derives and verifies the vault key.
//
// Setup:
//
//	salt  = GenerateSalt()
//	key   = DeriveKey(passphrase, salt)
//	blob  = NewVerification(key)        // persisted with salt
//
// Unlock:
//
//	key   = DeriveKey(passphrase, salt)
//	err   = Verify(key, blob)            // nil only for the right passphrase
type KeyChainService interface {
	// GenerateSalt returns 16 random bytes from the OS CSPRNG.
	GenerateSalt() ([]byte, error)

	// DeriveKey runs PBKDF2-HMAC-SHA256 over passphrase and salt and returns
	// a 256-bit key.
	DeriveKey(passphrase string, salt []byte) []byte

	// Iterations returns the PBKDF2 iteration count used by DeriveKey.
	Iterations() int

	// NewVerification seals the vault sentinel under key.
	NewVerification(key []byte) (models.EncryptedField, error)

	// Verify decrypts blob with key and reports [ErrWrongPassphrase] unless
	// it reproduces the exact sentinel.
	Verify(key []byte, blob models.EncryptedField) error
}
