// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import "errors"

var (
	// ErrDecryption is returned when a ciphertext cannot be opened: wrong key,
	// truncated blob or a failed authentication tag.
	ErrDecryption = errors.New("decryption failed")

	// ErrWrongPassphrase is returned by Verify when the sentinel does not
	// decrypt to its original value.
	ErrWrongPassphrase = errors.New("wrong passphrase")

	// ErrInvalidKey is returned when a key is not 16, 24 or 32 bytes long.
	ErrInvalidKey = errors.New("invalid encryption key")
)
