// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// VaultMetaID is the id of the single vault_meta record.
const VaultMetaID = "vault"

// EncryptedField is the at-rest shape of an encrypted field value.
type EncryptedField struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

// VaultMeta is persisted at vault setup. Verification is the sentinel string
// sealed under the derived key; unlocking succeeds only when it decrypts back
// to the exact sentinel.
type VaultMeta struct {
	ID           string         `json:"id"`
	Salt         []byte         `json:"salt"`
	Iterations   int            `json:"iterations"`
	CreatedAt    time.Time      `json:"createdAt"`
	Verification EncryptedField `json:"verification"`
}
