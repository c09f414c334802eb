// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"bytes"
	"compress/gzip"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// SealPayload encodes v for the wire: JSON → gzip → AES-GCM with a 12-byte
// random nonce prefixed to the ciphertext → standard base64.
func SealPayload(v any, key []byte) (string, error) {
	// 1. Serialize to JSON
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	// 2. Compress
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err = zw.Write(plaintext); err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}
	if err = zw.Close(); err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}

	// 3. Encrypt: nonce || ciphertext
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	blob := gcm.Seal(nonce, nonce, buf.Bytes(), nil)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// OpenPayload reverses [SealPayload] and unmarshals the record into target.
// Every failure before JSON decoding is reported as [ErrDecryption].
func OpenPayload(sealed string, key []byte, target any) error {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return fmt.Errorf("%w: decode base64: %w", ErrDecryption, err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}

	compressed, err := gcm.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("%w: decompress: %w", ErrDecryption, err)
	}
	defer zr.Close()

	plaintext, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("%w: decompress: %w", ErrDecryption, err)
	}

	if err = json.Unmarshal(plaintext, target); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
