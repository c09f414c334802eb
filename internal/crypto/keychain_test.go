// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"bytes"
	"testing"

	"github.com/MKhiriev/reflog-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// low iteration count keeps the suite fast; the algorithm is the same
func testKeyChain() KeyChainService {
	return NewKeyChainServiceWithIterations(1000)
}

func TestGenerateSalt_LengthAndRandomness(t *testing.T) {
	svc := testKeyChain()

	s1, err := svc.GenerateSalt()
	require.NoError(t, err)
	s2, err := svc.GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, s1, 16)
	assert.Len(t, s2, 16)
	assert.False(t, bytes.Equal(s1, s2), "expected salts to differ")
}

func TestDeriveKey_DeterministicForSameInputs(t *testing.T) {
	svc := testKeyChain()
	salt := bytes.Repeat([]byte{0xAB}, 16)

	k1 := svc.DeriveKey("correct horse battery staple", salt)
	k2 := svc.DeriveKey("correct horse battery staple", salt)

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
}

func TestDeriveKey_DiffersBySaltAndPassphrase(t *testing.T) {
	svc := testKeyChain()
	saltA := bytes.Repeat([]byte{0x01}, 16)
	saltB := bytes.Repeat([]byte{0x02}, 16)

	base := svc.DeriveKey("pass", saltA)
	assert.NotEqual(t, base, svc.DeriveKey("pass", saltB))
	assert.NotEqual(t, base, svc.DeriveKey("pass2", saltA))
}

func TestNewKeyChainService_DefaultIterations(t *testing.T) {
	assert.Equal(t, 100_000, NewKeyChainService().Iterations())
	assert.Equal(t, 100_000, NewKeyChainServiceWithIterations(0).Iterations())
}

func TestVerify_RightPassphrase(t *testing.T) {
	svc := testKeyChain()
	salt, err := svc.GenerateSalt()
	require.NoError(t, err)

	key := svc.DeriveKey("s3cret", salt)
	blob, err := svc.NewVerification(key)
	require.NoError(t, err)

	assert.NoError(t, svc.Verify(svc.DeriveKey("s3cret", salt), blob))
}

func TestVerify_WrongPassphrase(t *testing.T) {
	svc := testKeyChain()
	salt, err := svc.GenerateSalt()
	require.NoError(t, err)

	blob, err := svc.NewVerification(svc.DeriveKey("s3cret", salt))
	require.NoError(t, err)

	err = svc.Verify(svc.DeriveKey("guess", salt), blob)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestVerify_SentinelMismatch(t *testing.T) {
	svc := testKeyChain()
	key := svc.DeriveKey("s3cret", make([]byte, 16))

	// decrypts fine but is not the sentinel
	blob, err := EncryptField([]byte("something-else"), key)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Verify(key, blob), ErrWrongPassphrase)
}

func TestVerify_InvalidKey(t *testing.T) {
	svc := testKeyChain()
	err := svc.Verify([]byte("short"), models.EncryptedField{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}
