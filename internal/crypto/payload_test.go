// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/MKhiriev/reflog-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealPayload_RoundTrip(t *testing.T) {
	key := testKey(3)
	entry := models.Entry{
		ID:        "e1",
		Title:     "day one",
		Body:      "hello",
		Tags:      []string{"a", "b"},
		Status:    models.EntryStatusDraft,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
	}

	sealed, err := SealPayload(entry, key)
	require.NoError(t, err)

	var got models.Entry
	require.NoError(t, OpenPayload(sealed, key, &got))
	assert.Equal(t, entry, got)
}

func TestSealPayload_Layout(t *testing.T) {
	sealed, err := SealPayload(map[string]string{"id": "x"}, testKey(3))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	// 12-byte nonce + at least the 16-byte GCM tag
	assert.Greater(t, len(raw), 12+16)
}

func TestSealPayload_NonDeterministic(t *testing.T) {
	a, err := SealPayload("same", testKey(3))
	require.NoError(t, err)
	b, err := SealPayload("same", testKey(3))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpenPayload_WrongKey(t *testing.T) {
	sealed, err := SealPayload("secret", testKey(3))
	require.NoError(t, err)

	var out string
	assert.ErrorIs(t, OpenPayload(sealed, testKey(4), &out), ErrDecryption)
}

func TestOpenPayload_Garbage(t *testing.T) {
	var out string
	assert.ErrorIs(t, OpenPayload("%%%not-base64", testKey(3), &out), ErrDecryption)
	assert.ErrorIs(t, OpenPayload(base64.StdEncoding.EncodeToString([]byte("short")), testKey(3), &out), ErrDecryption)
}
