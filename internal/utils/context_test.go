// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeyString(t *testing.T) {
	assert.Equal(t, "testKey", contextKey("testKey").String())
	assert.Equal(t, "userID", UserIDCtxKey.String())
	assert.Equal(t, "deviceID", DeviceIDCtxKey.String())
}

func TestGetUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDCtxKey, "auth0|42")
	userID, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "auth0|42", userID)

	_, ok = GetUserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = GetUserIDFromContext(context.WithValue(context.Background(), UserIDCtxKey, int64(42)))
	assert.False(t, ok)

	_, ok = GetUserIDFromContext(context.WithValue(context.Background(), UserIDCtxKey, ""))
	assert.False(t, ok)
}

func TestGetDeviceIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), DeviceIDCtxKey, "dev-1")
	deviceID, ok := GetDeviceIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "dev-1", deviceID)

	_, ok = GetDeviceIDFromContext(context.Background())
	assert.False(t, ok)
}
