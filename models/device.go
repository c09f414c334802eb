// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Device is a registered client of a user.
type Device struct {
	ID           string     `json:"id"`
	UserID       string     `json:"-"`
	Name         string     `json:"name"`
	RegisteredAt time.Time  `json:"registeredAt"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`
}

// RegisterDeviceRequest is the body of POST /api/v1/devices.
type RegisterDeviceRequest struct {
	Name string `json:"name"`
}

// RegisterDeviceResponse carries the server-assigned device id.
type RegisterDeviceResponse struct {
	DeviceID     string    `json:"deviceId"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registeredAt"`
}
