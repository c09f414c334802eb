// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

// defaultTombstoneSchedule runs the purge daily at 03:00 (cron with seconds).
const defaultTombstoneSchedule = "0 0 3 * * *"

// defaultConfig returns the values used for every field no other source set.
func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer: "reflog",
			Version:     "dev",
			DeviceName:  "reflog-agent",
		},
		Server: Server{
			HTTPAddress:        "localhost:8080",
			RequestTimeout:     30 * time.Second,
			// validators.MaxPayloadLength is derived from this value.
			MaxBodyBytes:       256 << 10,
			RateLimitPerMinute: 60,
			RateLimitBurst:     60,
		},
		Sync: Sync{
			DefaultQuotaBytes:  100 << 20,
			MaxDevices:         10,
			TombstoneRetention: 90 * 24 * time.Hour,
			TombstoneSchedule:  defaultTombstoneSchedule,
		},
		Adapter: Adapter{
			HTTPAddress:    "http://localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		Workers: Workers{
			SyncInterval:  60 * time.Second,
			DebounceDelay: 2 * time.Second,
			AutoLockAfter: 15 * time.Minute,
		},
	}
}
