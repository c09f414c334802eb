package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig is the on-disk JSON layout of [StructuredConfig].
type StructuredJSONConfig struct {
	App struct {
		TokenSignKey string `json:"token_sign_key"`
		TokenIssuer  string `json:"token_issuer"`
		Version      string `json:"version"`
		AuthToken    string `json:"auth_token"`
		DeviceName   string `json:"device_name"`
		LogFile      string `json:"log_file"`
		VaultSalt    string `json:"vault_salt"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress        string   `json:"http_address"`
		RequestTimeout     Duration `json:"request_timeout"`
		MaxBodyBytes       int64    `json:"max_body_bytes"`
		RateLimitPerMinute int      `json:"rate_limit_per_minute"`
		RateLimitBurst     int      `json:"rate_limit_burst"`
	} `json:"server,omitempty"`

	Sync struct {
		DefaultQuotaBytes  int64    `json:"default_quota_bytes"`
		MaxDevices         int      `json:"max_devices"`
		TombstoneRetention Duration `json:"tombstone_retention"`
		TombstoneSchedule  string   `json:"tombstone_schedule"`
	} `json:"sync,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Workers struct {
		SyncInterval  Duration `json:"sync_interval"`
		DebounceDelay Duration `json:"debounce_delay"`
		AutoLockAfter Duration `json:"auto_lock_after"`
	} `json:"workers,omitempty"`

	Coordinator struct {
		ProfileDir string `json:"profile_dir"`
	} `json:"coordinator,omitempty"`
}

// parseJSON reads a JSON config file. The passphrase is deliberately not a
// JSON field; it comes from the environment only.
func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			TokenSignKey: jsonCfg.App.TokenSignKey,
			TokenIssuer:  jsonCfg.App.TokenIssuer,
			Version:      jsonCfg.App.Version,
			AuthToken:    jsonCfg.App.AuthToken,
			DeviceName:   jsonCfg.App.DeviceName,
			LogFile:      jsonCfg.App.LogFile,
			VaultSalt:    jsonCfg.App.VaultSalt,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Server: Server{
			HTTPAddress:        jsonCfg.Server.HTTPAddress,
			RequestTimeout:     time.Duration(jsonCfg.Server.RequestTimeout),
			MaxBodyBytes:       jsonCfg.Server.MaxBodyBytes,
			RateLimitPerMinute: jsonCfg.Server.RateLimitPerMinute,
			RateLimitBurst:     jsonCfg.Server.RateLimitBurst,
		},
		Sync: Sync{
			DefaultQuotaBytes:  jsonCfg.Sync.DefaultQuotaBytes,
			MaxDevices:         jsonCfg.Sync.MaxDevices,
			TombstoneRetention: time.Duration(jsonCfg.Sync.TombstoneRetention),
			TombstoneSchedule:  jsonCfg.Sync.TombstoneSchedule,
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:  time.Duration(jsonCfg.Workers.SyncInterval),
			DebounceDelay: time.Duration(jsonCfg.Workers.DebounceDelay),
			AutoLockAfter: time.Duration(jsonCfg.Workers.AutoLockAfter),
		},
		Coordinator: Coordinator{
			ProfileDir: jsonCfg.Coordinator.ProfileDir,
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s" as well as raw nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
