package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_AllValues(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-a", "localhost:9000",
		"-d", "postgres://db",
		"-config", "/etc/reflog.json",
		"-token-sign-key", "k",
		"-token-issuer", "idp",
		"-request-timeout", "5s",
		"-server-url", "https://sync.example.com",
		"-profile-dir", "/home/u/.reflog",
		"-sync-interval", "90s",
		"-device-name", "laptop",
	})
	require.NoError(t, err)

	assert.Equal(t, "localhost:9000", cfg.Server.HTTPAddress)
	assert.Equal(t, "postgres://db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/etc/reflog.json", cfg.JSONFilePath)
	assert.Equal(t, "k", cfg.App.TokenSignKey)
	assert.Equal(t, "idp", cfg.App.TokenIssuer)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, "https://sync.example.com", cfg.Adapter.HTTPAddress)
	assert.Equal(t, "/home/u/.reflog", cfg.Coordinator.ProfileDir)
	assert.Equal(t, 90*time.Second, cfg.Workers.SyncInterval)
	assert.Equal(t, "laptop", cfg.App.DeviceName)
}

func TestParseFlags_NoArgsLeavesZeroValues(t *testing.T) {
	cfg, err := ParseFlags(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.HTTPAddress)
	assert.Empty(t, cfg.JSONFilePath)
	assert.Zero(t, cfg.Workers.SyncInterval)
}

func TestParseFlags_InvalidAddress(t *testing.T) {
	_, err := ParseFlags([]string{"-a", "not-an-address"})
	assert.Error(t, err)
}

func TestNetAddress_Set(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    NetAddress
		wantErr bool
	}{
		{name: "localhost", input: "localhost:8080", want: NetAddress{Host: "localhost", Port: 8080}},
		{name: "ip", input: "127.0.0.1:443", want: NetAddress{Host: "127.0.0.1", Port: 443}},
		{name: "empty host", input: ":8080", want: NetAddress{Port: 8080}},
		{name: "missing port", input: "localhost", wantErr: true},
		{name: "port out of range", input: "localhost:70000", wantErr: true},
		{name: "non numeric port", input: "localhost:http", wantErr: true},
		{name: "bad ip", input: "999.1.1.1:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a NetAddress
			err := a.Set(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestNetAddress_String(t *testing.T) {
	assert.Equal(t, "", (&NetAddress{}).String())
	assert.Equal(t, "localhost:80", (&NetAddress{Host: "localhost", Port: 80}).String())
	assert.Equal(t, ":80", (&NetAddress{Port: 80}).String())
}
