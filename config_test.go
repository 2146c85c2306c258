package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig("test", nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", cfg.Reference.Addr())
	assert.Equal(t, "127.0.0.1:6383", cfg.Subject.Addr())
	assert.Equal(t, []int{100, 1000, 5000, 20000}, cfg.DataSizes)
	assert.Equal(t, 10, cfg.ReadIterations)
	assert.Equal(t, 100, cfg.KVMaxPairs)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, time.Duration(0), cfg.IOTimeout)
	assert.Equal(t, readModeSingle, cfg.ReadMode)
	assert.Equal(t, 15000, cfg.Single.Requests)
}

func TestParseConfigFlags(t *testing.T) {
	cfg, err := parseConfig("test", []string{
		"-h", "10.0.0.5",
		"-subject-port", "7000",
		"-size", "10", "-size", "20,30",
		"-read-mode", "framed",
		"-subject-read", "RANGE __series__",
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", cfg.Reference.Host)
	assert.Equal(t, "10.0.0.5", cfg.Subject.Host)
	assert.Equal(t, "10.0.0.5", cfg.Single.Host)
	assert.Equal(t, 7000, cfg.Subject.Port)
	assert.Equal(t, []int{10, 20, 30}, cfg.DataSizes)
	assert.Equal(t, readModeFramed, cfg.ReadMode)
	assert.Equal(t, "RANGE __series__", cfg.Subject.Commands.Read)
}

func TestParseConfigFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data-sizes = [5, 6]
read-iterations = 3
probe-timeout = "500ms"

[subject]
name = "ZT"
port = 7001

[subject.commands]
write = "TS.ADD __series__ __ts__ __value__"
`), 0644))

	cfg, err := parseConfig("test", []string{"-config", path, "-subject-port", "7002"})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, cfg.DataSizes)
	assert.Equal(t, 3, cfg.ReadIterations)
	assert.Equal(t, 500*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, "ZT", cfg.Subject.Name)
	assert.Equal(t, 7002, cfg.Subject.Port)
	assert.Equal(t, "TS.ADD __series__ __ts__ __value__", cfg.Subject.Commands.Write)
	// untouched keys keep their defaults
	assert.Equal(t, "GET __series__", cfg.Subject.Commands.Read)
	assert.Equal(t, 6379, cfg.Reference.Port)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad port", []string{"-reference-port", "xx"}},
		{"bad read mode", []string{"-read-mode", "streaming"}},
		{"bad mode", []string{"-mode", "cluster"}},
		{"bad protocol", []string{"-subject-protocol", "http"}},
		{"bad size", []string{"-size", "0"}},
		{"bad iterations", []string{"-read-iterations", "0"}},
		{"zero probe timeout", []string{"-probe-timeout", "0"}},
		{"negative probe timeout", []string{"-probe-timeout", "-1s"}},
		{"negative io timeout", []string{"-io-timeout", "-5ms"}},
		{"missing file", []string{"-config", "/nonexistent/bench.toml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig("test", tt.args)
			assert.Error(t, err)
		})
	}
}
