package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapbench/internal/memregion"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout.Duration)
	assert.Equal(t, Medium, cfg.Benchmark.BufferSize)
	assert.Equal(t, memregion.Sequential, cfg.Benchmark.AccessPattern)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromJSON(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": ":9000", "shutdown_timeout": "5s"},
		"benchmark": {"buffer_size": "1GiB", "access_pattern": "random", "region": "eu-central-1"}
	}`)

	cfg, err := LoadFromJSON(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Duration)
	assert.Equal(t, Large, cfg.Benchmark.BufferSize)
	assert.Equal(t, memregion.Random, cfg.Benchmark.AccessPattern)
	assert.Equal(t, "eu-central-1", cfg.Benchmark.Region)
	// untouched sections keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Metrics.CollectionInterval.Duration)
}

func TestLoadFromJSON_UnknownField(t *testing.T) {
	path := writeConfig(t, `{"benchmark": {"page_size": 8192}}`)

	_, err := LoadFromJSON(path)
	assert.Error(t, err)
}

func TestLoadFromJSON_BadPattern(t *testing.T) {
	path := writeConfig(t, `{"benchmark": {"access_pattern": "strided"}}`)

	_, err := LoadFromJSON(path)
	assert.Error(t, err)
}

func TestLoadFromJSON_Missing(t *testing.T) {
	_, err := LoadFromJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestByteSize_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{`4096`, SinglePage},
		{`"4KiB"`, SinglePage},
		{`"400MiB"`, Medium},
		{`"1 GiB"`, Large},
	}
	for _, tt := range tests {
		var b ByteSize
		require.NoError(t, json.Unmarshal([]byte(tt.in), &b), tt.in)
		assert.Equal(t, tt.want, b, tt.in)
	}

	var b ByteSize
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &b))
	assert.Error(t, json.Unmarshal([]byte(`true`), &b))
}

func TestByteSize_String(t *testing.T) {
	assert.Equal(t, "400 MiB", Medium.String())
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvBufferSize:    "4KiB",
		EnvAccessPattern: "rand",
		EnvPort:          "3000",
		EnvRegion:        "ap-south-1",
	}))
	require.NoError(t, err)

	assert.Equal(t, SinglePage, cfg.Benchmark.BufferSize)
	assert.Equal(t, memregion.Random, cfg.Benchmark.AccessPattern)
	assert.Equal(t, ":3000", cfg.Server.Port)
	assert.Equal(t, "ap-south-1", cfg.Benchmark.Region)
}

func TestApplyEnv_PortAddress(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{EnvPort: "127.0.0.1:9000"})))
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Port)
	assert.NoError(t, cfg.Validate())

	cfg = New()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{EnvPort: "http"})))
	assert.ErrorContains(t, cfg.Validate(), "server.port")
}

func TestApplyEnv_Invalid(t *testing.T) {
	assert.Error(t, New().ApplyEnv(envMap(map[string]string{EnvBufferSize: "huge"})))
	assert.Error(t, New().ApplyEnv(envMap(map[string]string{EnvAccessPattern: "zigzag"})))
}

func TestValidate(t *testing.T) {
	cfg := New()
	cfg.Benchmark.BufferSize = 0
	assert.Error(t, cfg.Validate())

	cfg = New()
	cfg.Metrics.CollectionInterval = Duration{}
	assert.Error(t, cfg.Validate())

	cfg = New()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())

	for _, port := range []string{"8080", ":99999", "localhost:", "::1:80"} {
		cfg = New()
		cfg.Server.Port = port
		assert.Error(t, cfg.Validate(), port)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `{"benchmark": {"buffer_size": "8KiB"}}`)
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvAccessPattern, "random")
	t.Setenv(EnvRegion, "us-west-2")

	cfg, err := Load("does-not-matter.json")
	require.NoError(t, err)

	assert.Equal(t, ByteSize(8192), cfg.Benchmark.BufferSize)
	assert.Equal(t, memregion.Random, cfg.Benchmark.AccessPattern)
	assert.Equal(t, "us-west-2", cfg.Benchmark.Region)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvBufferSize, "")
	t.Setenv(EnvAccessPattern, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Medium, cfg.Benchmark.BufferSize)
}

func TestShippedConfigurationParses(t *testing.T) {
	cfg, err := LoadFromJSON("configurations.json")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
