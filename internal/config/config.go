package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"snapbench/internal/memregion"
)

// Duration is a custom type that can unmarshal from JSON strings
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = duration
	return nil
}

// ByteSize is a byte count that unmarshals from either a JSON number or a
// human readable string such as "400MiB".
type ByteSize uint64

// UnmarshalJSON implements the json.Unmarshaler interface
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return b.Set(s)
}

// Set parses a human readable size.
func (b *ByteSize) Set(s string) error {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Buffer size presets of the benchmark variants.
const (
	SinglePage = ByteSize(4 * 1024)
	Medium     = ByteSize(400 * 1024 * 1024)
	Large      = ByteSize(1024 * 1024 * 1024)
)

// Environment variables read by Load.
const (
	EnvConfigPath    = "SNAPBENCH_CONFIG"
	EnvBufferSize    = "SNAPBENCH_BUFFER_SIZE"
	EnvAccessPattern = "SNAPBENCH_ACCESS_PATTERN"
	EnvPort          = "SNAPBENCH_PORT"
	EnvRegion        = "AWS_REGION"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port" json:"port" default:":8080"`
		ReadTimeout     Duration `yaml:"read_timeout" json:"read_timeout" default:"10s"`
		WriteTimeout    Duration `yaml:"write_timeout" json:"write_timeout" default:"60s"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" default:"30s"`
	} `yaml:"server" json:"server"`

	Metrics struct {
		CollectionInterval   Duration `yaml:"collection_interval" json:"collection_interval" default:"15s"`
		CommandTimeout       Duration `yaml:"command_timeout" json:"command_timeout" default:"10s"`
		EnableProcessMetrics bool     `yaml:"enable_process_metrics" json:"enable_process_metrics" default:"true"`
	} `yaml:"metrics" json:"metrics"`

	Benchmark struct {
		BufferSize    ByteSize             `yaml:"buffer_size" json:"buffer_size" default:"400MiB"`
		AccessPattern memregion.AccessPlan `yaml:"access_pattern" json:"access_pattern" default:"sequential"`
		Region        string               `yaml:"region" json:"region"`
	} `yaml:"benchmark" json:"benchmark"`

	Logging struct {
		Level  string `yaml:"level" json:"level" default:"info"`
		Format string `yaml:"format" json:"format" default:"console"`
	} `yaml:"logging" json:"logging"`
}

// New returns a Config holding the defaults.
func New() *Config {
	config := &Config{}
	config.Server.Port = ":8080"
	config.Server.ReadTimeout = Duration{10 * time.Second}
	config.Server.WriteTimeout = Duration{60 * time.Second}
	config.Server.ShutdownTimeout = Duration{30 * time.Second}
	config.Metrics.CollectionInterval = Duration{15 * time.Second}
	config.Metrics.CommandTimeout = Duration{10 * time.Second}
	config.Metrics.EnableProcessMetrics = true
	config.Benchmark.BufferSize = Medium
	config.Benchmark.AccessPattern = memregion.Sequential
	config.Logging.Level = "info"
	config.Logging.Format = "console"
	return config
}

// LoadFromJSON loads configuration from a JSON file on top of the defaults
func LoadFromJSON(path string) (*Config, error) {
	config := New()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields() // Fail on unknown fields

	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return config, nil
}

// Load reads an optional .env file, the JSON config at path (or the path in
// SNAPBENCH_CONFIG) when it exists, then applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if p := os.Getenv(EnvConfigPath); p != "" {
		path = p
	}

	config := New()
	if path != "" {
		loaded, err := LoadFromJSON(path)
		switch {
		case err == nil:
			config = loaded
		case errors.Is(err, os.ErrNotExist):
			// defaults
		default:
			return nil, err
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBufferSize); ok && v != "" {
		if err := c.Benchmark.BufferSize.Set(v); err != nil {
			return fmt.Errorf("%s: %w", EnvBufferSize, err)
		}
	}
	if v, ok := lookup(EnvAccessPattern); ok && v != "" {
		plan, err := memregion.ParseAccessPlan(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAccessPattern, err)
		}
		c.Benchmark.AccessPattern = plan
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		// A bare port listens on every interface; host:port is taken as is.
		if !strings.Contains(v, ":") {
			v = ":" + v
		}
		c.Server.Port = v
	}
	if v, ok := lookup(EnvRegion); ok && v != "" {
		c.Benchmark.Region = v
	}
	return nil
}

// Validate checks the settings that cannot be caught by decoding. Page
// alignment of the buffer size is checked when the region is populated.
func (c *Config) Validate() error {
	if c.Benchmark.BufferSize == 0 {
		return errors.New("benchmark.buffer_size must be positive")
	}
	if uint64(c.Benchmark.BufferSize) > uint64(maxInt) {
		return fmt.Errorf("benchmark.buffer_size %s does not fit in memory", c.Benchmark.BufferSize)
	}
	if err := validateAddr(c.Server.Port); err != nil {
		return fmt.Errorf("server.port: %w", err)
	}
	if c.Metrics.CollectionInterval.Duration <= 0 {
		return errors.New("metrics.collection_interval must be positive")
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)

// validateAddr accepts "host:port" or ":port" with a numeric port.
func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
