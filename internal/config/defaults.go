package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mnistd/internal/blobstore"
	"mnistd/internal/routing"
)

// Defaults.
const (
	DefaultAddr          = ":8080"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultStore         = blobstore.DriverFS
	DefaultStorePath     = "./weights"
	DefaultWeightsKey    = "mnist.bin"
	DefaultMaxQueueDepth = 32
	DefaultMaxWaitMS     = 30000
)

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Routing == "" {
		c.Routing = routing.ModeFixed
	}
	if c.GeoHeader == "" {
		c.GeoHeader = routing.DefaultGeoHeader
	}
	if c.FixedIdentity == "" {
		c.FixedIdentity = routing.DefaultIdentity
	}
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if c.StorePath == "" && (c.Store == blobstore.DriverFS || c.Store == blobstore.DriverSQLite) {
		c.StorePath = DefaultStorePath
		if c.Store == blobstore.DriverSQLite {
			c.StorePath = "./weights.db"
		}
	}
	if c.WeightsKey == "" {
		c.WeightsKey = DefaultWeightsKey
	}
	if c.MaxQueueDepth == 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.MaxWaitMS == 0 {
		c.MaxWaitMS = DefaultMaxWaitMS
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if _, err := routing.New(c.Routing, c.GeoHeader, c.FixedIdentity); err != nil {
		return err
	}
	switch c.Store {
	case blobstore.DriverFS, blobstore.DriverSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("store %q requires store_path", c.Store)
		}
	case blobstore.DriverPureKV:
		if c.StoreAddr == "" {
			return fmt.Errorf("store %q requires store_addr", c.Store)
		}
	case blobstore.DriverMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log_format %q (want json or console)", c.LogFormat)
	}
	if strings.TrimSpace(c.WeightsKey) == "" {
		return fmt.Errorf("weights_key must not be empty")
	}
	if c.MaxQueueDepth < 0 || c.MaxWaitMS < 0 || c.MaxActors < 0 {
		return fmt.Errorf("queue limits must not be negative")
	}
	return nil
}

// StoreConfig maps the store settings onto blobstore.Config.
func (c Config) StoreConfig() blobstore.Config {
	return blobstore.Config{
		Driver:         c.Store,
		Path:           c.StorePath,
		Address:        c.StoreAddr,
		TimeoutSeconds: c.StoreTimeoutSeconds,
		Bucket:         c.StoreBucket,
	}
}

// MaxWait returns MaxWaitMS as a duration.
func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitMS) * time.Millisecond }

// envPrefix prefixes every environment override.
const envPrefix = "MNISTD_"

// ApplyEnv overrides fields from MNISTD_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := getenv(envPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Addr)
	str("ASSETS_DIR", &c.AssetsDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("ROUTING", &c.Routing)
	str("GEO_HEADER", &c.GeoHeader)
	str("FIXED_IDENTITY", &c.FixedIdentity)
	str("STORE", &c.Store)
	str("STORE_PATH", &c.StorePath)
	str("STORE_ADDR", &c.StoreAddr)
	str("STORE_BUCKET", &c.StoreBucket)
	str("WEIGHTS_KEY", &c.WeightsKey)
	str("ONNX_LIBRARY", &c.ONNXLibrary)
	for name, dst := range map[string]*int{
		"MAX_QUEUE_DEPTH": &c.MaxQueueDepth,
		"MAX_WAIT_MS":     &c.MaxWaitMS,
		"MAX_ACTORS":      &c.MaxActors,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	if v := getenv(envPrefix + "CORS_ORIGINS"); v != "" {
		c.CORSEnabled = true
		c.CORSOrigins = SplitCSV(v)
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping
// empty entries.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
