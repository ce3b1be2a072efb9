package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	AssetsDir string `json:"assets_dir" yaml:"assets_dir" toml:"assets_dir"`

	LogLevel   string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat  string `json:"log_format" yaml:"log_format" toml:"log_format"`
	RequestLog string `json:"request_log" yaml:"request_log" toml:"request_log"`

	// Routing is "geo" (one actor per continent) or "fixed" (one actor).
	Routing       string `json:"routing" yaml:"routing" toml:"routing"`
	GeoHeader     string `json:"geo_header" yaml:"geo_header" toml:"geo_header"`
	FixedIdentity string `json:"fixed_identity" yaml:"fixed_identity" toml:"fixed_identity"`

	Store               string `json:"store" yaml:"store" toml:"store"`
	StorePath           string `json:"store_path" yaml:"store_path" toml:"store_path"`
	StoreAddr           string `json:"store_addr" yaml:"store_addr" toml:"store_addr"`
	StoreBucket         string `json:"store_bucket" yaml:"store_bucket" toml:"store_bucket"`
	StoreTimeoutSeconds int    `json:"store_timeout_seconds" yaml:"store_timeout_seconds" toml:"store_timeout_seconds"`
	WeightsKey          string `json:"weights_key" yaml:"weights_key" toml:"weights_key"`

	MaxQueueDepth         int   `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS             int   `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	MaxActors             int   `json:"max_actors" yaml:"max_actors" toml:"max_actors"`
	DrainTimeoutSeconds   int   `json:"drain_timeout_seconds" yaml:"drain_timeout_seconds" toml:"drain_timeout_seconds"`
	RequestTimeoutSeconds int   `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	MaxBodyBytes          int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	MaxImageBytes         int64 `json:"max_image_bytes" yaml:"max_image_bytes" toml:"max_image_bytes"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`

	// ONNX settings only matter in builds with the onnx tag.
	ONNXLibrary string `json:"onnx_library" yaml:"onnx_library" toml:"onnx_library"`
	ONNXInput   string `json:"onnx_input" yaml:"onnx_input" toml:"onnx_input"`
	ONNXOutput  string `json:"onnx_output" yaml:"onnx_output" toml:"onnx_output"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
