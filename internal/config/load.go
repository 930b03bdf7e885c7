package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets in the job file.
const (
	EnvPassword     = "FWUPGRADE_PASSWORD"
	EnvEnableSecret = "FWUPGRADE_ENABLE_SECRET"
	EnvS3AccessKey  = "FWUPGRADE_S3_ACCESS_KEY"
	EnvS3SecretKey  = "FWUPGRADE_S3_SECRET_KEY"
)

// LoadFile reads and parses a job file and applies environment overrides.
// Validation is left to the caller, since flags and the wizard may still
// fill in missing fields.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Parse decodes a job file. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides secrets with non-empty environment values.
func (c *Config) ApplyEnv(getenv func(string) string) {
	override := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Password, EnvPassword)
	override(&c.EnableSecret, EnvEnableSecret)
	override(&c.S3.AccessKey, EnvS3AccessKey)
	override(&c.S3.SecretKey, EnvS3SecretKey)
}
