package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/driftbox/driftbox"
)

// serverConfig is the on-disk shape of driftboxd's config file, the
// same yaml.v3-decoded-struct idiom storage_service/config/config.go
// uses for its own ServerConfig.
type serverConfig struct {
	ListenAddr               string                     `yaml:"listen_addr"`
	MaxUploadBytes           int64                      `yaml:"max_upload_bytes"`
	UploadGraceSeconds       int                        `yaml:"upload_grace_seconds"`
	DefaultExpirationSeconds int                        `yaml:"default_expiration_seconds"`
	SweepIntervalSeconds     int                        `yaml:"sweep_interval_seconds"`
	ExpirationOverrides      []expirationOverrideConfig `yaml:"expiration_overrides"`
}

type expirationOverrideConfig struct {
	Pattern          string `yaml:"pattern"`
	ExpirationSeconds int   `yaml:"expiration_seconds"`
}

func defaultConfig() serverConfig {
	return serverConfig{
		ListenAddr: ":8080",
	}
}

func readConfig(path string) (serverConfig, error) {
	cfg := defaultConfig()

	if path == "" {
		return cfg, nil
	}

	stat, err := os.Stat(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "driftboxd: config file %q is not usable", path)
	}
	if !stat.Mode().IsRegular() {
		return cfg, errors.Errorf("driftboxd: config file %q is not a regular file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "driftboxd: opening config file")
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return cfg, errors.Wrap(err, "driftboxd: decoding config file")
	}
	return cfg, nil
}

// patternOverrides compiles the config's expiration_overrides into the
// form driftbox.Options expects, failing fast on a bad regexp rather
// than letting it silently never match.
func (c serverConfig) patternOverrides() ([]driftbox.PatternOverride, error) {
	overrides := make([]driftbox.PatternOverride, 0, len(c.ExpirationOverrides))
	for _, o := range c.ExpirationOverrides {
		re, err := regexp.Compile(o.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "driftboxd: compiling override pattern %q", o.Pattern)
		}
		overrides = append(overrides, driftbox.PatternOverride{
			Pattern:  re,
			Duration: time.Duration(o.ExpirationSeconds) * time.Second,
		})
	}
	return overrides, nil
}

func (c serverConfig) repositoryOptions(metrics *driftbox.Metrics) (driftbox.Options, error) {
	overrides, err := c.patternOverrides()
	if err != nil {
		return driftbox.Options{}, err
	}

	opts := driftbox.Options{
		Metrics:          metrics,
		PatternOverrides: overrides,
	}
	if c.DefaultExpirationSeconds > 0 {
		opts.DefaultExpirationThreshold = time.Duration(c.DefaultExpirationSeconds) * time.Second
	}
	if c.SweepIntervalSeconds > 0 {
		opts.SweepInterval = time.Duration(c.SweepIntervalSeconds) * time.Second
	}
	return opts, nil
}

func (c serverConfig) String() string {
	return fmt.Sprintf("listen_addr=%s max_upload_bytes=%d", c.ListenAddr, c.MaxUploadBytes)
}
