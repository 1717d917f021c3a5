// Package config describes how one mirror-sync run is wired: where the
// sink tree lives, where the source tree lives, and how to reach the
// ledger database.
package config

import (
	"errors"
	"time"
)

// Sentinel validation errors, checked with errors.Is.
var (
	ErrMissingRootDir = errors.New("config: root dir is required")
	ErrMissingBaseURL = errors.New("config: base url is required")
	ErrMissingDSN     = errors.New("config: dsn is required when aws profile is unset")
)

// Config is the plain, flag/env-populated description of one
// mirror-sync run. Configuration loading itself (flag parsing, env
// lookups) is out of core scope and lives only in cmd/mirror-sync;
// this struct is what that loader produces.
type Config struct {
	// RootDir is the local sink tree's root directory.
	RootDir string

	// BaseURL is the HTTP source tree's base URL. Empty disables the
	// HTTP source in favor of S3Bucket.
	BaseURL string
	// HTTPPropertiesPath points at the key=value header file backing
	// the HTTP source tree's request headers.
	HTTPPropertiesPath string

	// S3Bucket, when set, backs the source tree with S3 instead of
	// HTTP. S3KeyPrefix is prepended to every object key.
	S3Bucket    string
	S3KeyPrefix string

	// DSN is used verbatim to reach the ledger database when
	// AWSProfile is empty.
	DSN string
	// AWSProfile, when set, switches the ledger connection to
	// IAM-token authentication (see internal/ledger.Connect).
	AWSProfile string
	AWSRegion  string
	DBEndpoint string
	DBUser     string
	DBName     string

	// FloorDate is the earliest date the ledger resumes from when it
	// has no prior "end" event, formatted YYYY-MM-DD.
	FloorDate string

	// RequestTimeout bounds each HTTP request issued by the source
	// tree.
	RequestTimeout time.Duration
}

// DefaultConfig returns a Config with sensible production defaults;
// callers still need to fill in RootDir/BaseURL/DSN (or AWSProfile)
// before Validate will accept it.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout: 30 * time.Second,
		FloorDate:      "2001-01-01",
	}
}

// Validate checks the configuration is internally consistent, filling
// in defaults for anything left zero.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return ErrMissingRootDir
	}
	if c.BaseURL == "" && c.S3Bucket == "" {
		return ErrMissingBaseURL
	}
	if c.DSN == "" && c.AWSProfile == "" {
		return ErrMissingDSN
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.FloorDate == "" {
		c.FloorDate = "2001-01-01"
	}
	return nil
}
