// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package idpclient implements port.IdPClient against a generic OAuth2
// admin REST API (§6's wire contract).
package idpclient

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the identity provider client.
type Config struct {
	// BaseURL is the IdP admin API base URL, e.g. https://idp.example.org/admin/realms/acme.
	BaseURL string

	// TokenURL is the OAuth2 client-credentials token endpoint.
	TokenURL string

	// ClientID and ClientSecret authenticate the client-credentials exchange.
	ClientID     string
	ClientSecret string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxRetries is the maximum number of transient-error retry attempts.
	MaxRetries int

	// PageSize is the page size ListGroupsFlat requests (100 when unset).
	// ListUsers and ListGroupMembers page by the max their caller passes.
	PageSize int

	// MockMode disables real IdP API calls (for testing and preview-only installs).
	MockMode bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		PageSize:   100,
		MockMode:   false,
	}
}

// NewConfigFromEnv creates a Config from the environment variables IDP_URL,
// IDP_TOKEN_URL, IDP_CLIENT_ID, IDP_CLIENT_SECRET, IDP_TIMEOUT,
// IDP_MAX_RETRIES, IDP_PAGE_SIZE and IDP_SOURCE ("mock" enables MockMode).
func NewConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("IDP_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("IDP_TOKEN_URL"); v != "" {
		cfg.TokenURL = v
	}
	if v := os.Getenv("IDP_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("IDP_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("IDP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("IDP_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("IDP_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
	if os.Getenv("IDP_SOURCE") == "mock" {
		cfg.MockMode = true
	}

	return cfg
}
