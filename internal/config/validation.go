package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for invalid values.
// Returns a wrapped sentinel error on the first failure (fail-fast).
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	for name, addr := range map[string]string{
		"api_addr":     c.APIAddr,
		"bridge_addr":  c.BridgeAddr,
		"gateway_addr": c.GatewayAddr,
	} {
		if err := validateListenAddr(addr); err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidListenAddr, name, addr, err)
		}
	}

	if err := validateHTTPURL(c.APIBaseURL); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidAPIBaseURL, c.APIBaseURL, err)
	}
	if err := validateHTTPURL(c.BridgeURL); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidBridgeURL, c.BridgeURL, err)
	}

	if c.ToolTimeoutSeconds < 1 || c.ToolTimeoutSeconds > 300 {
		return fmt.Errorf("%w: %d (must be 1-300 seconds)", ErrInvalidToolTimeout, c.ToolTimeoutSeconds)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// validateListenAddr checks a host:port listen address. Empty host
// (e.g. ":8080") is allowed and binds all interfaces.
func validateListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port == "" {
		return fmt.Errorf("missing port")
	}
	return nil
}

// validateHTTPURL checks that a URL parses and uses http or https.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
