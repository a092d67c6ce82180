package a2a

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentbench/a2abridge/pkg/httpclient"
)

// DefaultTimeout applies when a config does not set one.
const DefaultTimeout = 300 * time.Second

// Config holds the immutable connection parameters for one remote agent.
// NewClient normalizes and validates it once; it is not mutated afterwards.
type Config struct {
	// Endpoint is the base URL of the remote A2A agent.
	Endpoint string

	// AuthToken, when set, is sent as an Authorization bearer token.
	AuthToken string

	// Timeout bounds every protocol exchange. Defaults to DefaultTimeout.
	Timeout time.Duration

	// TLS carries certificate verification options for the owned transport.
	TLS *httpclient.TLSConfig
}

// Normalize validates the config and strips the endpoint's trailing slash.
func (c *Config) Normalize() error {
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")

	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("endpoint must start with http:// or https://, got %q", c.Endpoint)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	return nil
}

// URL joins the endpoint with a path, avoiding double slashes.
func (c *Config) URL(path string) string {
	if path == "" {
		return c.Endpoint
	}
	return c.Endpoint + "/" + strings.TrimLeft(path, "/")
}
