// Package appconf holds the server configuration and the JSON config file loader.
package appconf

import (
	"fmt"
	"strings"
)

// Environment selects logging format, debug surfaces and caching behaviour.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a -env flag value to an Environment. Unknown
// values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

func parseEnvironment(env string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev":
		return Development, nil
	case "test":
		return Test, nil
	case "production", "prod":
		return Production, nil
	}
	return Development, fmt.Errorf("unknown environment %q", env)
}

// Config holds the HTTP server settings.
type Config struct {
	Port          int
	Env           Environment
	ApiKeys       []string
	ExemptApiKeys []string
	Verbose       bool
	RateLimit     int // requests per second per API key
	CacheSeconds  int // max-age for station responses
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == Production
}
