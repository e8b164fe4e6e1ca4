// Package config resolves the runtime configuration of a chat invocation from
// flags, environment, an optional YAML file and a defaulting policy.
package config

import "fmt"

// Environment variables read by the loader.
const (
	EnvModel    = "LITELLM_MODEL"
	EnvBaseURL  = "LITELLM_BASE_URL"
	EnvAPIKey   = "LITELLM_API_KEY"
	EnvDBPath   = "SESSION_DB_PATH"
	EnvHome     = "PROXYCHAT_HOME"
	EnvLogLevel = "PROXYCHAT_LOG_LEVEL"
)

// Defaults used by the lenient policy.
const (
	DefaultBaseURL = "http://localhost:4000/v1"
	DefaultDBPath  = "sessions.sqlite3"
)

// LogFormats lists the accepted logging.format values. Console is the default.
var LogFormats = []string{"console", "json"}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Policy decides which settings may fall back to defaults and which are
// strictly required.
type Policy struct {
	// ModelFromEnv lets LITELLM_MODEL (then the config file) stand in for --model.
	ModelFromEnv bool
	// DefaultBaseURL is used when neither env nor file sets one. Empty means required.
	DefaultBaseURL string
	// DefaultDBPath is used when neither flag, env nor file sets one. Empty means required.
	DefaultDBPath string
}

// Lenient is the policy of the plain chat command.
var Lenient = Policy{
	ModelFromEnv:   true,
	DefaultBaseURL: DefaultBaseURL,
	DefaultDBPath:  DefaultDBPath,
}

// Strict is the policy of the tools-enabled command: nothing is defaulted.
var Strict = Policy{}
