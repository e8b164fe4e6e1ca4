package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/soyeahso/proxychat/internal/session"
	"gopkg.in/yaml.v3"
)

// Lookup reads an environment variable. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their value. A missing file is fine.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadFile reads the YAML config file and applies PROXYCHAT_* environment
// overrides. A missing file, or an empty path, yields a zero File.
func LoadFile(path string) (File, error) {
	var f File

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &f); err != nil {
				return f, &ConfigError{Message: "failed to parse config: " + err.Error()}
			}
		case !os.IsNotExist(err):
			return f, err
		}
	}

	f.BaseURL = expandEnvVars(f.BaseURL)
	f.DBPath = expandEnvVars(f.DBPath)
	applyEnvOverrides(&f)

	if issues := ValidateFile(&f); len(issues) > 0 {
		return f, &ConfigError{Message: issues[0].String()}
	}
	return f, nil
}

// applyEnvOverrides reads PROXYCHAT_* environment variables into the file config.
func applyEnvOverrides(f *File) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.Logging.Level = strings.ToLower(v)
	}
}

// NormalizeBaseURL strips trailing slashes and makes sure the URL ends in
// exactly one "/v1".
func NormalizeBaseURL(baseURL string) string {
	normalized := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(normalized, "/v1") {
		normalized += "/v1"
	}
	return normalized
}

// Build resolves and validates a RuntimeConfig. Precedence is
// flag > environment > config file > policy default. No network or storage
// resource is touched; the only side effect is minting a session id.
func Build(flags Flags, policy Policy, file File, env Lookup) (RuntimeConfig, error) {
	if env == nil {
		env = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := env(key)
		return v
	}

	if flags.Input == "" && !flags.InputSet {
		return RuntimeConfig{}, &ConfigError{Message: "--input is required"}
	}

	model, err := resolveModel(flags.Model, policy, file, get)
	if err != nil {
		return RuntimeConfig{}, err
	}

	baseURL := firstNonEmpty(get(EnvBaseURL), file.BaseURL, policy.DefaultBaseURL)
	if baseURL == "" {
		return RuntimeConfig{}, missingEnv(EnvBaseURL)
	}

	apiKey := get(EnvAPIKey)
	if apiKey == "" {
		return RuntimeConfig{}, missingEnv(EnvAPIKey)
	}

	dbPath, err := ResolveDBPath(flags.DBPath, policy, file, env)
	if err != nil {
		return RuntimeConfig{}, err
	}

	sessionID, fresh, err := session.Resolve(flags.SessionID)
	if err != nil {
		return RuntimeConfig{}, &ConfigError{Message: err.Error()}
	}

	cfg := RuntimeConfig{
		Input:        flags.Input,
		SessionID:    sessionID,
		SessionIsNew: fresh,
		Model:        model,
		BaseURL:      NormalizeBaseURL(baseURL),
		APIKey:       apiKey,
		DBPath:       dbPath,
	}
	if issues := Validate(&cfg); len(issues) > 0 {
		return RuntimeConfig{}, &ConfigError{Message: issues[0].String()}
	}
	return cfg, nil
}

// ResolveDBPath picks the session database location. It is shared by the
// chat run and the session maintenance commands.
func ResolveDBPath(flag string, policy Policy, file File, env Lookup) (string, error) {
	if env == nil {
		env = os.LookupEnv
	}
	fromEnv, _ := env(EnvDBPath)
	path := firstNonEmpty(flag, fromEnv, file.DBPath, policy.DefaultDBPath)
	if path == "" {
		return "", &ConfigError{Message: fmt.Sprintf("pass --db-path or set %s", EnvDBPath)}
	}
	return path, nil
}

func resolveModel(flag string, policy Policy, file File, get func(string) string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if !policy.ModelFromEnv {
		return "", &ConfigError{Message: "--model is required"}
	}
	if model := firstNonEmpty(get(EnvModel), file.Model); model != "" {
		return model, nil
	}
	return "", &ConfigError{Message: fmt.Sprintf("set %s or pass --model", EnvModel)}
}

func missingEnv(name string) error {
	return &ConfigError{Message: "missing required environment variable: " + name}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
