package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys lists the dot-separated config file keys that can be edited.
var Keys = []string{
	"model",
	"baseUrl",
	"dbPath",
	"logging.level",
	"logging.format",
	"agent.name",
	"agent.maxTurns",
	"agent.historyLimit",
}

// intKeys are the keys whose values are integers. Every other key holds a
// string.
var intKeys = []string{"agent.maxTurns", "agent.historyLimit"}

// ParseKey splits a dot-separated config key into segments.
// Returns an error if the key is empty or not a known setting.
func ParseKey(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config key"}
	}
	if !slices.Contains(Keys, raw) {
		return nil, &ConfigError{Message: "unknown config key " + raw + " (known: " + strings.Join(Keys, ", ") + ")"}
	}
	return strings.Split(raw, "."), nil
}

// ParseValue converts a command-line value to the type the key holds.
// String keys keep the text verbatim, so "0123" stays "0123".
func ParseValue(key, value string) (any, error) {
	if !slices.Contains(intKeys, key) {
		return value, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("%s must be an integer, got %q", key, value)}
	}
	return n, nil
}

// LoadRaw reads the config file into a generic map for key-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw validates a generic map as a config file and writes it as YAML,
// creating the parent directory if needed.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return &ConfigError{Message: "invalid config value: " + err.Error()}
	}
	if issues := ValidateFile(&f); len(issues) > 0 {
		return &ConfigError{Message: issues[0].String()}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// GetValue traverses a nested map using the given key segments.
func GetValue(root map[string]any, key []string) (any, bool) {
	current := any(root)
	for _, k := range key {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetValue sets a value in a nested map, creating intermediate maps as needed.
func SetValue(root map[string]any, key []string, value any) {
	current := root
	for _, k := range key[:len(key)-1] {
		m, ok := current[k].(map[string]any)
		if !ok {
			m = map[string]any{}
			current[k] = m
		}
		current = m
	}
	current[key[len(key)-1]] = value
}

// UnsetValue removes the value at key and any section left empty by the
// removal. Returns true if something was removed.
func UnsetValue(root map[string]any, key []string) bool {
	if len(key) == 1 {
		if _, ok := root[key[0]]; !ok {
			return false
		}
		delete(root, key[0])
		return true
	}

	child, ok := root[key[0]].(map[string]any)
	if !ok {
		return false
	}
	if !UnsetValue(child, key[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(root, key[0])
	}
	return true
}
