package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/soyeahso/proxychat/internal/logging"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a RuntimeConfig for issues. Returns nil if valid.
func Validate(cfg *RuntimeConfig) []ValidationIssue {
	var issues []ValidationIssue

	required := []struct {
		path, value string
	}{
		{"sessionId", cfg.SessionID},
		{"model", cfg.Model},
		{"apiKey", cfg.APIKey},
		{"dbPath", cfg.DBPath},
	}
	for _, r := range required {
		if r.value == "" {
			issues = append(issues, ValidationIssue{Path: r.path, Message: "must not be empty"})
		}
	}

	u, err := url.Parse(cfg.BaseURL)
	switch {
	case err != nil:
		issues = append(issues, ValidationIssue{
			Path:    "baseUrl",
			Message: fmt.Sprintf("invalid URL %q: %v", cfg.BaseURL, err),
		})
	case u.Scheme != "http" && u.Scheme != "https":
		issues = append(issues, ValidationIssue{
			Path:    "baseUrl",
			Message: fmt.Sprintf("scheme must be http or https, got %q", cfg.BaseURL),
		})
	case u.Host == "":
		issues = append(issues, ValidationIssue{
			Path:    "baseUrl",
			Message: fmt.Sprintf("missing host in %q", cfg.BaseURL),
		})
	}

	return issues
}

// ValidateFile checks the optional config file for issues.
func ValidateFile(f *File) []ValidationIssue {
	var issues []ValidationIssue

	if f.Logging.Level != "" && !slices.Contains(logging.Levels, f.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", logging.Levels, f.Logging.Level),
		})
	}
	if f.Logging.Format != "" && !slices.Contains(LogFormats, f.Logging.Format) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got %q", LogFormats, f.Logging.Format),
		})
	}
	if f.Agent.MaxTurns < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxTurns",
			Message: fmt.Sprintf("must not be negative, got %d", f.Agent.MaxTurns),
		})
	}
	if f.Agent.HistoryLimit < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.historyLimit",
			Message: fmt.Sprintf("must not be negative, got %d", f.Agent.HistoryLimit),
		})
	}

	return issues
}
