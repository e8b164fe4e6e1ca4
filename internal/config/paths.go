package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".proxychat"

// Paths holds resolved filesystem paths for proxychat data.
type Paths struct {
	Base   string // ~/.proxychat
	Config string // ~/.proxychat/config.yaml
}

// ResolvePaths computes the standard paths from the home directory.
// If PROXYCHAT_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv(EnvHome)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
	}, nil
}

