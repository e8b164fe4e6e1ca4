package config

// Flags are the raw command-line values relevant to a chat run.
type Flags struct {
	Input     string
	SessionID string
	Model     string
	DBPath    string

	// InputSet reports that --input was passed, even with an empty value.
	InputSet bool
}

// RuntimeConfig is the fully validated configuration of one invocation.
// It is built once and never mutated.
type RuntimeConfig struct {
	Input        string
	SessionID    string
	SessionIsNew bool
	Model        string
	BaseURL      string
	APIKey       string
	DBPath       string
}

// File is the optional YAML config file.
type File struct {
	Model   string        `yaml:"model,omitempty"`
	BaseURL string        `yaml:"baseUrl,omitempty"`
	DBPath  string        `yaml:"dbPath,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Agent   AgentConfig   `yaml:"agent,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // trace | debug | info | warn | error | fatal | silent
	Format string `yaml:"format,omitempty"` // console (default) | json
}

// AgentConfig tunes the agent runtime.
type AgentConfig struct {
	Name         string `yaml:"name,omitempty"`
	MaxTurns     int    `yaml:"maxTurns,omitempty"`
	HistoryLimit int    `yaml:"historyLimit,omitempty"` // stored items replayed per run; 0 replays all
}
