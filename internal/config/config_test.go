package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func fullEnv() map[string]string {
	return map[string]string{
		EnvModel:   "gpt-4o-mini",
		EnvBaseURL: "http://proxy.local:4000",
		EnvAPIKey:  "sk-test",
		EnvDBPath:  "/tmp/chat.sqlite3",
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://x/", "http://x/v1"},
		{"http://x/v1", "http://x/v1"},
		{"http://x", "http://x/v1"},
		{"http://x/v1/", "http://x/v1"},
		{"http://x/v1///", "http://x/v1"},
		{"http://localhost:4000/v1", "http://localhost:4000/v1"},
		{"https://proxy.example.com/api", "https://proxy.example.com/api/v1"},
		{"", "/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBaseURL(tt.in))
		})
	}
}

func TestNormalizeBaseURLProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	urlGen := gen.SliceOf(gen.OneConstOf("a", "b", "/", "v1", "v", "1", ":", ".")).
		Map(func(parts []string) string {
			s := "http://"
			for _, p := range parts {
				s += p
			}
			return s
		})

	properties.Property("normalizing twice equals normalizing once", prop.ForAll(
		func(u string) bool {
			once := NormalizeBaseURL(u)
			return NormalizeBaseURL(once) == once
		},
		urlGen,
	))

	properties.Property("result ends in /v1 without a trailing slash", prop.ForAll(
		func(u string) bool {
			n := NormalizeBaseURL(u)
			return len(n) >= 3 && n[len(n)-3:] == "/v1"
		},
		urlGen,
	))

	properties.Property("trailing slashes never matter", prop.ForAll(
		func(u string, slashes int) bool {
			padded := u
			for range slashes {
				padded += "/"
			}
			return NormalizeBaseURL(padded) == NormalizeBaseURL(u)
		},
		urlGen, gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

func TestBuild_Lenient(t *testing.T) {
	cfg, err := Build(Flags{Input: "hello"}, Lenient, File{}, envOf(fullEnv()))
	require.NoError(t, err)

	assert.Equal(t, "hello", cfg.Input)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "http://proxy.local:4000/v1", cfg.BaseURL)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "/tmp/chat.sqlite3", cfg.DBPath)
	assert.NotEmpty(t, cfg.SessionID)
	assert.True(t, cfg.SessionIsNew)
}

func TestBuild_LenientDefaults(t *testing.T) {
	cfg, err := Build(Flags{Input: "hi"}, Lenient, File{}, envOf(map[string]string{
		EnvModel:  "m",
		EnvAPIKey: "k",
	}))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
}

func TestBuild_Precedence(t *testing.T) {
	file := File{Model: "file-model", BaseURL: "http://file-host", DBPath: "file.db"}

	t.Run("flags beat env and file", func(t *testing.T) {
		cfg, err := Build(Flags{Input: "x", Model: "flag-model", DBPath: "flag.db", SessionID: "S"},
			Lenient, file, envOf(fullEnv()))
		require.NoError(t, err)
		assert.Equal(t, "flag-model", cfg.Model)
		assert.Equal(t, "flag.db", cfg.DBPath)
		assert.Equal(t, "S", cfg.SessionID)
		assert.False(t, cfg.SessionIsNew)
	})

	t.Run("env beats file", func(t *testing.T) {
		cfg, err := Build(Flags{Input: "x"}, Lenient, file, envOf(fullEnv()))
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		assert.Equal(t, "http://proxy.local:4000/v1", cfg.BaseURL)
		assert.Equal(t, "/tmp/chat.sqlite3", cfg.DBPath)
	})

	t.Run("file beats policy default", func(t *testing.T) {
		cfg, err := Build(Flags{Input: "x"}, Lenient, file, envOf(map[string]string{EnvAPIKey: "k"}))
		require.NoError(t, err)
		assert.Equal(t, "file-model", cfg.Model)
		assert.Equal(t, "http://file-host/v1", cfg.BaseURL)
		assert.Equal(t, "file.db", cfg.DBPath)
	})

	t.Run("empty env values count as unset", func(t *testing.T) {
		env := fullEnv()
		env[EnvModel] = ""
		env[EnvBaseURL] = ""
		cfg, err := Build(Flags{Input: "x"}, Lenient, File{}, envOf(env))
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvModel)
		assert.Empty(t, cfg.SessionID)
	})
}

func TestBuild_Strict(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg, err := Build(Flags{Input: "x", Model: "m"}, Strict, File{}, envOf(fullEnv()))
		require.NoError(t, err)
		assert.Equal(t, "m", cfg.Model)
		assert.Equal(t, "http://proxy.local:4000/v1", cfg.BaseURL)
	})

	t.Run("model must come from the flag", func(t *testing.T) {
		_, err := Build(Flags{Input: "x"}, Strict, File{Model: "file-model"}, envOf(fullEnv()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--model is required")
	})

	t.Run("base url has no default", func(t *testing.T) {
		env := fullEnv()
		delete(env, EnvBaseURL)
		_, err := Build(Flags{Input: "x", Model: "m"}, Strict, File{}, envOf(env))
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvBaseURL)
	})

	t.Run("db path has no default", func(t *testing.T) {
		env := fullEnv()
		delete(env, EnvDBPath)
		_, err := Build(Flags{Input: "x", Model: "m"}, Strict, File{}, envOf(env))
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvDBPath)
	})

	t.Run("db path flag satisfies requirement", func(t *testing.T) {
		env := fullEnv()
		delete(env, EnvDBPath)
		cfg, err := Build(Flags{Input: "x", Model: "m", DBPath: "d.db"}, Strict, File{}, envOf(env))
		require.NoError(t, err)
		assert.Equal(t, "d.db", cfg.DBPath)
	})
}

func TestBuild_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		flags  Flags
		policy Policy
		drop   string
		want   string
	}{
		{"input", Flags{}, Lenient, "", "--input is required"},
		{"api key lenient", Flags{Input: "x"}, Lenient, EnvAPIKey, EnvAPIKey},
		{"api key strict", Flags{Input: "x", Model: "m"}, Strict, EnvAPIKey, EnvAPIKey},
		{"model lenient", Flags{Input: "x"}, Lenient, EnvModel, EnvModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := fullEnv()
			delete(env, tt.drop)
			_, err := Build(tt.flags, tt.policy, File{}, envOf(env))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuild_InvalidBaseURL(t *testing.T) {
	env := fullEnv()
	env[EnvBaseURL] = "localhost:4000"
	_, err := Build(Flags{Input: "x"}, Lenient, File{}, envOf(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseUrl")
}

func TestResolveDBPath(t *testing.T) {
	path, err := ResolveDBPath("", Lenient, File{}, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath, path)

	_, err = ResolveDBPath("", Strict, File{}, envOf(nil))
	require.Error(t, err)

	path, err = ResolveDBPath("", Strict, File{DBPath: "f.db"}, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "f.db", path)
}

func TestLoadFile_Missing(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, File{}, f)
}

func TestLoadFile_NoPath(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	f, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "debug", f.Logging.Level)
}

func TestLoadFile_Valid(t *testing.T) {
	t.Setenv("CHAT_DATA", "/var/lib/chat")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
model: proxy-default
baseUrl: http://litellm:4000
dbPath: ${CHAT_DATA}/sessions.sqlite3
logging:
  level: debug
agent:
  name: helper
  maxTurns: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "proxy-default", f.Model)
	assert.Equal(t, "http://litellm:4000", f.BaseURL)
	assert.Equal(t, "/var/lib/chat/sessions.sqlite3", f.DBPath)
	assert.Equal(t, "debug", f.Logging.Level)
	assert.Equal(t, "helper", f.Agent.Name)
	assert.Equal(t, 4, f.Agent.MaxTurns)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("{{invalid yaml"), 0o600))
	_, err := LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")

	level := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(level, []byte("logging:\n  level: loud\n"), 0o600))
	_, err = LoadFile(level)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoadFile_EnvLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "TRACE")
	f, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "trace", f.Logging.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PROXYCHAT_TEST_NEW=from-file\nPROXYCHAT_TEST_SET=from-file\n"), 0o600))

	t.Setenv("PROXYCHAT_TEST_SET", "already-set")
	t.Setenv("PROXYCHAT_TEST_NEW", "")
	require.NoError(t, os.Unsetenv("PROXYCHAT_TEST_NEW"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("PROXYCHAT_TEST_NEW"))
	assert.Equal(t, "already-set", os.Getenv("PROXYCHAT_TEST_SET"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestValidate(t *testing.T) {
	cfg := RuntimeConfig{
		Input: "x", SessionID: "s", Model: "m", APIKey: "k", DBPath: "d",
		BaseURL: "http://localhost:4000/v1",
	}
	assert.Empty(t, Validate(&cfg))

	bad := cfg
	bad.BaseURL = "ftp://host/v1"
	issues := Validate(&bad)
	require.Len(t, issues, 1)
	assert.Equal(t, "baseUrl", issues[0].Path)

	bad = cfg
	bad.Input = ""
	assert.Empty(t, Validate(&bad), "an empty message is still a message")

	bad = cfg
	bad.Model = ""
	bad.DBPath = ""
	issues = Validate(&bad)
	require.Len(t, issues, 2)
	assert.Equal(t, "model", issues[0].Path)
	assert.Equal(t, "dbPath", issues[1].Path)
}

func TestValidateFile(t *testing.T) {
	assert.Empty(t, ValidateFile(&File{}))
	assert.Empty(t, ValidateFile(&File{
		Logging: LoggingConfig{Level: "debug", Format: "json"},
		Agent:   AgentConfig{MaxTurns: 3, HistoryLimit: 20},
	}))

	issues := ValidateFile(&File{Agent: AgentConfig{MaxTurns: -1}})
	require.Len(t, issues, 1)
	assert.Equal(t, "agent.maxTurns", issues[0].Path)

	issues = ValidateFile(&File{
		Logging: LoggingConfig{Format: "xml"},
		Agent:   AgentConfig{HistoryLimit: -5},
	})
	require.Len(t, issues, 2)
	assert.Equal(t, "logging.format", issues[0].Path)
	assert.Equal(t, "agent.historyLimit", issues[1].Path)
}

func TestBuildAcceptsExplicitEmptyInput(t *testing.T) {
	cfg, err := Build(Flags{InputSet: true}, Lenient, File{}, envOf(fullEnv()))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Input)

	_, err = Build(Flags{}, Lenient, File{}, envOf(fullEnv()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--input is required")
}

func TestResolvePathsCustomHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(EnvHome, tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, tmp, paths.Base)
	assert.Equal(t, filepath.Join(tmp, "config.yaml"), paths.Config)
}

func TestResolvePathsDefaultHome(t *testing.T) {
	t.Setenv(EnvHome, "")
	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Contains(t, paths.Base, defaultBaseDir)
}
