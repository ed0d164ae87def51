package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read into the config.
// PREPDECK_DB_PATH sets db.path.
const EnvPrefix = "PREPDECK_"

// DefaultFile is read when --config is not given, if it exists.
const DefaultFile = "prepdeck.yaml"

// Config holds all application configuration.
type Config struct {
	DB     DBConfig     `koanf:"db"`
	Server ServerConfig `koanf:"server"`
	Import ImportConfig `koanf:"import"`
	Log    LogConfig    `koanf:"log"`
}

// DBConfig locates the question database.
type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// ServerConfig holds web UI settings.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

// ImportConfig holds deck import settings.
type ImportConfig struct {
	WorkDir string `koanf:"workdir" validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// flagKeys maps short flag names to config keys.
var flagKeys = map[string]string{
	"db":        "db.path",
	"addr":      "server.addr",
	"workdir":   "import.workdir",
	"log-level": "log.level",
}

// RegisterFlags adds the config flags, with their defaults, to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "Path to a YAML config file (default "+DefaultFile+" if present)")
	flags.String("db", "interview_questions.db", "Path to the SQLite database file")
	flags.String("addr", "127.0.0.1:8501", "Address for the web UI to listen on")
	flags.String("workdir", "repos", "Directory git decks are cloned into")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
}

// Load builds the config from, lowest precedence first: flag defaults, the
// YAML file, a .env file, PREPDECK_* variables and flags set explicitly.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Ignoring unreadable .env file", "error", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every required setting is present and well formed.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel converts the configured level.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// envKey turns PREPDECK_SERVER_ADDR into server.addr.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			// Not a config flag; an empty key is skipped.
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}
