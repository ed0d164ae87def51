package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

// isolate runs the test from an empty directory so no stray prepdeck.yaml
// or .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "interview_questions.db", cfg.DB.Path)
	assert.Equal(t, "127.0.0.1:8501", cfg.Server.Addr)
	assert.Equal(t, "repos", cfg.Import.WorkDir)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
db:
  path: from-file.db
server:
  addr: 0.0.0.0:9000
import:
  workdir: file-repos
log:
  level: debug
`), 0o644))

	t.Setenv("PREPDECK_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("PREPDECK_IMPORT_WORKDIR", "env-repos")

	cfg, err := Load(newFlags(t, "--config", yamlPath, "--workdir", "flag-repos"))
	require.NoError(t, err)

	assert.Equal(t, "from-file.db", cfg.DB.Path, "file beats flag default")
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr, "env beats file")
	assert.Equal(t, "flag-repos", cfg.Import.WorkDir, "explicit flag beats env")
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_DefaultFileIsOptionalButExplicitIsNot(t *testing.T) {
	dir := isolate(t)

	_, err := Load(newFlags(t, "--config", filepath.Join(dir, "missing.yaml")))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("db:\n  path: default-file.db\n"), 0o644))
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "default-file.db", cfg.DB.Path)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PREPDECK_DB_PATH=dotenv.db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PREPDECK_DB_PATH") })

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "dotenv.db", cfg.DB.Path)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "empty db path", args: []string{"--db", ""}},
		{name: "bad addr", args: []string{"--addr", "nowhere"}},
		{name: "bad log level", args: []string{"--log-level", "loud"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			cfg, err := Load(newFlags(t, tc.args...))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "db.path", envKey("PREPDECK_DB_PATH"))
	assert.Equal(t, "server.addr", envKey("PREPDECK_SERVER_ADDR"))
}
