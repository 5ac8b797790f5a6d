package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray .env is read.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 31, cfg.Pipeline.Days)
	assert.Equal(t, "zero", cfg.Pipeline.Fill)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "0 30 2 * * *", cfg.Pipeline.Schedule)
	assert.Empty(t, cfg.ClickHouse.DSN)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
database:
  host: "db.example.com"
  port: 6543
  name: "pricing"
pipeline:
  days: 14
model:
  path: "/models/from-yaml.json"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	t.Setenv("MODEL_PATH", "/models/from-env.json")
	t.Setenv("PGPASSWORD", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 14, cfg.Pipeline.Days)
	assert.Equal(t, "/models/from-env.json", cfg.Model.Path)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PIPELINE_DAYS=7\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("PIPELINE_DAYS") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.Days)
}

func TestLoad_InvalidFill(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PIPELINE_FILL", "interpolate")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fill")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "explicit url wins",
			cfg:  DatabaseConfig{URL: "postgres://u:p@h:1/d", Host: "ignored"},
			want: "postgres://u:p@h:1/d",
		},
		{
			name: "built from fields",
			cfg:  DatabaseConfig{Host: "db", Port: 5432, User: "postgres", Password: "p@ss", Name: "pricing_engine", SSLMode: "disable"},
			want: "postgres://postgres:p%40ss@db:5432/pricing_engine?sslmode=disable",
		},
		{
			name: "no password",
			cfg:  DatabaseConfig{Host: "db", Port: 5432, User: "postgres", Name: "pricing_engine", SSLMode: "require"},
			want: "postgres://postgres@db:5432/pricing_engine?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
