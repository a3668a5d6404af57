package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MONGODB_URI", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:/tmp/reviews.db")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Review.PendingLimit)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Telegram.Timeout)
	assert.True(t, cfg.Auth.RequireToken)
	assert.True(t, cfg.Database.Migrate)
	assert.Empty(t, cfg.Auth.FallbackPassword)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8080"
database:
  url: "postgres://db.internal:5432"
  timeout: 2s
auth:
  password: "from-file"
  require_token: false
review:
  pending_limit: 20
`)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("ADMIN_PASSWORD", "from-env")
	t.Setenv("REVIEW_PENDING_LIMIT", "10")
	t.Setenv("TELEGRAM_TIMEOUT", "3s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "from-env", cfg.Auth.Password)
	assert.False(t, cfg.Auth.RequireToken)
	assert.Equal(t, 10, cfg.Review.PendingLimit)
	assert.Equal(t, 3*time.Second, cfg.Telegram.Timeout)
	// untouched defaults survive a partial file
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
}

func TestLoadConfigMongoAlias(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MONGODB_URI", "postgres://legacy:5432/reviews")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://legacy:5432/reviews", cfg.Database.URL)
}

func TestLoadConfigMongoAtlasURI(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MONGODB_URI", "mongodb+srv://u:p@cluster0.example.net/?retryWrites=true&w=majority")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.Database.Driver())
}

func TestValidateRejectsUnknownScheme(t *testing.T) {
	for _, u := range []string{"mysql://root@localhost/reviews", "redis://localhost:6379"} {
		cfg := Default()
		cfg.Database.URL = u
		err := cfg.Validate()
		require.Error(t, err, u)
		assert.Contains(t, err.Error(), "unsupported database url scheme")
	}

	cfg := Default()
	cfg.Database.URL = "host=localhost dbname=x"
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:/tmp/x.db")
	t.Setenv("ADMIN_REQUIRE_TOKEN", "maybe")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_REQUIRE_TOKEN")
}

func TestValidateTelegram(t *testing.T) {
	cfg := Default()
	cfg.Database.URL = "sqlite:/tmp/x.db"
	cfg.Telegram.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = 42
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseDriverAndDSN(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		driver string
		dsn    string
	}{
		{"sqlite prefix", "sqlite:./data/reviews.db", DriverSQLite, "./data/reviews.db"},
		{"sqlite file uri", "file:reviews.db?cache=shared", DriverSQLite, "file:reviews.db?cache=shared"},
		{"postgres without db", "postgres://u:p@localhost:5432", DriverPostgres, "postgres://u:p@localhost:5432/phishing_agent_db"},
		{"postgres slash", "postgresql://localhost/", DriverPostgres, "postgresql://localhost/phishing_agent_db"},
		{"postgres with db", "postgres://localhost/other?sslmode=disable", DriverPostgres, "postgres://localhost/other?sslmode=disable"},
		{"keyword dsn", "host=localhost dbname=x", DriverPostgres, "host=localhost dbname=x"},
		{"mongodb", "mongodb://localhost:27017", DriverMongo, "mongodb://localhost:27017"},
		{"mongodb srv", "mongodb+srv://u:p@cluster0.example.net/?retryWrites=true", DriverMongo, "mongodb+srv://u:p@cluster0.example.net/?retryWrites=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DatabaseConfig{URL: tt.url}
			assert.Equal(t, tt.driver, d.Driver())
			assert.Equal(t, tt.dsn, d.DSN())
		})
	}
}
