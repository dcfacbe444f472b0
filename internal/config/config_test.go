package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  address: 0.0.0.0
  port: 8081
database:
  driver: sqlite
  path: data/test.db
ledger:
  backend: sql
jwt:
  secret: a-secret-that-is-long-enough
  expire_hours: 2
security:
  bcrypt_cost: 10
  encryption_key: k
market:
  timeout: 1s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "sql", cfg.Ledger.Backend)
	assert.Equal(t, 2, cfg.JWT.ExpireHours)
	assert.Equal(t, time.Second, cfg.Market.Timeout)
	// defaults fill what the file leaves out
	assert.Equal(t, "finora", cfg.JWT.Issuer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Same(t, cfg, Get())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FINORA_SERVER_PORT", "9000")
	t.Setenv("FINORA_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	body := strings.Replace(sampleYAML, "port: 8081", "port: 70000", 1)
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port 70000")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	c := Config{
		Server:   ServerConfig{Port: 0},
		Database: DatabaseConfig{Driver: "mysql"},
		Ledger:   LedgerConfig{Backend: "csv"},
		JWT:      JWTConfig{Secret: "short"},
		Security: SecurityConfig{BcryptCost: 2},
	}
	err := c.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"invalid server port 0",
		"invalid database driver 'mysql'",
		"ledger path cannot be empty",
		"jwt secret must be at least 16 characters",
		"invalid jwt expire_hours 0",
		"invalid bcrypt cost 2",
		"security encryption_key is required",
		"invalid market timeout",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	c := Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "postgres"},
		Ledger:   LedgerConfig{Backend: "sql"},
		JWT:      JWTConfig{Secret: "0123456789abcdef", ExpireHours: 1},
		Security: SecurityConfig{BcryptCost: 10, EncryptionKey: "k"},
		Market:   MarketConfig{Timeout: time.Second},
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database dsn cannot be empty")

	c.Database.DSN = "host=localhost"
	assert.NoError(t, c.Validate())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_SecretsFromEnvOnly(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FINORA_JWT_SECRET", "env-secret-long-enough-123")
	t.Setenv("FINORA_SECURITY_ENCRYPTION_KEY", "env-encryption-key")
	t.Setenv("FINORA_DATABASE_DSN", "host=db user=finora")
	t.Setenv("FINORA_MARKET_ENDPOINT", "https://quotes.example/{symbol}")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret-long-enough-123", cfg.JWT.Secret)
	assert.Equal(t, "env-encryption-key", cfg.Security.EncryptionKey)
	assert.Equal(t, "host=db user=finora", cfg.Database.DSN)
	assert.Equal(t, "https://quotes.example/{symbol}", cfg.Market.Endpoint)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverridesFileSecret(t *testing.T) {
	t.Setenv("FINORA_JWT_SECRET", "overridden-secret-0123456789")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "overridden-secret-0123456789", cfg.JWT.Secret)
}
