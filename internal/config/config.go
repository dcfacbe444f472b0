package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"` // sqlite / postgres
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	LogMode bool   `mapstructure:"log_mode"`
}

type LedgerConfig struct {
	Backend string `mapstructure:"backend"` // csv / sql
	Path    string `mapstructure:"path"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SecurityConfig struct {
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text / json
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

type MarketConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Market   MarketConfig   `mapstructure:"market"`
}

var appConfig *Config

// envOnlyKeys are usually supplied through the environment and have no default.
var envOnlyKeys = []string{
	"jwt.secret",
	"security.encryption_key",
	"database.dsn",
	"market.endpoint",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/finora.db")
	v.SetDefault("ledger.backend", "csv")
	v.SetDefault("ledger.path", "data/ledger.csv")
	v.SetDefault("jwt.issuer", "finora")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("market.timeout", 3*time.Second)
}

// Load reads configuration from the given file path (e.g. "config.yaml").
// If path is empty, it looks for config.yaml in the working directory; a
// missing file is fine as long as the required values come from the environment.
func Load(path string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. FINORA_SERVER_PORT=9000
	v.SetEnvPrefix("FINORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without a default are invisible to AutomaticEnv during Unmarshal
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	appConfig = &c
	return appConfig, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid server port %d: must be between 1 and 65535", c.Server.Port))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			problems = append(problems, "database path cannot be empty when using sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			problems = append(problems, "database dsn cannot be empty when using postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid database driver '%s': must be sqlite or postgres", c.Database.Driver))
	}

	switch c.Ledger.Backend {
	case "csv":
		if c.Ledger.Path == "" {
			problems = append(problems, "ledger path cannot be empty when using the csv backend")
		}
	case "sql":
	default:
		problems = append(problems, fmt.Sprintf("invalid ledger backend '%s': must be csv or sql", c.Ledger.Backend))
	}

	if len(c.JWT.Secret) < 16 {
		problems = append(problems, "jwt secret must be at least 16 characters")
	}
	if c.JWT.ExpireHours <= 0 {
		problems = append(problems, fmt.Sprintf("invalid jwt expire_hours %d: must be positive", c.JWT.ExpireHours))
	}

	// bcrypt accepts 4..31
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.Security.BcryptCost))
	}
	if c.Security.EncryptionKey == "" {
		problems = append(problems, "security encryption_key is required")
	}

	if c.Market.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid market timeout %v: must be positive", c.Market.Timeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
