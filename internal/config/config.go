package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevSessionSecret is only accepted when the server runs in development.
const DevSessionSecret = "dev-only-session-secret-change-me"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		Env  string
	}
	Database struct {
		Path string
	}
	Session struct {
		Secret     string
		MaxAge     time.Duration
		CookieName string
		Store      string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Security struct {
		BcryptCost int
	}
	Entries struct {
		Visibility string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	// Mail is accepted for compatibility with existing deployments; no route sends mail.
	Mail struct {
		Host string
		Port int
		User string
		Pass string
	}
}

// IsProduction reports whether the server runs outside development.
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// legacyEnv maps config keys to the unprefixed variable names older deployments set.
var legacyEnv = map[string]string{
	"session.secret":      "SESSION_SECRET",
	"security.bcryptcost": "BCRYPT_ROUNDS",
	"redis.addr":          "REDIS_ADDR",
	"mail.host":           "SMTP_HOST",
	"mail.port":           "SMTP_PORT",
	"mail.user":           "SMTP_USER",
	"mail.pass":           "SMTP_PASS",
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env, never overrides the real environment

	v := viper.New()
	v.SetEnvPrefix("DIARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		if err := v.BindEnv(key, "DIARY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.path", "data/diary.db")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.maxage", "24h")
	v.SetDefault("session.cookiename", "diary.sid")
	v.SetDefault("session.store", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("entries.visibility", "blog")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "diary-exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.user", "")
	v.SetDefault("mail.pass", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	c.Entries.Visibility = strings.ToLower(strings.TrimSpace(c.Entries.Visibility))
	switch c.Entries.Visibility {
	case "", "blog", "journal":
	default:
		return fmt.Errorf("unknown entries visibility %q", c.Entries.Visibility)
	}

	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be positive")
	}

	if strings.TrimSpace(c.Session.Secret) == "" {
		if c.IsProduction() {
			return fmt.Errorf("session secret is required in production")
		}
		c.Session.Secret = DevSessionSecret
	}
	return nil
}
