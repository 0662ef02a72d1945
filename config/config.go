// Package config loads the auth server configuration from a YAML file,
// command line flags and the environment, in that order of precedence
// from lowest to highest.
package config

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvSigningKey overrides auth.signing_key when set
const EnvSigningKey = "AUTH_SIGNING_KEY"

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Auth        AuthConfig        `koanf:"auth"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Log         LogConfig         `koanf:"log"`
}

type ServerConfig struct {
	Address         string        `koanf:"address"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Debug           bool          `koanf:"debug"`
}

type AuthConfig struct {
	SigningKey        string `koanf:"signing_key"`
	Issuer            string `koanf:"issuer"`
	TokenHeader       string `koanf:"token_header"`
	PasswordCost      int    `koanf:"password_cost"`
	ConflictDetection bool   `koanf:"conflict_detection"`
}

type PersistenceConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	Debug  bool   `koanf:"debug"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenHeader:  "x-auth",
			PasswordCost: 10,
		},
		Persistence: PersistenceConfig{
			Driver: "sqlite",
			DSN:    "file:auth.db?cache=shared",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"address":            "server.address",
	"shutdown-timeout":   "server.shutdown_timeout",
	"debug":              "server.debug",
	"signing-key":        "auth.signing_key",
	"issuer":             "auth.issuer",
	"token-header":       "auth.token_header",
	"password-cost":      "auth.password_cost",
	"conflict-detection": "auth.conflict_detection",
	"db-driver":          "persistence.driver",
	"db-dsn":             "persistence.dsn",
	"db-debug":           "persistence.debug",
	"log-format":         "log.format",
	"log-level":          "log.level",
}

// RegisterFlags adds the configuration flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("address", def.Server.Address, "HTTP listen address")
	fs.Duration("shutdown-timeout", def.Server.ShutdownTimeout, "graceful shutdown timeout")
	fs.Bool("debug", def.Server.Debug, "dump request payloads")
	fs.String("signing-key", "", "session token signing key (or "+EnvSigningKey+")")
	fs.String("issuer", def.Auth.Issuer, "session token issuer claim")
	fs.String("token-header", def.Auth.TokenHeader, "request header carrying the session token")
	fs.Int("password-cost", def.Auth.PasswordCost, "bcrypt cost")
	fs.Bool("conflict-detection", def.Auth.ConflictDetection, "reject concurrent token writes")
	fs.String("db-driver", def.Persistence.Driver, "database driver: sqlite or postgres")
	fs.String("db-dsn", def.Persistence.DSN, "database connection string")
	fs.Bool("db-debug", def.Persistence.Debug, "log SQL queries")
	fs.String("log-format", def.Log.Format, "log format: json or text")
	fs.String("log-level", def.Log.Level, "log level: debug, info, warn or error")
}

// Load reads path (optional), then only the flags that were set on
// fs, then the environment.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.
				In("config").
				Code("config_file").
				With("path", path).
				Wrapf(err, "loading config file")
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithValue(fs, ".", k, func(name, value string) (string, any) {
			key, ok := flagKeys[name]
			if !ok {
				return "", nil
			}
			if f := fs.Lookup(name); f == nil || !f.Changed {
				return "", nil
			}
			return key, value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.
				In("config").
				Code("config_flags").
				Wrapf(err, "loading flags")
		}
	}

	if key, ok := os.LookupEnv(EnvSigningKey); ok && key != "" {
		if err := k.Set("auth.signing_key", key); err != nil {
			return nil, oops.
				In("config").
				Code("config_env").
				Wrapf(err, "reading %s", EnvSigningKey)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.
			In("config").
			Code("config_decode").
			Wrapf(err, "decoding config")
	}

	return cfg, nil
}

// Validate will run validation rules
func (c *Config) Validate() error {
	return validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Address, validation.Required),
		),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.SigningKey, validation.Required),
			validation.Field(&c.Auth.TokenHeader, validation.Required),
			validation.Field(&c.Auth.PasswordCost, validation.Required, validation.Min(4), validation.Max(31)),
		),
		"persistence": validation.ValidateStruct(&c.Persistence,
			validation.Field(&c.Persistence.Driver, validation.Required, validation.In("sqlite", "postgres")),
			validation.Field(&c.Persistence.DSN, validation.Required),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Format, validation.In("json", "text")),
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
		),
	}.Filter()
}

func (c AuthConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c AuthConfig) GetIssuer() string {
	return c.Issuer
}

func (c AuthConfig) GetTokenHeader() string {
	return c.TokenHeader
}

func (c AuthConfig) GetPasswordCost() int {
	return c.PasswordCost
}

func (c AuthConfig) GetConflictDetection() bool {
	return c.ConflictDetection
}

func (c PersistenceConfig) GetDriver() string {
	return c.Driver
}

func (c PersistenceConfig) GetDSN() string {
	return c.DSN
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}
