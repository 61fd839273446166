package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	galleriahttp "github.com/serjogas/galleria/http"
)

// Config is the root configuration struct for galleria.
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Auth     AuthConfig              `mapstructure:"auth"`
	Database DatabaseConfig          `mapstructure:"database"`
	Storage  StorageConfig           `mapstructure:"storage"`
	AWS      AWSConfig               `mapstructure:"aws"`
	Gallery  GalleryConfig           `mapstructure:"gallery"`
	CORS     galleriahttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig               `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"min=0"`
}

// AuthConfig holds the token-signing secret and token lifetime.
type AuthConfig struct {
	Secret     string `mapstructure:"secret" validate:"required"`
	TokenTTL   int    `mapstructure:"token_ttl" validate:"min=0"` // seconds, 0 = no expiry
	BcryptCost int    `mapstructure:"bcrypt_cost" validate:"min=0,max=31"`
}

// DatabaseConfig selects the credential store backend.
type DatabaseConfig struct {
	Type  string `mapstructure:"type" validate:"required,oneof=dynamo sqlite memory"`
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// StorageConfig selects the object store backend.
type StorageConfig struct {
	Type          string `mapstructure:"type" validate:"required,oneof=s3 memory"`
	Bucket        string `mapstructure:"bucket" validate:"required"`
	PresignExpiry int    `mapstructure:"presign_expiry" validate:"min=1"` // seconds
}

// AWSConfig holds the shared endpoint/credential settings for the DynamoDB
// and S3 clients. Endpoint is only set for local stacks.
type AWSConfig struct {
	Region    string `mapstructure:"region" validate:"required"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// GalleryConfig holds gallery behavior options.
type GalleryConfig struct {
	SkipDuplicates bool `mapstructure:"skip_duplicates"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":  "database.type",
	"db-dsn":   "database.dsn",
	"db-table": "database.table",
	"bucket":   "storage.bucket",
	"port":     "server.port",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_size", 0) // 0 means the handler default

	// Secrets default to empty so viper knows the keys and AutomaticEnv can
	// resolve them. Validation rejects an empty auth.secret.
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 0) // no expiry
	v.SetDefault("auth.bcrypt_cost", 0)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "galleria.db")
	v.SetDefault("database.table", "users")

	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.bucket", "galleria-images")
	v.SetDefault("storage.presign_expiry", 604800) // 7 days, the S3 cap

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.access_key", "")
	v.SetDefault("aws.secret_key", "")

	v.SetDefault("gallery.skip_duplicates", true)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("GALLERIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
