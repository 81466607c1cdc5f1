// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStoreDrivers = []string{"mongo", "postgres", "sqlite", "memory"}
	validHashes       = []string{"argon2id", "bcrypt"}
)

// Config is a snapshot of everything viper resolved during Setup. It is
// passed down explicitly instead of reading viper from deep inside the app
type Config struct {
	App      App      `mapstructure:"app"`
	Host     Host     `mapstructure:"host"`
	JWT      JWT      `mapstructure:"jwt"`
	Store    Store    `mapstructure:"store"`
	Mail     Mail     `mapstructure:"mail"`
	Worker   Worker   `mapstructure:"worker"`
	Upload   Upload   `mapstructure:"upload"`
	Archive  Archive  `mapstructure:"archive"`
	Security Security `mapstructure:"security"`
}

type App struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type Host struct {
	Port        int      `mapstructure:"port"`
	CorsOrigins []string `mapstructure:"cors_origins"`
	SSL         SSL      `mapstructure:"ssl"`
}

type SSL struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertificatePath    string `mapstructure:"certificate_path"`
	CertificateKeyPath string `mapstructure:"certificate_key_path"`
}

type JWT struct {
	Secret string `mapstructure:"secret"`
}

type Store struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"`
}

type Mail struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Sender   string `mapstructure:"sender"`
}

type Worker struct {
	Path        string        `mapstructure:"path"`
	Interpreter string        `mapstructure:"interpreter"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxJobs     int           `mapstructure:"max_jobs"`
	MaxOutput   int64         `mapstructure:"max_output"`
}

type Upload struct {
	// Bytes, converted from megabytes in Setup
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type Archive struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type Security struct {
	RateLimit    int    `mapstructure:"rate_limit"`
	PasswordHash string `mapstructure:"password_hash"`
}

// Production reports whether cookies should carry the Secure attribute
func (c *Config) Production() bool {
	return c != nil && c.App.Env == "production"
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() (*Config, error) {
	if !pflag.Parsed() {
		pflag.Parse()
	}
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.env", "APP_ENV", "NODE_ENV")
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.cors_origins", "HOST_CORS")

	v.BindEnv("host.ssl.enabled", "HOST_SSL_ENABLED")
	v.BindEnv("host.ssl.certificate_path", "HOST_SSL_CERTIFICATE_PATH")
	v.BindEnv("host.ssl.certificate_key_path", "HOST_SSL_CERTIFICATE_KEY_PATH")

	v.BindEnv("jwt.secret", "JWT_SECRET")

	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.dsn", "MONGODB_URI", "STORE_DSN")
	v.BindEnv("store.database", "STORE_DATABASE")

	v.BindEnv("mail.host", "MAIL_HOST")
	v.BindEnv("mail.port", "MAIL_PORT")
	v.BindEnv("mail.username", "MAIL_USERNAME")
	v.BindEnv("mail.password", "MAIL_PASSWORD")
	v.BindEnv("mail.sender", "MAIL_SENDER_ADDRESS")

	v.BindEnv("worker.path", "OCR_WORKER_PATH")
	v.BindEnv("worker.interpreter", "OCR_WORKER_INTERPRETER")
	v.BindEnv("worker.timeout", "OCR_WORKER_TIMEOUT")
	v.BindEnv("worker.max_jobs", "OCR_WORKER_MAX_JOBS")
	v.BindEnv("worker.max_output", "OCR_WORKER_MAX_OUTPUT")

	v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")
	v.BindEnv("upload.allowed_types", "UPLOAD_ALLOWED_TYPES")

	v.BindEnv("archive.enabled", "ARCHIVE_ENABLED")
	v.BindEnv("archive.bucket", "BUCKET")
	v.BindEnv("archive.region", "REGION")
	v.BindEnv("archive.endpoint", "ARCHIVE_ENDPOINT")
	v.BindEnv("archive.access_key_id", "ACCESS_KEY_ID")
	v.BindEnv("archive.secret_access_key", "SECRET_ACCESS_KEY")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")
	v.BindEnv("security.password_hash", "SECURITY_PASSWORD_HASH")

	//
	// Defaults
	//
	SetDefaults()

	if err := v.ReadInConfig(); err != nil {
		// Env-only deployments don't ship a config file
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return Load()
}

// SetDefaults registers every default value. Split out of Setup so tests can
// build a config without touching flags or the filesystem
func SetDefaults() {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.dsn", "mongodb://127.0.0.1:27017")
	v.SetDefault("store.database", "plaksha")

	v.SetDefault("mail.host", "127.0.0.1")
	v.SetDefault("mail.port", 1025)
	v.SetDefault("mail.sender", "no-reply@plaksha.local")

	v.SetDefault("worker.interpreter", "python3")
	v.SetDefault("worker.timeout", 2*time.Minute)
	v.SetDefault("worker.max_jobs", 4)
	v.SetDefault("worker.max_output", 4<<20)

	v.SetDefault("upload.max_size", 10)
	v.SetDefault("upload.allowed_types", []string{"image/png", "image/jpeg", "image/webp", "application/pdf"})

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "auto")

	v.SetDefault("security.rate_limit", 5)
	v.SetDefault("security.password_hash", "argon2id")
}

// Load validates whatever viper currently holds and returns it as a Config
func Load() (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}

	// Comma separated env values arrive as a single element
	cfg.Host.CorsOrigins = splitList(cfg.Host.CorsOrigins)
	cfg.Upload.AllowedTypes = splitList(cfg.Upload.AllowedTypes)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Upload.MaxSize <<= 20
	return &cfg, nil
}

func (c *Config) validate() error {
	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Host.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if c.Host.SSL.Enabled {
		if c.Host.SSL.CertificatePath == "" {
			return errors.New("no ssl certificate path provided")
		}

		if c.Host.SSL.CertificateKeyPath == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if c.JWT.Secret == "" {
		return errors.New("jwt secret can't be empty")
	}

	if !slices.Contains(validStoreDrivers, c.Store.Driver) {
		return errors.New("invalid store driver provided")
	}

	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		return errors.New("store dsn can't be empty")
	}

	if c.Store.Driver == "mongo" && c.Store.Database == "" {
		return errors.New("store database can't be empty")
	}

	if c.Mail.Host == "" || c.Mail.Port <= 0 {
		return errors.New("mail host and port must be set")
	}

	if c.Mail.Sender == "" {
		return errors.New("mail sender address can't be empty")
	}

	if c.Worker.Path == "" {
		return errors.New("ocr worker path can't be empty")
	}

	if c.Worker.Timeout <= 0 {
		return errors.New("worker.timeout must be bigger than 0")
	}

	if c.Worker.MaxJobs <= 0 {
		return errors.New("worker.max_jobs must be bigger than 0")
	}

	if c.Worker.MaxOutput <= 0 {
		return errors.New("worker.max_output must be bigger than 0")
	}

	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return errors.New("bucket can't be empty")
		}
		if c.Archive.AccessKeyID == "" {
			return errors.New("access key id can't be empty")
		}
		if c.Archive.SecretAccessKey == "" {
			return errors.New("secret access key can't be empty")
		}
	}

	if c.Security.RateLimit <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if !slices.Contains(validHashes, c.Security.PasswordHash) {
		return errors.New("invalid password hash algorithm provided")
	}

	return nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
