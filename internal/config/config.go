// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file, a .env
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvDev marks local development; cookies are not marked Secure.
	EnvDev = "dev"
	// EnvProd is the default environment.
	EnvProd = "prod"
)

// Config holds the configuration values for the application. It is built
// once at startup and handed to constructors by value.
type Config struct {
	// AppEnv is "dev" or "prod".
	AppEnv string `json:"app_env"`
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`
	// AppURL is the public base URL used in emailed links.
	AppURL string `json:"app_url"`
	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`
	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `json:"tls_cert_file"`
	TLSKeyFile  string `json:"tls_key_file"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// SecretKey signs session tokens.
	SecretKey   string   `json:"secret_key"`
	SessionTTL  Duration `json:"session_ttl"`
	OTPTTL      Duration `json:"otp_ttl"`
	RecoveryTTL Duration `json:"recovery_ttl"`

	// TokenStore selects the backend for OTP, recovery and session ids:
	// "memory" or "redis".
	TokenStore    string `json:"token_store"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	S3Endpoint  string   `json:"s3_base_endpoint"`
	S3Region    string   `json:"s3_region"`
	S3Bucket    string   `json:"s3_bucket"`
	S3AccessKey string   `json:"s3_root_user"`
	S3SecretKey string   `json:"s3_root_password"`
	PresignTTL  Duration `json:"presign_ttl"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	SMTPFrom     string `json:"smtp_from"`
	SMTPTLSMode  string `json:"smtp_tls_mode"`

	AvatarPlaceholderURL string `json:"avatar_placeholder_url"`
	QuotaBytes           int64  `json:"quota_bytes"`
	MaxUploadBytes       int64  `json:"max_upload_bytes"`

	RateLimit  int      `json:"rate_limit"`
	RateWindow Duration `json:"rate_window"`

	SignupRetention Duration `json:"signup_retention"`
	CleanupInterval Duration `json:"cleanup_interval"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`
	// EnvFile is the path to the .env file.
	EnvFile string `json:"-"`
}

// Duration is a time.Duration that unmarshals from JSON strings such as
// "15m" as well as integer nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Secure reports whether cookies must carry the Secure attribute.
func (c Config) Secure() bool { return c.AppEnv != EnvDev }

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		AppEnv:               EnvProd,
		Port:                 "localhost:8080",
		AppURL:               "http://localhost:8080",
		LogLevel:             "info",
		SessionTTL:           Duration(7 * 24 * time.Hour),
		OTPTTL:               Duration(15 * time.Minute),
		RecoveryTTL:          Duration(time.Hour),
		TokenStore:           "memory",
		RedisAddr:            "localhost:6379",
		S3Region:             "us-east-1",
		S3Bucket:             "storeit",
		PresignTTL:           Duration(15 * time.Minute),
		SMTPPort:             587,
		SMTPFrom:             "StoreIt <no-reply@storeit.local>",
		SMTPTLSMode:          "auto",
		AvatarPlaceholderURL: "https://img.freepik.com/free-psd/3d-illustration-person-with-sunglasses_23-2149436188.jpg",
		QuotaBytes:           2 * 1024 * 1024 * 1024,
		MaxUploadBytes:       50 * 1024 * 1024,
		RateLimit:            20,
		RateWindow:           Duration(time.Minute),
		SignupRetention:      Duration(7 * 24 * time.Hour),
		CleanupInterval:      Duration(time.Hour),
		Config:               "config.json",
		EnvFile:              ".env",
	}
}

// Parse parses the command-line flags, the config file, the .env file and
// environment variables, in that order of increasing precedence.
func Parse() (Config, error) {
	return parse(os.Args[1:], os.LookupEnv)
}

func parse(args []string, lookupEnv func(string) (string, bool)) (Config, error) {
	c := Default()

	flags := flag.NewFlagSet("storeit", flag.ContinueOnError)
	flags.StringVar(&c.Port, "a", c.Port, "run on ip:port server")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "db address")
	flags.StringVar(&c.Config, "config", c.Config, "path to config file")
	flags.StringVar(&c.Config, "c", c.Config, "path to config file (shorthand)")
	flags.StringVar(&c.EnvFile, "env-file", c.EnvFile, "path to .env file")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "log level")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if configPath, ok := lookupEnv("CONFIG"); ok && configPath != "" {
		c.Config = configPath
	}

	if c.Config != "" {
		data, err := os.ReadFile(c.Config)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &c); err != nil {
				return Config{}, fmt.Errorf("error while parsing config file: %w", err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return Config{}, fmt.Errorf("error while reading config file: %w", err)
		}
	}

	dotenv := map[string]string{}
	if c.EnvFile != "" {
		m, err := godotenv.Read(c.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case !errors.Is(err, fs.ErrNotExist):
			return Config{}, fmt.Errorf("error while reading env file: %w", err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(&c, lookup); err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"APP_ENV":                &c.AppEnv,
		"SERVER_ADDRESS":         &c.Port,
		"APP_URL":                &c.AppURL,
		"LOG_LEVEL":              &c.LogLevel,
		"TLS_CERT_FILE":          &c.TLSCertFile,
		"TLS_KEY_FILE":           &c.TLSKeyFile,
		"DATABASE_DSN":           &c.DatabaseDSN,
		"SECRET_KEY":             &c.SecretKey,
		"TOKEN_STORE":            &c.TokenStore,
		"REDIS_ADDR":             &c.RedisAddr,
		"REDIS_PASSWORD":         &c.RedisPassword,
		"S3_BASE_ENDPOINT":       &c.S3Endpoint,
		"S3_REGION":              &c.S3Region,
		"S3_BUCKET":              &c.S3Bucket,
		"S3_ROOT_USER":           &c.S3AccessKey,
		"S3_ROOT_PASSWORD":       &c.S3SecretKey,
		"SMTP_HOST":              &c.SMTPHost,
		"SMTP_USER":              &c.SMTPUser,
		"SMTP_PASSWORD":          &c.SMTPPassword,
		"SMTP_FROM":              &c.SMTPFrom,
		"SMTP_TLS_MODE":          &c.SMTPTLSMode,
		"AVATAR_PLACEHOLDER_URL": &c.AvatarPlaceholderURL,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":   &c.RedisDB,
		"SMTP_PORT":  &c.SMTPPort,
		"RATE_LIMIT": &c.RateLimit,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	int64s := map[string]*int64{
		"QUOTA_BYTES":      &c.QuotaBytes,
		"MAX_UPLOAD_BYTES": &c.MaxUploadBytes,
	}
	for key, dst := range int64s {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*Duration{
		"SESSION_TTL":      &c.SessionTTL,
		"OTP_TTL":          &c.OTPTTL,
		"RECOVERY_TTL":     &c.RecoveryTTL,
		"PRESIGN_TTL":      &c.PresignTTL,
		"RATE_WINDOW":      &c.RateWindow,
		"SIGNUP_RETENTION": &c.SignupRetention,
		"CLEANUP_INTERVAL": &c.CleanupInterval,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = Duration(d)
		}
	}
	return nil
}

func (c *Config) validate() error {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	if c.AppEnv != EnvDev && c.AppEnv != EnvProd {
		return fmt.Errorf("app_env must be %q or %q, got %q", EnvDev, EnvProd, c.AppEnv)
	}
	if c.TokenStore != "memory" && c.TokenStore != "redis" {
		return fmt.Errorf("token_store must be \"memory\" or \"redis\", got %q", c.TokenStore)
	}
	if c.AppEnv == EnvProd && len(c.SecretKey) < 32 {
		return errors.New("secret_key must be at least 32 bytes outside dev")
	}
	if c.AppEnv == EnvDev && c.SecretKey == "" {
		c.SecretKey = "storeit-dev-secret-key-do-not-use-in-prod"
	}
	c.AppURL = strings.TrimRight(c.AppURL, "/")
	return nil
}
