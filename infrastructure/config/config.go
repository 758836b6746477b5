// Package config loads portal settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Addr       string `yaml:"addr"`
	SQLitePath string `yaml:"sqlite_path"`

	Backend BackendConfig `yaml:"backend"`
	Graph   GraphConfig   `yaml:"graph"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	Upload  UploadConfig  `yaml:"upload"`
	OCR     OCRConfig     `yaml:"ocr"`
	S3      S3Config      `yaml:"s3"`
	Logging LoggingConfig `yaml:"logging"`
}

type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	IdentityHeader string        `yaml:"identity_header"`
}

type GraphConfig struct {
	BaseURL     string `yaml:"base_url"`
	MaxContacts int    `yaml:"max_contacts"`
}

type AuthConfig struct {
	PrincipalHeader string `yaml:"principal_header"`
	TokenHeader     string `yaml:"token_header"`
	// DevUser is used when no principal header is present. Never set it
	// behind a real identity provider.
	DevUser    string `yaml:"dev_user"`
	DevRole    string `yaml:"dev_role"`
	SuperOwner string `yaml:"super_owner"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type UploadConfig struct {
	Concurrency  int      `yaml:"concurrency"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
	SpoolDir     string   `yaml:"spool_dir"`
	AcceptedExt  []string `yaml:"accepted_ext"`
}

type OCRConfig struct {
	// LookupDebounce delays re-lookups after edits; negative means immediate.
	LookupDebounce time.Duration `yaml:"lookup_debounce"`
}

type S3Config struct {
	Endpoint   string        `yaml:"endpoint"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Bucket     string        `yaml:"bucket"`
	Region     string        `yaml:"region"`
	UseSSL     bool          `yaml:"use_ssl"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// Enabled reports whether direct S3 access is configured.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultAddr            = ":8080"
	defaultSQLitePath      = "geoportal.db"
	defaultBackendURL      = "http://localhost:5000"
	defaultBackendTimeout  = 2 * time.Minute
	defaultIdentityHeader  = "X-User"
	defaultGraphURL        = "https://graph.microsoft.com/v1.0"
	defaultMaxContacts     = 2000
	defaultPrincipalHeader = "X-MS-CLIENT-PRINCIPAL-NAME"
	defaultTokenHeader     = "X-MS-TOKEN-AAD-ACCESS-TOKEN"
	defaultSessionTTL      = 12 * time.Hour
	defaultConcurrency     = 3
	defaultMaxFileBytes    = 200 << 20
	defaultLookupDebounce  = 400 * time.Millisecond
	defaultPresignTTL      = 15 * time.Minute
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = readEnv("APP_ADDR", c.Addr)
	c.SQLitePath = readEnv("SQLITE_PATH", c.SQLitePath)
	c.Backend.BaseURL = readEnv("GEOPORTAL_BACKEND_URL", c.Backend.BaseURL)
	c.Backend.Timeout = parseDuration("GEOPORTAL_BACKEND_TIMEOUT", c.Backend.Timeout)
	c.Backend.IdentityHeader = readEnv("GEOPORTAL_IDENTITY_HEADER", c.Backend.IdentityHeader)
	c.Graph.BaseURL = readEnv("GEOPORTAL_GRAPH_URL", c.Graph.BaseURL)
	c.Auth.PrincipalHeader = readEnv("GEOPORTAL_PRINCIPAL_HEADER", c.Auth.PrincipalHeader)
	c.Auth.TokenHeader = readEnv("GEOPORTAL_TOKEN_HEADER", c.Auth.TokenHeader)
	c.Auth.DevUser = readEnv("GEOPORTAL_DEV_USER", c.Auth.DevUser)
	c.Auth.DevRole = readEnv("GEOPORTAL_DEV_ROLE", c.Auth.DevRole)
	c.Auth.SuperOwner = readEnv("GEOPORTAL_SUPER_OWNER", c.Auth.SuperOwner)
	c.Session.TTL = parseDuration("GEOPORTAL_SESSION_TTL", c.Session.TTL)
	c.Upload.Concurrency = parseInt("GEOPORTAL_UPLOAD_CONCURRENCY", c.Upload.Concurrency)
	c.Upload.MaxFileBytes = parseInt64("GEOPORTAL_UPLOAD_MAX_FILE_BYTES", c.Upload.MaxFileBytes)
	c.Upload.SpoolDir = readEnv("GEOPORTAL_UPLOAD_SPOOL_DIR", c.Upload.SpoolDir)
	if v := readEnv("GEOPORTAL_UPLOAD_ACCEPTED_EXT", ""); v != "" {
		c.Upload.AcceptedExt = parseList(v)
	}
	c.OCR.LookupDebounce = parseDuration("GEOPORTAL_OCR_LOOKUP_DEBOUNCE", c.OCR.LookupDebounce)
	c.S3.Endpoint = readEnv("GEOPORTAL_S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = readEnv("GEOPORTAL_S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = readEnv("GEOPORTAL_S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.Bucket = readEnv("GEOPORTAL_S3_BUCKET", c.S3.Bucket)
	c.S3.Region = readEnv("GEOPORTAL_S3_REGION", c.S3.Region)
	c.S3.UseSSL = parseBool("GEOPORTAL_S3_USE_SSL", c.S3.UseSSL)
	c.S3.PresignTTL = parseDuration("GEOPORTAL_S3_PRESIGN_TTL", c.S3.PresignTTL)
	c.Logging.Level = readEnv("GEOPORTAL_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = readEnv("GEOPORTAL_LOG_FORMAT", c.Logging.Format)
}

func (c *Config) applyDefaults() {
	c.Addr = orDefault(c.Addr, defaultAddr)
	c.SQLitePath = orDefault(c.SQLitePath, defaultSQLitePath)
	c.Backend.BaseURL = orDefault(c.Backend.BaseURL, defaultBackendURL)
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = defaultBackendTimeout
	}
	c.Backend.IdentityHeader = orDefault(c.Backend.IdentityHeader, defaultIdentityHeader)
	c.Graph.BaseURL = orDefault(c.Graph.BaseURL, defaultGraphURL)
	if c.Graph.MaxContacts <= 0 {
		c.Graph.MaxContacts = defaultMaxContacts
	}
	c.Auth.PrincipalHeader = orDefault(c.Auth.PrincipalHeader, defaultPrincipalHeader)
	c.Auth.TokenHeader = orDefault(c.Auth.TokenHeader, defaultTokenHeader)
	c.Auth.DevRole = orDefault(c.Auth.DevRole, "User")
	if c.Session.TTL <= 0 {
		c.Session.TTL = defaultSessionTTL
	}
	if c.Upload.Concurrency <= 0 {
		c.Upload.Concurrency = defaultConcurrency
	}
	if c.Upload.MaxFileBytes <= 0 {
		c.Upload.MaxFileBytes = defaultMaxFileBytes
	}
	c.Upload.SpoolDir = orDefault(c.Upload.SpoolDir, os.TempDir())
	if len(c.Upload.AcceptedExt) == 0 {
		c.Upload.AcceptedExt = []string{".pdf"}
	}
	for i, ext := range c.Upload.AcceptedExt {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Upload.AcceptedExt[i] = ext
	}
	if c.OCR.LookupDebounce < 0 {
		c.OCR.LookupDebounce = 0
	} else if c.OCR.LookupDebounce == 0 {
		c.OCR.LookupDebounce = defaultLookupDebounce
	}
	if c.S3.PresignTTL <= 0 {
		c.S3.PresignTTL = defaultPresignTTL
	}
	c.Logging.Level = orDefault(strings.ToLower(c.Logging.Level), "info")
	c.Logging.Format = orDefault(strings.ToLower(c.Logging.Format), "text")
}

// Validate reports configuration that cannot work at all.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url %q is not an absolute url", c.Backend.BaseURL))
	}
	if u, err := url.Parse(c.Graph.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("graph.base_url %q is not an absolute url", c.Graph.BaseURL))
	}
	if c.Upload.Concurrency > 16 {
		errs = append(errs, fmt.Errorf("upload.concurrency %d exceeds 16", c.Upload.Concurrency))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel maps logging.level onto slog.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

// NewLogger builds the default slog logger for the configured level and format.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
