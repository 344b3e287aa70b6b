package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coffersTech/emojisearch/internal/logging"
	"github.com/coffersTech/emojisearch/internal/model"
)

// EnvPrefix starts every environment variable read by FromEnv.
const EnvPrefix = "EMOJISEARCH_"

// Config holds server settings.
type Config struct {
	Port          int
	DataDir       string
	LogLevel      string
	LogFormat     string // "text" or "json"
	DefaultFamily model.Family

	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// AdminTokenHash is the bcrypt hash of the reload token. Empty disables
	// the admin endpoint.
	AdminTokenHash string

	// RefreshInterval is how often catalog files are checked for changes.
	RefreshInterval time.Duration
	WarmFamilies    []model.Family

	// Bucket settings. When S3Endpoint is set catalogs are read from the
	// bucket instead of DataDir.
	S3Endpoint  string
	S3Bucket    string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:            8090,
		DataDir:         "./data",
		LogLevel:        "info",
		LogFormat:       "text",
		DefaultFamily:   model.FamilyFluentUI,
		RateLimit:       20,
		RateBurst:       40,
		RefreshInterval: time.Minute,
		S3UseSSL:        true,
	}
}

// FromEnv overlays EMOJISEARCH_* variables onto base. lookup is usually os.LookupEnv.
func FromEnv(base Config, lookup func(string) (string, bool)) (Config, error) {
	cfg := base
	var errs []error

	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok
	}

	if v, ok := get("PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPORT: %w", EnvPrefix, err))
		}
		cfg.Port = n
	}
	if v, ok := get("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := get("DEFAULT_FAMILY"); ok {
		f, err := model.ParseFamily(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDEFAULT_FAMILY: %w", EnvPrefix, err))
		}
		cfg.DefaultFamily = f
	}
	if v, ok := get("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT: %w", EnvPrefix, err))
		}
		cfg.RateLimit = f
	}
	if v, ok := get("RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_BURST: %w", EnvPrefix, err))
		}
		cfg.RateBurst = n
	}
	if v, ok := get("ADMIN_TOKEN_HASH"); ok {
		cfg.AdminTokenHash = v
	}
	if v, ok := get("REFRESH_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREFRESH_INTERVAL: %w", EnvPrefix, err))
		}
		cfg.RefreshInterval = d
	}
	if v, ok := get("WARM_FAMILIES"); ok {
		families, err := ParseFamilies(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWARM_FAMILIES: %w", EnvPrefix, err))
		}
		cfg.WarmFamilies = families
	}
	if v, ok := get("S3_ENDPOINT"); ok {
		cfg.S3Endpoint = v
	}
	if v, ok := get("S3_BUCKET"); ok {
		cfg.S3Bucket = v
	}
	if v, ok := get("S3_PREFIX"); ok {
		cfg.S3Prefix = v
	}
	if v, ok := get("S3_ACCESS_KEY"); ok {
		cfg.S3AccessKey = v
	}
	if v, ok := get("S3_SECRET_KEY"); ok {
		cfg.S3SecretKey = v
	}
	if v, ok := get("S3_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sS3_USE_SSL: %w", EnvPrefix, err))
		}
		cfg.S3UseSSL = b
	}

	return cfg, errors.Join(errs...)
}

// ParseFamilies parses a comma separated family list. "all" selects every family.
func ParseFamilies(s string) ([]model.Family, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.EqualFold(s, "all") {
		return append([]model.Family(nil), model.Families...), nil
	}

	var out []model.Family
	for _, part := range strings.Split(s, ",") {
		f, err := model.ParseFamily(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// UsesBucket reports whether catalogs come from an S3-compatible bucket.
func (c Config) UsesBucket() bool {
	return c.S3Endpoint != ""
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DataDir == "" && !c.UsesBucket() {
		errs = append(errs, errors.New("data dir is required"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.LogFormat))
	}
	if !c.DefaultFamily.Valid() {
		errs = append(errs, fmt.Errorf("default family %q is unknown", c.DefaultFamily))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errs = append(errs, errors.New("rate burst must be at least 1 when limiting"))
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, errors.New("refresh interval must not be negative"))
	}
	if c.UsesBucket() && c.S3Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is required with an s3 endpoint"))
	}

	return errors.Join(errs...)
}
