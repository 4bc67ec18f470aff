package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediagate/internal/common"
	"github.com/go-playground/validator/v10"
)

// Seal policies. Permissive keeps the unsealed fallback when the proxy
// publishes no key; sealed-only refuses to send attachment keys in the clear.
const (
	SealPolicyPermissive = "permissive"
	SealPolicySealedOnly = "sealed-only"
)

// Config holds runtime settings for the mediagate CLI.
//
// Units: RequestTimeout is a time.Duration applied to the HTTP transport of
// the session; zero disables it.
type Config struct {
	HomeserverURL  string        `envconfig:"HOMESERVER_URL" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" validate:"gte=0"`
	SealPolicy     string        `envconfig:"SEAL_POLICY" validate:"oneof=permissive sealed-only"`

	JournalPath string `envconfig:"JOURNAL_PATH" validate:"required"`
	ExportDir   string `envconfig:"EXPORT_DIR"`

	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Region       string `envconfig:"S3_REGION" validate:"required_with=S3Bucket"`
	S3BaseEndpoint string `envconfig:"S3_BASE_ENDPOINT" validate:"omitempty,url"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey    string `envconfig:"S3_SECRET_KEY"`
	S3Prefix       string `envconfig:"S3_PREFIX"`

	BatchParallelism int    `envconfig:"BATCH_PARALLELISM" validate:"min=1,max=64"`
	LogLevel         string `envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.HomeserverURL = "https://matrix.agent.tchap.gouv.fr"
	c.RequestTimeout = 30 * time.Second
	c.SealPolicy = SealPolicyPermissive
	c.JournalPath = "mediagate.db"
	c.ExportDir = "downloads"
	c.BatchParallelism = 4
	c.LogLevel = "info"
}

// Validate checks field constraints and wraps failures in
// common.ErrorInvalidConfig.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidConfig, err)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones. The result is validated.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
