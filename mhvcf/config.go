package mhvcf

import (
	"context"
	"time"

	"go.eggybyte.com/evss/clientx"
	"go.eggybyte.com/evss/configx"
	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/tlsx"
)

// Defaults for the partner service.
const (
	DefaultBaseURL     = "https://pint.vdc.va.gov:444/wssweb/domain1/vii-app-1.2/rest"
	DefaultServiceName = "MHVCF"
)

// Config is the environment-bound configuration of the MHVCF client.
// Credential paths are shared with the other EVSS clients.
type Config struct {
	CertPath string `env:"EVSS_CERT_FILE_PATH" validate:"required"`
	KeyPath  string `env:"EVSS_CERT_KEY_PATH" validate:"required"`
	CAPath   string `env:"EVSS_ROOT_CERT_FILE_PATH" validate:"required"`

	BaseURL     string `env:"MHVCF_BASE_URL" default:"https://pint.vdc.va.gov:444/wssweb/domain1/vii-app-1.2/rest" validate:"required,https_url"`
	ServiceName string `env:"MHVCF_SERVICE_NAME" default:"MHVCF" validate:"required"`
	ServerName  string `env:"MHVCF_SERVER_NAME"`
	MinTLS      string `env:"MHVCF_MIN_TLS_VERSION" default:"1.2" validate:"oneof=1.2 1.3 TLS1.2 TLS1.3 TLSv1.2 TLSv1.3"`

	Timeout          time.Duration `env:"MHVCF_TIMEOUT" default:"30s" validate:"gte=0"`
	BreakerThreshold uint32        `env:"MHVCF_BREAKER_THRESHOLD" default:"5"`
	BreakerWindow    time.Duration `env:"MHVCF_BREAKER_WINDOW" default:"60s" validate:"gte=0"`
	BreakerCooldown  time.Duration `env:"MHVCF_BREAKER_COOLDOWN" default:"30s" validate:"gte=0"`
	MaxResponseBytes int64         `env:"MHVCF_MAX_RESPONSE_BYTES" default:"10485760" validate:"gte=0"`
}

// LoadConfig reads the configuration from the environment, layered over the
// YAML or JSON file at path when path is not empty.
func LoadConfig(ctx context.Context, path string) (Config, error) {
	var sources []configx.Source
	if path != "" {
		sources = append(sources, configx.NewFileSource(path, configx.FileOptions{}))
	}
	sources = append(sources, configx.NewEnvSource(configx.EnvOptions{}))

	var cfg Config
	if err := configx.Load(ctx, &cfg, sources...); err != nil {
		return Config{}, errors.Wrap(errors.CodeInvalidArgument, "mhvcf.LoadConfig", err)
	}
	return cfg, nil
}

// ClientConfig converts c into the transport-level client configuration.
func (c Config) ClientConfig() (clientx.Config, error) {
	version, err := tlsx.ParseVersion(c.MinTLS)
	if err != nil {
		return clientx.Config{}, errors.Wrap(errors.CodeInvalidArgument, "mhvcf.ClientConfig", err)
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	service := c.ServiceName
	if service == "" {
		service = DefaultServiceName
	}

	return clientx.Config{
		BaseURL:          baseURL,
		ServiceName:      service,
		CertPath:         c.CertPath,
		KeyPath:          c.KeyPath,
		CAPath:           c.CAPath,
		MinTLSVersion:    version,
		ServerName:       c.ServerName,
		Timeout:          c.Timeout,
		BreakerThreshold: c.BreakerThreshold,
		BreakerWindow:    c.BreakerWindow,
		BreakerCooldown:  c.BreakerCooldown,
		MaxResponseBytes: c.MaxResponseBytes,
	}, nil
}
