package clientx

import (
	"crypto/tls"
	stderrors "errors"
	"time"

	"github.com/go-playground/validator/v10"

	"go.eggybyte.com/evss/configx"
	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/tlsx"
)

// Default tunables.
const (
	DefaultTimeout               = 30 * time.Second
	DefaultDialTimeout           = 10 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 15 * time.Second
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 10
	DefaultBreakerThreshold      = 5
	DefaultBreakerWindow         = 60 * time.Second
	DefaultBreakerCooldown       = 30 * time.Second
	DefaultMaxResponseBytes      = 10 << 20
	DefaultCertExpiryWarning     = 30 * 24 * time.Hour
	DefaultUserAgent             = "evss-client/1.0"
)

// Config describes one upstream service. Zero-valued tunables take the defaults above.
type Config struct {
	BaseURL     string `validate:"required,https_url"`
	ServiceName string `validate:"required"`
	CertPath    string `validate:"required"`
	KeyPath     string `validate:"required"`
	CAPath      string `validate:"required"`

	MinTLSVersion uint16 `validate:"omitempty,gte=0x0303"`
	ServerName    string // overrides the SNI and verification name; defaults to the BaseURL host
	UserAgent     string

	Timeout               time.Duration `validate:"gte=0"`
	DialTimeout           time.Duration `validate:"gte=0"`
	TLSHandshakeTimeout   time.Duration `validate:"gte=0"`
	ResponseHeaderTimeout time.Duration `validate:"gte=0"`
	IdleConnTimeout       time.Duration `validate:"gte=0"`
	MaxIdleConns          int           `validate:"gte=0"`
	MaxIdleConnsPerHost   int           `validate:"gte=0"`

	BreakerThreshold uint32
	BreakerWindow    time.Duration `validate:"gte=0"`
	BreakerCooldown  time.Duration `validate:"gte=0"`

	MaxResponseBytes  int64         `validate:"gte=0"`
	CertExpiryWarning time.Duration `validate:"gte=0"`
}

// WithDefaults returns a copy of c with zero tunables replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.MinTLSVersion == 0 {
		c.MinTLSVersion = tls.VersionTLS12
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	setDur(&c.Timeout, DefaultTimeout)
	setDur(&c.DialTimeout, DefaultDialTimeout)
	setDur(&c.TLSHandshakeTimeout, DefaultTLSHandshakeTimeout)
	setDur(&c.ResponseHeaderTimeout, DefaultResponseHeaderTimeout)
	setDur(&c.IdleConnTimeout, DefaultIdleConnTimeout)
	setDur(&c.BreakerWindow, DefaultBreakerWindow)
	setDur(&c.BreakerCooldown, DefaultBreakerCooldown)
	setDur(&c.CertExpiryWarning, DefaultCertExpiryWarning)
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = DefaultBreakerThreshold
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return c
}

func setDur(d *time.Duration, def time.Duration) {
	if *d == 0 {
		*d = def
	}
}

// Validate checks required fields and value ranges.
// File readability is checked later by the credential loader.
func (c Config) Validate() error {
	err := configx.ValidateStruct(configx.NewValidator(), c)
	if err == nil {
		return nil
	}

	b := errors.Build(errors.CodeInvalidArgument).WithOp("clientx.Config.Validate").WithErr(err)
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		b = b.WithMsgf("field %s failed %s", fe.Field(), fe.Tag())
		for _, v := range verrs {
			b = b.WithDetails(v.Field(), v.Tag())
		}
	}
	return b.Err()
}

// Paths returns the credential file locations.
func (c Config) Paths() tlsx.Paths {
	return tlsx.Paths{Cert: c.CertPath, Key: c.KeyPath, CA: c.CAPath}
}

// BreakerSettings returns the breaker configuration.
func (c Config) BreakerSettings() BreakerSettings {
	return BreakerSettings{
		Threshold: c.BreakerThreshold,
		Window:    c.BreakerWindow,
		Cooldown:  c.BreakerCooldown,
	}
}

// TransportOptions returns the connection limits.
func (c Config) TransportOptions() tlsx.TransportOptions {
	opts := tlsx.DefaultTransportOptions()
	opts.DialTimeout = c.DialTimeout
	opts.TLSHandshakeTimeout = c.TLSHandshakeTimeout
	opts.ResponseHeaderTimeout = c.ResponseHeaderTimeout
	opts.IdleConnTimeout = c.IdleConnTimeout
	opts.MaxIdleConns = c.MaxIdleConns
	opts.MaxIdleConnsPerHost = c.MaxIdleConnsPerHost
	return opts
}
