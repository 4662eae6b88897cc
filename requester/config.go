package requester

import (
	"maps"
	"strings"
	"time"
	"unicode"

	"github.com/kbukum/apikit/config"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/security"
	"github.com/kbukum/apikit/validation"
)

// Config is the per-client configuration. Hooks and transports are set with
// Options passed to New.
type Config struct {
	// Name labels logs, spans and metrics.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Host prefixes every URL as host + "/" + url. Empty sends URLs as is.
	// Any string is accepted except one with whitespace or control characters.
	Host    string            `json:"host" yaml:"host" mapstructure:"host"`
	Headers map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`
	// Timeout applies to the default HTTP transport only.
	Timeout time.Duration       `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	TLS     *security.TLSConfig `json:"tls" yaml:"tls" mapstructure:"tls"`
}

// DefaultHeaders are sent unless configured headers replace them.
func DefaultHeaders() map[string]string {
	return map[string]string{HeaderAccept: ContentTypeJSON}
}

// ApplyDefaults layers the configured headers over DefaultHeaders and sets
// the default timeout.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "requester"
	}
	c.Headers = mergeHeaders(DefaultHeaders(), c.Headers)
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the host, timeout and TLS settings.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return errors.InvalidConfig("client", err)
	}
	hostOK := !strings.ContainsFunc(c.Host, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	if err := validation.New().
		Custom(hostOK, "host", "must not contain whitespace or control characters").
		Validate(); err != nil {
		return errors.InvalidConfig("client", err)
	}
	return c.TLS.Validate()
}

func (c Config) clone() Config {
	c.Headers = maps.Clone(c.Headers)
	if c.TLS != nil {
		tls := *c.TLS
		c.TLS = &tls
	}
	return c
}

// FileConfig is the layout of a client configuration file:
//
//	client:
//	  name: billing
//	  host: https://billing.example.com
//	  headers:
//	    X-Api-Key: secret
//	  timeout: 10s
//	logging:
//	  level: debug
type FileConfig struct {
	Client  Config        `yaml:"client" mapstructure:"client"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// LoadConfig reads the named client's configuration file and environment,
// applies defaults and validates the result.
func LoadConfig(name string, opts ...config.LoaderOption) (*FileConfig, error) {
	var fc FileConfig
	if err := config.LoadConfig(name, &fc, opts...); err != nil {
		return nil, err
	}
	if fc.Client.Name == "" {
		fc.Client.Name = name
	}
	fc.Client.ApplyDefaults()
	if err := fc.Client.Validate(); err != nil {
		return nil, err
	}
	fc.Logging.ApplyDefaults()
	if err := fc.Logging.Validate(); err != nil {
		return nil, errors.InvalidConfig("logging", err)
	}
	return &fc, nil
}
