package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/kbukum/apikit/errors"
)

// TLSConfig describes how a client verifies its host and, for mTLS,
// which certificate it presents.
type TLSConfig struct {
	// SkipVerify disables host certificate verification. Test use only.
	SkipVerify bool `json:"skip_verify" yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is a PEM bundle used instead of the system roots.
	CAFile string `json:"ca_file" yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile and KeyFile are the client certificate pair.
	CertFile string `json:"cert_file" yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file" mapstructure:"key_file"`

	ServerName string `json:"server_name" yaml:"server_name" mapstructure:"server_name"`

	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `json:"min_version" yaml:"min_version" mapstructure:"min_version"`
}

// Enabled reports whether any TLS option is set.
func (c *TLSConfig) Enabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.KeyFile != "" || c.ServerName != ""
}

// Validate checks that the certificate pair is complete and the version is known.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.InvalidConfig("tls", fmt.Errorf("cert_file and key_file must be set together"))
	}
	switch c.MinVersion {
	case 0, tls.VersionTLS10, tls.VersionTLS11, tls.VersionTLS12, tls.VersionTLS13:
	default:
		return errors.InvalidConfig("tls", fmt.Errorf("unknown min_version 0x%04x", c.MinVersion))
	}
	return nil
}

// Build returns the *tls.Config described by c, or nil when TLS is not
// configured and the transport defaults should be used.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	out := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for test hosts
		ServerName:         c.ServerName,
		MinVersion:         c.MinVersion,
	}
	if out.MinVersion == 0 {
		out.MinVersion = tls.VersionTLS12
	}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, errors.InvalidConfig("tls", fmt.Errorf("read ca_file: %w", err))
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.InvalidConfig("tls", fmt.Errorf("ca_file %s holds no certificates", c.CAFile))
		}
		out.RootCAs = pool
	}

	if c.CertFile != "" {
		pair, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, errors.InvalidConfig("tls", fmt.Errorf("load client certificate: %w", err))
		}
		out.Certificates = []tls.Certificate{pair}
	}

	return out, nil
}

// Apply installs the built TLS settings on t. A disabled config leaves t untouched.
func (c *TLSConfig) Apply(t *http.Transport) error {
	tlsCfg, err := c.Build()
	if err != nil {
		return err
	}
	if tlsCfg != nil {
		t.TLSClientConfig = tlsCfg
	}
	return nil
}
