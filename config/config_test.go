package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kbukum/apikit/errors"
)

type clientSection struct {
	Name    string            `mapstructure:"name"`
	Host    string            `mapstructure:"host"`
	Headers map[string]string `mapstructure:"headers"`
}

type testConfig struct {
	Client clientSection `mapstructure:"client"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "billing.yml", `
client:
  name: billing
  host: https://billing.example.com
  headers:
    X-Api-Key: secret
`)

	var cfg testConfig
	if err := LoadConfig("billing", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Name != "billing" {
		t.Errorf("expected name 'billing', got %q", cfg.Client.Name)
	}
	if cfg.Client.Host != "https://billing.example.com" {
		t.Errorf("expected host from file, got %q", cfg.Client.Host)
	}
	// viper lowercases map keys.
	if cfg.Client.Headers["x-api-key"] != "secret" {
		t.Errorf("expected header from file, got %v", cfg.Client.Headers)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "client:\n  host: https://file.example.com\n")
	t.Setenv("CLIENT_HOST", "https://env.example.com")

	var cfg testConfig
	if err := LoadConfig("billing", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Host != "https://env.example.com" {
		t.Errorf("expected env value to win, got %q", cfg.Client.Host)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "CLIENT_NAME=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("CLIENT_NAME") })

	var cfg testConfig
	err := LoadConfig("billing", &cfg, WithSearchDirs(dir), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Client.Name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nowhere", &cfg, WithConfigFile("/nonexistent/path.yml"), WithSearchDirs())
	if err != nil {
		t.Fatalf("expected missing file to be skipped, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.yml", "client: [unterminated\n")

	var cfg testConfig
	err := LoadConfig("broken", &cfg, WithConfigFile(path))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

type fakeFS map[string]bool

func (f fakeFS) Exists(path string) bool { return f[path] }
func (f fakeFS) LoadEnv(string) error    { return nil }

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		files      fakeFS
		wantConfig string
		wantEnv    string
	}{
		{
			name:       "named file beats generic",
			files:      fakeFS{"./billing.yml": true, "./config.yml": true},
			wantConfig: "./billing.yml",
		},
		{
			name:       "earlier directory wins",
			files:      fakeFS{"./config.yml": true, "./config/billing.yml": true},
			wantConfig: "./config.yml",
		},
		{
			name:    "named env file",
			files:   fakeFS{"./config/.env.billing": true, "./.env": true},
			wantEnv: "./.env",
		},
		{
			name: "nothing found",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve("billing", WithFileSystem(tc.files))
			if got.ConfigFile != tc.wantConfig {
				t.Errorf("ConfigFile = %q, want %q", got.ConfigFile, tc.wantConfig)
			}
			if got.EnvFile != tc.wantEnv {
				t.Errorf("EnvFile = %q, want %q", got.EnvFile, tc.wantEnv)
			}
		})
	}
}

func TestResolveExplicitFiles(t *testing.T) {
	got := Resolve("billing",
		WithFileSystem(fakeFS{"./billing.yml": true}),
		WithConfigFile("/etc/billing.yml"),
		WithEnvFile("/etc/billing.env"),
	)
	if got.ConfigFile != "/etc/billing.yml" || got.EnvFile != "/etc/billing.env" {
		t.Errorf("expected explicit paths, got %+v", got)
	}
}

func TestEnvKeys(t *testing.T) {
	got := envKeys("CLIENT_TLS_CA_FILE")
	for _, want := range []string{
		"client_tls_ca_file",
		"client.tls.ca.file",
		"client.tls_ca_file",
		"client.tls.ca_file",
	} {
		if !slices.Contains(got, want) {
			t.Errorf("expected %q in %v", want, got)
		}
	}
	if len(got) != 4 {
		t.Errorf("expected 4 unique keys, got %v", got)
	}
	if got := envKeys("HOME"); len(got) != 1 || got[0] != "home" {
		t.Errorf("expected [home], got %v", got)
	}
}
