package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
)

// FileSystem is the file access the loader needs. Tests substitute a fake.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Files names the config and env files a load will read. Empty means none.
type Files struct {
	ConfigFile string
	EnvFile    string
}

type loader struct {
	fs    FileSystem
	files Files
	dirs  []string
}

// LoaderOption customizes LoadConfig.
type LoaderOption func(*loader)

// WithFileSystem replaces the OS filesystem.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(l *loader) { l.fs = fs }
}

// WithConfigFile skips discovery and reads path.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) { l.files.ConfigFile = path }
}

// WithEnvFile skips discovery and loads path into the environment.
func WithEnvFile(path string) LoaderOption {
	return func(l *loader) { l.files.EnvFile = path }
}

// WithSearchDirs replaces the directories searched for config files.
func WithSearchDirs(dirs ...string) LoaderOption {
	return func(l *loader) { l.dirs = dirs }
}

var defaultSearchDirs = []string{".", "./config", "../config", "../../config"}

// Resolve returns the files LoadConfig would read for name.
func Resolve(name string, opts ...LoaderOption) Files {
	return newLoader(opts).resolve(name)
}

func newLoader(opts []LoaderOption) *loader {
	l := &loader{fs: OSFileSystem{}, dirs: defaultSearchDirs}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *loader) resolve(name string) Files {
	files := l.files
	if files.ConfigFile == "" {
		files.ConfigFile = l.find(name+".yml", name+".yaml", "config.yml", "config.yaml")
	}
	if files.EnvFile == "" {
		files.EnvFile = l.find(".env."+name, ".env")
	}
	return files
}

// find returns the first candidate present, trying every name in a
// directory before moving to the next directory.
func (l *loader) find(candidates ...string) string {
	for _, dir := range l.dirs {
		for _, c := range candidates {
			path := dir + "/" + c
			if l.fs.Exists(path) {
				return path
			}
		}
	}
	return ""
}

// LoadConfig fills cfg for the named client. The YAML file is read first,
// then the .env file is loaded into the environment, then every environment
// variable is bound over the file values. Missing files are skipped; a file
// that exists but does not parse is an error.
func LoadConfig(name string, cfg any, opts ...LoaderOption) error {
	l := newLoader(opts)
	files := l.resolve(name)
	log := logger.Get("config")

	v := viper.New()
	if files.ConfigFile != "" && l.fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.InvalidConfig(name, fmt.Errorf("read %s: %w", files.ConfigFile, err))
		}
		log.Debug("config file loaded", logger.Fields("file", files.ConfigFile))
	}

	if files.EnvFile != "" && l.fs.Exists(files.EnvFile) {
		if err := l.fs.LoadEnv(files.EnvFile); err != nil {
			log.Warn("env file not loaded", logger.MergeWithError(logger.Fields("file", files.EnvFile), err))
		}
	}
	bindEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return errors.InvalidConfig(name, err)
	}
	return nil
}

func bindEnv(v *viper.Viper, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		for _, k := range envKeys(key) {
			v.Set(k, value)
		}
	}
}

// envKeys lists the viper keys an environment variable may address:
//
//	CLIENT_TLS_CA_FILE -> client_tls_ca_file, client.tls.ca.file,
//	                      client.tls_ca_file, client.tls.ca_file, ...
func envKeys(env string) []string {
	lower := strings.ToLower(env)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	keys := []string{lower, strings.Join(parts, ".")}
	seen := map[string]bool{keys[0]: true, keys[1]: true}
	// Dots before the split point, underscores after it.
	for i := 1; i < len(parts); i++ {
		k := strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_")
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
