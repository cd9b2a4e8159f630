package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nasa-meteo/dashboard/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "meteo.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultBuildFile is the default build configuration path.
	DefaultBuildFile = "meteo.build.yaml"

	// Views sources.
	SourceFS = "fs"
	SourceS3 = "s3"
)

// Config represents the complete meteo.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Views configures where lazily-loaded route views come from.
	Views ViewsConfig `json:"views,omitempty"`

	// Static contains static asset serving configuration.
	Static StaticConfig `json:"static,omitempty"`

	// Navigation contains navigation limits.
	Navigation NavigationConfig `json:"navigation,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Build is the path to the build configuration file.
	Build string `json:"build,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// ViewsConfig configures the component source.
type ViewsConfig struct {
	// Source is "fs" (embedded or on-disk views) or "s3".
	Source string `json:"source,omitempty"`

	// Dir overrides the directory views are read from when Source is "fs".
	// Empty means the "@" alias directory, or the embedded views when that
	// directory does not exist.
	Dir string `json:"dir,omitempty"`

	// LoadTimeout bounds each view fetch (e.g., "15s").
	LoadTimeout string `json:"loadTimeout,omitempty"`

	// Preload loads every view at startup instead of on first navigation.
	Preload bool `json:"preload,omitempty"`

	// S3 configures the S3 source.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config locates views in an S3 bucket.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// StaticConfig contains static asset serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`

	// Prefix is the URL prefix for static files (default: "/cesium/").
	Prefix string `json:"prefix,omitempty"`
}

// NavigationConfig contains navigation limits.
type NavigationConfig struct {
	// MaxRedirects bounds the redirects a navigation follows.
	MaxRedirects int `json:"maxRedirects,omitempty"`

	// RateLimit is the number of live navigation connections allowed per
	// client IP and window. Zero disables limiting.
	RateLimit int `json:"rateLimit,omitempty"`

	// RateWindow is the rate limit window (e.g., "1m").
	RateWindow string `json:"rateWindow,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Path      string `json:"path,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for meteo.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No meteo.json found in " + filepath.Dir(path)).
				WithSuggestion("Create meteo.json or run 'meteo serve' without --config to use defaults")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse meteo.json: " + err.Error()).
			WithSuggestion("Check that meteo.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file, or "." for a
// config that was not loaded from disk.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "nasa-meteo"
	}

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Views.Source == "" {
		c.Views.Source = SourceFS
	}
	if c.Views.LoadTimeout == "" {
		c.Views.LoadTimeout = "15s"
	}

	if c.Static.Dir == "" {
		c.Static.Dir = "public/cesium"
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = "/cesium/"
	}

	if c.Navigation.MaxRedirects == 0 {
		c.Navigation.MaxRedirects = 10
	}
	if c.Navigation.RateWindow == "" {
		c.Navigation.RateWindow = "1m"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "meteo"
	}

	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "meteo"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Build == "" {
		c.Build = DefaultBuildFile
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E121").
			WithDetail("server.port is " + strconv.Itoa(c.Server.Port))
	}

	switch c.Views.Source {
	case SourceFS:
	case SourceS3:
		if c.Views.S3.Bucket == "" {
			return errors.New("E124")
		}
	default:
		return errors.New("E122").WithDetail("views.source is " + strconv.Quote(c.Views.Source))
	}

	for field, value := range map[string]string{
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"views.loadTimeout":      c.Views.LoadTimeout,
		"navigation.rateWindow":  c.Navigation.RateWindow,
	} {
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return errors.New("E123").WithDetail(field + " is " + strconv.Quote(value))
		}
	}

	if c.Navigation.RateLimit < 0 {
		return errors.New("E125")
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ShutdownTimeout returns the parsed server.shutdownTimeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return mustDuration(c.Server.ShutdownTimeout)
}

// LoadTimeout returns the parsed views.loadTimeout.
func (c *Config) LoadTimeout() time.Duration {
	return mustDuration(c.Views.LoadTimeout)
}

// RateWindow returns the parsed navigation.rateWindow.
func (c *Config) RateWindow() time.Duration {
	return mustDuration(c.Navigation.RateWindow)
}

// BuildPath returns the absolute path to the build configuration file.
func (c *Config) BuildPath() string {
	return c.resolve(c.Build)
}

// StaticPath returns the absolute path to the static asset directory.
func (c *Config) StaticPath() string {
	return c.resolve(c.Static.Dir)
}

// ViewsPath returns the absolute path of views.dir, or "" when unset.
func (c *Config) ViewsPath() string {
	if c.Views.Dir == "" {
		return ""
	}
	return c.resolve(c.Views.Dir)
}

// StaticPrefix returns the URL prefix for static files, with slashes on
// both ends.
func (c *Config) StaticPrefix() string {
	p := c.Static.Prefix
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// LogLevel returns the slog level for log.level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing meteo.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No meteo.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadOrDefault loads meteo.json from the nearest project root above
// startDir, falling back to defaults rooted at startDir.
func LoadOrDefault(startDir string) (*Config, error) {
	root, err := FindProjectRoot(startDir)
	if err != nil {
		if errors.HasCode(err, "E141") {
			cfg := New()
			abs, absErr := filepath.Abs(startDir)
			if absErr != nil {
				return nil, absErr
			}
			cfg.configPath = filepath.Join(abs, ConfigFileName)
			return cfg, nil
		}
		return nil, err
	}
	return Load(root)
}
