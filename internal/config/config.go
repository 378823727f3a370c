// Package config provides configuration management for docview using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration file is .docview.yml; environment variables use the
// DOCVIEW_ prefix (DOCVIEW_SERVER_PORT). Load applies defaults and validates
// the result.
package config

import (
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/tree"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "DOCVIEW"

// FileName is the configuration file looked up in the working directory
const FileName = ".docview"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Loader   LoaderConfig   `mapstructure:"loader" yaml:"loader"`
	Tree     TreeConfig     `mapstructure:"tree" yaml:"tree"`
	Settings SettingsConfig `mapstructure:"settings" yaml:"settings"`
	Index    IndexConfig    `mapstructure:"index" yaml:"index"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host                 string   `mapstructure:"host" yaml:"host"`
	Port                 int      `mapstructure:"port" yaml:"port"`
	Open                 bool     `mapstructure:"open" yaml:"open"`
	AllowedOrigins       []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxConnectionsPerIP  int      `mapstructure:"max_connections_per_ip" yaml:"max_connections_per_ip"`
	MaxMessagesPerMinute int      `mapstructure:"max_messages_per_minute" yaml:"max_messages_per_minute"`
}

// SourceConfig names where class documents come from. Exactly one of
// BaseURL and Dir is set.
type SourceConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Format  string        `mapstructure:"format" yaml:"format"`
	Index   string        `mapstructure:"index" yaml:"index"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LoaderConfig struct {
	// RetryFailed lets a revisit re-fetch a class whose load failed
	RetryFailed bool `mapstructure:"retry_failed" yaml:"retry_failed"`
}

type TreeConfig struct {
	Grouping    string `mapstructure:"grouping" yaml:"grouping"`
	ShowPrivate bool   `mapstructure:"show_private" yaml:"show_private"`
}

type SettingsConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type IndexConfig struct {
	Title string `mapstructure:"title" yaml:"title"`
	// Notice is markdown shown on the index page
	Notice string `mapstructure:"notice" yaml:"notice"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Pattern  string        `mapstructure:"pattern" yaml:"pattern"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.open", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.max_connections_per_ip", 16)
	v.SetDefault("server.max_messages_per_minute", 600)

	v.SetDefault("source.base_url", "")
	v.SetDefault("source.dir", "")
	v.SetDefault("source.format", string(loader.FormatJSONP))
	v.SetDefault("source.index", "data.json")
	v.SetDefault("source.timeout", 30*time.Second)

	v.SetDefault("loader.retry_failed", true)

	v.SetDefault("tree.grouping", tree.ByPackage.String())
	v.SetDefault("tree.show_private", false)

	v.SetDefault("settings.backend", string(settings.BackendMemory))
	v.SetDefault("settings.path", "")

	v.SetDefault("index.title", "API Documentation")
	v.SetDefault("index.notice", "")

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.pattern", "**/data.{json,js}")
	v.SetDefault("watch.debounce", 300*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Bind points v at the configuration file and the DOCVIEW_ environment and
// reads the file. A missing default file is not an error; a missing
// explicit file is.
func Bind(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && stderrors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads, defaults and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// Comma separated lists arrive as one string from the environment.
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins[0])
	}

	normalize(&config)

	if result := Validate(&config); result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w", result.Err())
	}
	return &config, nil
}

func normalize(config *Config) {
	config.Source.BaseURL = strings.TrimSpace(config.Source.BaseURL)
	config.Source.Dir = strings.TrimSpace(config.Source.Dir)
	config.Source.Format = strings.ToLower(strings.TrimSpace(config.Source.Format))
	config.Tree.Grouping = strings.ToLower(strings.TrimSpace(config.Tree.Grouping))
	config.Settings.Backend = strings.ToLower(strings.TrimSpace(config.Settings.Backend))
	config.Log.Format = strings.ToLower(strings.TrimSpace(config.Log.Format))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// RetryPolicy maps loader.retry_failed to a loader policy
func (c *Config) RetryPolicy() loader.RetryPolicy {
	if c.Loader.RetryFailed {
		return loader.RetryOnRevisit
	}
	return loader.NegativeCacheForever
}

// Grouping returns the configured tree strategy. Validated configurations
// never fail here.
func (c *Config) Grouping() tree.Strategy {
	strategy, _ := tree.ParseStrategy(c.Tree.Grouping)
	return strategy
}

// Format returns the document format
func (c *Config) Format() loader.Format {
	format, _ := loader.ParseFormat(c.Source.Format)
	return format
}

// LoggerConfig builds the logger configuration
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Log.Level)
	return &logging.LoggerConfig{
		Level:  level,
		Format: c.Log.Format,
	}
}
