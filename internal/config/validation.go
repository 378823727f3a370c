package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/tree"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// Err returns a config error listing every validation error, or nil.
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	messages := make([]string, 0, len(vr.Errors))
	for i := range vr.Errors {
		messages = append(messages, vr.Errors[i].Error())
	}
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, strings.Join(messages, "; ")).
		WithContext("field", vr.Errors[0].Field)
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// Validate checks every section of config.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServer(&config.Server, result)
	validateSource(&config.Source, result)
	validateTree(&config.Tree, result)
	validateSettings(&config.Settings, result)
	validateWatch(config, result)
	validateLog(&config.Log, result)

	return result
}

func validateServer(server *ServerConfig, result *ValidationResult) {
	// Port 0 asks the system for a free port.
	if server.Port < 0 || server.Port > 65535 {
		result.fail("server.port", server.Port, fmt.Sprintf("port %d is not in valid range 0-65535", server.Port),
			"Use a port such as 8080")
	}

	if strings.ContainsAny(server.Host, ";&|$`()<>\"'\\ ") {
		result.fail("server.host", server.Host, "host contains invalid characters")
	}
	if server.Host == "0.0.0.0" || server.Host == "" {
		result.warn("server.host", server.Host, "server listens on every interface",
			"Set server.host to localhost for local use")
	}

	for _, origin := range server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result.fail("server.allowed_origins", origin, fmt.Sprintf("origin %q is not an http(s) origin", origin),
				"Origins look like http://localhost:3000")
		}
	}

	if server.MaxConnectionsPerIP < 0 {
		result.fail("server.max_connections_per_ip", server.MaxConnectionsPerIP, "must not be negative")
	}
	if server.MaxMessagesPerMinute < 0 {
		result.fail("server.max_messages_per_minute", server.MaxMessagesPerMinute, "must not be negative")
	}
}

func validateSource(source *SourceConfig, result *ValidationResult) {
	switch {
	case source.BaseURL == "" && source.Dir == "":
		result.fail("source", nil, "no class source configured",
			"Set source.base_url to the docs server", "Set source.dir to the generated output directory")
	case source.BaseURL != "" && source.Dir != "":
		result.fail("source", nil, "source.base_url and source.dir are mutually exclusive")
	case source.BaseURL != "":
		u, err := url.Parse(source.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result.fail("source.base_url", source.BaseURL, "base_url must be an absolute http(s) URL")
		}
	}

	if _, err := loader.ParseFormat(source.Format); err != nil {
		result.fail("source.format", source.Format, err.Error(), "Use jsonp or json")
	}

	if source.Index == "" || strings.ContainsAny(source.Index, `/\`) || source.Index == ".." {
		result.fail("source.index", source.Index, "index must be a plain file name", "The default is data.json")
	}

	if source.Timeout < 0 {
		result.fail("source.timeout", source.Timeout, "timeout must not be negative")
	}
}

func validateTree(t *TreeConfig, result *ValidationResult) {
	if _, err := tree.ParseStrategy(t.Grouping); err != nil {
		result.fail("tree.grouping", t.Grouping, err.Error())
	}
}

func validateSettings(s *SettingsConfig, result *ValidationResult) {
	switch settings.Backend(s.Backend) {
	case settings.BackendMemory, "":
		return
	case settings.BackendYAML, settings.BackendSQLite:
		if s.Path == "" {
			result.fail("settings.path", s.Path, fmt.Sprintf("the %s backend needs a path", s.Backend),
				"Set settings.path to a file below the working directory")
			return
		}
		if err := validatePath(s.Path); err != nil {
			result.fail("settings.path", s.Path, err.Error())
		}
	default:
		result.fail("settings.backend", s.Backend, fmt.Sprintf("unknown backend %q", s.Backend),
			"Use memory, yaml or sqlite")
	}
}

func validateWatch(config *Config, result *ValidationResult) {
	w := &config.Watch
	if !w.Enabled {
		return
	}
	if config.Source.Dir == "" {
		result.fail("watch.enabled", w.Enabled, "watching needs a directory source", "Set source.dir")
	}
	if !doublestar.ValidatePattern(w.Pattern) {
		result.fail("watch.pattern", w.Pattern, "invalid glob pattern")
	}
	if w.Debounce < 0 {
		result.fail("watch.debounce", w.Debounce, "debounce must not be negative")
	}
}

func validateLog(l *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(l.Level); err != nil {
		result.fail("log.level", l.Level, err.Error(), "Use debug, info, warn or error")
	}
	if l.Format != "" && l.Format != "text" && l.Format != "json" {
		result.fail("log.format", l.Format, fmt.Sprintf("unknown log format %q", l.Format), "Use text or json")
	}
}

// validatePath rejects traversal, absolute paths and shell metacharacters.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}
	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path should be relative: %s", path)
	}
	if strings.ContainsAny(cleanPath, ";&|$`<>\"'") {
		return fmt.Errorf("path contains dangerous characters: %s", path)
	}
	return nil
}
