package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration. Precedence when
// assembling one: typed defaults, then the YAML config file, then explicit
// overrides (CLI flags or options).
type Config struct {
	App  ApplicationConfig `yaml:"app"`
	Site SiteConfig        `yaml:"site"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Site.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the preview server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the preview server listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig describes the content tree and how it is built.
type SiteConfig struct {
	// ContentDir is the source tree searched for documents.
	ContentDir string `yaml:"content_dir"`
	// OutputDir receives the generated tree.
	OutputDir string `yaml:"output_dir"`
	// DefaultTemplate is used when a document names none.
	DefaultTemplate string `yaml:"default_template"`
	// RootSubdir names a top-level content directory whose files surface
	// at the output root. Must be a bare directory name.
	RootSubdir string `yaml:"root_subdir"`
	// JinjaMarkdown renders template expressions embedded in document
	// bodies before Markdown conversion.
	JinjaMarkdown bool `yaml:"jinja_markdown"`
	// DateFromFilename derives a missing date from the filename stem.
	DateFromFilename bool `yaml:"date_from_filename"`
	// SkipDirs lists content-relative path prefixes excluded from builds.
	SkipDirs []string `yaml:"skip_dirs"`
	// Vars are site-wide template variables, overridable per document.
	Vars map[string]any `yaml:"vars"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ContentDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.DefaultTemplate, validation.Required),
	); err != nil {
		return err
	}
	if strings.ContainsAny(c.RootSubdir, `/\`) {
		return fmt.Errorf("site: root_subdir must be a bare directory name, got %q", c.RootSubdir)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			ContentDir:      "content",
			OutputDir:       "output",
			DefaultTemplate: "default.jinja",
			Vars: map[string]any{
				"DEFAULT_LANG": "en",
			},
		},
	}
}
