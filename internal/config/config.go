package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the config file looked up in the working directory
	ConfigFileName = "htmlinclude.yaml"

	// DefaultAttribute marks elements whose content comes from another file
	DefaultAttribute = "data-include"

	// DefaultPlaceholder replaces the content of an element whose include failed
	DefaultPlaceholder = "<p>Error loading content</p>"

	// DefaultThumbSize is the edge length of gallery thumbnails in pixels
	DefaultThumbSize = 500
)

// Config represents the htmlinclude configuration
type Config struct {
	// Attribute names the include-source attribute
	Attribute string `yaml:"attribute" validate:"required"`

	// Placeholder is the markup injected when an include fails
	Placeholder string `yaml:"placeholder"`

	// BaseURL makes relative includes resolve over HTTP instead of the file system
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`

	// RootDir is the site root absolute include paths resolve against
	RootDir string `yaml:"root_dir,omitempty"`

	// Timeout bounds each HTTP fetch. Zero means none.
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`

	// Concurrency caps fetches in flight per document. Zero means unlimited.
	Concurrency int `yaml:"concurrency,omitempty" validate:"gte=0"`

	// CacheTTL enables fragment caching across documents when positive
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty" validate:"gte=0"`

	// Minify minifies processed documents
	Minify bool `yaml:"minify,omitempty"`

	// UserAgent is sent with HTTP fetches
	UserAgent string `yaml:"user_agent,omitempty"`

	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	TOC     TOCConfig     `yaml:"toc"`
	Gallery GalleryConfig `yaml:"gallery"`
}

// LogConfig configures the diagnostics logger
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// ServerConfig configures the development server
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// TOCConfig configures table of contents generation
type TOCConfig struct {
	// MinHeadings is the fewest headings worth a table of contents
	MinHeadings int `yaml:"min_headings" validate:"gte=1"`

	// AssignIDs gives headings without an id a slug id
	AssignIDs bool `yaml:"assign_ids,omitempty"`
}

// GalleryConfig configures the photo gallery generator
type GalleryConfig struct {
	PhotoDir    string `yaml:"photo_dir" validate:"required"`
	ThumbDir    string `yaml:"thumb_dir" validate:"required"`
	PagesDir    string `yaml:"pages_dir" validate:"required"`
	IndexFile   string `yaml:"index_file" validate:"required"`
	Header      string `yaml:"header" validate:"required"`
	Footer      string `yaml:"footer" validate:"required"`
	PhotoPage   string `yaml:"photo_page" validate:"required"`
	ThumbSize   int    `yaml:"thumb_size" validate:"gt=0"`
	JPEGQuality int    `yaml:"jpeg_quality" validate:"omitempty,min=1,max=100"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Attribute:   DefaultAttribute,
		Placeholder: DefaultPlaceholder,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		TOC: TOCConfig{
			MinHeadings: 3,
		},
		Gallery: GalleryConfig{
			PhotoDir:    "photos_img",
			ThumbDir:    "photos_img_small",
			PagesDir:    "photos",
			IndexFile:   "photo.html",
			Header:      "photo_template.html",
			Footer:      "photo_template_footer.html",
			PhotoPage:   "photos/single_photo_template.html",
			ThumbSize:   DefaultThumbSize,
			JPEGQuality: 85,
		},
	}
}

// Load loads the configuration from path.
// If the file doesn't exist, returns a default config.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it names
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Attribute == "" {
		config.Attribute = DefaultAttribute
	}
	if config.Placeholder == "" {
		config.Placeholder = DefaultPlaceholder
	}

	return config, nil
}

// Save writes the configuration to path
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigFileName
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// String renders the configuration as YAML
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<invalid config: %v>", err)
	}
	return string(data)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return ValidationToMultiError(validationErrs)
		}
		return fmt.Errorf("failed to validate config: %w", err)
	}
	return nil
}
