package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("Expected non-nil config")
	}

	if config.Attribute != "data-include" {
		t.Errorf("Expected attribute 'data-include', got '%s'", config.Attribute)
	}

	if config.Placeholder != "<p>Error loading content</p>" {
		t.Errorf("Unexpected placeholder '%s'", config.Placeholder)
	}

	if config.Timeout != 0 {
		t.Errorf("Expected no default timeout, got %v", config.Timeout)
	}

	if config.Gallery.ThumbSize != 500 {
		t.Errorf("Expected thumb size 500, got %d", config.Gallery.ThumbSize)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Attribute != DefaultAttribute {
		t.Errorf("Expected default attribute, got '%s'", config.Attribute)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `attribute: data-partial
timeout: 5s
cache_ttl: 1m
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Attribute != "data-partial" {
		t.Errorf("Expected attribute 'data-partial', got '%s'", config.Attribute)
	}
	if config.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", config.Timeout)
	}
	if config.CacheTTL != time.Minute {
		t.Errorf("Expected cache ttl 1m, got %v", config.CacheTTL)
	}
	if config.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Log.Level)
	}
	// Untouched sections keep their defaults
	if config.Log.Format != "text" {
		t.Errorf("Expected default log format, got %s", config.Log.Format)
	}
	if config.Placeholder != DefaultPlaceholder {
		t.Errorf("Expected default placeholder, got %s", config.Placeholder)
	}
	if config.Server.Addr != ":8080" {
		t.Errorf("Expected default addr, got %s", config.Server.Addr)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("attribute: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	config := DefaultConfig()
	config.BaseURL = "https://example.com/"
	config.Concurrency = 4
	config.Minify = true

	if err := config.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.BaseURL != config.BaseURL || loaded.Concurrency != 4 || !loaded.Minify {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "missing attribute", mutate: func(c *Config) { c.Attribute = "" }, wantField: "attribute"},
		{name: "relative base url", mutate: func(c *Config) { c.BaseURL = "not a url" }, wantField: "base_url"},
		{name: "negative concurrency", mutate: func(c *Config) { c.Concurrency = -1 }, wantField: "concurrency"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantField: "timeout"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantField: "log.level"},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantField: "log.format"},
		{name: "zero thumb size", mutate: func(c *Config) { c.Gallery.ThumbSize = 0 }, wantField: "gallery.thumb_size"},
		{name: "jpeg quality too high", mutate: func(c *Config) { c.Gallery.JPEGQuality = 101 }, wantField: "gallery.jpeg_quality"},
		{name: "zero min headings", mutate: func(c *Config) { c.TOC.MinHeadings = 0 }, wantField: "toc.min_headings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}

			multi, ok := err.(MultiError)
			if !ok {
				t.Fatalf("Expected MultiError, got %T", err)
			}

			found := false
			for _, fe := range multi {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error for field %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestMultiError_Message(t *testing.T) {
	config := DefaultConfig()
	config.Attribute = ""
	config.Log.Level = "loud"

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}

	msg := err.Error()
	if !strings.Contains(msg, "attribute: is required") {
		t.Errorf("Expected attribute message, got %s", msg)
	}
	if !strings.Contains(msg, "log.level: must be one of") {
		t.Errorf("Expected log level message, got %s", msg)
	}
}

func TestString(t *testing.T) {
	out := DefaultConfig().String()
	if !strings.Contains(out, "attribute: data-include") {
		t.Errorf("Expected YAML output, got %s", out)
	}
}
