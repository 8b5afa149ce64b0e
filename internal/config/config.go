// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/geoview/internal/reader"
	"github.com/woozymasta/geoview/internal/render"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string        `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	CacheDir    string        `yaml:"cache_dir,omitempty" json:"-"`
	OutputDir   string        `yaml:"output_dir,omitempty" json:"-"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"-"`
	Style       render.Style  `yaml:"style,omitempty" json:"style,omitempty"`
	Datasets    []Dataset     `yaml:"datasets" json:"datasets"`
}

// Dataset represents a single named dataset. Exactly one of Shapefile and GeoJSON is set.
type Dataset struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	Name        string       `yaml:"name" json:"name"`
	Title       string       `yaml:"title,omitempty" json:"title,omitempty"`
	Shapefile   string       `yaml:"shapefile,omitempty" json:"-"` // bundle directory or .shp path
	GeoJSON     string       `yaml:"geojson,omitempty" json:"-"`   // path, http(s):// or s3:// location
	Attribution string       `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Aliases     []string     `yaml:"aliases,omitempty" json:"-"`
	Style       render.Style `yaml:"style,omitempty" json:"-"`
}

// Location returns the dataset location regardless of its format.
func (d Dataset) Location() string {
	if d.Shapefile != "" {
		return d.Shapefile
	}
	return d.GeoJSON
}

// Source returns the reader source for the dataset.
func (d Dataset) Source(fetcher reader.Fetcher) (reader.Source, error) {
	if d.Shapefile != "" {
		src, err := reader.OpenShapefile(d.Shapefile)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
		}
		return src, nil
	}
	return reader.GeoJSONSource{URI: d.GeoJSON, Fetcher: fetcher}, nil
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks dataset names, locations and styles.
func (c *Config) Validate() error {
	if err := c.Style.Validate(); err != nil {
		return fmt.Errorf("global style: %w", err)
	}

	seen := make(map[string]bool)
	for i, d := range c.Datasets {
		if d.Name == "" {
			return fmt.Errorf("dataset %d: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("dataset %s: duplicate name", d.Name)
		}
		seen[d.Name] = true

		if (d.Shapefile == "") == (d.GeoJSON == "") {
			return fmt.Errorf("dataset %s: set exactly one of shapefile and geojson", d.Name)
		}
		if err := d.Style.Validate(); err != nil {
			return fmt.Errorf("dataset %s: %w", d.Name, err)
		}
	}

	return nil
}

// DatasetStyle returns the global style overridden by the dataset style.
func (c *Config) DatasetStyle(d Dataset) render.Style {
	return c.Style.Merge(d.Style)
}
