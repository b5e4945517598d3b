// Package configuration builds loggers from JSON, YAML or TOML documents.
//
// A document names its sinks, enrichers and filters; LoggerBuilder turns
// the names into components through registered factories:
//
//	Stlog:
//	  MinimumLevel: Debug
//	  Enrich: [MachineName]
//	  WriteTo:
//	    - Name: Batched
//	      Args:
//	        maxSize: 50
//	        store: {Name: SQLite, Args: {path: /var/lib/app/logs.db}}
//	        writeTo: {Name: Kafka, Args: {brokers: [kafka:9092], topic: logs}}
package configuration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/willibrandon/stlog/core"
)

// DefaultMinimumLevel is used by LoggerBuilder when a document sets none.
const DefaultMinimumLevel = "Information"

// Configuration is the root of a configuration document.
type Configuration struct {
	Stlog LoggerConfiguration `json:"Stlog" yaml:"Stlog" toml:"Stlog"`
}

// LoggerConfiguration describes one logger.
type LoggerConfiguration struct {
	MinimumLevel string                `json:"MinimumLevel,omitempty" yaml:"MinimumLevel,omitempty" toml:"MinimumLevel,omitempty"`
	WriteTo      []ComponentConfig     `json:"WriteTo,omitempty" yaml:"WriteTo,omitempty" toml:"WriteTo,omitempty"`
	Enrich       []string              `json:"Enrich,omitempty" yaml:"Enrich,omitempty" toml:"Enrich,omitempty"`
	EnrichWith   []ComponentConfig     `json:"EnrichWith,omitempty" yaml:"EnrichWith,omitempty" toml:"EnrichWith,omitempty"`
	Properties   map[string]any        `json:"Properties,omitempty" yaml:"Properties,omitempty" toml:"Properties,omitempty"`
	Filter       []ComponentConfig     `json:"Filter,omitempty" yaml:"Filter,omitempty" toml:"Filter,omitempty"`
	YieldErrors  bool                  `json:"YieldErrors,omitempty" yaml:"YieldErrors,omitempty" toml:"YieldErrors,omitempty"`
	Metrics      *MetricsConfiguration `json:"Metrics,omitempty" yaml:"Metrics,omitempty" toml:"Metrics,omitempty"`
}

// ComponentConfig names a registered factory and its arguments.
type ComponentConfig struct {
	Name string         `json:"Name" yaml:"Name" toml:"Name"`
	Args map[string]any `json:"Args,omitempty" yaml:"Args,omitempty" toml:"Args,omitempty"`
}

// MetricsConfiguration enables Prometheus instrumentation.
type MetricsConfiguration struct {
	Namespace string `json:"Namespace,omitempty" yaml:"Namespace,omitempty" toml:"Namespace,omitempty"`
}

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from a file extension.
func FormatFor(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: unsupported configuration file %q", core.ErrInvalidArgument, filename)
	}
}

// LoadFromFile loads a document, choosing the format by extension.
func LoadFromFile(filename string) (*Configuration, error) {
	format, err := FormatFor(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(data, format)
}

// Load parses data in the given format.
func Load(data []byte, format Format) (*Configuration, error) {
	var config Configuration
	var err error

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&config)
	case FormatYAML:
		err = yaml.Unmarshal(data, &config)
	case FormatTOML:
		err = toml.Unmarshal(data, &config)
	default:
		return nil, fmt.Errorf("%w: unknown configuration format %q", core.ErrInvalidArgument, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}

	return &config, nil
}

// LoadFromJSON loads a JSON document.
func LoadFromJSON(data []byte) (*Configuration, error) {
	return Load(data, FormatJSON)
}

// LoadFromYAML loads a YAML document.
func LoadFromYAML(data []byte) (*Configuration, error) {
	return Load(data, FormatYAML)
}

// LoadFromTOML loads a TOML document.
func LoadFromTOML(data []byte) (*Configuration, error) {
	return Load(data, FormatTOML)
}

// Merge applies an override document on top of base: the level and sinks
// are replaced when set, enrichers and filters are appended, and properties
// are merged with override winning.
func Merge(base, override *Configuration) *Configuration {
	merged := *base
	b, o := &merged.Stlog, override.Stlog

	if o.MinimumLevel != "" {
		b.MinimumLevel = o.MinimumLevel
	}
	if len(o.WriteTo) > 0 {
		b.WriteTo = o.WriteTo
	}
	b.Enrich = append(append([]string(nil), b.Enrich...), o.Enrich...)
	b.EnrichWith = append(append([]ComponentConfig(nil), b.EnrichWith...), o.EnrichWith...)
	b.Filter = append(append([]ComponentConfig(nil), b.Filter...), o.Filter...)

	properties := make(map[string]any, len(b.Properties)+len(o.Properties))
	maps.Copy(properties, b.Properties)
	maps.Copy(properties, o.Properties)
	b.Properties = properties

	b.YieldErrors = b.YieldErrors || o.YieldErrors
	if o.Metrics != nil {
		b.Metrics = o.Metrics
	}
	return &merged
}

// GetString gets a string argument.
func GetString(args map[string]any, key, defaultValue string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return defaultValue
}

// GetInt gets an integer argument. JSON numbers, YAML ints, TOML int64s
// and numeric strings are accepted.
func GetInt(args map[string]any, key string, defaultValue int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetBool gets a boolean argument.
func GetBool(args map[string]any, key string, defaultValue bool) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetDuration gets a duration argument written like "5s" or "250ms".
// Plain numbers are read as seconds.
func GetDuration(args map[string]any, key string, defaultValue time.Duration) (time.Duration, error) {
	switch v := args[key].(type) {
	case nil:
		return defaultValue, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", core.ErrInvalidArgument, key, err)
		}
		return d, nil
	default:
		return time.Duration(GetInt(args, key, 0)) * time.Second, nil
	}
}

// GetStrings gets a list of strings. A single string is a one-element list.
func GetStrings(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetComponent gets a nested component argument such as a wrapped sink.
func GetComponent(args map[string]any, key string) (ComponentConfig, bool) {
	raw, ok := args[key].(map[string]any)
	if !ok {
		return ComponentConfig{}, false
	}
	name, _ := raw["Name"].(string)
	nested, _ := raw["Args"].(map[string]any)
	return ComponentConfig{Name: name, Args: nested}, name != ""
}
