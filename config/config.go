// Package config loads an arm project file: logging, adapters and models.
//
//	log:
//	  level: info
//	  format: zap
//	adapters:
//	  - driver: mysql
//	    settings:
//	      host: ${DB_HOST:-localhost}
//	      user: arm
//	      database: shop
//	models:
//	  - name: Project
//	    relations:
//	      - name: tasks
//	        kind: has_many
//	        target: Task
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DiscoveryOrder file names looked up in the working directory when no path is given
var DiscoveryOrder = []string{
	"arm.yaml",
	"arm.yml",
}

// ProjectConfig a whole project file
type ProjectConfig struct {
	Log               LogConfig       `yaml:"log"`
	Naming            NamingConfig    `yaml:"naming"`
	RelationCacheSize int             `yaml:"relation_cache_size"`
	Adapters          []AdapterConfig `yaml:"adapters"`
	Models            []ModelConfig   `yaml:"models"`
}

// LogConfig selects and tunes the logger
type LogConfig struct {
	// Level silent, error, warn or info
	Level string `yaml:"level"`
	// Format text (default), logrus, zap, zerolog or slog
	Format        string        `yaml:"format"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	Colorful      bool          `yaml:"colorful"`
	// ParameterizedQueries keeps bound values out of traced statements
	ParameterizedQueries bool `yaml:"parameterized_queries"`
}

// NamingConfig resource naming strategy
type NamingConfig struct {
	TablePrefix string `yaml:"table_prefix"`
	Plural      bool   `yaml:"plural"`
	Initialisms bool   `yaml:"initialisms"`
}

// AdapterConfig one adapter, an empty name registers the default adapter
type AdapterConfig struct {
	Name string `yaml:"name"`
	// Driver mysql, sqlite or rest
	Driver     string                 `yaml:"driver"`
	BindParams bool                   `yaml:"bind_params"`
	Settings   map[string]interface{} `yaml:"settings"`
}

// ModelConfig one model
type ModelConfig struct {
	Name         string            `yaml:"name"`
	Resource     string            `yaml:"resource"`
	PrimaryKey   string            `yaml:"pk"`
	Adapter      string            `yaml:"adapter"`
	ReadAdapter  string            `yaml:"read_adapter"`
	WriteAdapter string            `yaml:"write_adapter"`
	Nested       map[string]string `yaml:"nested"`
	Relations    []RelationConfig  `yaml:"relations"`
}

// RelationConfig one relation of a model
type RelationConfig struct {
	Name string `yaml:"name"`
	// Kind has_many, has_one or belongs_to
	Kind        string         `yaml:"kind"`
	Target      string         `yaml:"target"`
	ForeignKey  string         `yaml:"foreign_key"`
	RelationKey string         `yaml:"relation_key"`
	Through     *ThroughConfig `yaml:"through"`
	Query       QueryConfig    `yaml:"query"`
}

// ThroughConfig the join model hop of a relation
type ThroughConfig struct {
	Model              string `yaml:"model"`
	RelationKey        string `yaml:"relation_key"`
	ForeignKey         string `yaml:"foreign_key"`
	ThroughRelationKey string `yaml:"through_relation_key"`
}

// QueryConfig read shaping of a relation
type QueryConfig struct {
	Select   string                 `yaml:"select"`
	Joins    string                 `yaml:"joins"`
	Where    string                 `yaml:"where"`
	Having   string                 `yaml:"having"`
	Group    string                 `yaml:"group"`
	Order    string                 `yaml:"order"`
	Limit    int                    `yaml:"limit"`
	Offset   int                    `yaml:"offset"`
	Distinct bool                   `yaml:"distinct"`
	Params   map[string]interface{} `yaml:"params"`
	Filters  map[string]interface{} `yaml:"filters"`
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load loads a project file, applying environment variable substitution.
// If path is empty, it tries to discover a project file in the current directory.
func Load(path string) (*ProjectConfig, error) {
	if path == "" {
		discovered, err := Discover()
		if err != nil {
			return nil, err
		}
		path = discovered
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads a project from raw bytes, applying environment variable substitution.
func LoadFromBytes(data []byte) (*ProjectConfig, error) {
	expanded := ExpandEnvVars(string(data))

	var cfg ProjectConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Discover finds a project file via ARM_CONFIG or in the current directory.
func Discover() (string, error) {
	if envPath := os.Getenv("ARM_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("ARM_CONFIG points to non-existent file: %s", envPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}

	for _, name := range DiscoveryOrder {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no config found, specify --config")
}

// ExpandEnvVars expands environment variables in the input string.
// Supports ${VAR_NAME} and ${VAR_NAME:-default} syntax.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		if val := os.Getenv(submatch[1]); val != "" {
			return val
		}

		if len(submatch) >= 3 {
			return submatch[2]
		}
		return ""
	})
}
