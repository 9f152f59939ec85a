package arm

import (
	"github.com/armapper/arm/logger"
	"github.com/armapper/arm/schema"
)

// ConfigOption use functional option for arm Config.
type ConfigOption func(c *Config)

// WithLogger set logger.
func WithLogger(logger logger.Interface) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithNamingStrategy set resource namer.
func WithNamingStrategy(namer schema.Namer) ConfigOption {
	return func(c *Config) {
		c.NamingStrategy = namer
	}
}

// WithRelationCacheSize bound relation caches to size owners each.
func WithRelationCacheSize(size int) ConfigOption {
	return func(c *Config) {
		c.RelationCacheSize = size
	}
}
