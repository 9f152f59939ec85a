package arm

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/armapper/arm/utils"
)

// AdapterConfig key/value settings of an adapter (host, credentials, flags).
//
// Adapters embed it. Lookups never fall back to a default silently, a missing
// key fails with ErrConfigKey.
type AdapterConfig struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewAdapterConfig returns a config holding a copy of values
func NewAdapterConfig(values map[string]interface{}) *AdapterConfig {
	config := &AdapterConfig{values: make(map[string]interface{}, len(values))}
	for key, value := range values {
		config.values[key] = value
	}
	return config
}

// Add sets key to value, replacing the previous value
func (c *AdapterConfig) Add(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values == nil {
		c.values = map[string]interface{}{}
	}
	c.values[key] = value
}

// Get returns the value of key
func (c *AdapterConfig) Get(key string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigKey, key)
	}
	return value, nil
}

// GetString returns the value of key formatted as a string
func (c *AdapterConfig) GetString(key string) (string, error) {
	value, err := c.Get(key)
	if err != nil {
		return "", err
	}
	return utils.ToString(value), nil
}

// GetBool returns the value of key as a bool, fallback when the key is absent
func (c *AdapterConfig) GetBool(key string, fallback bool) (bool, error) {
	if !c.Has(key) {
		return fallback, nil
	}

	value, _ := c.Get(key)
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback, fmt.Errorf("config %s: %w", key, err)
		}
		return b, nil
	}
	return fallback, fmt.Errorf("config %s: unexpected %T", key, value)
}

// All returns a copy of the whole config
func (c *AdapterConfig) All() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	values := make(map[string]interface{}, len(c.values))
	for key, value := range c.values {
		values[key] = value
	}
	return values
}

// Has reports whether key is set
func (c *AdapterConfig) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.values[key]
	return ok
}

// Remove deletes key and returns its previous value
func (c *AdapterConfig) Remove(key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigKey, key)
	}
	delete(c.values, key)
	return value, nil
}

// Clear removes every key
func (c *AdapterConfig) Clear() {
	c.mu.Lock()
	c.values = map[string]interface{}{}
	c.mu.Unlock()
}
