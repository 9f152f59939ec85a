package arm

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/armapper/arm/logger"
	"github.com/armapper/arm/schema"
)

// Config arm config
type Config struct {
	// Logger receives statement traces from adapters and warnings from the write path
	Logger logger.Interface
	// NamingStrategy derives resource and key names from model names
	NamingStrategy schema.Namer
	// RelationCacheSize bounds every relation cache to that many owners, 0 keeps them unbounded
	RelationCacheSize int
}

// Registry holds the models and adapters of one project
type Registry struct {
	*Config

	mu       sync.RWMutex
	models   map[string]*Model
	adapters map[string]Adapter
	recordID atomic.Uint64
}

// New initialize a registry based on config
func New(config *Config, opts ...ConfigOption) *Registry {
	if config == nil {
		config = &Config{}
	}

	for _, opt := range opts {
		opt(config)
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	return &Registry{
		Config:   config,
		models:   map[string]*Model{},
		adapters: map[string]Adapter{},
	}
}

// LoggerSetter is implemented by adapters that trace through the registry logger
type LoggerSetter interface {
	SetLogger(logger.Interface)
}

// AddAdapter registers adapter under name, without a name it becomes the default adapter
func (r *Registry) AddAdapter(adapter Adapter, name ...string) error {
	if adapter == nil {
		return fmt.Errorf("%w: nil adapter", ErrAdapterType)
	}

	var key string
	if len(name) > 0 {
		key = name[0]
	}

	if setter, ok := adapter.(LoggerSetter); ok {
		setter.SetLogger(r.Logger)
	}

	r.mu.Lock()
	r.adapters[key] = adapter
	r.mu.Unlock()
	return nil
}

// Adapter returns the adapter registered under name, "" is the default adapter
func (r *Registry) Adapter(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	if name == "" {
		return nil, fmt.Errorf("%w: no default adapter", ErrAdapterNotFound)
	}
	return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
}

// Define registers a model named name
func (r *Registry) Define(name string, opts ...ModelOption) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty model name", ErrModelType)
	}

	model := &Model{
		Name:       name,
		PrimaryKey: "id",
		registry:   r,
		nested:     map[string]string{},
		relations:  map[string]*Relation{},
	}

	for _, opt := range opts {
		opt(model)
	}

	if model.Resource == "" {
		model.Resource = r.NamingStrategy.ResourceName(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrModelRegistered, name)
	}

	for field, relation := range model.relations {
		relation.bind(model, field)
	}
	r.models[name] = model
	return model, nil
}

// MustDefine is like Define but panics if the model cannot be registered
func (r *Registry) MustDefine(name string, opts ...ModelOption) *Model {
	model, err := r.Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return model
}

// Model returns the model registered under name
func (r *Registry) Model(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if model, ok := r.models[name]; ok {
		return model, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// Models returns the registered model names, sorted
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) registered(model *Model) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[model.Name] == model
}

func (r *Registry) nextRecordID() uint64 {
	return r.recordID.Add(1)
}
