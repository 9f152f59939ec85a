package arm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Model describes one kind of record: where it lives and how it relates to others
type Model struct {
	Name         string
	Resource     string
	PrimaryKey   string
	ReadAdapter  string
	WriteAdapter string

	registry  *Registry
	nested    map[string]string
	relations map[string]*Relation

	mu         sync.Mutex
	lastQuery  string
	lastResult *Result
}

// ModelOption configures a model on Define
type ModelOption func(*Model)

// WithResource overrides the resource name derived from the model name
func WithResource(resource string) ModelOption {
	return func(m *Model) {
		m.Resource = resource
	}
}

// WithPrimaryKey overrides the default primary key field "id"
func WithPrimaryKey(field string) ModelOption {
	return func(m *Model) {
		m.PrimaryKey = field
	}
}

// WithReadAdapter reads through the adapter registered under name
func WithReadAdapter(name string) ModelOption {
	return func(m *Model) {
		m.ReadAdapter = name
	}
}

// WithWriteAdapter writes through the adapter registered under name
func WithWriteAdapter(name string) ModelOption {
	return func(m *Model) {
		m.WriteAdapter = name
	}
}

// WithAdapter reads and writes through the adapter registered under name
func WithAdapter(name string) ModelOption {
	return func(m *Model) {
		m.ReadAdapter = name
		m.WriteAdapter = name
	}
}

// WithNested declares field as holding a record of the model named model
func WithNested(field, model string) ModelOption {
	return func(m *Model) {
		m.nested[field] = model
	}
}

// WithRelation declares relation under name
func WithRelation(name string, relation *Relation) ModelOption {
	return func(m *Model) {
		m.relations[name] = relation
	}
}

// Registry returns the registry the model is defined in
func (m *Model) Registry() *Registry {
	return m.registry
}

// New returns a new, not yet persisted record holding data
func (m *Model) New(data map[string]interface{}) (*Record, error) {
	return m.newRecord(data, true)
}

// MustNew is like New but panics on invalid field names
func (m *Model) MustNew(data map[string]interface{}) *Record {
	record, err := m.New(data)
	if err != nil {
		panic(err)
	}
	return record
}

// Load returns a persisted record holding data, adapters hydrate rows with it.
// A plain value under a nested field is kept as a field instead of rejected.
func (m *Model) Load(data map[string]interface{}) (*Record, error) {
	return m.newRecord(data, false)
}

// Relation returns the relation declared under name
func (m *Model) Relation(name string) (*Relation, error) {
	if relation, ok := m.relations[name]; ok {
		return relation, nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, m.Name, name)
}

// Relations returns the declared relation names, sorted
func (m *Model) Relations() []string {
	names := make([]string, 0, len(m.relations))
	for name := range m.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NestedModel returns the model declared for a nested field, nil if field is not nested
func (m *Model) NestedModel(field string) (*Model, error) {
	name, ok := m.nested[field]
	if !ok {
		return nil, nil
	}
	return m.registry.Model(name)
}

// LastQuery returns the statements of the last read or write on this model
func (m *Model) LastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// LastResult returns the adapter result of the last read or write on this model
func (m *Model) LastResult() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResult
}

func (m *Model) setLastQuery(query string) {
	m.mu.Lock()
	m.lastQuery = query
	m.mu.Unlock()
}

func (m *Model) setLastResult(result *Result) {
	m.mu.Lock()
	m.lastResult = result
	m.mu.Unlock()
}

// mirror copies the adapter's last query and result onto the model
func (m *Model) mirror(adapter Adapter) {
	if introspector, ok := adapter.(Introspector); ok {
		m.mu.Lock()
		m.lastQuery = introspector.LastQuery()
		m.lastResult = introspector.LastResult()
		m.mu.Unlock()
	}
}

func (m *Model) readAdapter() (Adapter, error) {
	return m.registry.Adapter(m.ReadAdapter)
}

func (m *Model) writeAdapter() (Adapter, error) {
	return m.registry.Adapter(m.WriteAdapter)
}

func (m *Model) logWarn(ctx context.Context, msg string, data ...interface{}) {
	m.registry.Logger.Warn(ctx, msg, data...)
}
