package arm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// Record one entity of a model: live fields, nested records and the data it was built from
type Record struct {
	model  *Model
	id     uint64
	origin map[string]interface{}
	fields map[string]interface{}
	nested map[string]*Record
	isNew  bool
}

func (m *Model) newRecord(data map[string]interface{}, isNew bool) (*Record, error) {
	record := &Record{
		model:  m,
		id:     m.registry.nextRecordID(),
		origin: copyData(data),
		fields: map[string]interface{}{},
		nested: map[string]*Record{},
		isNew:  isNew,
	}

	if err := record.assign(data, !isNew); err != nil {
		return nil, err
	}
	return record, nil
}

// Model returns the model of the record
func (r *Record) Model() *Model {
	return r.model
}

// ID returns the identity of the record instance, unique within its registry.
// It is not the primary key.
func (r *Record) ID() uint64 {
	return r.id
}

// IsNew reports whether the record has not been persisted yet
func (r *Record) IsNew() bool {
	return r.isNew
}

// SetNew marks the record as new or persisted
func (r *Record) SetNew(isNew bool) {
	r.isNew = isNew
}

// PrimaryKey returns the value of the model's primary key field
func (r *Record) PrimaryKey() (interface{}, bool) {
	return r.Get(r.model.PrimaryKey)
}

// SetData replaces all fields with data. On error the record is left unchanged.
func (r *Record) SetData(data map[string]interface{}) error {
	return r.assign(data, false)
}

// assign replaces all fields with data once every value is accepted.
// keepScalars stores plain values found under a nested field as fields, rows
// read from a store may carry a column of that name.
func (r *Record) assign(data map[string]interface{}, keepScalars bool) error {
	for name := range data {
		if err := checkFieldName(name); err != nil {
			return err
		}
	}

	staged := &Record{
		model:  r.model,
		id:     r.id,
		fields: map[string]interface{}{},
		nested: map[string]*Record{},
		isNew:  r.isNew,
	}
	for _, name := range sortedNames(data) {
		if err := staged.set(name, data[name], keepScalars); err != nil {
			return err
		}
	}

	r.fields, r.nested = staged.fields, staged.nested
	return nil
}

// Set assigns value to field name.
//
// A field declared nested on the model stores a record of the declared model:
// maps are wrapped into a new record that inherits the owner's IsNew state.
func (r *Record) Set(name string, value interface{}) error {
	if err := checkFieldName(name); err != nil {
		return err
	}
	return r.set(name, value, false)
}

func (r *Record) set(name string, value interface{}, keepScalars bool) error {
	nestedModel, err := r.model.NestedModel(name)
	if err != nil {
		return err
	}
	if nestedModel == nil {
		r.fields[name] = value
		return nil
	}

	switch v := value.(type) {
	case nil:
		delete(r.nested, name)
	case *Record:
		if v.model != nestedModel {
			return fmt.Errorf("%w: field %s holds %s records", ErrModelType, name, nestedModel.Name)
		}
		r.nested[name] = v
	case map[string]interface{}:
		record, err := nestedModel.newRecord(v, r.isNew)
		if err != nil {
			return err
		}
		r.nested[name] = record
	default:
		if !keepScalars {
			return fmt.Errorf("%w: field %s holds %s records, got %T", ErrModelType, name, nestedModel.Name, value)
		}
		delete(r.nested, name)
		r.fields[name] = value
		return nil
	}
	delete(r.fields, name)
	return nil
}

// Get returns the value of field name, nested records included
func (r *Record) Get(name string) (interface{}, bool) {
	if value, ok := r.fields[name]; ok {
		return value, true
	}
	if record, ok := r.nested[name]; ok {
		return record, true
	}
	return nil, false
}

// Value returns the value of field name or nil when unset
func (r *Record) Value(name string) interface{} {
	value, _ := r.Get(name)
	return value
}

// Nested returns the nested record stored in field name
func (r *Record) Nested(name string) (*Record, bool) {
	record, ok := r.nested[name]
	return record, ok
}

// Del removes field name
func (r *Record) Del(name string) {
	delete(r.fields, name)
	delete(r.nested, name)
}

// Time parses field name as a timestamp
func (r *Record) Time(name string) (time.Time, error) {
	value, ok := r.Get(name)
	if !ok || value == nil {
		return time.Time{}, fmt.Errorf("field %s is not set", name)
	}

	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		return *v, nil
	case []byte:
		return now.Parse(string(v))
	case string:
		return now.Parse(v)
	}
	return time.Time{}, fmt.Errorf("field %s: cannot parse %T as time", name, value)
}

// Data returns a copy of the fields. withNested adds the nested records and
// the loaded has one and belongs to records.
func (r *Record) Data(withNested bool) map[string]interface{} {
	data := copyData(r.fields)
	if withNested {
		for name, record := range r.nested {
			data[name] = record
		}
		for name, record := range r.loadedRecords() {
			data[name] = record
		}
	}
	return data
}

// OriginData returns a copy of the data the record was built from
func (r *Record) OriginData() map[string]interface{} {
	return copyData(r.origin)
}

// NestedRecords returns the nested records by field name
func (r *Record) NestedRecords() map[string]*Record {
	records := make(map[string]*Record, len(r.nested))
	for name, record := range r.nested {
		records[name] = record
	}
	return records
}

// ToMap returns the fields as plain values. withNested flattens nested and
// loaded single record relations recursively, a record already being
// flattened contributes its fields only.
func (r *Record) ToMap(withNested bool) map[string]interface{} {
	return r.toMap(withNested, map[uint64]struct{}{})
}

func (r *Record) toMap(withNested bool, path map[uint64]struct{}) map[string]interface{} {
	if _, ok := path[r.id]; ok {
		withNested = false
	} else {
		path[r.id] = struct{}{}
		defer delete(path, r.id)
	}

	result := make(map[string]interface{}, len(r.fields)+len(r.nested))
	for name, value := range r.fields {
		result[name] = plainValue(value, withNested, path)
	}
	if withNested {
		for name, record := range r.nested {
			result[name] = record.toMap(true, path)
		}
		for name, record := range r.loadedRecords() {
			result[name] = record.toMap(true, path)
		}
	}
	return result
}

// loadedRecords returns the loaded has one and belongs to records by relation
// name. Names taken by a field or nested record are left out.
func (r *Record) loadedRecords() map[string]*Record {
	records := map[string]*Record{}
	for name, relation := range r.model.relations {
		if _, ok := r.Get(name); ok {
			continue
		}
		value, ok := relation.Loaded(r)
		if !ok {
			continue
		}
		if record, ok := value.(*Record); ok && record != nil {
			records[name] = record
		}
	}
	return records
}

// relatedRecords returns the nested records then the loaded single record
// relations, each group sorted by name
func (r *Record) relatedRecords() []*Record {
	records := make([]*Record, 0, len(r.nested))
	for _, name := range sortedRecordNames(r.nested) {
		records = append(records, r.nested[name])
	}
	loaded := r.loadedRecords()
	for _, name := range sortedRecordNames(loaded) {
		records = append(records, loaded[name])
	}
	return records
}

// MarshalJSON encodes ToMap(true)
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap(true))
}

func (r *Record) String() string {
	pk, _ := r.PrimaryKey()
	return fmt.Sprintf("%s(%s=%v)", r.model.Name, r.model.PrimaryKey, pk)
}

func plainValue(value interface{}, withNested bool, path map[uint64]struct{}) interface{} {
	switch v := value.(type) {
	case *Record:
		return v.toMap(withNested, path)
	case []*Record:
		values := make([]map[string]interface{}, len(v))
		for idx, record := range v {
			values[idx] = record.toMap(withNested, path)
		}
		return values
	}
	return value
}

func checkFieldName(name string) error {
	if name == "" || strings.HasPrefix(name, "_") {
		return fmt.Errorf("%w: %q", ErrFieldName, name)
	}
	return nil
}

func copyData(data map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		result[key] = value
	}
	return result
}

func sortedNames(data map[string]interface{}) []string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
