package arm

import (
	"context"
	"fmt"

	"github.com/armapper/arm/builder"
	"github.com/armapper/arm/utils"
)

// CountColumn alias of the projection Count selects
const CountColumn = "count_rows"

// FindOptions shapes a read.
//
// Filters are AND'ed equality conditions, list values become IN conditions.
// Params bind `:name` tokens of the assembled statement. Query, when set,
// is sent as is (after parameter binding) and every other clause is ignored.
type FindOptions struct {
	Select   string
	Joins    string
	Where    string
	Having   string
	Group    string
	Order    string
	Limit    int
	Offset   int
	Distinct bool
	Params   map[string]interface{}
	Filters  map[string]interface{}
	Query    string
}

// Clone returns a copy of options that shares no maps with it
func (o FindOptions) Clone() FindOptions {
	o.Params = copyData(o.Params)
	o.Filters = copyData(o.Filters)
	return o
}

// Statement assembles the SELECT statement for resource, params not yet bound
func (o FindOptions) Statement(resource string) string {
	if o.Query != "" {
		return o.Query
	}
	return o.Builder(resource).Build()
}

// Builder returns the SELECT builder for resource, Query is not considered
func (o FindOptions) Builder(resource string) builder.Select {
	return builder.Select{
		Resource: resource,
		Columns:  o.Select,
		Joins:    o.Joins,
		Where:    o.Where,
		Group:    o.Group,
		Having:   o.Having,
		Order:    o.Order,
		Limit:    o.Limit,
		Offset:   o.Offset,
		Distinct: o.Distinct,
		Filters:  o.Filters,
	}
}

// BindParams returns Params merged with the scalar filters, which the WHERE
// clause references as `:name`
func (o FindOptions) BindParams() map[string]interface{} {
	params := copyData(o.Params)
	for key, value := range o.Filters {
		if !builder.IsList(value) {
			params[key] = value
		}
	}
	return params
}

// Find returns the records matching options
func (m *Model) Find(ctx context.Context, options FindOptions) ([]*Record, error) {
	if err := CheckModel(m); err != nil {
		return nil, err
	}

	adapter, err := m.readAdapter()
	if err != nil {
		return nil, err
	}

	records, err := adapter.Read(ctx, m, options)
	m.mirror(adapter)
	return records, err
}

// FindOne returns the first record matching options, nil when there is none
func (m *Model) FindOne(ctx context.Context, options FindOptions) (*Record, error) {
	options.Limit = 1
	records, err := m.Find(ctx, options)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// Count returns the number of records matching options
func (m *Model) Count(ctx context.Context, options FindOptions) (int64, error) {
	options.Select = "COUNT(*) AS " + CountColumn
	options.Offset = 0
	record, err := m.FindOne(ctx, options)
	if err != nil || record == nil {
		return 0, err
	}

	count, err := utils.ToInt64(record.Value(CountColumn))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", m.Name, err)
	}
	return count, nil
}

// FindByID returns the record whose primary key is id, nil when there is none.
// A slice of ids matches any of them.
func (m *Model) FindByID(ctx context.Context, id interface{}) (*Record, error) {
	var value interface{}
	if builder.IsList(id) {
		value = id
	} else {
		value = utils.ToString(id)
	}

	return m.FindOne(ctx, FindOptions{Filters: map[string]interface{}{m.PrimaryKey: value}})
}

// FindByQuery runs a raw statement, params bind its `:name` tokens
func (m *Model) FindByQuery(ctx context.Context, query string, params map[string]interface{}) ([]*Record, error) {
	return m.Find(ctx, FindOptions{Query: query, Params: params})
}
