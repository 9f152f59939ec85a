package builder

import (
	"fmt"
	"reflect"
	"strings"
)

// Expression renders itself as a where fragment for resource
type Expression interface {
	Build(resource string) string
}

// Eq equal to, bound through the named parameter of the same name
type Eq struct {
	Column string
}

// Build renders `resource.column = :column`
func (eq Eq) Build(resource string) string {
	return fmt.Sprintf("%s.%s = :%s", resource, eq.Column, eq.Column)
}

// IN whether column in values, values are escaped and inlined
type IN struct {
	Column string
	Values []interface{}
}

// Build renders `resource.column IN (v1,v2)`
func (in IN) Build(resource string) string {
	if len(in.Values) == 0 {
		return fmt.Sprintf("%s.%s IN (NULL)", resource, in.Column)
	}

	values := make([]string, len(in.Values))
	for idx, value := range in.Values {
		values[idx] = Escape(value)
	}
	return fmt.Sprintf("%s.%s IN (%s)", resource, in.Column, strings.Join(values, ","))
}

// INParam whether column in the list bound to the named parameter of the same name
type INParam struct {
	Column string
}

// Build renders `resource.column IN :column`
func (in INParam) Build(resource string) string {
	return fmt.Sprintf("%s.%s IN :%s", resource, in.Column, in.Column)
}

// FilterExpression picks IN for list values and Eq for scalars
func FilterExpression(column string, value interface{}) Expression {
	if values, ok := listValues(value); ok {
		return IN{Column: column, Values: values}
	}
	return Eq{Column: column}
}

// IsList reports whether value is rendered as a list (slices and arrays except []byte)
func IsList(value interface{}) bool {
	_, ok := listValues(value)
	return ok
}

func listValues(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case nil, []byte, string:
		return nil, false
	case []interface{}:
		return v, true
	case []string:
		values := make([]interface{}, len(v))
		for idx, s := range v {
			values[idx] = s
		}
		return values, true
	}

	reflectValue := reflect.ValueOf(value)
	switch reflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		values := make([]interface{}, reflectValue.Len())
		for i := 0; i < reflectValue.Len(); i++ {
			values[i] = reflectValue.Index(i).Interface()
		}
		return values, true
	}
	return nil, false
}
