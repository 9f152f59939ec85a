package builder

import (
	"sort"
	"strconv"
	"strings"
)

// Select describes one SELECT statement against a resource
type Select struct {
	Resource string
	Columns  string
	Joins    string
	Where    string
	Group    string
	Having   string
	Order    string
	Limit    int
	Offset   int
	Distinct bool
	// Filters become `resource.key = :key` or `resource.key IN (...)`
	Filters map[string]interface{}
	// BindLists renders list filters as `resource.key IN :key` for Bind
	// instead of inlining their escaped values
	BindLists bool
}

// Build assembles the statement:
//
//	SELECT [DISTINCT] <columns> FROM <resource> [<joins>] [WHERE ...] [GROUP BY ...]
//	[HAVING ...] [ORDER BY ...] [LIMIT n] [OFFSET n]
//
// Columns default to `<resource>.*`. Scalar filters stay as `:key` tokens for
// Substitute or Bind.
func (s Select) Build() string {
	var sql strings.Builder
	sql.WriteString("SELECT")
	if s.Distinct {
		sql.WriteString(" DISTINCT")
	}

	sql.WriteByte(' ')
	if s.Columns != "" {
		sql.WriteString(s.Columns)
	} else {
		sql.WriteString(s.Resource + ".*")
	}

	sql.WriteString(" FROM ")
	sql.WriteString(s.Resource)

	if s.Joins != "" {
		sql.WriteString(" " + s.Joins)
	}

	sql.WriteString(BuildWhere(s.Where, s.Resource, s.Filters, s.BindLists))

	if s.Group != "" {
		sql.WriteString(" GROUP BY " + s.Group)
	}
	if s.Having != "" {
		sql.WriteString(" HAVING " + s.Having)
	}
	if s.Order != "" {
		sql.WriteString(" ORDER BY " + s.Order)
	}
	if s.Limit > 0 {
		sql.WriteString(" LIMIT " + strconv.Itoa(s.Limit))
	}
	if s.Offset > 0 {
		sql.WriteString(" OFFSET " + strconv.Itoa(s.Offset))
	}
	return sql.String()
}

// BuildWhere joins the explicit where clause with one expression per filter,
// filters sorted by name. Returns "" when there is no condition at all.
func BuildWhere(where, resource string, filters map[string]interface{}, bindLists bool) string {
	conditions := make([]string, 0, len(filters)+1)
	if where != "" {
		conditions = append(conditions, where)
	}

	for _, key := range SortedKeys(filters) {
		var expr Expression = FilterExpression(key, filters[key])
		if _, ok := expr.(IN); ok && bindLists {
			expr = INParam{Column: key}
		}
		conditions = append(conditions, expr.Build(resource))
	}

	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// Vars renders statement values either inline (escaped) or as driver placeholders
type Vars struct {
	Bind bool
	Args []interface{}
}

// Add renders value and, in bind mode, records it as a driver argument
func (v *Vars) Add(value interface{}) string {
	if v == nil || !v.Bind {
		return Escape(value)
	}
	v.Args = append(v.Args, value)
	return "?"
}

// Insert builds `INSERT INTO resource (c1,c2) VALUES (v1,v2)` with columns sorted
func Insert(resource string, data map[string]interface{}, vars *Vars) string {
	columns := SortedKeys(data)
	values := make([]string, len(columns))
	for idx, column := range columns {
		values[idx] = vars.Add(data[column])
	}
	return "INSERT INTO " + resource + " (" + strings.Join(columns, ",") + ") VALUES (" + strings.Join(values, ",") + ")"
}

// Update builds `UPDATE resource SET c1 = v1, c2 = v2 WHERE pk = id` with columns sorted
func Update(resource string, data map[string]interface{}, primaryKey string, id interface{}, vars *Vars) string {
	columns := SortedKeys(data)
	sets := make([]string, len(columns))
	for idx, column := range columns {
		sets[idx] = column + " = " + vars.Add(data[column])
	}
	return "UPDATE " + resource + " SET " + strings.Join(sets, ", ") + " WHERE " + primaryKey + " = " + vars.Add(id)
}

// Delete builds `DELETE FROM resource WHERE pk = id [LIMIT 1]`
func Delete(resource, primaryKey string, id interface{}, limit bool, vars *Vars) string {
	sql := "DELETE FROM " + resource + " WHERE " + primaryKey + " = " + vars.Add(id)
	if limit {
		sql += " LIMIT 1"
	}
	return sql
}

// SortedKeys returns the keys of m in lexical order
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
