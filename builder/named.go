package builder

import (
	"regexp"
	"sort"
	"strings"
)

var namedParam = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// Substitute escapes every value of params and replaces each `:name` token in
// query with the escaped literal.
//
// Tokens are matched as plain text, so a parameter name must not be a prefix
// of another token in the query unless that token is itself a parameter;
// longer names are tried first.
func Substitute(query string, params map[string]interface{}) string {
	if len(params) == 0 {
		return query
	}

	names := make([]string, 0, len(params))
	escaped := make(map[string]string, len(params))
	for name, value := range params {
		names = append(names, name)
		escaped[name] = Escape(value)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	alternatives := make([]string, len(names))
	for idx, name := range names {
		alternatives[idx] = regexp.QuoteMeta(name)
	}

	pattern := regexp.MustCompile(":(?:" + strings.Join(alternatives, "|") + ")")
	return pattern.ReplaceAllStringFunc(query, func(token string) string {
		return escaped[token[1:]]
	})
}

// Bind rewrites `:name` tokens with a known parameter into `?` placeholders and
// returns the driver arguments in placeholder order. List values expand to
// `(?,?,...)`. Unknown tokens are left untouched.
func Bind(query string, params map[string]interface{}) (string, []interface{}) {
	var args []interface{}
	if len(params) == 0 {
		return query, args
	}

	sql := namedParam.ReplaceAllStringFunc(query, func(token string) string {
		value, ok := params[token[1:]]
		if !ok {
			return token
		}

		if values, isList := listValues(value); isList {
			if len(values) == 0 {
				return "(NULL)"
			}
			args = append(args, values...)
			return "(" + strings.TrimSuffix(strings.Repeat("?,", len(values)), ",") + ")"
		}

		args = append(args, value)
		return "?"
	})
	return sql, args
}
