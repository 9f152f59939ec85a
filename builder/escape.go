package builder

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var stringEscaper = strings.NewReplacer(
	"\x00", `\0`,
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
	`"`, `\"`,
	`'`, `\'`,
)

// EscapeString escapes s for embedding inside a quoted mysql string literal
func EscapeString(s string) string {
	return stringEscaper.Replace(s)
}

// Escape renders value as a sql literal: strings quoted and escaped, numbers
// verbatim, nil as NULL, booleans as 1/0 and lists as (v1,v2).
func Escape(value interface{}) string {
	if valuer, ok := value.(driver.Valuer); ok {
		var err error
		if value, err = valuer.Value(); err != nil {
			return "NULL"
		}
	}

	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(v)
	case []byte:
		return quote(string(v))
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return quote(formatTime(v))
	case *time.Time:
		if v == nil {
			return "NULL"
		}
		return quote(formatTime(*v))
	}

	if values, ok := listValues(value); ok {
		escaped := make([]string, len(values))
		for idx, item := range values {
			escaped[idx] = Escape(item)
		}
		return "(" + strings.Join(escaped, ",") + ")"
	}

	return quote(fmt.Sprint(value))
}

func quote(s string) string {
	return "'" + EscapeString(s) + "'"
}

func formatTime(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02 15:04:05.000000")
	}
	return t.Format("2006-01-02 15:04:05")
}
