package schema

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namer derives store-side names from model names
type Namer interface {
	ResourceName(model string) string
	KeyName(resource, primaryKey string) string
}

// NamingStrategy resources naming strategy
//
// By default a model name is split on capital letters, lower-cased and joined
// with underscores: ProjectTask -> project_task. InitialismAware keeps runs of
// capitals such as HTTP or ID together instead of splitting every letter.
type NamingStrategy struct {
	TablePrefix     string
	PluralResource  bool
	InitialismAware bool
}

var wordPattern = regexp.MustCompile(`[A-Z][a-z0-9]*`)

// ResourceName convert model name to resource name
func (ns NamingStrategy) ResourceName(model string) string {
	var name string
	if ns.InitialismAware {
		name = toDBName(model)
	} else {
		name = splitWords(model)
	}

	if ns.PluralResource {
		name = inflection.Plural(name)
	}
	return ns.TablePrefix + name
}

// KeyName name of the column that references primaryKey of resource
func (ns NamingStrategy) KeyName(resource, primaryKey string) string {
	return fmt.Sprintf("%s_%s", resource, primaryKey)
}

func splitWords(name string) string {
	words := wordPattern.FindAllString(name, -1)
	if len(words) == 0 {
		return strings.ToLower(name)
	}
	for idx, word := range words {
		words[idx] = strings.ToLower(word)
	}
	return strings.Join(words, "_")
}

var (
	smap sync.Map
	// https://github.com/golang/lint/blob/master/lint.go#L770
	commonInitialisms         = []string{"API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SSH", "TLS", "TTL", "UID", "UI", "UUID", "URI", "URL", "UTF8", "VM", "XML", "XSRF", "XSS"}
	commonInitialismsReplacer *strings.Replacer
	titleCaser                = cases.Title(language.Und)
)

func init() {
	var commonInitialismsForReplacer []string
	for _, initialism := range commonInitialisms {
		commonInitialismsForReplacer = append(commonInitialismsForReplacer, initialism, titleCaser.String(strings.ToLower(initialism)))
	}
	commonInitialismsReplacer = strings.NewReplacer(commonInitialismsForReplacer...)
}

func toDBName(name string) string {
	if name == "" {
		return ""
	} else if v, ok := smap.Load(name); ok {
		return fmt.Sprint(v)
	}

	var (
		value                          = commonInitialismsReplacer.Replace(name)
		buf                            strings.Builder
		lastCase, nextCase, nextNumber bool // upper case == true
		curCase                        = value[0] <= 'Z' && value[0] >= 'A'
	)

	for i, v := range value[:len(value)-1] {
		nextCase = value[i+1] <= 'Z' && value[i+1] >= 'A'
		nextNumber = value[i+1] >= '0' && value[i+1] <= '9'

		if curCase {
			if lastCase && (nextCase || nextNumber) {
				buf.WriteRune(v + 32)
			} else {
				if i > 0 && value[i-1] != '_' && value[i+1] != '_' {
					buf.WriteByte('_')
				}
				buf.WriteRune(v + 32)
			}
		} else {
			buf.WriteRune(v)
		}

		lastCase = curCase
		curCase = nextCase
	}

	if curCase {
		if !lastCase && len(value) > 1 {
			buf.WriteByte('_')
		}
		buf.WriteByte(value[len(value)-1] + 32)
	} else {
		buf.WriteByte(value[len(value)-1])
	}

	return buf.String()
}
