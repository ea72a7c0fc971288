package htmling

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/robfig/htmling/data"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter transforms a value in an output expression:
//   {{ name | upper }}
//   {{ price | format("%.2f") }}
// Arguments follow the filtered value.
type Filter func(value interface{}, args ...interface{}) (interface{}, error)

// Filters maps filter names to their implementations.
type Filters map[string]Filter

// DefaultFilters are available in every template.  A collection's own
// filters take precedence.
var DefaultFilters = Filters{
	"upper":  caseFilter(cases.Upper),
	"lower":  caseFilter(cases.Lower),
	"title":  caseFilter(cases.Title),
	"trim":   trimFilter,
	"json":   jsonFilter,
	"length": lengthFilter,
}

// caseFilter applies a case mapping.  An optional argument names the
// language, e.g. {{ name | upper("tr") }}.
func caseFilter(mapper func(language.Tag, ...cases.Option) cases.Caser) Filter {
	return func(value interface{}, args ...interface{}) (interface{}, error) {
		var tag = language.Und
		if len(args) > 0 {
			var err error
			if tag, err = language.Parse(stringify(args[0])); err != nil {
				return nil, err
			}
		}
		if value == nil {
			return "", nil
		}
		return mapper(tag).String(stringify(value)), nil
	}
}

func trimFilter(value interface{}, args ...interface{}) (interface{}, error) {
	if len(args) > 0 {
		return strings.Trim(stringify(value), stringify(args[0])), nil
	}
	return strings.TrimSpace(stringify(value)), nil
}

func jsonFilter(value interface{}, args ...interface{}) (interface{}, error) {
	var js, err = data.Encode(value)
	if err != nil {
		return nil, err
	}
	return string(js), nil
}

func lengthFilter(value interface{}, args ...interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		return utf8.RuneCountInString(v), nil
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len(), nil
	}
	return nil, fmt.Errorf("length: unsupported value %T", value)
}

func toJSON(value interface{}) string {
	var js, err = json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(js)
}

// lookup returns the named filter, preferring the collection's own.
func (f Filters) lookup(name string) (Filter, bool) {
	if filter, ok := f[name]; ok {
		return filter, true
	}
	filter, ok := DefaultFilters[name]
	return filter, ok
}
