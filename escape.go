package htmling

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/htmling/jsgen"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Escape replaces the characters significant in HTML with entities.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

// stringify formats a data value the way string concatenation does in
// templates.  Null renders as nothing.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return jsgen.FormatNumber(v)
	case map[string]interface{}, []interface{}:
		return toJSON(v)
	}
	return fmt.Sprint(value)
}
