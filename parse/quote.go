package parse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// simpleEscapes are the single-character escapes of a string literal.
var simpleEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\'`, `'`,
	`\"`, `"`,
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\b`, "\b",
	`\f`, "\f",
	`\v`, "\v",
	`\0`, "\x00",
)

// unquoteString returns the value of a string literal in single or double
// quotes.  Besides the simple escapes it understands \xNN and \uNNNN.
func unquoteString(s string) (string, error) {
	if len(s) < 2 || s[0] != s[len(s)-1] || (s[0] != '\'' && s[0] != '"') {
		return "", fmt.Errorf("string literal %s is not quoted", s)
	}
	s = s[1 : len(s)-1]
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}

	var b strings.Builder
	for len(s) > 0 {
		var i = strings.IndexByte(s, '\\')
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i:]
		if len(s) < 2 {
			return "", fmt.Errorf("unterminated escape sequence")
		}

		var width int
		switch s[1] {
		case 'x':
			width = 2
		case 'u':
			width = 4
		default:
			var esc = s[:2]
			var value = simpleEscapes.Replace(esc)
			if value == esc {
				var r, _ = utf8.DecodeRuneInString(s[1:])
				return "", fmt.Errorf("unrecognized escape code: \\%c", r)
			}
			b.WriteString(value)
			s = s[2:]
			continue
		}

		if len(s) < 2+width {
			return "", fmt.Errorf("short escape sequence %s", s)
		}
		var code, err = strconv.ParseUint(s[2:2+width], 16, 32)
		if err != nil {
			return "", fmt.Errorf("invalid escape sequence %s", s[:2+width])
		}
		b.WriteRune(rune(code))
		s = s[2+width:]
	}
	return b.String(), nil
}
