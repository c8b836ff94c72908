// Package sanitize cleans free-form text emitted by generative models so it
// can be parsed as JSON. Every function here is pure.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fenceRe         = regexp.MustCompile("(?m)^[ \t]*```[a-zA-Z0-9_-]*[ \t\r]*$")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// smartQuotes maps typographic quotes to their ASCII equivalents.
var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// StripFences removes markdown code fences (```json, ```) and keeps the
// fenced body. Inline fences on a single line are also unwrapped.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && !strings.Contains(s, "\n") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		s = strings.TrimPrefix(s, "json")
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// StripControl removes control characters other than newline, carriage
// return and tab.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, s)
}

// IsolateObject returns the outermost balanced {...} in s.
func IsolateObject(s string) (string, bool) {
	return isolate(s, '{', '}')
}

// IsolateArray returns the outermost balanced [...] in s.
func IsolateArray(s string) (string, bool) {
	return isolate(s, '[', ']')
}

// isolate scans from the first open byte and returns the substring ending at
// its matching close. Brackets inside JSON string literals are ignored.
func isolate(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// RecoverArray handles responses whose opening bracket was lost along with
// any leading prose, e.g. `2, 3, 4]`. When the text has a closing ] with no
// matching [, everything up to the last ] is wrapped as an array.
func RecoverArray(s string) (string, bool) {
	s = strings.TrimSpace(s)
	end := strings.LastIndexByte(s, ']')
	if end < 0 {
		return "", false
	}
	body := s[:end]
	if strings.Count(body, "[") >= strings.Count(body, "]")+1 {
		return "", false
	}
	// Drop a trailing sentence of prose that ends before the first value.
	if i := strings.LastIndexAny(body[:firstValueIndex(body)], ".:\n"); i >= 0 {
		body = body[i+1:]
	}
	return "[" + strings.TrimSpace(body) + "]", true
}

// firstValueIndex returns the index of the first byte that can start a JSON
// value, or len(s) if none is found.
func firstValueIndex(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '{' || c == '[' || c == '"' || c == '-' || (c >= '0' && c <= '9') {
			return i
		}
		if strings.HasPrefix(s[i:], "true") || strings.HasPrefix(s[i:], "false") || strings.HasPrefix(s[i:], "null") {
			return i
		}
	}
	return len(s)
}

// RepairJSONText applies the full set of textual repairs that make common
// model output parseable: fences, control characters, smart quotes,
// trailing commas and unescaped backslashes (typically LaTeX).
func RepairJSONText(s string) string {
	s = StripFences(s)
	s = StripControl(s)
	s = smartQuotes.Replace(s)
	s = EscapeBackslashes(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// EscapeBackslashes doubles every backslash inside a string literal that does
// not begin a valid JSON escape, so `\frac` becomes `\\frac`. The short
// escapes \b \f \n \r \t are kept unless the letters that follow spell a
// LaTeX command (\beta, \neq, \theta); "\nfor" stays a newline.
func EscapeBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = false
			b.WriteByte(c)
		case '\\':
			if i+1 >= len(s) {
				b.WriteString(`\\`)
				continue
			}
			next := s[i+1]
			if validEscape(s, i+1) {
				b.WriteByte(c)
				b.WriteByte(next)
				i++
				continue
			}
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func validEscape(s string, i int) bool {
	switch s[i] {
	case '"', '\\', '/':
		return true
	case 'b', 'f', 'n', 'r', 't':
		return !latexCommands[letterRun(s, i)]
	case 'u':
		if i+4 >= len(s) {
			return false
		}
		for _, h := range s[i+1 : i+5] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", h) {
				return false
			}
		}
		return true
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// letterRun returns the run of ASCII letters starting at i.
func letterRun(s string, i int) string {
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	return s[i:j]
}

// latexCommands lists the LaTeX control words that begin with a JSON short
// escape letter. A backslash before any of them is a literal backslash.
var latexCommands = map[string]bool{
	// \b
	"bar": true, "beta": true, "bf": true, "big": true, "bigcap": true,
	"bigcup": true, "binom": true, "bmod": true, "boldsymbol": true,
	"bot": true, "bullet": true, "begin": true,
	// \f
	"flat": true, "forall": true, "frac": true, "frown": true,
	// \n
	"nabla": true, "ne": true, "neg": true, "neq": true, "ni": true,
	"nmid": true, "not": true, "notin": true, "nu": true, "nleq": true,
	"ngeq": true, "newline": true,
	// \r
	"rangle": true, "rceil": true, "rfloor": true, "rho": true,
	"right": true, "rightarrow": true, "rm": true,
	// \t
	"tan": true, "tanh": true, "tau": true, "text": true, "textbf": true,
	"textit": true, "theta": true, "tilde": true, "times": true,
	"to": true, "top": true, "triangle": true,
}

// Normalize produces the comparison key used for duplicate detection:
// lower-case, trimmed, inner whitespace collapsed to a single space.
func Normalize(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}
