package convert

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
)

// literalRe matches PDF string literals in parentheses: (text here)
var literalRe = regexp.MustCompile(`\(([^)]*)\)`)

// streamLines parses a PDF content stream and returns the shown text split
// into layout lines. Text-showing operators (Tj, TJ, ') append to the current
// line; line-moving operators (Td, TD, T*, ') start a new one. This covers
// unencrypted streams with literal strings; hex strings and CID fonts come
// out empty, which downstream treats as "no text on page".
func streamLines(data []byte) []string {
	var lines []string
	var cur strings.Builder

	flush := func() {
		if s := collapseSpaces(cur.String()); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		op := bytes.TrimSpace(raw)
		if len(op) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(op, []byte("Tj")), bytes.HasSuffix(op, []byte("TJ")):
			for _, m := range literalRe.FindAllSubmatch(op, -1) {
				cur.WriteString(unescapeLiteral(m[1]))
			}
		case bytes.HasSuffix(op, []byte("'")) && bytes.Contains(op, []byte("(")):
			flush()
			for _, m := range literalRe.FindAllSubmatch(op, -1) {
				cur.WriteString(unescapeLiteral(m[1]))
			}
		case bytes.HasSuffix(op, []byte("Td")), bytes.HasSuffix(op, []byte("TD")), bytes.Equal(op, []byte("T*")):
			flush()
		}
	}
	flush()
	return lines
}

// unescapeLiteral resolves backslash escapes in a PDF literal string,
// including octal character codes.
func unescapeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				break
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// collapseSpaces trims the line and squeezes runs of whitespace into single
// spaces, dropping unprintable characters.
func collapseSpaces(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if sb.Len() > 0 {
				space = true
			}
		case unicode.IsPrint(r):
			if space {
				sb.WriteByte(' ')
				space = false
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
