// Package diff compares VBA module sources line by line without regard to
// the letter case of code, and reconciles the case of an edited source with
// the one it replaces.
package diff

import (
	"strings"
	"unicode"
)

// LineState carries tokenizer state from one line to the next.
type LineState struct {
	// InComment is set when a comment ends with a line continuation and
	// so spans into the next line.
	InComment bool
}

// TokenizeLine returns the comparison key of line: letters of code are
// upper-cased, string literals and comments are kept as written.
func TokenizeLine(line string, state LineState) (string, LineState) {
	runes := []rune(line)
	var b strings.Builder
	b.Grow(len(line))

	inComment := state.InComment
	inString := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inComment:
		case inString:
			if r == '"' {
				inString = false
			}
		case r == '"':
			inString = true
		case r == '\'':
			inComment = true
		case isRem(runes, i):
			b.WriteString("REM")
			i += 2
			inComment = true
			continue
		default:
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String(), LineState{InComment: inComment && continues(line)}
}

// Tokenize returns the comparison keys of lines.
func Tokenize(lines []string) []string {
	out := make([]string, len(lines))
	var st LineState
	for i, line := range lines {
		out[i], st = TokenizeLine(line, st)
	}
	return out
}

// isRem reports whether a Rem statement starts at runes[i]: the keyword is
// the first token of a statement and is followed by a blank or the line end.
func isRem(runes []rune, i int) bool {
	if i+3 > len(runes) || !strings.EqualFold(string(runes[i:i+3]), "rem") {
		return false
	}
	if i+3 < len(runes) && !unicode.IsSpace(runes[i+3]) {
		return false
	}
	for j := i - 1; j >= 0; j-- {
		switch {
		case runes[j] == ':':
			return true
		case !unicode.IsSpace(runes[j]):
			return false
		}
	}
	return true
}

// continues reports whether line ends with a line continuation.
func continues(line string) bool {
	line = strings.TrimRight(line, " \t")
	return line == "_" || strings.HasSuffix(line, " _") || strings.HasSuffix(line, "\t_")
}

// Lines splits text into lines, dropping the line ends. A final line end
// does not start an empty line.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Join joins lines with CRLF, terminating the last one.
func Join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}
