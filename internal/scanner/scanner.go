package scanner

import "strings"

// DefaultMaxInputBytes is the input size cap applied when the caller does
// not configure one. Inputs above the cap fail with InputTooLarge before
// any rule matching runs.
const DefaultMaxInputBytes = 256 * 1024

// FailureReason classifies why a source could not be scanned at all.
type FailureReason string

const (
	FailureEmptyInput    FailureReason = "EmptyInput"
	FailureInputTooLarge FailureReason = "InputTooLarge"
)

// Line is one source line together with its lexical context.
type Line struct {
	// Num is the 1-based line number in the original source.
	Num int

	// Text is the raw line, without the trailing newline.
	Text string

	// InBlockComment is true when the line starts inside a /* */ comment.
	InBlockComment bool

	code string
}

// Code returns the line with string literals and comment text blanked out
// by spaces. Column positions are preserved, so regex matches against
// Code() report the same offsets as against Text while never matching
// inside non-code regions.
func (l Line) Code() string {
	return l.code
}

// IsCode reports whether the line contains any non-whitespace code text.
func (l Line) IsCode() bool {
	return strings.TrimSpace(l.code) != ""
}

// Scan splits source into lexically annotated lines. maxBytes <= 0 selects
// DefaultMaxInputBytes. Returns a non-empty FailureReason instead of lines
// when the input is empty/whitespace-only or exceeds the cap.
func Scan(source string, maxBytes int) ([]Line, FailureReason) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxInputBytes
	}
	if len(source) > maxBytes {
		return nil, FailureInputTooLarge
	}
	if strings.TrimSpace(source) == "" {
		return nil, FailureEmptyInput
	}

	raw := splitLines(source)
	lines := make([]Line, 0, len(raw))

	// Lexical state carried across lines.
	inBlock := false
	inString := false

	for i, text := range raw {
		line := Line{
			Num:            i + 1,
			Text:           text,
			InBlockComment: inBlock,
		}
		line.code, inBlock, inString = blankNonCode(text, inBlock, inString)
		lines = append(lines, line)
	}

	return lines, ""
}

// blankNonCode replaces comment and string-literal characters with spaces,
// returning the blanked line and the block-comment/string state at the end
// of the line. Line comments (//) terminate at the newline; strings and
// block comments carry across lines.
func blankNonCode(text string, inBlock, inString bool) (string, bool, bool) {
	out := []byte(text)
	i := 0
	n := len(text)

	for i < n {
		switch {
		case inBlock:
			if text[i] == '*' && i+1 < n && text[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i += 2
				inBlock = false
			} else {
				out[i] = ' '
				i++
			}

		case inString:
			if text[i] == '\\' && i+1 < n {
				out[i] = ' '
				out[i+1] = ' '
				i += 2
			} else if text[i] == '"' {
				// Keep the closing quote so the extractor still sees a
				// well-formed token boundary.
				i++
				inString = false
			} else {
				out[i] = ' '
				i++
			}

		default:
			if text[i] == '/' && i+1 < n && text[i+1] == '/' {
				for j := i; j < n; j++ {
					out[j] = ' '
				}
				i = n
			} else if text[i] == '/' && i+1 < n && text[i+1] == '*' {
				out[i] = ' '
				out[i+1] = ' '
				i += 2
				inBlock = true
			} else if text[i] == '"' {
				i++
				inString = true
			} else {
				i++
			}
		}
	}

	return string(out), inBlock, inString
}

// splitLines splits on '\n' without dropping a final unterminated line.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, strings.TrimSuffix(s[start:i], "\r"))
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, strings.TrimSuffix(s[start:], "\r"))
	}
	return lines
}
