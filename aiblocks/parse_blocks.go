package aiblocks

import (
	"strconv"
	"strings"
)

type lineKind uint8

const (
	lineOther lineKind = iota
	lineBegin
	lineEnd
	lineBlank
	lineComment
)

// classify assigns a line outside any block to its kind, in priority order.
func (s Syntax) classify(line string) lineKind {
	trimmed := strings.TrimLeft(line, " \t")
	if rest, ok := strings.CutPrefix(trimmed, s.Begin); ok &&
		(rest == "" || strings.ContainsRune(" \t\r\n", rune(rest[0]))) {
		return lineBegin
	}
	if s.isEnd(line) {
		return lineEnd
	}
	if strings.TrimSpace(line) == "" {
		return lineBlank
	}
	if strings.HasPrefix(trimmed, s.Comment) {
		return lineComment
	}
	return lineOther
}

func (s Syntax) isEnd(line string) bool {
	return strings.Trim(line, " \t\r\n") == s.End
}

// ParseBlocks is pass 1. It returns the begin/end regions of text in source
// order. Lines outside regions are dropped. Inner lines are captured verbatim
// until the first line that is an end marker.
func (s Syntax) ParseBlocks(text string) (ret []RawBlock, err error) {
	var (
		current   *RawBlock
		content   strings.Builder
		beginLine int
	)

	for i, line := range splitLines(text) {
		lineNo := i + 1

		if current != nil {
			if s.isEnd(line) {
				current.Content = content.String()
				ret = append(ret, *current)
				current = nil
				content.Reset()
				continue
			}
			content.WriteString(line)
			continue
		}

		switch s.classify(line) {
		case lineBegin:
			language, params, err := s.parseBeginLine(lineNo, line)
			if err != nil {
				return nil, err
			}
			current = &RawBlock{
				Language: language,
				Params:   params,
			}
			beginLine = lineNo
		case lineEnd, lineBlank, lineComment, lineOther:
			// not part of any block
		}
	}

	if current != nil {
		return nil, syntaxError(beginLine, "unterminated block, expecting %q", s.End)
	}

	return ret, nil
}

// splitLines splits after each newline. The last line may lack one.
func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type beginScanner struct {
	lineNo int
	src    string
	pos    int
}

func (s Syntax) parseBeginLine(lineNo int, line string) (language string, params Params, err error) {
	line = strings.TrimRight(line, " \t\r\n")
	line = strings.TrimLeft(line, " \t")
	scanner := &beginScanner{
		lineNo: lineNo,
		src:    strings.TrimPrefix(line, s.Begin),
	}

	if !scanner.skipSpaces() {
		return "", nil, syntaxError(lineNo, "missing language tag")
	}
	language, err = scanner.language()
	if err != nil {
		return "", nil, err
	}

	for !scanner.done() {
		if !scanner.skipSpaces() {
			return "", nil, scanner.errorf("expecting whitespace")
		}
		key, value, err := scanner.param()
		if err != nil {
			return "", nil, err
		}
		if params == nil {
			params = make(Params)
		}
		// duplicated keys: last one wins
		params[key] = value
	}

	return language, params, nil
}

func (b *beginScanner) done() bool {
	return b.pos >= len(b.src)
}

func (b *beginScanner) peek() byte {
	if b.done() {
		return 0
	}
	return b.src[b.pos]
}

func (b *beginScanner) errorf(format string, args ...any) error {
	return syntaxError(b.lineNo, "column %d: "+format, append([]any{b.pos + 1}, args...)...)
}

func (b *beginScanner) skipSpaces() bool {
	start := b.pos
	for !b.done() && (b.peek() == ' ' || b.peek() == '\t') {
		b.pos++
	}
	return b.pos > start
}

// separated reports whether the current token ends here.
func (b *beginScanner) separated() bool {
	return b.done() || b.peek() == ' ' || b.peek() == '\t'
}

func (b *beginScanner) language() (string, error) {
	start := b.pos
	if !isLetter(b.peek()) {
		return "", b.errorf("invalid language tag")
	}
	b.pos++
	for !b.done() && (isLetter(b.peek()) || isDigit(b.peek()) || b.peek() == '-') {
		b.pos++
	}
	if !b.separated() {
		return "", b.errorf("invalid character %q in language tag", b.peek())
	}
	return b.src[start:b.pos], nil
}

func (b *beginScanner) param() (key string, value Value, err error) {
	if b.peek() != ':' {
		return "", nil, b.errorf("expecting parameter, got %q", b.peek())
	}
	b.pos++

	start := b.pos
	if c := b.peek(); !isLetter(c) && c != '_' {
		return "", nil, b.errorf("invalid parameter name")
	}
	b.pos++
	for !b.done() && (isLetter(b.peek()) || isDigit(b.peek()) || b.peek() == '_') {
		b.pos++
	}
	key = b.src[start:b.pos]

	if !b.skipSpaces() {
		return "", nil, b.errorf("expecting value for parameter %q", key)
	}

	switch c := b.peek(); {
	case c == '"':
		value, err = b.quoted()
	case c == '-' || isDigit(c):
		value, err = b.integer()
	default:
		err = b.errorf("invalid value for parameter %q", key)
	}
	if err != nil {
		return "", nil, err
	}
	if !b.separated() {
		return "", nil, b.errorf("unexpected %q after value of parameter %q", b.peek(), key)
	}

	return key, value, nil
}

func (b *beginScanner) quoted() (Value, error) {
	start := b.pos
	b.pos++ // opening quote
	var buf strings.Builder
	for !b.done() {
		c := b.peek()
		switch c {
		case '"':
			b.pos++
			return String(buf.String()), nil
		case '\\':
			if b.pos+1 < len(b.src) {
				if next := b.src[b.pos+1]; next == '"' || next == '\\' {
					buf.WriteByte(next)
					b.pos += 2
					continue
				}
			}
		}
		buf.WriteByte(c)
		b.pos++
	}
	b.pos = start
	return nil, b.errorf("unterminated string")
}

func (b *beginScanner) integer() (Value, error) {
	start := b.pos
	if b.peek() == '-' {
		b.pos++
	}
	for !b.done() && isDigit(b.peek()) {
		b.pos++
	}
	i, err := strconv.ParseInt(b.src[start:b.pos], 10, 64)
	if err != nil {
		b.pos = start
		return nil, b.errorf("invalid integer: %v", err)
	}
	return Int(i), nil
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
