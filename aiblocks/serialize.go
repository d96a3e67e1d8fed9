package aiblocks

import "strings"

// Serialize is the inverse of Parse. The output depends only on the syntax
// and the blocks.
func (s Syntax) Serialize(blocks []Block) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		s.writeBlock(&b, block)
	}
	return b.String()
}

func (s Syntax) writeBlock(b *strings.Builder, block Block) {
	b.WriteString(s.Begin)
	b.WriteString(" ")
	b.WriteString(block.Language)
	for _, key := range block.Params.Keys() {
		b.WriteString(" :")
		b.WriteString(key)
		b.WriteString(" ")
		b.WriteString(block.Params[key].Literal())
	}
	b.WriteString("\n")

	body := s.serializeMessages(block.Messages)
	b.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	b.WriteString(s.End)
	b.WriteString("\n")
}

func (s Syntax) serializeMessages(messages []Message) string {
	var b strings.Builder

	for i, msg := range messages {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			// headers must start a line
			b.WriteString("\n")
		}

		if i == 0 && msg.Role == RoleUser && s.bareDefault(msg.Text) {
			// default message
			b.WriteString(msg.Text)
			continue
		}

		b.WriteString(s.Headers.For(msg.Role))
		if msg.Text != "" && !strings.HasPrefix(msg.Text, "\n") {
			// the parser drops exactly one space after a header
			b.WriteString(" ")
		}
		b.WriteString(msg.Text)
	}

	return b.String()
}

// bareDefault reports whether text reads back as the default message when written without a header.
func (s Syntax) bareDefault(text string) bool {
	if text == "" || strings.HasPrefix(text, "\n") {
		return false
	}
	// headers contain no newline, so a prefix of text is a prefix of its first line
	_, _, isHeader := s.Headers.Match(text)
	return !isHeader
}
