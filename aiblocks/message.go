package aiblocks

import "strings"

// Message is one role-tagged turn. Text is kept verbatim, including the line
// break that follows a header and the trailing newline of its last line.
type Message struct {
	Role Role
	Text string
}

// Blank reports whether the message carries no content. A blank user message
// at the end of a conversation means the document awaits human input.
func (m Message) Blank() bool {
	return strings.TrimSpace(m.Text) == ""
}
