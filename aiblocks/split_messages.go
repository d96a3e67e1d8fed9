package aiblocks

import "strings"

// SplitMessages is pass 2. Text before the first header becomes a user
// message. Each header line starts a new message whose text is everything
// after the header token and its optional separating space, up to the next
// header line.
func (s Syntax) SplitMessages(content string) (ret []Message) {
	var (
		role    Role
		text    strings.Builder
		started bool
	)

	flush := func() {
		if started {
			ret = append(ret, Message{
				Role: role,
				Text: text.String(),
			})
		}
		text.Reset()
	}

	for _, line := range splitLines(content) {
		if r, rest, ok := s.Headers.Match(line); ok {
			flush()
			role = r
			started = true
			text.WriteString(strings.TrimPrefix(rest, " "))
			continue
		}
		if !started {
			// default message
			role = RoleUser
			started = true
		}
		text.WriteString(line)
	}
	flush()

	return ret
}
