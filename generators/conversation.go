package generators

import (
	"strings"

	"github.com/reusee/taidoc/aiblocks"
)

// Conversation is the input of a generation: the system instruction and the
// ordered user / assistant turns.
type Conversation struct {
	SystemInstruction string
	Turns             []Turn
}

type Turn struct {
	Role Role
	Text string
}

// NewConversation maps block messages to turns one to one, in order, with texts verbatim.
// System messages are not turns: the last one, even a blank one, becomes the system instruction.
// defaultSystem is used when there is no system message at all.
func NewConversation(messages []aiblocks.Message, defaultSystem string) Conversation {
	ret := Conversation{
		SystemInstruction: defaultSystem,
	}
	for _, msg := range messages {
		switch msg.Role {
		case aiblocks.RoleSystem:
			ret.SystemInstruction = msg.Text
		case aiblocks.RoleAssistant:
			ret.Turns = append(ret.Turns, Turn{
				Role: RoleAssistant,
				Text: msg.Text,
			})
		default:
			ret.Turns = append(ret.Turns, Turn{
				Role: RoleUser,
				Text: msg.Text,
			})
		}
	}
	return ret
}

// HasSystemInstruction reports whether the system instruction carries any content.
// A blank instruction is not sent to backends.
func (c Conversation) HasSystemInstruction() bool {
	return strings.TrimSpace(c.SystemInstruction) != ""
}

// Text returns the concatenation of all turns, for token estimation and logging.
func (c Conversation) Text() string {
	var b strings.Builder
	b.WriteString(c.SystemInstruction)
	for _, turn := range c.Turns {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(turn.Text)
	}
	return b.String()
}
