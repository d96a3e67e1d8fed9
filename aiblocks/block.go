package aiblocks

import "slices"

// RawBlock is the result of pass 1: one begin/end region with its inner text
// still unsplit.
type RawBlock struct {
	Language string
	Params   Params
	Content  string
}

// Block is a fully parsed region.
type Block struct {
	Language string
	Params   Params
	Messages []Message
}

func (b Block) LastMessage() (Message, bool) {
	if len(b.Messages) == 0 {
		return Message{}, false
	}
	return b.Messages[len(b.Messages)-1], true
}

// AwaitingInput reports whether the block ends with a blank user message.
func (b Block) AwaitingInput() bool {
	last, ok := b.LastMessage()
	return ok && last.Role == RoleUser && last.Blank()
}

// Append returns a copy of the block with messages appended.
// The receiver's message slice is never shared with the result.
func (b Block) Append(messages ...Message) Block {
	b.Messages = append(slices.Clip(b.Messages), messages...)
	return b
}

func (b Block) Equal(b2 Block) bool {
	return b.Language == b2.Language &&
		b.Params.Equal(b2.Params) &&
		slices.Equal(b.Messages, b2.Messages)
}
