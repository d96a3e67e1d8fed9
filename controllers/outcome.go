package controllers

// Outcome tells what a handling cycle did.
type Outcome uint8

const (
	OutcomeUnchanged     Outcome = iota + 1 // content equals the last seen content
	OutcomeBusy                             // another cycle is running
	OutcomeNoBlocks                         // document has no block
	OutcomeNoMessages                       // first block has no message
	OutcomeAwaitingInput                    // first block ends with a blank user message
	OutcomeReplied                          // reply appended and written
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeBusy:
		return "busy"
	case OutcomeNoBlocks:
		return "no blocks"
	case OutcomeNoMessages:
		return "no messages"
	case OutcomeAwaitingInput:
		return "awaiting input"
	case OutcomeReplied:
		return "replied"
	}
	return "unknown"
}
