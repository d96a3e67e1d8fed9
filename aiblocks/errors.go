package aiblocks

import (
	"errors"
	"fmt"
)

var ErrSyntax = errors.New("syntax error")

type SyntaxError struct {
	Line   int
	Reason string
}

var _ error = new(SyntaxError)

func (s *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", s.Line, s.Reason)
}

func (s *SyntaxError) Unwrap() error {
	return ErrSyntax
}

func syntaxError(line int, format string, args ...any) error {
	return &SyntaxError{
		Line:   line,
		Reason: fmt.Sprintf(format, args...),
	}
}
