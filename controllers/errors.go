package controllers

import "errors"

var (
	// ErrConcurrentEdit is returned when the file changed while a reply was being generated.
	// The reply is discarded and the new content is handled on the next change.
	ErrConcurrentEdit = errors.New("file changed during generation")

	// ErrUnrepresentable is returned when the reply contains markup that would not read back as one message.
	ErrUnrepresentable = errors.New("reply cannot be represented in the document")

	ErrNotText = errors.New("not a text file")
)
