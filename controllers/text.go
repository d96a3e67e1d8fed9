package controllers

import "github.com/gabriel-vasile/mimetype"

// isText reports whether content is detected as plain text or a subtype of it.
func isText(content []byte) bool {
	if len(content) == 0 {
		return true
	}
	for mime := mimetype.Detect(content); mime != nil; mime = mime.Parent() {
		if mime.Is("text/plain") {
			return true
		}
	}
	return false
}
