package aiblocks

import (
	"fmt"
	"strings"
)

// Syntax holds the literal tokens of the markup. Tokens are matched literally,
// never as patterns.
type Syntax struct {
	Begin   string
	End     string
	Comment string
	Headers Headers
}

type Headers struct {
	User      string
	Assistant string
	System    string
}

var (
	BangSyntax = Syntax{
		Begin:   "!+begin_ai",
		End:     "!+end_ai",
		Comment: "#",
		Headers: DefaultHeaders,
	}

	OrgSyntax = Syntax{
		Begin:   "#+begin_ai",
		End:     "#+end_ai",
		Comment: "#",
		Headers: DefaultHeaders,
	}

	DefaultHeaders = Headers{
		User:      "[ME]:",
		Assistant: "[AI]:",
		System:    "[SYSTEM]:",
	}
)

func SyntaxByName(name string) (Syntax, error) {
	switch strings.ToLower(name) {
	case "", "bang", "!":
		return BangSyntax, nil
	case "org", "#":
		return OrgSyntax, nil
	}
	return Syntax{}, fmt.Errorf("unknown syntax: %q", name)
}

func (h Headers) For(role Role) string {
	switch role {
	case RoleAssistant:
		return h.Assistant
	case RoleSystem:
		return h.System
	}
	return h.User
}

// Match returns the role whose header token prefixes line.
func (h Headers) Match(line string) (Role, string, bool) {
	for _, role := range Roles {
		token := h.For(role)
		if strings.HasPrefix(line, token) {
			return role, line[len(token):], true
		}
	}
	return "", "", false
}

func (s Syntax) Validate() error {
	for name, token := range map[string]string{
		"begin":   s.Begin,
		"end":     s.End,
		"comment": s.Comment,
	} {
		if token == "" {
			return fmt.Errorf("empty %s token", name)
		}
		if strings.ContainsAny(token, " \t\r\n") {
			return fmt.Errorf("%s token contains whitespace: %q", name, token)
		}
	}
	if s.Begin == s.End || strings.HasPrefix(s.End, s.Begin) {
		return fmt.Errorf("end token %q is ambiguous with begin token %q", s.End, s.Begin)
	}
	for _, role := range Roles {
		token := s.Headers.For(role)
		if token == "" {
			return fmt.Errorf("empty header for %s", role)
		}
		if strings.Contains(token, "\n") {
			return fmt.Errorf("header for %s contains newline", role)
		}
		for _, other := range Roles {
			if other != role && strings.HasPrefix(token, s.Headers.For(other)) {
				// a header that prefixes another could never be told apart
				return fmt.Errorf("header %q is ambiguous with %q", token, s.Headers.For(other))
			}
		}
	}
	return nil
}
