package aiblocks

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Value is a begin-marker parameter value, either String or Int.
type Value interface {
	isValue()
	Literal() string
}

type String string

func (String) isValue() {}

func (s String) Literal() string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range string(s) {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

type Int int64

func (Int) isValue() {}

func (i Int) Literal() string {
	return strconv.FormatInt(int64(i), 10)
}

type Params map[string]Value

// Keys returns the parameter names in serialization order.
func (p Params) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

func (p Params) String(key string) (string, bool) {
	s, ok := p[key].(String)
	return string(s), ok
}

func (p Params) Int(key string) (int64, bool) {
	i, ok := p[key].(Int)
	return int64(i), ok
}

func (p Params) Equal(p2 Params) bool {
	return maps.EqualFunc(p, p2, func(a, b Value) bool {
		return a == b
	})
}
