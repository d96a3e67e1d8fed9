package debugs

import (
	"testing"

	"github.com/reusee/dscope"
)

func TestTap(t *testing.T) {
	dscope.New(
		new(Module),
	).Call(func(
		tap Tap,
		enabled TapEnabled,
	) {
		if enabled {
			t.Fatal("should be disabled by default")
		}
		// stdin of tests is not a terminal, returns immediately
		tap(t.Context(), "test", map[string]any{
			"foo": 42,
		})
	})
}
