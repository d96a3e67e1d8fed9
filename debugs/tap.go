package debugs

import (
	"context"
	"maps"
	"os"
	"slices"

	"github.com/reusee/taidoc/cmds"
	"github.com/reusee/taidoc/logs"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/term"
)

var tapFlag = cmds.Switch("-tap")

func init() {
	cmds.GlobalExecutor.Describe("-tap", "open a starlark repl on the conversation before each generation")
}

// Tap opens a starlark REPL on stdin with globals bound, and returns when the REPL ends.
type Tap func(ctx context.Context, what string, globals map[string]any)

// TapEnabled tells whether taps should be opened.
type TapEnabled bool

func (Module) TapEnabled() TapEnabled {
	return TapEnabled(*tapFlag)
}

func (Module) Tap(
	logger logs.Logger,
) Tap {
	return func(ctx context.Context, what string, globals map[string]any) {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			logger.WarnContext(ctx, "stdin is not a terminal, tap skipped",
				"what", what,
			)
			return
		}

		logger.InfoContext(ctx, "tap: "+what,
			"globals", slices.Sorted(maps.Keys(globals)),
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()

		thread := &starlark.Thread{
			Name: what,
		}
		repl.REPLOptions(&syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
		}, thread, toStringDict(globals))
	}
}

func toStringDict(globals map[string]any) starlark.StringDict {
	ret := make(starlark.StringDict, len(globals))
	for name, value := range globals {
		ret[name] = toStarlarkValue(value)
	}
	return ret
}
