package generators

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/modes"
	"github.com/reusee/taidoc/nets"
)

// testGenerator talks to a real backend and is skipped when it is not reachable or no key is configured.
func testGenerator(
	t *testing.T,
	newGenerator any,
) {
	if os.Getenv("TAIDOC_TEST_LIVE") == "" {
		t.Skip("set TAIDOC_TEST_LIVE to run against real backends")
	}

	loader := configs.NewLoader([]string{}, "")
	scope := dscope.New(
		modes.ForTest(t),
		&loader,
		new(Module),
	).Fork(
		func() nets.ProxyAddr {
			return nets.ProxyAddr(os.Getenv("TAIDOC_TEST_PROXY"))
		},
	)

	var generator Generator
	scope.Call(newGenerator).Assign(&generator)

	var b strings.Builder
	for fragment, err := range generator.Generate(t.Context(), Conversation{
		SystemInstruction: "Answer with a single word.",
		Turns: []Turn{
			{Role: RoleUser, Text: "What is the capital of France?"},
		},
	}) {
		if errors.Is(err, ErrNoAPIKey) {
			t.Skip(err)
		}
		if err != nil {
			t.Fatal(err)
		}
		b.WriteString(fragment)
	}

	if !strings.Contains(strings.ToLower(b.String()), "paris") {
		t.Fatalf("got %q", b.String())
	}
}
