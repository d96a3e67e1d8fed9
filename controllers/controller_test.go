package controllers

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/aiblocks"
	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/debugs"
	"github.com/reusee/taidoc/generators"
	"github.com/reusee/taidoc/modes"
	"github.com/reusee/taidoc/taiconfigs"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGenerator yields scripted fragments and records the conversations it got.
type fakeGenerator struct {
	model     string
	fragments []string
	err       error
	// called before yielding, if set
	before func(ctx context.Context) error

	mu            sync.Mutex
	conversations []generators.Conversation
}

var _ generators.Generator = new(fakeGenerator)

func (f *fakeGenerator) Args() generators.GeneratorArgs {
	return generators.GeneratorArgs{
		Model: f.model,
	}
}

func (f *fakeGenerator) Generate(ctx context.Context, conversation generators.Conversation) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f.mu.Lock()
		f.conversations = append(f.conversations, conversation)
		f.mu.Unlock()
		if f.before != nil {
			if err := f.before(ctx); err != nil {
				yield("", err)
				return
			}
		}
		for _, fragment := range f.fragments {
			if !yield(fragment, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conversations)
}

func (f *fakeGenerator) last() generators.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations[len(f.conversations)-1]
}

type testEnv struct {
	path       string
	controller *Controller
	generator  *fakeGenerator
	named      map[string]*fakeGenerator
}

func newTestEnv(t *testing.T, content string, generator *fakeGenerator, overrides ...any) *testEnv {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	env := &testEnv{
		path:      path,
		generator: generator,
		named:     make(map[string]*fakeGenerator),
	}

	defs := []any{
		func() configs.Loader {
			return configs.NewLoader(nil, "")
		},
		func() taiconfigs.SystemPrompt {
			return "default system"
		},
		func() generators.GetDefaultGenerator {
			return func() (generators.Generator, error) {
				return env.generator, nil
			}
		},
		func() generators.GetGenerator {
			return func(name string) (generators.Generator, error) {
				if g, ok := env.named[name]; ok {
					return g, nil
				}
				return nil, errors.New("invalid model: " + name)
			}
		},
	}
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		append(defs, overrides...)...,
	).Call(func(
		newController NewController,
	) {
		env.controller = newController(path, aiblocks.BangSyntax)
	})

	if err := env.controller.Init(); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *testEnv) content(t *testing.T) string {
	t.Helper()
	content, err := os.ReadFile(e.path)
	if err != nil {
		t.Fatal(err)
	}
	return string(content)
}

func (e *testEnv) write(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func expectOutcome(t *testing.T, got Outcome, err error, want Outcome) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReply(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		model:     "fake",
		fragments: []string{"wor", "ld"},
	})
	ctx := t.Context()

	env.write(t, "!+begin_ai md\nhello\n!+end_ai\n")
	outcome, err := env.controller.HandleChange(ctx)
	expectOutcome(t, outcome, err, OutcomeReplied)

	want := "!+begin_ai md\nhello\n[AI]:\nworld\n[ME]:\n!+end_ai\n"
	if diff := cmp.Diff(want, env.content(t)); diff != "" {
		t.Fatal(diff)
	}

	// the notification caused by our own write
	outcome, err = env.controller.HandleChange(ctx)
	expectOutcome(t, outcome, err, OutcomeUnchanged)

	// even when forced, the idle guard holds
	outcome, err = env.controller.Process(ctx)
	expectOutcome(t, outcome, err, OutcomeAwaitingInput)

	if n := env.generator.calls(); n != 1 {
		t.Fatalf("got %d", n)
	}

	// human answers
	env.write(t, strings.Replace(env.content(t), "[ME]:\n", "[ME]: again\n", 1))
	outcome, err = env.controller.HandleChange(ctx)
	expectOutcome(t, outcome, err, OutcomeReplied)
	conversation := env.generator.last()
	wantTurns := []generators.Turn{
		{Role: generators.RoleUser, Text: "hello\n"},
		{Role: generators.RoleAssistant, Text: "\nworld\n"},
		{Role: generators.RoleUser, Text: "again\n"},
	}
	if diff := cmp.Diff(wantTurns, conversation.Turns); diff != "" {
		t.Fatal(diff)
	}
}

func TestInitIgnoresExistingContent(t *testing.T) {
	env := newTestEnv(t, "!+begin_ai md\nhello\n!+end_ai\n", &fakeGenerator{
		fragments: []string{"world"},
	})
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeUnchanged)
	if n := env.generator.calls(); n != 0 {
		t.Fatalf("got %d", n)
	}

	// touch without content change
	now := time.Now()
	if err := os.Chtimes(env.path, now, now); err != nil {
		t.Fatal(err)
	}
	outcome, err = env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeUnchanged)

	outcome, err = env.controller.Process(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
}

func TestIdleGuard(t *testing.T) {
	for _, content := range []string{
		"!+begin_ai md\nhello\n[AI]: hi\n[ME]:\n!+end_ai\n",
		"!+begin_ai md\nhello\n[AI]: hi\n[ME]:   \n!+end_ai\n",
		"!+begin_ai md\n   \n!+end_ai\n",
	} {
		env := newTestEnv(t, "", &fakeGenerator{
			fragments: []string{"world"},
		})
		env.write(t, content)
		outcome, err := env.controller.HandleChange(t.Context())
		expectOutcome(t, outcome, err, OutcomeAwaitingInput)
		if n := env.generator.calls(); n != 0 {
			t.Fatalf("got %d", n)
		}
		if env.content(t) != content {
			t.Fatalf("file modified: %q", env.content(t))
		}
	}
}

func TestNothingToDo(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{})
	ctx := t.Context()

	env.write(t, "just some notes\n")
	outcome, err := env.controller.HandleChange(ctx)
	expectOutcome(t, outcome, err, OutcomeNoBlocks)

	env.write(t, "!+begin_ai md\n!+end_ai\n")
	outcome, err = env.controller.HandleChange(ctx)
	expectOutcome(t, outcome, err, OutcomeNoMessages)

	env.write(t, "!+begin_ai md\n[SYSTEM]: be brief\n!+end_ai\n")
	outcome, err = env.controller.HandleChange(ctx)
	expectOutcome(t, outcome, err, OutcomeAwaitingInput)

	if n := env.generator.calls(); n != 0 {
		t.Fatalf("got %d", n)
	}
}

func TestParseError(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"world"},
	})
	content := "!+begin_ai md\nhello\n"
	env.write(t, content)

	_, err := env.controller.HandleChange(t.Context())
	if !errors.Is(err, aiblocks.ErrSyntax) {
		t.Fatalf("got %v", err)
	}
	if env.content(t) != content {
		t.Fatalf("got %q", env.content(t))
	}

	// retried only after a genuine change
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeUnchanged)

	env.write(t, content+"!+end_ai\n")
	outcome, err = env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
}

func TestGenerationFailure(t *testing.T) {
	errBackend := errors.New("connection reset")
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"partial"},
		err:       errBackend,
	})
	content := "!+begin_ai md\nhello\n!+end_ai\n"
	env.write(t, content)

	_, err := env.controller.HandleChange(t.Context())
	if !errors.Is(err, errBackend) {
		t.Fatalf("got %v", err)
	}
	if env.content(t) != content {
		t.Fatalf("got %q", env.content(t))
	}

	// same content is retried
	env.generator.err = nil
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	if n := env.generator.calls(); n != 2 {
		t.Fatalf("got %d", n)
	}
}

func TestConcurrentEdit(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"world"},
	})
	edited := "!+begin_ai md\nhello, edited\n!+end_ai\n"
	env.generator.before = func(context.Context) error {
		env.write(t, edited)
		return nil
	}
	env.write(t, "!+begin_ai md\nhello\n!+end_ai\n")

	_, err := env.controller.HandleChange(t.Context())
	if !errors.Is(err, ErrConcurrentEdit) {
		t.Fatalf("got %v", err)
	}
	if env.content(t) != edited {
		t.Fatalf("got %q", env.content(t))
	}

	env.generator.before = nil
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	if !strings.Contains(env.content(t), "hello, edited\n[AI]:\nworld\n") {
		t.Fatalf("got %q", env.content(t))
	}
}

func TestModelParam(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"default"},
	})
	other := &fakeGenerator{
		model:     "other",
		fragments: []string{"other"},
	}
	env.named["other"] = other

	env.write(t, "!+begin_ai md :model \"other\"\nhello\n!+end_ai\n")
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	if other.calls() != 1 || env.generator.calls() != 0 {
		t.Fatalf("got %d %d", other.calls(), env.generator.calls())
	}
	if !strings.HasPrefix(env.content(t), "!+begin_ai md :model \"other\"\n") {
		t.Fatalf("got %q", env.content(t))
	}

	env.write(t, "!+begin_ai md :model \"nope\"\nhello\n!+end_ai\n")
	if _, err := env.controller.HandleChange(t.Context()); err == nil {
		t.Fatal("expecting error")
	}
}

func TestSystemInstruction(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"ok"},
	})

	env.write(t, "!+begin_ai md\n[SYSTEM]: first\n[ME]: hi\n[SYSTEM]: second\n!+end_ai\n")
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	conversation := env.generator.last()
	if conversation.SystemInstruction != "second\n" {
		t.Fatalf("got %q", conversation.SystemInstruction)
	}
	if diff := cmp.Diff([]generators.Turn{
		{Role: generators.RoleUser, Text: "hi\n"},
	}, conversation.Turns); diff != "" {
		t.Fatal(diff)
	}

	env.write(t, "!+begin_ai md\nhi\n!+end_ai\n")
	outcome, err = env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	if got := env.generator.last().SystemInstruction; got != "default system" {
		t.Fatalf("got %q", got)
	}
}

func TestBlankSystemClearsDefault(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"ok"},
	})
	env.write(t, "!+begin_ai md\n[SYSTEM]: first\n[ME]: hi\n[SYSTEM]:\n[ME]: again\n!+end_ai\n")
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	conversation := env.generator.last()
	if conversation.SystemInstruction != "\n" || conversation.HasSystemInstruction() {
		t.Fatalf("got %q", conversation.SystemInstruction)
	}
	if diff := cmp.Diff([]generators.Turn{
		{Role: generators.RoleUser, Text: "hi\n"},
		{Role: generators.RoleUser, Text: "again\n"},
	}, conversation.Turns); diff != "" {
		t.Fatal(diff)
	}
}

func TestHeaderLikeFirstMessage(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"world"},
	})
	env.write(t, "!+begin_ai md\n[ME]:[ME]: hi\n!+end_ai\n")
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	want := "!+begin_ai md\n[ME]: [ME]: hi\n[AI]:\nworld\n[ME]:\n!+end_ai\n"
	if diff := cmp.Diff(want, env.content(t)); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]generators.Turn{
		{Role: generators.RoleUser, Text: "[ME]: hi\n"},
	}, env.generator.last().Turns); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadBackRejectsChangedText(t *testing.T) {
	controller := &Controller{
		syntax: aiblocks.BangSyntax,
	}
	blocks := []aiblocks.Block{
		{
			Language: "md",
			Messages: []aiblocks.Message{
				{Role: aiblocks.RoleUser, Text: "[ME]: hi\n"},
				{Role: aiblocks.RoleAssistant, Text: "\nworld\n"},
			},
		},
	}
	// same roles, user text lost its header-like prefix
	output := "!+begin_ai md\n[ME]: hi\n[AI]:\nworld\n!+end_ai\n"
	if err := controller.checkReadBack(output, blocks); !errors.Is(err, ErrUnrepresentable) {
		t.Fatalf("got %v", err)
	}

	output = aiblocks.BangSyntax.Serialize(blocks)
	if err := controller.checkReadBack(output, blocks); err != nil {
		t.Fatal(err)
	}

	params := []aiblocks.Block{
		{
			Language: "md",
			Params: aiblocks.Params{
				"model": aiblocks.String("flash"),
			},
		},
	}
	if err := controller.checkReadBack("!+begin_ai md :model \"pro\"\n!+end_ai\n", params); !errors.Is(err, ErrUnrepresentable) {
		t.Fatalf("got %v", err)
	}
}

func TestOnlyFirstBlockAnswered(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"world"},
	})
	env.write(t, "!+begin_ai md\nhello\n!+end_ai\nnotes\n!+begin_ai py :n 1\nprint(1)\n!+end_ai\n")
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	want := "!+begin_ai md\nhello\n[AI]:\nworld\n[ME]:\n!+end_ai\n\n!+begin_ai py :n 1\nprint(1)\n!+end_ai\n"
	if diff := cmp.Diff(want, env.content(t)); diff != "" {
		t.Fatal(diff)
	}
}

func TestUnrepresentableReply(t *testing.T) {
	for _, reply := range []string{
		"foo\n!+end_ai\nbar",
		"foo\n[ME]: bar",
	} {
		env := newTestEnv(t, "", &fakeGenerator{
			fragments: []string{reply},
		})
		content := "!+begin_ai md\nhello\n!+end_ai\n"
		env.write(t, content)
		_, err := env.controller.HandleChange(t.Context())
		if !errors.Is(err, ErrUnrepresentable) {
			t.Fatalf("got %v", err)
		}
		if env.content(t) != content {
			t.Fatalf("got %q", env.content(t))
		}
	}
}

func TestBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"world"},
		before: func(ctx context.Context) error {
			close(started)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	env.write(t, "!+begin_ai md\nhello\n!+end_ai\n")

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result)
	go func() {
		outcome, err := env.controller.HandleChange(t.Context())
		done <- result{outcome, err}
	}()

	<-started
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeBusy)

	close(release)
	res := <-done
	expectOutcome(t, res.outcome, res.err, OutcomeReplied)
}

func TestCanceledGeneration(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"world"},
		before: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	content := "!+begin_ai md\nhello\n!+end_ai\n"
	env.write(t, content)

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err := env.controller.HandleChange(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if env.content(t) != content {
		t.Fatalf("got %q", env.content(t))
	}
}

func TestMissingFile(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{})
	if err := os.Remove(env.path); err != nil {
		t.Fatal(err)
	}
	if _, err := env.controller.HandleChange(t.Context()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
	if err := env.controller.Init(); err == nil {
		t.Fatal("expecting error")
	}
}

func TestNotText(t *testing.T) {
	env := newTestEnv(t, "", &fakeGenerator{
		fragments: []string{"world"},
	})
	ctx := t.Context()

	env.write(t, "\x00\x01\x02\x03 !+begin_ai\nhello\n!+end_ai\n\x00")
	_, err := env.controller.HandleChange(ctx)
	if !errors.Is(err, ErrNotText) {
		t.Fatalf("got %v", err)
	}
	if n := env.generator.calls(); n != 0 {
		t.Fatalf("got %d", n)
	}

	env.write(t, "\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	if err := env.controller.Init(); !errors.Is(err, ErrNotText) {
		t.Fatalf("got %v", err)
	}
}

func TestTapConversation(t *testing.T) {
	var tapped []map[string]any
	env := newTestEnv(t, "", &fakeGenerator{
		model:     "fake",
		fragments: []string{"world"},
	},
		func() debugs.TapEnabled {
			return true
		},
		func() debugs.Tap {
			return func(_ context.Context, what string, globals map[string]any) {
				if what != "conversation" {
					t.Fatalf("got %s", what)
				}
				tapped = append(tapped, globals)
			}
		},
	)

	env.write(t, "!+begin_ai\nhello\n!+end_ai\n")
	outcome, err := env.controller.HandleChange(t.Context())
	expectOutcome(t, outcome, err, OutcomeReplied)
	if len(tapped) != 1 {
		t.Fatalf("got %d", len(tapped))
	}
	if tapped[0]["model"] != "fake" {
		t.Fatalf("got %v", tapped[0]["model"])
	}
	conversation := tapped[0]["conversation"].(generators.Conversation)
	if len(conversation.Turns) != 1 || conversation.Turns[0].Text != "hello\n" {
		t.Fatalf("got %+v", conversation)
	}
}
