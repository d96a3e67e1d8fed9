package controllers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/aiblocks"
	"github.com/reusee/taidoc/debugs"
	"github.com/reusee/taidoc/generators"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/taiconfigs"
)

// Controller keeps one work file in sync with a model.
// It is Idle or Handling; a cycle started while Handling returns OutcomeBusy.
type Controller struct {
	path   string
	syntax aiblocks.Syntax

	handling atomic.Bool

	mu          sync.Mutex
	fingerprint Fingerprint
	seen        bool

	Logger              dscope.Inject[logs.Logger]
	NewSpan             dscope.Inject[logs.NewSpan]
	GetGenerator        dscope.Inject[generators.GetGenerator]
	GetDefaultGenerator dscope.Inject[generators.GetDefaultGenerator]
	SystemPrompt        dscope.Inject[taiconfigs.SystemPrompt]
	Tap                 dscope.Inject[debugs.Tap]
	TapEnabled          dscope.Inject[debugs.TapEnabled]
}

type NewController func(path string, syntax aiblocks.Syntax) *Controller

func (Module) NewController(
	inject dscope.InjectStruct,
) NewController {
	return func(path string, syntax aiblocks.Syntax) *Controller {
		ret := &Controller{
			path:   path,
			syntax: syntax,
		}
		inject(&ret)
		return ret
	}
}

func (c *Controller) Path() string {
	return c.path
}

// Init records the current content as seen, so only later changes are handled.
func (c *Controller) Init() error {
	content, err := readFile(c.path)
	if err != nil {
		return err
	}
	if !isText(content) {
		return fmt.Errorf("%w: %s", ErrNotText, c.path)
	}
	fingerprint := fingerprintOf(content)
	c.remember(fingerprint)
	c.Logger().Info("watching",
		"path", c.path,
		"fingerprint", fingerprint,
	)
	return nil
}

func (c *Controller) remember(fingerprint Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fingerprint = fingerprint
	c.seen = true
}

func (c *Controller) seenBefore(fingerprint Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen && c.fingerprint == fingerprint
}

// HandleChange runs one cycle for a change notification.
// Content equal to the last seen content is not handled again.
func (c *Controller) HandleChange(ctx context.Context) (Outcome, error) {
	return c.handle(ctx, false)
}

// Process runs one cycle regardless of the last seen content.
func (c *Controller) Process(ctx context.Context) (Outcome, error) {
	return c.handle(ctx, true)
}

func (c *Controller) handle(ctx context.Context, force bool) (outcome Outcome, err error) {
	if !c.handling.CompareAndSwap(false, true) {
		return OutcomeBusy, nil
	}
	defer c.handling.Store(false)

	ctx, _ = c.NewSpan()(ctx, "", "handle change", "path", c.path)
	defer func() {
		err = logs.WrapSpan(ctx, err)
	}()

	content, err := readFile(c.path)
	if err != nil {
		return 0, err
	}
	fingerprint := fingerprintOf(content)
	if !force && c.seenBefore(fingerprint) {
		return OutcomeUnchanged, nil
	}
	if !isText(content) {
		c.remember(fingerprint)
		return 0, fmt.Errorf("%w: %s", ErrNotText, c.path)
	}

	blocks, err := c.syntax.Parse(string(content))
	if err != nil {
		// same content will not parse next time either
		c.remember(fingerprint)
		return 0, err
	}

	if len(blocks) == 0 {
		c.remember(fingerprint)
		return OutcomeNoBlocks, nil
	}
	block := blocks[0]
	if len(block.Messages) == 0 {
		c.remember(fingerprint)
		return OutcomeNoMessages, nil
	}
	if block.AwaitingInput() {
		c.remember(fingerprint)
		return OutcomeAwaitingInput, nil
	}

	conversation := generators.NewConversation(block.Messages, string(c.SystemPrompt()))
	if len(conversation.Turns) == 0 {
		// only system messages
		c.remember(fingerprint)
		return OutcomeAwaitingInput, nil
	}

	generator, err := c.generatorFor(block)
	if err != nil {
		c.remember(fingerprint)
		return 0, err
	}

	if c.TapEnabled() {
		c.Tap()(ctx, "conversation", map[string]any{
			"path":         c.path,
			"model":        generator.Args().Model,
			"params":       block.Params,
			"conversation": conversation,
		})
	}

	reply, err := c.generate(ctx, generator, conversation)
	if err != nil {
		// not remembered: a touch of the same content retries
		return 0, err
	}

	blocks[0] = block.Append(
		aiblocks.Message{
			Role: aiblocks.RoleAssistant,
			Text: formatReply(reply),
		},
		aiblocks.Message{
			// an empty header line
			Role: aiblocks.RoleUser,
			Text: "\n",
		},
	)
	output := c.syntax.Serialize(blocks)
	if err := c.checkReadBack(output, blocks); err != nil {
		c.remember(fingerprint)
		return 0, err
	}

	// compare before write
	current, err := readFingerprint(c.path)
	if err != nil {
		return 0, fmt.Errorf("read work file: %w", err)
	}
	if current != fingerprint {
		return 0, ErrConcurrentEdit
	}

	if err := writeFile(c.path, []byte(output)); err != nil {
		return 0, fmt.Errorf("write work file: %w", err)
	}
	c.remember(fingerprintOf([]byte(output)))

	c.Logger().InfoContext(ctx, "replied",
		"path", c.path,
		"model", generator.Args().Model,
		"reply_bytes", len(reply),
	)
	return OutcomeReplied, nil
}

func readFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read work file: %w", err)
	}
	return content, nil
}

// generatorFor returns the generator named by the :model parameter of the block, or the default one.
func (c *Controller) generatorFor(block aiblocks.Block) (generators.Generator, error) {
	if name, ok := block.Params.String("model"); ok && name != "" {
		return c.GetGenerator()(name)
	}
	return c.GetDefaultGenerator()()
}

func (c *Controller) generate(ctx context.Context, generator generators.Generator, conversation generators.Conversation) (string, error) {
	logger := c.Logger()
	var b strings.Builder
	for fragment, err := range generator.Generate(ctx, conversation) {
		if err != nil {
			return "", err
		}
		logger.DebugContext(ctx, "fragment",
			"text", fragment,
		)
		b.WriteString(fragment)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// formatReply puts the reply on the lines after the assistant header.
func formatReply(reply string) string {
	reply = strings.Trim(reply, "\r\n")
	return "\n" + reply + "\n"
}

// checkReadBack verifies that output parses back to exactly the blocks it was serialized from.
// A reply containing an end marker or a header at line start would not.
func (c *Controller) checkReadBack(output string, blocks []aiblocks.Block) error {
	reparsed, err := c.syntax.Parse(output)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnrepresentable, err)
	}
	if len(reparsed) != len(blocks) {
		return fmt.Errorf("%w: got %d blocks, want %d", ErrUnrepresentable, len(reparsed), len(blocks))
	}
	for i, block := range blocks {
		if !reparsed[i].Equal(block) {
			return fmt.Errorf("%w: block %d reads back differently", ErrUnrepresentable, i)
		}
	}
	return nil
}
