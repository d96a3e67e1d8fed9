package generators

import (
	"context"
	"errors"
	"iter"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/nets"
	"github.com/reusee/taidoc/vars"
)

// OpenAI talks to OpenAI and any server with a compatible chat completions endpoint.
type OpenAI struct {
	args   GeneratorArgs
	apiKey string
	client nets.HTTPClient

	Count  dscope.Inject[BPETokenCounter]
	Logger dscope.Inject[logs.Logger]
}

var _ Generator = new(OpenAI)

func (o *OpenAI) Args() GeneratorArgs {
	return o.args
}

var _ CredentialChecker = new(OpenAI)

// CheckCredentials retrieves the model, which fails for a rejected key and for an unknown model.
func (o *OpenAI) CheckCredentials(ctx context.Context) error {
	client, err := o.newClient()
	if err != nil {
		return err
	}
	if _, err := client.Models.Get(ctx, o.args.Model); err != nil {
		return wrap(err)
	}
	return nil
}

func (o *OpenAI) Generate(ctx context.Context, conversation Conversation) iter.Seq2[string, error] {
	params := openai.ChatCompletionNewParams{
		Model:    o.args.Model,
		Messages: openAIMessages(conversation),
	}
	if o.args.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.args.Temperature))
	}
	if o.args.MaxGenerateTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*o.args.MaxGenerateTokens))
	}

	return streamWithRetry(ctx, o.Logger(), o.args.DisableRetry, func() iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			client, err := o.newClient()
			if err != nil {
				yield("", err)
				return
			}

			tokens, _ := o.Count()(conversation.Text())
			o.Logger().InfoContext(ctx, "generating",
				"model", o.args.Model,
				"base_url", o.args.BaseURL,
				"turns", len(conversation.Turns),
				"estimated_tokens", tokens,
			)

			stream := client.Chat.Completions.NewStreaming(ctx, params)
			defer stream.Close()

			hasContent := false
			for stream.Next() {
				chunk := stream.Current()
				if len(chunk.Choices) == 0 {
					continue
				}
				text := chunk.Choices[0].Delta.Content
				if text == "" {
					continue
				}
				hasContent = true
				if !yield(text, nil) {
					return
				}
			}
			if err := stream.Err(); err != nil {
				yield("", wrap(err))
				return
			}
			if !hasContent {
				yield("", errors.Join(ErrNoOutput, ErrRetryable))
			}
		}
	})
}

func (o *OpenAI) newClient() (openai.Client, error) {
	apiKey := o.apiKey
	if apiKey == "" {
		if o.args.BaseURL == "" {
			return openai.Client{}, errors.Join(
				ErrNoAPIKey,
				errors.New("set openai_api_key in config or OPENAI_API_KEY in environment"),
			)
		}
		// local servers ignore the key but the client requires one
		apiKey = "none"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.client),
		option.WithMaxRetries(0),
	}
	if o.args.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.args.BaseURL))
	}
	return openai.NewClient(opts...), nil
}

func openAIMessages(conversation Conversation) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(conversation.Turns)+1)
	if conversation.HasSystemInstruction() {
		messages = append(messages, openai.SystemMessage(conversation.SystemInstruction))
	}
	for _, turn := range conversation.Turns {
		switch turn.Role {
		case RoleAssistant, RoleModel:
			messages = append(messages, openai.AssistantMessage(turn.Text))
		default:
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	return messages
}

type NewOpenAI func(args GeneratorArgs) *OpenAI

func (Module) NewOpenAI(
	inject dscope.InjectStruct,
	client nets.HTTPClient,
	apiKey OpenAIAPIKey,
) NewOpenAI {
	return func(args GeneratorArgs) *OpenAI {
		ret := &OpenAI{
			args:   args,
			client: client,
		}
		if args.BaseURL == "" {
			// the configured key belongs to api.openai.com only
			ret.apiKey = vars.FirstNonZero(args.APIKey, string(apiKey))
		} else {
			ret.apiKey = args.APIKey
		}
		inject(&ret)
		return ret
	}
}
