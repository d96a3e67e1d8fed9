package generators

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/nets"
	"github.com/reusee/taidoc/vars"
	"google.golang.org/genai"
)

type Gemini struct {
	args      GeneratorArgs
	GetClient dscope.Inject[GetGeminiClient]
	Count     dscope.Inject[BPETokenCounter]
	Logger    dscope.Inject[logs.Logger]
}

var _ Generator = Gemini{}

func (g Gemini) Args() GeneratorArgs {
	return g.args
}

var _ CredentialChecker = Gemini{}

// CheckCredentials fetches the model metadata, which fails for a missing or rejected key and for an unknown model.
func (g Gemini) CheckCredentials(ctx context.Context) error {
	client, err := g.GetClient()(ctx, g.args.APIKey, g.args.BaseURL)
	if err != nil {
		return err
	}
	if _, err := client.Models.Get(ctx, g.args.Model, nil); err != nil {
		return wrap(err)
	}
	return nil
}

func (g Gemini) Generate(ctx context.Context, conversation Conversation) iter.Seq2[string, error] {
	config := &genai.GenerateContentConfig{
		Temperature: g.args.Temperature,
	}
	if g.args.MaxGenerateTokens != nil {
		config.MaxOutputTokens = int32(*g.args.MaxGenerateTokens)
	}
	if conversation.HasSystemInstruction() {
		config.SystemInstruction = genai.NewContentFromText(
			conversation.SystemInstruction,
			genai.Role(RoleUser),
		)
	}
	contents := geminiContents(conversation)

	return streamWithRetry(ctx, g.Logger(), g.args.DisableRetry, func() iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			client, err := g.GetClient()(ctx, g.args.APIKey, g.args.BaseURL)
			if err != nil {
				yield("", err)
				return
			}

			tokens, _ := g.Count()(conversation.Text())
			g.Logger().InfoContext(ctx, "generating",
				"model", g.args.Model,
				"turns", len(contents),
				"estimated_tokens", tokens,
			)

			hasContent := false
			for resp, err := range client.Models.GenerateContentStream(ctx, g.args.Model, contents, config) {
				if err != nil {
					yield("", wrap(err))
					return
				}
				for _, text := range geminiTexts(resp) {
					hasContent = true
					if !yield(text, nil) {
						return
					}
				}
			}
			if !hasContent {
				yield("", errors.Join(ErrNoOutput, ErrRetryable))
			}
		}
	})
}

func geminiContents(conversation Conversation) []*genai.Content {
	var contents []*genai.Content
	for _, turn := range conversation.Turns {
		role := turn.Role
		if role == RoleAssistant {
			// convert to gemini role
			role = RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(role)))
	}
	return contents
}

func geminiTexts(resp *genai.GenerateContentResponse) (ret []string) {
	if resp == nil || len(resp.Candidates) == 0 {
		return
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return
	}
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		ret = append(ret, part.Text)
	}
	return
}

type GetGeminiClient = func(ctx context.Context, key string, baseURL string) (*genai.Client, error)

func (Module) GetGeminiClient(
	httpClient nets.HTTPClient,
	apiKey GoogleAPIKey,
) GetGeminiClient {
	var clients sync.Map // key and base url -> *genai.Client
	return func(ctx context.Context, key string, baseURL string) (*genai.Client, error) {
		key = vars.FirstNonZero(
			key,
			string(apiKey),
		)
		if key == "" {
			return nil, errors.Join(
				ErrNoAPIKey,
				errors.New("set google_api_key in config or MY_GEMINI_API_KEY in environment"),
			)
		}

		cacheKey := key + "\x00" + baseURL
		if v, ok := clients.Load(cacheKey); ok {
			return v.(*genai.Client), nil
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     key,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
			HTTPOptions: genai.HTTPOptions{
				BaseURL: baseURL,
			},
		})
		if err != nil {
			return nil, wrap(err)
		}

		v, _ := clients.LoadOrStore(cacheKey, client)
		return v.(*genai.Client), nil
	}
}

type NewGemini func(args GeneratorArgs) Gemini

func (Module) NewGemini(
	inject dscope.InjectStruct,
) NewGemini {
	return func(args GeneratorArgs) Gemini {
		ret := Gemini{
			args: args,
		}
		inject(&ret)
		return ret
	}
}
