package generators

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/reusee/taidoc/vars"
)

// Generator streams the reply of a model to a conversation.
// Fragments are yielded in arrival order; an error ends the stream.
type Generator interface {
	Args() GeneratorArgs
	Generate(ctx context.Context, conversation Conversation) iter.Seq2[string, error]
}

type GetGenerator func(name string) (Generator, error)

const ollamaBaseURL = "http://127.0.0.1:11434/v1"

func (Module) GetGenerator(
	newGemini NewGemini,
	newOpenAI NewOpenAI,
	getSpecs GetGeneratorSpecs,
) GetGenerator {
	return func(name string) (Generator, error) {

		// user-defined first
		specs, err := getSpecs()
		if err != nil {
			return nil, err
		}
		for _, spec := range specs {
			if spec.Name != name {
				continue
			}
			switch strings.ToLower(spec.Type) {
			case "gemini", "google":
				return newGemini(spec.GeneratorArgs), nil
			case "openai", "open-ai", "open_ai":
				return newOpenAI(spec.GeneratorArgs), nil
			case "ollama":
				spec.GeneratorArgs.BaseURL = vars.FirstNonZero(spec.BaseURL, ollamaBaseURL)
				return newOpenAI(spec.GeneratorArgs), nil
			default:
				return nil, fmt.Errorf("unknown generator type: %q", spec.Type)
			}
		}

		// ollama
		provider, modelName, ok := strings.Cut(name, ":")
		if ok && provider == "ollama" {
			return newOpenAI(GeneratorArgs{
				BaseURL: ollamaBaseURL,
				Model:   modelName,
			}), nil
		}

		// built-ins
		switch name {

		case "flash", "gemini-flash":
			return newGemini(GeneratorArgs{
				Model:             "gemini-2.0-flash",
				MaxGenerateTokens: vars.PtrTo(8 * K),
			}), nil

		case "pro", "gemini-pro":
			return newGemini(GeneratorArgs{
				Model:             "gemini-2.5-pro",
				MaxGenerateTokens: vars.PtrTo(32 * K),
			}), nil

		}

		switch {
		case strings.HasPrefix(name, "gemini-"):
			return newGemini(GeneratorArgs{
				Model: name,
			}), nil
		case strings.HasPrefix(name, "gpt-"):
			return newOpenAI(GeneratorArgs{
				Model: name,
			}), nil
		}

		return nil, fmt.Errorf("invalid model: %s", name)
	}
}

// CredentialChecker is implemented by generators that can tell whether their credentials are usable before generating.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context) error
}
