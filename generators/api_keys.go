package generators

import (
	"os"

	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/vars"
)

type (
	GoogleAPIKey string
	OpenAIAPIKey string
)

func (Module) GoogleAPIKey(
	loader configs.Loader,
) GoogleAPIKey {
	return vars.FirstNonZero(
		configs.First[GoogleAPIKey](loader, "google_api_key"),
		configs.First[GoogleAPIKey](loader, "gemini_api_key"),
		GoogleAPIKey(os.Getenv("MY_GEMINI_API_KEY")),
		GoogleAPIKey(os.Getenv("GEMINI_API_KEY")),
		GoogleAPIKey(os.Getenv("GOOGLE_API_KEY")),
	)
}

func (Module) OpenAIAPIKey(
	loader configs.Loader,
) OpenAIAPIKey {
	return vars.FirstNonZero(
		configs.First[OpenAIAPIKey](loader, "openai_api_key"),
		OpenAIAPIKey(os.Getenv("OPENAI_API_KEY")),
	)
}
