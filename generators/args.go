package generators

type GeneratorArgs struct {
	BaseURL           string   `json:"base_url"`
	APIKey            string   `json:"api_key"`
	Model             string   `json:"model"`
	MaxGenerateTokens *int     `json:"max_generate_tokens"`
	Temperature       *float32 `json:"temperature"`
	DisableRetry      bool     `json:"disable_retry"`
}
