package config

// Default LLM endpoint settings. OpenRouter is the default, but any
// OpenAI-compatible endpoint works.
const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "google/gemini-flash-1.5"
	DefaultAPIKeyEnv = "OPENROUTER_API_KEY"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 50
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultBaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 8192
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.Store.MaxDocumentAgeHours == 0 {
		cfg.Store.MaxDocumentAgeHours = 24
	}
	if cfg.Convert.Variant == "" {
		cfg.Convert.Variant = "markdown"
	}
	if cfg.Convert.MaxImages == 0 {
		cfg.Convert.MaxImages = 16
	}
	if cfg.Convert.MinImageDim == 0 {
		cfg.Convert.MinImageDim = 10
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
