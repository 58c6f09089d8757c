package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// Environment: "development" enables unredacted error messages
	Env string `yaml:"env"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Import pipeline config
	Import ImportConfig `yaml:"import"`
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Language string `yaml:"language"`  // OCR language (default: "eng")
	MaxPages int    `yaml:"max_pages"` // pages rendered for OCR per document
}

// ImportConfig bounds the ingestion pipeline
type ImportConfig struct {
	MaxCharsForLLM int `yaml:"max_chars_for_llm"` // text budget sent to the model
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	// OpenAI
	OpenAI OpenAIConfig `yaml:"openai"`

	// Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	// Ollama (local)
	Ollama OllamaConfig `yaml:"ollama"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "openai", "gemini", "ollama"
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o-mini"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// OllamaConfig for local Ollama
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"` // Default: "http://localhost:11434"
	Model   string `yaml:"model"`    // e.g., "mistral", "llama3"
}
