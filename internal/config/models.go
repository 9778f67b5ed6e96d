package config

// OpenAIConfig holds the advisory reviewer's OpenAI settings.
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetOpenAI returns the OpenAI configuration.
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// SMTPConfig holds the SMTP ingestion listener settings.
type SMTPConfig struct {
	ListenAddress string
	Domain        string
}

// GetSMTP returns the SMTP listener configuration.
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		ListenAddress: c.GetString("server.smtp_listen_address"),
		Domain:        c.GetString("server.smtp_domain"),
	}
}
