package config

import (
	"github.com/caarlos0/env/v9"

	"github.com/tomdee2/samples/errors"
)

// Env holds credentials and feature flags read from the environment. A
// missing value is never an error here; callers warn and mark the relevant
// provider unavailable instead.
type Env struct {
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSProfile         string `env:"AWS_PROFILE"`
	AWSRegion          string `env:"AWS_REGION"`

	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	ExaAPIKey       string `env:"EXA_API_KEY"`

	ObservabilityEnabled bool `env:"AGENT_OBSERVABILITY_ENABLED" envDefault:"true"`
}

// LoadEnv parses credentials and feature flags from the process environment.
func LoadEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, errors.Wrapf(err, "could not parse environment")
	}
	return &e, nil
}

// HasAWS reports whether AWS credentials appear to be configured, either as a
// static key pair or via a named profile.
func (e *Env) HasAWS() bool {
	return (e.AWSAccessKeyID != "" && e.AWSSecretAccessKey != "") || e.AWSProfile != ""
}

// BidiAvailability reports which bidirectional model providers have
// credentials configured. The keys match the model names accepted by the
// WebSocket endpoint.
func (e *Env) BidiAvailability() map[string]bool {
	return map[string]bool{
		"novasonic": e.HasAWS(),
		"gemini":    e.GoogleAPIKey != "" || e.GeminiAPIKey != "",
		"openai":    e.OpenAIAPIKey != "",
	}
}
