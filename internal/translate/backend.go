package translate

import (
	"fmt"

	"github.com/SebastianCl/letra-cancion/internal/config"
	"github.com/SebastianCl/letra-cancion/pkg/ai"
	"github.com/SebastianCl/letra-cancion/pkg/ai/gemini"
	"github.com/SebastianCl/letra-cancion/pkg/ai/openai"
	"github.com/SebastianCl/letra-cancion/pkg/ai/tencent"
)

// NewBackend builds the configured Translator.
func NewBackend(cfg config.TranslationConfig) (ai.Translator, error) {
	switch cfg.Backend {
	case "gemini":
		return gemini.NewGemini(cfg.APIKey, cfg.Model)
	case "openai":
		return openai.NewOpenAi(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "tencent":
		return tencent.NewClient(cfg.SecretID, cfg.SecretKey)
	default:
		return nil, fmt.Errorf("unknown translation backend: %s", cfg.Backend)
	}
}
