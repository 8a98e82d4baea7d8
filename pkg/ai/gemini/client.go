package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/SebastianCl/letra-cancion/pkg/ai"
)

var _ ai.Translator = (*gemini)(nil)

type gemini struct {
	model *genai.GenerativeModel
}

func NewGemini(apiKey, modelName string) (*gemini, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &gemini{model: client.GenerativeModel(modelName)}, nil
}

func (g *gemini) Name() string {
	return "gemini"
}

func (g *gemini) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate this song lyric line from %s to %s. Reply with the translation only, no quotes, no notes: %s",
		srcLang, tgtLang, text)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Msg("could not get response from gemini")
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	return strings.TrimSpace(fmt.Sprint(resp.Candidates[0].Content.Parts[0])), nil
}
