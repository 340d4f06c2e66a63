package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const summaryPrompt = `You are a transcription analyst. Read the transcript between the markers and summarize it.

Requirements:
- Detect the language of the transcript and write the summary in that same language
- Describe the main topics and events concisely, in the order they appear
- If several speakers are present, summarize each speaker's position and tone separately

Transcript:
---
%s
---`

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Summarizer produces plain-text summaries of transcripts with Gemini.
type Summarizer struct {
	models contentGenerator
	model  string
	logger *zap.Logger
}

func NewSummarizer(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Summarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newSummarizer(client.Models, model, logger), nil
}

func newSummarizer(models contentGenerator, model string, logger *zap.Logger) *Summarizer {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Summarizer{models: models, model: model, logger: logger}
}

func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("empty transcript")
	}

	prompt := fmt.Sprintf(summaryPrompt, transcript)
	result, err := s.models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		if summary := strings.TrimSpace(text.String()); summary != "" {
			s.logger.Debug("summary generated",
				zap.String("model", s.model),
				zap.Int("transcript_chars", len(transcript)),
				zap.Int("summary_chars", len(summary)),
			)
			return summary, nil
		}
	}

	return "", errors.New("empty response from gemini")
}
