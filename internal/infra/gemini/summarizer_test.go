package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	model  string
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
	calls  int
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func response(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestSummarizeJoinsParts(t *testing.T) {
	models := &fakeModels{resp: response("First part. ", "Second part.")}
	s := newSummarizer(models, "", zap.NewNop())

	got, err := s.Summarize(context.Background(), "the meeting started at nine")
	require.NoError(t, err)

	assert.Equal(t, "First part. Second part.", got)
	assert.Equal(t, "gemini-2.5-flash", models.model)
	assert.Contains(t, models.prompt, "the meeting started at nine")
}

func TestSummarizeEmptyResponse(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{}}
	s := newSummarizer(models, "gemini-pro", zap.NewNop())

	_, err := s.Summarize(context.Background(), "text")
	require.Error(t, err)
}

func TestSummarizeAPIError(t *testing.T) {
	models := &fakeModels{err: errors.New("429 RESOURCE_EXHAUSTED")}
	s := newSummarizer(models, "gemini-pro", zap.NewNop())

	_, err := s.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
}

func TestSummarizeRejectsBlankTranscript(t *testing.T) {
	models := &fakeModels{resp: response("never")}
	s := newSummarizer(models, "", zap.NewNop())

	_, err := s.Summarize(context.Background(), "   ")
	require.Error(t, err)
	assert.Zero(t, models.calls)
}
