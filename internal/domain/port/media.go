package port

import (
	"context"

	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
)

type MediaNormalizer interface {
	Normalize(ctx context.Context, mediaPath string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, model entity.ModelSize) (*entity.Transcript, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}
