package port

import (
	"context"
	"errors"

	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByMessageID(ctx context.Context, messageID string) (*entity.Job, error)
}

// ErrJobNotFound is returned by JobRepository lookups that match no record.
var ErrJobNotFound = errors.New("job not found")
