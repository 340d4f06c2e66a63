package port

import (
	"context"
	"time"
)

// VisibilityExtender changes how long a received message stays invisible to
// other consumers.
type VisibilityExtender interface {
	ExtendVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error
}
