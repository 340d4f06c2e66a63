package port

import "context"

// StatusPublisher announces job state changes. msg is a JSON-encoded
// entity.TranscriptionStatusMessage.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// DLQPublisher parks messages that will never succeed, along with a short
// machine-readable reason.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
