package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidMessage = errors.New("invalid transcription message")

// Delivery is one receipt of a queue message. ReceiptHandle is only valid for
// this delivery; a redelivered message carries a new one.
type Delivery struct {
	MessageID     string
	Body          []byte
	ReceiptHandle string
	ReceiveCount  int
}

// TranscriptionMessage is the inbound message body from the transcription queue.
type TranscriptionMessage struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Tags   Tags   `json:"tags,omitempty"`
}

// DecodeTranscriptionMessage parses a message body and enforces the required
// bucket and key fields. Every returned error wraps ErrInvalidMessage.
func DecodeTranscriptionMessage(body []byte) (TranscriptionMessage, error) {
	var msg TranscriptionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return TranscriptionMessage{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	// Object identifiers are used exactly as sent; blank ones are rejected.
	if strings.TrimSpace(msg.Bucket) == "" {
		return TranscriptionMessage{}, fmt.Errorf("%w: missing bucket", ErrInvalidMessage)
	}
	if strings.TrimSpace(msg.Key) == "" {
		return TranscriptionMessage{}, fmt.Errorf("%w: missing key", ErrInvalidMessage)
	}
	return msg, nil
}

// TranscriptionStatusMessage is published to the status exchange whenever a
// delivery reaches an outcome.
type TranscriptionStatusMessage struct {
	JobID         uuid.UUID `json:"job_id"`
	MessageID     string    `json:"message_id"`
	Bucket        string    `json:"bucket"`
	Key           string    `json:"key"`
	Status        JobStatus `json:"status"`
	MediaKind     MediaKind `json:"media_kind,omitempty"`
	ModelSize     ModelSize `json:"model_size,omitempty"`
	TranscriptKey string    `json:"transcript_key,omitempty"`
	SummaryKey    string    `json:"summary_key,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Attempt       int       `json:"attempt"`
}
