package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusSkipped    JobStatus = "SKIPPED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job is the bookkeeping record of one queue message across its deliveries.
type Job struct {
	ID            uuid.UUID
	MessageID     string
	Bucket        string
	Key           string
	MediaKind     MediaKind
	ModelSize     ModelSize
	TranscriptKey string
	SummaryKey    string
	Status        JobStatus
	Attempt       int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewJob(messageID, bucket, key string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New(),
		MessageID: messageID,
		Bucket:    bucket,
		Key:       key,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) MarkProcessing(attempt int) {
	j.Status = JobStatusProcessing
	j.Attempt = attempt
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(transcriptKey, summaryKey string) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.TranscriptKey = transcriptKey
	j.SummaryKey = summaryKey
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkSkipped(reason string) {
	now := time.Now().UTC()
	j.Status = JobStatusSkipped
	j.ErrorMessage = reason
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) StatusMessage() TranscriptionStatusMessage {
	return TranscriptionStatusMessage{
		JobID:         j.ID,
		MessageID:     j.MessageID,
		Bucket:        j.Bucket,
		Key:           j.Key,
		Status:        j.Status,
		MediaKind:     j.MediaKind,
		ModelSize:     j.ModelSize,
		TranscriptKey: j.TranscriptKey,
		SummaryKey:    j.SummaryKey,
		ErrorMessage:  j.ErrorMessage,
		Attempt:       j.Attempt,
	}
}
