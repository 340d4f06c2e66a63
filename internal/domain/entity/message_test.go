package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTranscriptionMessage(t *testing.T) {
	msg, err := DecodeTranscriptionMessage([]byte(`{"bucket":"b","key":"talk.mp3","tags":{"model_size":"large","summary":true}}`))
	require.NoError(t, err)

	assert.Equal(t, "b", msg.Bucket)
	assert.Equal(t, "talk.mp3", msg.Key)
	assert.Equal(t, "large", msg.Tags[TagModelSize])
	assert.Equal(t, true, msg.Tags[TagSummary])
}

func TestDecodeTranscriptionMessageWithoutTags(t *testing.T) {
	msg, err := DecodeTranscriptionMessage([]byte(`{"bucket":"b","key":"notes.pdf"}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Tags)

	msg, err = DecodeTranscriptionMessage([]byte(`{"bucket":"b","key":"notes.pdf","tags":null}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Tags)
}

func TestDecodeTranscriptionMessageErrors(t *testing.T) {
	for _, body := range []string{
		``,
		`{invalid json`,
		`{"key":"a.mp3"}`,
		`{"bucket":"b"}`,
		`{"bucket":"","key":"a.mp3"}`,
		`{"bucket":"b","key":"  "}`,
		`{"bucket":" ","key":"a.mp3"}`,
		`{"bucket":"b","key":"a.mp3","tags":"summary"}`,
	} {
		_, err := DecodeTranscriptionMessage([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidMessage, body)
	}
}

func TestDecodeTranscriptionMessageKeepsIdentifiersVerbatim(t *testing.T) {
	msg, err := DecodeTranscriptionMessage([]byte(`{"bucket":"b","key":" talks/intro .mp3 "}`))
	require.NoError(t, err)
	assert.Equal(t, "b", msg.Bucket)
	assert.Equal(t, " talks/intro .mp3 ", msg.Key)
}

func TestParseTranscriptKeepsEngineBytes(t *testing.T) {
	raw := `{"text":" hi","language":"en","segments":[{"id":0,"seek":0,"start":0,"end":1,"text":" hi","tokens":[1,2],"avg_logprob":-0.2,"speaker":"SPEAKER_00"}]}`

	tr, err := ParseTranscript([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "hi", tr.PlainText())

	out, err := tr.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))

	_, err = ParseTranscript([]byte(`{"text":`))
	require.Error(t, err)
}

func TestTranscriptBytesWithoutRaw(t *testing.T) {
	out, err := (&Transcript{Text: "hi", Language: "en"}).Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi","language":"en"}`, string(out))
}

func TestTranscriptIsEmpty(t *testing.T) {
	var nilTranscript *Transcript
	assert.True(t, nilTranscript.IsEmpty())
	assert.True(t, (&Transcript{Text: " \n"}).IsEmpty())
	assert.False(t, (&Transcript{Text: "hi"}).IsEmpty())
	assert.False(t, (&Transcript{Segments: []Segment{{Text: "hi"}}}).IsEmpty())
}

func TestTranscriptPlainText(t *testing.T) {
	assert.Equal(t, "hello", (&Transcript{Text: " hello "}).PlainText())
	assert.Equal(t, "one two", (&Transcript{Segments: []Segment{{Text: " one"}, {Text: ""}, {Text: "two "}}}).PlainText())
}

func TestJobLifecycle(t *testing.T) {
	job := NewJob("m1", "b", "clip.mp4")
	assert.Equal(t, JobStatusPending, job.Status)

	job.MarkProcessing(2)
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, 2, job.Attempt)

	job.MarkCompleted("clip.json", "")
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)

	status := job.StatusMessage()
	assert.Equal(t, job.ID, status.JobID)
	assert.Equal(t, "clip.json", status.TranscriptKey)
	assert.Equal(t, 2, status.Attempt)
}
