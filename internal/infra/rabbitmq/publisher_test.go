package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent []published
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestStatusPublisherUsesExchangeAndRoutingKey(t *testing.T) {
	ch := &fakeChannel{}
	pub := &Publisher{channel: ch, exchange: "whisper.transcription"}

	err := NewStatusPublisher(pub, "transcription.status").PublishStatus(context.Background(), []byte(`{"status":"COMPLETED"}`))
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	assert.Equal(t, "whisper.transcription", ch.sent[0].exchange)
	assert.Equal(t, "transcription.status", ch.sent[0].key)
	assert.Equal(t, "application/json", ch.sent[0].msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.sent[0].msg.DeliveryMode)
}

func TestDLQPublisherRoutesToQueueWithReason(t *testing.T) {
	ch := &fakeChannel{}
	pub := &Publisher{channel: ch, exchange: "whisper.transcription"}

	err := NewDLQPublisher(pub, "transcription.dlq").PublishToDLQ(context.Background(), []byte(`{bad`), "decode_error")
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	assert.Equal(t, "", ch.sent[0].exchange)
	assert.Equal(t, "transcription.dlq", ch.sent[0].key)
	assert.Equal(t, `{bad`, string(ch.sent[0].msg.Body))
	assert.Equal(t, "decode_error", ch.sent[0].msg.Headers["x-dlq-reason"])
	assert.Equal(t, "application/octet-stream", ch.sent[0].msg.ContentType)
	assert.NotEmpty(t, ch.sent[0].msg.MessageId)
}

func TestPublishWrapsChannelError(t *testing.T) {
	ch := &failingChannel{err: errors.New("channel closed")}
	pub := &Publisher{channel: ch, exchange: "whisper.transcription"}

	err := NewStatusPublisher(pub, "transcription.status").PublishStatus(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ch.err)
	assert.Contains(t, err.Error(), "transcription.status")
}

type failingChannel struct{ err error }

func (f *failingChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp.Publishing) error {
	return f.err
}
