package integration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/port"
	miniostorage "github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/minio"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/postgres"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/usecase"
	"github.com/superyhee/whisper-on-aws-jumpstart/pkg/logger"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const bucket = "media"

func startStorage(t *testing.T, ctx context.Context) *miniostorage.Storage {
	t.Helper()

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { minioContainer.Terminate(context.Background()) })

	endpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	admin, err := miniogo.New(endpoint, &miniogo.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)
	require.NoError(t, admin.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}))

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		UseSSL:    false,
	})
	require.NoError(t, err)
	return storage
}

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("transcriptions"),
		tcpostgres.WithUsername("whisper"),
		tcpostgres.WithPassword("whisper"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(connStr, "../../migrations"))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestStorageRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	storage := startStorage(t, ctx)

	require.NoError(t, storage.Put(ctx, bucket, "talks/talk.json", []byte(`{"text":"hi"}`), "application/json"))

	data, err := storage.Get(ctx, bucket, "talks/talk.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(data))

	dest := filepath.Join(t.TempDir(), "talk.json")
	require.NoError(t, storage.Fetch(ctx, bucket, "talks/talk.json", dest))
	onDisk, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	err = storage.Fetch(ctx, bucket, "talks/missing.mp3", filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, port.ErrObjectNotFound)

	_, err = storage.Get(ctx, bucket, "talks/missing.json")
	assert.ErrorIs(t, err, port.ErrObjectNotFound)
}

func TestJobRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	repo := postgres.NewJobRepository(startPostgres(t, ctx))

	_, err := repo.FindByMessageID(ctx, "nope")
	assert.ErrorIs(t, err, port.ErrJobNotFound)

	job := entity.NewJob("msg-42", bucket, "clip.mp4")
	require.NoError(t, repo.Create(ctx, job))
	// A second create for the same message keeps the first row.
	require.NoError(t, repo.Create(ctx, entity.NewJob("msg-42", bucket, "clip.mp4")))

	job.MediaKind = entity.MediaVideo
	job.ModelSize = entity.ModelLarge
	job.MarkProcessing(2)
	job.MarkCompleted("clip.json", "clip.txt")
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.FindByMessageID(ctx, "msg-42")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, entity.JobStatusCompleted, got.Status)
	assert.Equal(t, entity.MediaVideo, got.MediaKind)
	assert.Equal(t, entity.ModelLarge, got.ModelSize)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, "clip.txt", got.SummaryKey)
	assert.NotNil(t, got.CompletedAt)
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(_ context.Context, audioPath string, model entity.ModelSize) (*entity.Transcript, error) {
	return &entity.Transcript{Text: "transcribed " + filepath.Base(audioPath) + " with " + string(model)}, nil
}

type stubSummarizer struct{ err error }

func (s stubSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	return "summary of: " + transcript, s.err
}

type noopExtender struct{}

func (noopExtender) ExtendVisibility(context.Context, string, time.Duration) error { return nil }

type noopPublisher struct{}

func (noopPublisher) PublishStatus(context.Context, []byte) error        { return nil }
func (noopPublisher) PublishToDLQ(context.Context, []byte, string) error { return nil }

type memRepo struct{}

func (memRepo) Create(context.Context, *entity.Job) error { return nil }
func (memRepo) Update(context.Context, *entity.Job) error { return nil }
func (memRepo) FindByMessageID(context.Context, string) (*entity.Job, error) {
	return nil, port.ErrJobNotFound
}

func TestProcessAudioAgainstObjectStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	storage := startStorage(t, ctx)
	require.NoError(t, storage.Put(ctx, bucket, "talk.mp3", make([]byte, 4096), "audio/mpeg"))

	log, _ := logger.New("debug")
	lease := usecase.NewLeaseManager(noopExtender{}, usecase.LeaseConfig{SecondsPerMB: 50, Min: time.Minute})
	uc := usecase.NewProcessMediaUseCase(
		memRepo{}, storage, nil, stubTranscriber{}, stubSummarizer{}, lease,
		noopPublisher{}, noopPublisher{}, log,
		usecase.ProcessMediaConfig{TempDir: t.TempDir()},
	)

	err := uc.Execute(ctx, entity.Delivery{
		MessageID:     "m1",
		Body:          []byte(`{"bucket":"media","key":"talk.mp3","tags":{"model_size":"large","summary":true}}`),
		ReceiptHandle: "r1",
		ReceiveCount:  1,
	})
	require.NoError(t, err)

	data, err := storage.Get(ctx, bucket, "talk.json")
	require.NoError(t, err)
	var transcript entity.Transcript
	require.NoError(t, json.Unmarshal(data, &transcript))
	assert.Equal(t, "transcribed talk.mp3 with large", transcript.Text)

	summary, err := storage.Get(ctx, bucket, "talk.txt")
	require.NoError(t, err)
	assert.Equal(t, "summary of: transcribed talk.mp3 with large", string(summary))

	// Missing source objects are consumed, not retried.
	err = uc.Execute(ctx, entity.Delivery{
		MessageID:     "m2",
		Body:          []byte(`{"bucket":"media","key":"absent.wav"}`),
		ReceiptHandle: "r2",
		ReceiveCount:  1,
	})
	require.NoError(t, err)

	// A summarization failure leaves the transcript in place and is retriable.
	failing := usecase.NewProcessMediaUseCase(
		memRepo{}, storage, nil, stubTranscriber{}, stubSummarizer{err: errors.New("throttled")}, lease,
		noopPublisher{}, noopPublisher{}, log,
		usecase.ProcessMediaConfig{TempDir: t.TempDir()},
	)
	require.NoError(t, storage.Put(ctx, bucket, "second.wav", make([]byte, 1024), "audio/wav"))
	err = failing.Execute(ctx, entity.Delivery{
		MessageID:     "m3",
		Body:          []byte(`{"bucket":"media","key":"second.wav","tags":["summary"]}`),
		ReceiptHandle: "r3",
		ReceiveCount:  1,
	})
	require.Error(t, err)

	_, err = storage.Get(ctx, bucket, "second.json")
	require.NoError(t, err)
	_, err = storage.Get(ctx, bucket, "second.txt")
	assert.ErrorIs(t, err, port.ErrObjectNotFound)
}
