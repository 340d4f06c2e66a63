package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/port"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProcessMediaUseCase struct {
	repo         port.JobRepository
	storage      port.ObjectStorage
	normalizer   port.MediaNormalizer
	transcriber  port.Transcriber
	summarizer   port.Summarizer
	lease        *LeaseManager
	publisher    port.StatusPublisher
	dlq          port.DLQPublisher
	logger       *zap.Logger
	tempDir      string
	defaultModel entity.ModelSize
}

type ProcessMediaConfig struct {
	TempDir          string
	DefaultModelSize entity.ModelSize
}

func NewProcessMediaUseCase(
	repo port.JobRepository,
	storage port.ObjectStorage,
	normalizer port.MediaNormalizer,
	transcriber port.Transcriber,
	summarizer port.Summarizer,
	lease *LeaseManager,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	logger *zap.Logger,
	cfg ProcessMediaConfig,
) *ProcessMediaUseCase {
	model := cfg.DefaultModelSize
	if !model.Valid() {
		model = entity.ModelMedium
	}
	return &ProcessMediaUseCase{
		repo:         repo,
		storage:      storage,
		normalizer:   normalizer,
		transcriber:  transcriber,
		summarizer:   summarizer,
		lease:        lease,
		publisher:    publisher,
		dlq:          dlq,
		logger:       logger,
		tempDir:      cfg.TempDir,
		defaultModel: model,
	}
}

// Execute handles one delivery. A nil return means the message can be deleted;
// an error leaves it on the queue for redelivery.
func (uc *ProcessMediaUseCase) Execute(ctx context.Context, d entity.Delivery) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessMediaUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	msg, err := entity.DecodeTranscriptionMessage(d.Body)
	if err != nil {
		uc.logger.Error("failed to decode message",
			zap.String("message_id", d.MessageID),
			zap.Error(err),
			zap.ByteString("body", d.Body),
		)
		uc.publishDLQ(ctx, d.Body, "decode_error: "+err.Error(), uc.logger.With(zap.String("message_id", d.MessageID)))
		metrics.MessagesProcessedTotal.WithLabelValues("invalid").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("message.id", d.MessageID),
		attribute.String("object.bucket", msg.Bucket),
		attribute.String("object.key", msg.Key),
		attribute.Int("message.receive_count", d.ReceiveCount),
	)

	log := uc.logger.With(
		zap.String("message_id", d.MessageID),
		zap.String("bucket", msg.Bucket),
		zap.String("key", msg.Key),
	)

	directives := entity.ParseDirectives(msg.Tags, uc.defaultModel)
	if directives.UnknownModelSize != "" {
		log.Warn("unknown model size, using default",
			zap.String("requested", directives.UnknownModelSize),
			zap.String("model_size", string(directives.ModelSize)),
		)
	}

	job := uc.loadJob(ctx, d, msg, log)
	job.MediaKind = entity.ClassifyMedia(msg.Key)
	job.ModelSize = directives.ModelSize
	job.MarkProcessing(d.ReceiveCount)
	uc.saveJob(ctx, job, log)

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	err = uc.processMediaPipeline(ctx, job, msg, d, directives, log)
	switch {
	case err == nil:
	case errors.Is(err, port.ErrObjectNotFound):
		log.Error("source object missing, dropping message", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, d, err.Error(), log)
	default:
		log.Error("transcription pipeline failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, err, log)
	}

	uc.saveJob(ctx, job, log)
	uc.publishStatus(ctx, job, log)

	metrics.MessagesProcessedTotal.WithLabelValues(strings.ToLower(string(job.Status))).Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	log.Info("message processed",
		zap.String("status", string(job.Status)),
		zap.String("transcript_key", job.TranscriptKey),
		zap.String("summary_key", job.SummaryKey),
		zap.Duration("elapsed", time.Since(totalTimer)),
	)
	return nil
}

func (uc *ProcessMediaUseCase) processMediaPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.TranscriptionMessage,
	d entity.Delivery,
	directives entity.Directives,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	transcriptKey := entity.TranscriptKey(msg.Key)
	summaryKey := entity.SummaryKey(msg.Key)

	// A redelivery may follow a failure that happened after the transcript
	// was stored; only the summary is missing then.
	if directives.Summary && d.ReceiveCount > 1 {
		existing, err := uc.loadTranscript(ctx, msg.Bucket, transcriptKey)
		switch {
		case err == nil:
			log.Info("transcript already stored, resuming at summarization",
				zap.String("transcript_key", transcriptKey),
			)
			if err := uc.summarize(ctx, msg.Bucket, summaryKey, existing, log); err != nil {
				job.TranscriptKey = transcriptKey
				return err
			}
			job.MarkCompleted(transcriptKey, summaryKey)
			return nil
		case !errors.Is(err, port.ErrObjectNotFound):
			log.Warn("could not check for stored transcript, running full pipeline", zap.Error(err))
		}
	}

	// Each attempt gets its own directory: a redelivery can run while an
	// earlier attempt of the same job is still in flight.
	if err := os.MkdirAll(uc.tempDir, 0755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	workDir, err := os.MkdirTemp(uc.tempDir, job.ID.String()+"-*")
	if err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download source object
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "fetch_media")
	media := entity.MediaFile{
		Path: filepath.Join(workDir, path.Base(msg.Key)),
		Kind: job.MediaKind,
	}
	if err := uc.storage.Fetch(ctx2, msg.Bucket, msg.Key, media.Path); err != nil {
		spanDl.End()
		return fmt.Errorf("fetch source: %w", err)
	}
	spanDl.End()
	metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(dlStart).Seconds())
	log.Info("fetched source object", zap.String("path", media.Path))

	if media.Kind == entity.MediaUnsupported {
		ext := strings.ToLower(path.Ext(msg.Key))
		log.Info("unsupported file type, skipping", zap.String("extension", ext))
		job.MarkSkipped("unsupported file type: " + ext)
		return nil
	}

	// Normalize video to mono wav
	audioPath := media.Path
	if media.Kind == entity.MediaVideo {
		nStart := time.Now()
		ctx3, spanN := tracer.Start(ctx, "normalize_media")
		out, err := uc.normalizer.Normalize(ctx3, media.Path)
		spanN.End()
		if err != nil {
			return fmt.Errorf("normalize media: %w", err)
		}
		audioPath = out
		metrics.StageDuration.WithLabelValues("normalize").Observe(time.Since(nStart).Seconds())
		log.Info("converted video to audio", zap.String("audio_path", audioPath))
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return fmt.Errorf("stat audio: %w", err)
	}
	media.Size = info.Size()

	granted, err := uc.lease.Extend(ctx, d.ReceiptHandle, media.Size)
	if err != nil {
		return fmt.Errorf("extend lease: %w", err)
	}
	log.Info("lease extended",
		zap.Int64("audio_bytes", media.Size),
		zap.Duration("lease", granted),
	)

	// Transcribe
	trStart := time.Now()
	ctx4, spanTr := tracer.Start(ctx, "transcribe")
	spanTr.SetAttributes(attribute.String("model_size", string(directives.ModelSize)))
	log.Info("transcribing audio", zap.String("model_size", string(directives.ModelSize)))
	transcript, err := uc.transcriber.Transcribe(ctx4, audioPath, directives.ModelSize)
	spanTr.End()
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	metrics.StageDuration.WithLabelValues("transcribe").Observe(time.Since(trStart).Seconds())

	storedKey := ""
	if transcript.IsEmpty() {
		log.Info("empty transcript, nothing to store")
	} else {
		data, err := transcript.Bytes()
		if err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		ctx5, spanUp := tracer.Start(ctx, "upload_transcript")
		err = uc.storage.Put(ctx5, msg.Bucket, transcriptKey, data, "application/json")
		spanUp.End()
		if err != nil {
			return fmt.Errorf("upload transcript: %w", err)
		}
		storedKey = transcriptKey
		metrics.ArtifactsPersistedTotal.WithLabelValues("transcript").Inc()
		log.Info("uploaded transcript", zap.String("transcript_key", transcriptKey))
	}

	storedSummary := ""
	if directives.Summary {
		if storedKey == "" {
			log.Info("summary requested but transcript is empty, skipping summarization")
		} else {
			if err := uc.summarize(ctx, msg.Bucket, summaryKey, transcript, log); err != nil {
				job.TranscriptKey = storedKey
				return err
			}
			storedSummary = summaryKey
		}
	}

	job.MarkCompleted(storedKey, storedSummary)
	return nil
}

func (uc *ProcessMediaUseCase) summarize(
	ctx context.Context,
	bucket, summaryKey string,
	transcript *entity.Transcript,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "summarize")
	defer span.End()

	start := time.Now()
	summary, err := uc.summarizer.Summarize(ctx, transcript.PlainText())
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	metrics.StageDuration.WithLabelValues("summarize").Observe(time.Since(start).Seconds())

	if err := uc.storage.Put(ctx, bucket, summaryKey, []byte(summary), "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("upload summary: %w", err)
	}
	metrics.ArtifactsPersistedTotal.WithLabelValues("summary").Inc()
	log.Info("uploaded summary", zap.String("summary_key", summaryKey))
	return nil
}

func (uc *ProcessMediaUseCase) loadTranscript(ctx context.Context, bucket, key string) (*entity.Transcript, error) {
	data, err := uc.storage.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	t, err := entity.ParseTranscript(data)
	if err != nil {
		return nil, fmt.Errorf("decode stored transcript: %w", err)
	}
	if t.IsEmpty() {
		return nil, fmt.Errorf("stored transcript %s: %w", key, port.ErrObjectNotFound)
	}
	return t, nil
}

func (uc *ProcessMediaUseCase) loadJob(
	ctx context.Context,
	d entity.Delivery,
	msg entity.TranscriptionMessage,
	log *zap.Logger,
) *entity.Job {
	job, err := uc.repo.FindByMessageID(ctx, d.MessageID)
	if err == nil {
		return job
	}
	if !errors.Is(err, port.ErrJobNotFound) {
		log.Warn("failed to look up job record", zap.Error(err))
	}

	job = entity.NewJob(d.MessageID, msg.Bucket, msg.Key)
	if err := uc.repo.Create(ctx, job); err != nil {
		log.Warn("failed to create job record", zap.Error(err))
	}
	return job
}

func (uc *ProcessMediaUseCase) saveJob(ctx context.Context, job *entity.Job, log *zap.Logger) {
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Warn("failed to update job record",
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
	}
}

func (uc *ProcessMediaUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	cause error,
	log *zap.Logger,
) error {
	job.MarkFailed(cause.Error())
	uc.saveJob(ctx, job, log)
	uc.publishStatus(ctx, job, log)

	metrics.MessagesProcessedTotal.WithLabelValues("retry").Inc()

	return fmt.Errorf("retryable failure (attempt %d): %w", job.Attempt, cause)
}

func (uc *ProcessMediaUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	d entity.Delivery,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	uc.saveJob(ctx, job, log)

	uc.publishDLQ(ctx, d.Body, errMsg, log)

	uc.publishStatus(ctx, job, log)

	metrics.MessagesProcessedTotal.WithLabelValues("not_found").Inc()
	return nil
}

func (uc *ProcessMediaUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	data, _ := json.Marshal(job.StatusMessage())
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

func (uc *ProcessMediaUseCase) publishDLQ(ctx context.Context, body []byte, reason string, log *zap.Logger) {
	if err := uc.dlq.PublishToDLQ(ctx, body, reason); err != nil {
		log.Error("failed to publish to dead-letter queue", zap.String("reason", reason), zap.Error(err))
	}
}
