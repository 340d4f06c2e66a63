package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/config"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/ffmpeg"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/gemini"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/metrics"
	miniostorage "github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/minio"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/postgres"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/rabbitmq"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/sqs"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/tracing"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/whisper"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/usecase"
	"github.com/superyhee/whisper-on-aws-jumpstart/pkg/executor"
	"github.com/superyhee/whisper-on-aws-jumpstart/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting whisper transcription worker", zap.String("queue_url", cfg.SQSQueueURL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, tracing.Config{
		Endpoint:    cfg.TraceEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
		Version:     cfg.Version,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// Object store
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Region:    cfg.AWSRegion,
		UseSSL:    cfg.MinIOUseSSL,
	})
	fatalOnErr(err, "create object storage")

	// RabbitMQ status and dead-letter publishing
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	fatalOnErr(pub.DeclareQueue(rmqConn, cfg.RabbitMQStatusQ, cfg.RabbitMQStatusKey), "declare status queue")
	fatalOnErr(pub.DeclareQueue(rmqConn, cfg.RabbitMQDLQ, ""), "declare dead-letter queue")

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusKey)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Queue
	sqsClient, err := sqs.NewClient(ctx, cfg.AWSRegion, cfg.SQSEndpoint)
	fatalOnErr(err, "create sqs client")
	queue := sqs.NewQueue(sqsClient, cfg.SQSQueueURL)

	// External tools and services
	exec := executor.New()
	normalizer := ffmpeg.NewNormalizer(cfg.FFmpegBinary, cfg.FFmpegSampleRate, exec, log)
	transcriber := whisper.NewTranscriber(whisper.Config{
		Binary:   cfg.WhisperBinary,
		Device:   cfg.WhisperDevice,
		Language: cfg.WhisperLanguage,
	}, exec, log)
	summarizer, err := gemini.NewSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	fatalOnErr(err, "create summarizer")

	queueVisibility, err := queue.VisibilityTimeout(ctx)
	if err != nil {
		log.Warn("could not read queue visibility timeout, using LEASE_MIN_SECONDS as the lease floor", zap.Error(err))
	}

	// Use case
	lease := usecase.NewLeaseManager(queue, usecase.LeaseConfig{
		SecondsPerMB:    cfg.LeaseSecondsPerMB,
		Min:             cfg.LeaseMin(),
		Max:             cfg.LeaseMax(),
		QueueVisibility: queueVisibility,
	})
	uc := usecase.NewProcessMediaUseCase(
		postgres.NewJobRepository(pool), storage,
		normalizer, transcriber, summarizer, lease,
		statusPub, dlqPub,
		log,
		usecase.ProcessMediaConfig{
			TempDir:          cfg.TempDir,
			DefaultModelSize: entity.ModelSize(cfg.DefaultModelSize),
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, pool.Ping, log)

	consumer := sqs.NewConsumer(queue, sqs.ConsumerConfig{
		MaxMessages:     cfg.SQSMaxMessages,
		WaitTimeSeconds: cfg.SQSWaitTimeSeconds,
		WorkerCount:     cfg.WorkerCount,
	}, uc.Execute, log)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("whisper transcription worker started, polling queue")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("whisper transcription worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
