package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
	"github.com/superyhee/whisper-on-aws-jumpstart/pkg/executor"
	"go.uber.org/zap"
)

type Config struct {
	Binary   string
	Device   string
	Language string
}

// Transcriber runs the whisper CLI and reads back its JSON output.
type Transcriber struct {
	cfg    Config
	exec   executor.Executor
	logger *zap.Logger
}

func NewTranscriber(cfg Config, exec executor.Executor, logger *zap.Logger) *Transcriber {
	if cfg.Binary == "" {
		cfg.Binary = "whisper"
	}
	return &Transcriber{cfg: cfg, exec: exec, logger: logger}
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, model entity.ModelSize) (*entity.Transcript, error) {
	outDir := filepath.Join(filepath.Dir(audioPath), "transcript")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	args := t.args(audioPath, outDir, model)
	t.logger.Debug("running whisper", zap.Strings("args", args))

	if _, err := t.exec.Execute(ctx, t.cfg.Binary, args...); err != nil {
		return nil, fmt.Errorf("whisper transcribe: %w", err)
	}

	return readTranscript(OutputPath(audioPath, outDir))
}

func (t *Transcriber) args(audioPath, outDir string, model entity.ModelSize) []string {
	args := []string{
		audioPath,
		"--model", string(model),
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if t.cfg.Language != "" {
		args = append(args, "--language", t.cfg.Language)
	}
	if t.cfg.Device != "" {
		args = append(args, "--device", t.cfg.Device)
	}
	return args
}

// OutputPath is where whisper writes the JSON result for audioPath.
func OutputPath(audioPath, outDir string) string {
	base := filepath.Base(audioPath)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".json")
}

func readTranscript(path string) (*entity.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	tr, err := entity.ParseTranscript(data)
	if err != nil {
		return nil, fmt.Errorf("decode whisper output: %w", err)
	}
	return tr, nil
}
