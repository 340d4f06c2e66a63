package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/superyhee/whisper-on-aws-jumpstart/pkg/executor"
	"go.uber.org/zap"
)

// Normalizer converts video containers into mono WAV audio for transcription.
type Normalizer struct {
	binary     string
	sampleRate int
	exec       executor.Executor
	logger     *zap.Logger
}

func NewNormalizer(binary string, sampleRate int, exec executor.Executor, logger *zap.Logger) *Normalizer {
	if binary == "" {
		binary = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Normalizer{binary: binary, sampleRate: sampleRate, exec: exec, logger: logger}
}

// Normalize writes <stem>.wav next to mediaPath and returns its path.
func (n *Normalizer) Normalize(ctx context.Context, mediaPath string) (string, error) {
	audioPath := AudioPath(mediaPath)
	if audioPath == mediaPath {
		return "", fmt.Errorf("input %s is already a wav file", mediaPath)
	}

	args := n.args(mediaPath, audioPath)
	n.logger.Debug("running ffmpeg", zap.Strings("args", args))

	if _, err := n.exec.Execute(ctx, n.binary, args...); err != nil {
		return "", fmt.Errorf("ffmpeg convert %s: %w", filepath.Base(mediaPath), err)
	}

	n.logger.Info("audio extracted",
		zap.String("input", mediaPath),
		zap.String("output", audioPath),
	)
	return audioPath, nil
}

func (n *Normalizer) args(in, out string) []string {
	return []string{
		"-i", in,
		"-vn",
		"-ar", strconv.Itoa(n.sampleRate),
		"-ac", "1",
		"-f", "wav",
		"-y",
		out,
	}
}

func AudioPath(mediaPath string) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".wav"
}
