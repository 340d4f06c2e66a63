package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/port"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/metrics"
)

const bytesPerMB = 1024 * 1024

type LeaseConfig struct {
	SecondsPerMB float64
	Min          time.Duration
	Max          time.Duration
	// QueueVisibility is the queue's default visibility timeout, the lease
	// every delivery starts with. Extensions never go below it.
	QueueVisibility time.Duration
}

// LeaseManager sizes the visibility timeout of a delivery to the expected
// transcription time. It issues one upfront extension per delivery.
type LeaseManager struct {
	extender     port.VisibilityExtender
	secondsPerMB float64
	floor        time.Duration
	max          time.Duration
}

func NewLeaseManager(extender port.VisibilityExtender, cfg LeaseConfig) *LeaseManager {
	floor := cfg.Min
	if cfg.QueueVisibility > floor {
		floor = cfg.QueueVisibility
	}
	return &LeaseManager{
		extender:     extender,
		secondsPerMB: cfg.SecondsPerMB,
		floor:        floor,
		max:          cfg.Max,
	}
}

// Estimate returns the lease needed for sizeBytes of audio, linear in size and
// truncated to whole seconds.
func (m *LeaseManager) Estimate(sizeBytes int64) time.Duration {
	if sizeBytes <= 0 {
		return 0
	}
	secs := float64(sizeBytes) / bytesPerMB * m.secondsPerMB
	return time.Duration(secs * float64(time.Second)).Truncate(time.Second)
}

// Extend requests the estimated lease for the delivery and returns what was
// requested. The estimate is capped at Max but never drops below Min or the
// queue's default visibility; the floor wins over the cap.
func (m *LeaseManager) Extend(ctx context.Context, receiptHandle string, sizeBytes int64) (time.Duration, error) {
	lease := m.Estimate(sizeBytes)
	if m.max > 0 && lease > m.max {
		lease = m.max
	}
	if lease < m.floor {
		lease = m.floor
	}

	if err := m.extender.ExtendVisibility(ctx, receiptHandle, lease); err != nil {
		return 0, fmt.Errorf("extend visibility to %s: %w", lease, err)
	}
	metrics.LeaseGrantedSeconds.Observe(lease.Seconds())
	return lease, nil
}
