package extraction

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"audio_extraction/internal/telemetry/metric"
	"audio_extraction/pkg/logger"
)

// ArtifactSweeper removes audio files that have outlived their TTL from the output directory.
type ArtifactSweeper struct {
	dir      string
	ttl      time.Duration
	interval time.Duration
	metrics  *metric.Metrics
	l        logger.Interface
	now      func() time.Time
}

func NewArtifactSweeper(dir string, ttl, interval time.Duration, m *metric.Metrics, l logger.Interface) *ArtifactSweeper {
	return &ArtifactSweeper{
		dir:      dir,
		ttl:      ttl,
		interval: interval,
		metrics:  m,
		l:        l,
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is done. A zero TTL or interval disables it.
func (s *ArtifactSweeper) Run(ctx context.Context) {
	if s.ttl <= 0 || s.interval <= 0 {
		s.l.Info("artifact sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.l.Error(err, "extraction - sweep artifacts")
			}
		}
	}
}

// Sweep removes regular files older than the TTL and returns how many were removed.
func (s *ArtifactSweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", s.dir)
	}

	cutoff := s.now().Add(-s.ttl)
	removed := 0

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.l.Error(err, "extraction - remove expired artifact %s", path)
			continue
		}
		s.l.Debug("Removed expired artifact: %s", path)
		removed++
	}

	if removed > 0 {
		s.l.Info("Removed %d expired artifacts from %s", removed, s.dir)
	}
	s.metrics.ArtifactsSwept(removed)

	return removed, nil
}
