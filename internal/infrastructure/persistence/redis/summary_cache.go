package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// SummaryCache caches consolidated absence summaries per (stream, period,
// day). Consolidation scans every subject partition of the cohort, so the
// cache saves a full fan-out when the same day is consolidated repeatedly
// (preview, then dispatch). A nil *SummaryCache is valid and behaves as a
// permanent miss.
type SummaryCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewSummaryCache creates a SummaryCache with the default TTL.
func NewSummaryCache(cache *Cache) *SummaryCache {
	return &SummaryCache{cache: cache, ttl: TTLSummary}
}

func summaryKey(stream shared.Stream, period shared.Period, day shared.Day) string {
	return fmt.Sprintf("%s%s:%d:%s", PrefixSummary, stream.Normalized(), int(period), day)
}

// Get returns the cached summaries, or (nil, false) on a miss.
func (c *SummaryCache) Get(ctx context.Context, stream shared.Stream, period shared.Period, day shared.Day) ([]attendance.AbsenceSummary, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}

	var summaries []attendance.AbsenceSummary
	err := c.cache.Get(ctx, summaryKey(stream, period, day), &summaries)
	if err != nil {
		return nil, false
	}
	return summaries, true
}

// Set stores the summaries for one (stream, period, day) scope.
func (c *SummaryCache) Set(ctx context.Context, stream shared.Stream, period shared.Period, day shared.Day, summaries []attendance.AbsenceSummary) error {
	if c == nil || c.cache == nil {
		return nil
	}
	return c.cache.Set(ctx, summaryKey(stream, period, day), summaries, c.ttl)
}

// Invalidate drops the cached summaries after an attendance write.
func (c *SummaryCache) Invalidate(ctx context.Context, stream shared.Stream, period shared.Period, day shared.Day) error {
	if c == nil || c.cache == nil {
		return nil
	}
	err := c.cache.Delete(ctx, summaryKey(stream, period, day))
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return err
	}
	return nil
}
