// Package leaderboard keeps the most recent top-players list and serves the
// analytics summary on demand.
package leaderboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/connect4-client/internal/c4fast"
)

// Source fetches the ordered leaderboard.
type Source interface {
	GetLeaderboard(ctx context.Context) ([]c4fast.LeaderboardEntry, error)
}

// StatsSource fetches the analytics summary.
type StatsSource interface {
	GetStats(ctx context.Context) (*c4fast.Stats, error)
}

var ErrNoAnalytics = errors.New("analytics endpoint not configured")

type Service struct {
	source    Source
	analytics StatsSource
	logger    *zap.Logger

	mu        sync.RWMutex
	entries   []c4fast.LeaderboardEntry
	refreshed time.Time
}

// NewService wires the REST sources. analytics may be nil.
func NewService(source Source, analytics StatsSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:    source,
		analytics: analytics,
		logger:    logger,
		entries:   []c4fast.LeaderboardEntry{},
	}
}

// Refresh replaces the entries with a fresh fetch. On failure the previous
// entries are kept and the error is returned after logging.
func (s *Service) Refresh(ctx context.Context) error {
	entries, err := s.source.GetLeaderboard(ctx)
	if err != nil {
		s.logger.Warn("leaderboard_fetch_failed", zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.entries = entries
	s.refreshed = time.Now()
	s.mu.Unlock()
	s.logger.Debug("leaderboard_refreshed", zap.Int("entries", len(entries)))
	return nil
}

// Entries returns a copy of the last fetched list, in server order.
func (s *Service) Entries() []c4fast.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]c4fast.LeaderboardEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// RefreshedAt is zero until the first successful Refresh.
func (s *Service) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshed
}

// Rank returns the 1-based position of username, or 0 when absent.
func (s *Service) Rank(username string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, e := range s.entries {
		if e.Username == username {
			return i + 1
		}
	}
	return 0
}

func (s *Service) Stats(ctx context.Context) (*c4fast.Stats, error) {
	if s.analytics == nil {
		return nil, ErrNoAnalytics
	}
	st, err := s.analytics.GetStats(ctx)
	if err != nil {
		s.logger.Warn("stats_fetch_failed", zap.Error(err))
		return nil, err
	}
	return st, nil
}
