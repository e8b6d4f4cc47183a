// Package history persists finished matches for the local player.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/connect4-client/internal/board"
	"github.com/park285/connect4-client/internal/session"
)

var (
	ErrDuplicateMatch = errors.New("match already recorded")
	ErrNotFinished    = errors.New("match has no winner yet")
)

// MatchRecord is one finished match seen from Username's side.
type MatchRecord struct {
	MatchID     string      `json:"matchId"`
	Username    string      `json:"username"`
	LocalPlayer int         `json:"localPlayer"`
	Opponent    string      `json:"opponent"`
	Winner      string      `json:"winner"`
	Reason      string      `json:"reason,omitempty"`
	Won         bool        `json:"won"`
	FinalBoard  board.Board `json:"board"`
	MoveCount   int         `json:"moves"`
	StartedAt   time.Time   `json:"startedAt"`
	EndedAt     time.Time   `json:"endedAt"`
}

// Duration is zero when the start time is unknown.
func (r MatchRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// FromSnapshot builds a record from a session that reached OVER.
func FromSnapshot(s session.Snapshot) (MatchRecord, error) {
	if s.Winner == nil {
		return MatchRecord{}, ErrNotFinished
	}
	return MatchRecord{
		MatchID:     s.MatchID,
		Username:    s.Username,
		LocalPlayer: s.LocalPlayer,
		Opponent:    s.Opponent(),
		Winner:      *s.Winner,
		Reason:      s.EndReason,
		Won:         s.Won(),
		FinalBoard:  s.Board,
		MoveCount:   s.MoveCount,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
	}, nil
}

// Store is implemented by the memory, Redis and Postgres backends.
type Store interface {
	Save(ctx context.Context, rec MatchRecord) error
	// Recent returns the newest records for username first.
	Recent(ctx context.Context, username string, limit int) ([]MatchRecord, error)
	Close() error
}

// Recorder adapts a Store to the match manager's finished-match hook.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder { return &Recorder{store: store} }

func (r *Recorder) Record(ctx context.Context, snap session.Snapshot) error {
	rec, err := FromSnapshot(snap)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateMatch) {
			return nil
		}
		return fmt.Errorf("save match %s: %w", rec.MatchID, err)
	}
	return nil
}
