package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/connect4-client/internal/board"
)

const schema = `
CREATE TABLE IF NOT EXISTS c4_matches (
	match_id     TEXT        NOT NULL,
	username     TEXT        NOT NULL,
	local_player SMALLINT    NOT NULL,
	opponent     TEXT        NOT NULL,
	winner       TEXT        NOT NULL,
	reason       TEXT        NOT NULL DEFAULT '',
	won          BOOLEAN     NOT NULL,
	final_board  JSONB       NOT NULL,
	move_count   INTEGER     NOT NULL,
	started_at   TIMESTAMPTZ,
	ended_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (username, match_id)
);
CREATE INDEX IF NOT EXISTS c4_matches_user_ended ON c4_matches (username, ended_at DESC);`

// PostgresStore writes one row per (username, match_id).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// OpenPostgres connects with lib/pq and creates the table when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate c4_matches: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec MatchRecord) error {
	grid, err := json.Marshal(rec.FinalBoard.Grid())
	if err != nil {
		return fmt.Errorf("marshal final_board: %w", err)
	}

	const query = `
		INSERT INTO c4_matches (
			match_id,
			username,
			local_player,
			opponent,
			winner,
			reason,
			won,
			final_board,
			move_count,
			started_at,
			ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11)
		ON CONFLICT (username, match_id) DO NOTHING`

	var started sql.NullTime
	if !rec.StartedAt.IsZero() {
		started = sql.NullTime{Time: rec.StartedAt, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, query,
		rec.MatchID,
		rec.Username,
		rec.LocalPlayer,
		rec.Opponent,
		rec.Winner,
		rec.Reason,
		rec.Won,
		grid,
		rec.MoveCount,
		started,
		rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateMatch
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, username string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT
			match_id,
			username,
			local_player,
			opponent,
			winner,
			reason,
			won,
			final_board,
			move_count,
			started_at,
			ended_at
		FROM c4_matches
		WHERE username = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()

	out := make([]MatchRecord, 0, limit)
	for rows.Next() {
		var (
			rec       MatchRecord
			gridJSON  []byte
			startedAt sql.NullTime
		)
		if err := rows.Scan(
			&rec.MatchID,
			&rec.Username,
			&rec.LocalPlayer,
			&rec.Opponent,
			&rec.Winner,
			&rec.Reason,
			&rec.Won,
			&gridJSON,
			&rec.MoveCount,
			&startedAt,
			&rec.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if startedAt.Valid {
			rec.StartedAt = startedAt.Time
		}
		var grid [][]int
		if err := json.Unmarshal(gridJSON, &grid); err != nil {
			return nil, fmt.Errorf("unmarshal final_board: %w", err)
		}
		if rec.FinalBoard, err = board.FromRows(grid); err != nil {
			return nil, fmt.Errorf("final_board: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
