package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives finished games, settlements and rating rows in
// postgres. Redis stays authoritative; this is the durable history.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Migrate creates the archive tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tabla_games (
			game_id UUID PRIMARY KEY,
			player_a TEXT NOT NULL,
			player_b TEXT NOT NULL,
			winner TEXT NOT NULL,
			stake BIGINT NOT NULL,
			off_a SMALLINT NOT NULL,
			off_b SMALLINT NOT NULL,
			final_board JSONB NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tabla_settlements (
			game_id UUID PRIMARY KEY REFERENCES tabla_games(game_id),
			winner TEXT NOT NULL,
			pot BIGINT NOT NULL,
			payout BIGINT NOT NULL,
			fee BIGINT NOT NULL,
			claimed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS player_ratings (
			player TEXT PRIMARY KEY,
			elo INT NOT NULL DEFAULT 1200,
			games_played INT NOT NULL DEFAULT 0,
			games_won INT NOT NULL DEFAULT 0,
			total_winnings BIGINT NOT NULL DEFAULT 0
		)`,
	}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveResult upserts a finished game into the archive.
func (r *Repository) SaveResult(ctx context.Context, g *Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}

	board, err := json.Marshal(g.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	ended := g.EndedAt
	if ended.IsZero() {
		ended = g.UpdatedAt
	}
	duration := ended.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO tabla_games (
		game_id, player_a, player_b, winner, stake,
		off_a, off_b, final_board, started_at, ended_at, duration_ms
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::jsonb,$9,$10,$11)
	  ON CONFLICT (game_id) DO UPDATE SET
		winner=EXCLUDED.winner,
		off_a=EXCLUDED.off_a,
		off_b=EXCLUDED.off_b,
		final_board=EXCLUDED.final_board,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		g.ID, g.PlayerA, g.PlayerB, g.Winner, g.Stake,
		g.OffA, g.OffB, string(board), g.CreatedAt, ended, duration,
	)
	return err
}

// SaveSettlement records how a claimed pot was split.
func (r *Repository) SaveSettlement(ctx context.Context, s *Settlement) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}
	const q = `INSERT INTO tabla_settlements (game_id, winner, pot, payout, fee, claimed_at)
	  VALUES ($1,$2,$3,$4,$5,$6)
	  ON CONFLICT (game_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, s.GameID, s.Winner, s.Pot, s.Payout, s.Fee, s.ClaimedAt)
	return err
}

// UpsertRating bumps a player's record after a finished game. The elo value
// stays at its default; no algorithm consumes it yet.
func (r *Repository) UpsertRating(ctx context.Context, player string, won bool, winnings int64) error {
	if r == nil || r.db == nil {
		return nil
	}
	wonN := 0
	if won {
		wonN = 1
	}
	const q = `INSERT INTO player_ratings (player, elo, games_played, games_won, total_winnings)
	  VALUES ($1, $2, 1, $3, $4)
	  ON CONFLICT (player) DO UPDATE SET
		games_played = player_ratings.games_played + 1,
		games_won = player_ratings.games_won + EXCLUDED.games_won,
		total_winnings = player_ratings.total_winnings + EXCLUDED.total_winnings`
	_, err := r.db.ExecContext(ctx, q, player, InitialElo, wonN, winnings)
	return err
}

// GetRating reads one player's record, or nil when absent.
func (r *Repository) GetRating(ctx context.Context, player string) (*PlayerRating, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	const q = `SELECT player, elo, games_played, games_won, total_winnings
	  FROM player_ratings WHERE player = $1`
	var pr PlayerRating
	err := r.db.QueryRowContext(ctx, q, player).Scan(
		&pr.Player, &pr.Elo, &pr.GamesPlayed, &pr.GamesWon, &pr.TotalWinnings,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select rating: %w", err)
	}
	return &pr, nil
}
