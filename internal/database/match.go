// internal/database/match.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nbellerose/skirmish/internal/room"
)

// RecordMatch persists the final snapshot of a closed room: one match row,
// one row per participant and the full game log for replay. Called
// fire-and-forget by the gateway when a started room is destroyed.
func RecordMatch(ctx context.Context, closed room.ClosedRoom) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}

	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		insertMatch := `
			INSERT INTO matches (room_code, started, ended_at)
			VALUES ($1, $2, now())
			RETURNING id
		`
		var matchID int64
		if err := tx.QueryRow(ctx, insertMatch, closed.Code, closed.Started).Scan(&matchID); err != nil {
			return err
		}

		insertPlayer := `
			INSERT INTO match_players (match_id, player_id, name, life, virtual, profile)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, p := range closed.Players {
			if _, err := tx.Exec(ctx, insertPlayer, matchID, p.ID, p.Name, p.Life, p.Virtual, string(p.Profile)); err != nil {
				return err
			}
		}

		insertLog := `
			INSERT INTO match_log (match_id, idx, entry_type, message, players, ts)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, entry := range closed.Log {
			if _, err := tx.Exec(ctx, insertLog, matchID, entry.Index, entry.Type, entry.Message, entry.Players, entry.Timestamp); err != nil {
				return err
			}
		}
		return nil
	})
}
