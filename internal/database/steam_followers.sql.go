// source: steam_followers.sql

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countSteamFollowers = `-- name: CountSteamFollowers :one
SELECT COUNT(*) FROM steam_followers
`

func (q *Queries) CountSteamFollowers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countSteamFollowers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertSteamFollower = `-- name: InsertSteamFollower :exec
INSERT INTO steam_followers (datelocal, game, amount) VALUES ($1, $2, $3)
`

type InsertSteamFollowerParams struct {
	Datelocal pgtype.Timestamptz
	Game      pgtype.Text
	Amount    pgtype.Int8
}

func (q *Queries) InsertSteamFollower(ctx context.Context, arg InsertSteamFollowerParams) error {
	_, err := q.db.Exec(ctx, insertSteamFollower, arg.Datelocal, arg.Game, arg.Amount)
	return err
}
