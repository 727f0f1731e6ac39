// source: steam_wishlists.sql

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countSteamWishlists = `-- name: CountSteamWishlists :one
SELECT COUNT(*) FROM steam_wishlists
`

func (q *Queries) CountSteamWishlists(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countSteamWishlists)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertSteamWishlist = `-- name: InsertSteamWishlist :exec
INSERT INTO steam_wishlists (datelocal, game, adds, deletes, purchases_and_activations, gifts)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertSteamWishlistParams struct {
	Datelocal               pgtype.Date
	Game                    pgtype.Text
	Adds                    pgtype.Int8
	Deletes                 pgtype.Int8
	PurchasesAndActivations pgtype.Int8
	Gifts                   pgtype.Int8
}

func (q *Queries) InsertSteamWishlist(ctx context.Context, arg InsertSteamWishlistParams) error {
	_, err := q.db.Exec(ctx, insertSteamWishlist,
		arg.Datelocal,
		arg.Game,
		arg.Adds,
		arg.Deletes,
		arg.PurchasesAndActivations,
		arg.Gifts,
	)
	return err
}

const listSteamWishlistKeys = `-- name: ListSteamWishlistKeys :many
SELECT datelocal, game FROM steam_wishlists
`

type ListSteamWishlistKeysRow struct {
	Datelocal pgtype.Date
	Game      pgtype.Text
}

func (q *Queries) ListSteamWishlistKeys(ctx context.Context) ([]ListSteamWishlistKeysRow, error) {
	rows, err := q.db.Query(ctx, listSteamWishlistKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListSteamWishlistKeysRow
	for rows.Next() {
		var i ListSteamWishlistKeysRow
		if err := rows.Scan(&i.Datelocal, &i.Game); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
