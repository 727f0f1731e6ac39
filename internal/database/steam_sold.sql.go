// source: steam_sold.sql

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countSteamSold = `-- name: CountSteamSold :one
SELECT COUNT(*) FROM steam_sold
`

func (q *Queries) CountSteamSold(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countSteamSold)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertSteamSold = `-- name: InsertSteamSold :exec
INSERT INTO steam_sold (
    date, bundle_id, bundle_name, product_id, product_name, type, game, plateform, country_code, country,
    region, gross_units_sold, chargebacks_returns, net_units_sold, base_price, sale_price, currency,
    gross_steam_sale_usd, chargebacks_returns_usd, vat_usd, net_steam_sale_usd, tag
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
    $11, $12, $13, $14, $15, $16, $17,
    $18, $19, $20, $21, $22
)
`

type InsertSteamSoldParams struct {
	Date                  pgtype.Date
	BundleID              pgtype.Int8
	BundleName            pgtype.Text
	ProductID             pgtype.Int8
	ProductName           pgtype.Text
	Type                  pgtype.Text
	Game                  pgtype.Text
	Plateform             pgtype.Text
	CountryCode           pgtype.Text
	Country               pgtype.Text
	Region                pgtype.Text
	GrossUnitsSold        pgtype.Int8
	ChargebacksReturns    pgtype.Int8
	NetUnitsSold          pgtype.Int8
	BasePrice             pgtype.Numeric
	SalePrice             pgtype.Numeric
	Currency              pgtype.Text
	GrossSteamSaleUsd     pgtype.Numeric
	ChargebacksReturnsUsd pgtype.Numeric
	VatUsd                pgtype.Numeric
	NetSteamSaleUsd       pgtype.Numeric
	Tag                   pgtype.Text
}

func (q *Queries) InsertSteamSold(ctx context.Context, arg InsertSteamSoldParams) error {
	_, err := q.db.Exec(ctx, insertSteamSold,
		arg.Date,
		arg.BundleID,
		arg.BundleName,
		arg.ProductID,
		arg.ProductName,
		arg.Type,
		arg.Game,
		arg.Plateform,
		arg.CountryCode,
		arg.Country,
		arg.Region,
		arg.GrossUnitsSold,
		arg.ChargebacksReturns,
		arg.NetUnitsSold,
		arg.BasePrice,
		arg.SalePrice,
		arg.Currency,
		arg.GrossSteamSaleUsd,
		arg.ChargebacksReturnsUsd,
		arg.VatUsd,
		arg.NetSteamSaleUsd,
		arg.Tag,
	)
	return err
}

const listSteamSoldKeys = `-- name: ListSteamSoldKeys :many
SELECT bundle_id, product_id, date, country_code, type,
       gross_units_sold, net_units_sold, gross_steam_sale_usd, net_steam_sale_usd
FROM steam_sold
`

type ListSteamSoldKeysRow struct {
	BundleID          pgtype.Int8
	ProductID         pgtype.Int8
	Date              pgtype.Date
	CountryCode       pgtype.Text
	Type              pgtype.Text
	GrossUnitsSold    pgtype.Int8
	NetUnitsSold      pgtype.Int8
	GrossSteamSaleUsd pgtype.Numeric
	NetSteamSaleUsd   pgtype.Numeric
}

func (q *Queries) ListSteamSoldKeys(ctx context.Context) ([]ListSteamSoldKeysRow, error) {
	rows, err := q.db.Query(ctx, listSteamSoldKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListSteamSoldKeysRow
	for rows.Next() {
		var i ListSteamSoldKeysRow
		if err := rows.Scan(
			&i.BundleID,
			&i.ProductID,
			&i.Date,
			&i.CountryCode,
			&i.Type,
			&i.GrossUnitsSold,
			&i.NetUnitsSold,
			&i.GrossSteamSaleUsd,
			&i.NetSteamSaleUsd,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const maxSteamSoldDate = `-- name: MaxSteamSoldDate :one
SELECT MAX(date)::date FROM steam_sold
`

func (q *Queries) MaxSteamSoldDate(ctx context.Context) (pgtype.Date, error) {
	row := q.db.QueryRow(ctx, maxSteamSoldDate)
	var column_1 pgtype.Date
	err := row.Scan(&column_1)
	return column_1, err
}

const purgeSteamSoldBefore = `-- name: PurgeSteamSoldBefore :execrows
DELETE FROM steam_sold WHERE date < $1
`

func (q *Queries) PurgeSteamSoldBefore(ctx context.Context, date pgtype.Date) (int64, error) {
	result, err := q.db.Exec(ctx, purgeSteamSoldBefore, date)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
