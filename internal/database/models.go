package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type SteamFollower struct {
	Datelocal pgtype.Timestamptz
	Game      pgtype.Text
	Amount    pgtype.Int8
}

type SteamSold struct {
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

type SteamWishlist struct {
	Datelocal               pgtype.Date
	Game                    pgtype.Text
	Adds                    pgtype.Int8
	Deletes                 pgtype.Int8
	PurchasesAndActivations pgtype.Int8
	Gifts                   pgtype.Int8
}
