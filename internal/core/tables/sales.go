package tables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/steamsync/internal/core"
	db "github.com/JonMunkholm/steamsync/internal/database"
	"github.com/JonMunkholm/steamsync/internal/report"
)

// Sales report header names.
const (
	SalesDate                  = "Date"
	SalesBundleID              = "Bundle(ID#)"
	SalesBundleName            = "Bundle Name"
	SalesProductID             = "Product(ID#)"
	SalesProductName           = "Product Name"
	SalesType                  = "Type"
	SalesGame                  = "Game"
	SalesPlatform              = "Platform"
	SalesCountryCode           = "Country Code"
	SalesCountry               = "Country"
	SalesRegion                = "Region"
	SalesGrossUnitsSold        = "Gross Units Sold"
	SalesChargebacksReturns    = "Chargebacks/Returns"
	SalesNetUnitsSold          = "Net Units Sold"
	SalesBasePrice             = "Base Price"
	SalesSalePrice             = "Sale Price"
	SalesCurrency              = "Currency"
	SalesGrossSteamSalesUSD    = "Gross Steam Sales (USD)"
	SalesChargebacksReturnsUSD = "Chargeback/Returns (USD)"
	SalesVATUSD                = "VAT (USD)"
	SalesNetSteamSalesUSD      = "Net Steam Sales (USD)"
	SalesTag                   = "Tag"
)

var errMissingDate = errors.New("missing or invalid date")

func init() {
	registerSteamSold()
}

func registerSteamSold() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   core.TableSales,
			Label: "Sales",
			Columns: []string{
				SalesDate, SalesBundleID, SalesBundleName, SalesProductID, SalesProductName,
				SalesType, SalesGame, SalesPlatform, SalesCountryCode, SalesCountry, SalesRegion,
				SalesGrossUnitsSold, SalesChargebacksReturns, SalesNetUnitsSold,
				SalesBasePrice, SalesSalePrice, SalesCurrency,
				SalesGrossSteamSalesUSD, SalesChargebacksReturnsUSD, SalesVATUSD, SalesNetSteamSalesUSD,
				SalesTag,
			},
			UniqueKey: []string{
				SalesBundleID, SalesProductID, SalesDate, SalesCountryCode, SalesType,
				SalesGrossUnitsSold, SalesNetUnitsSold, SalesGrossSteamSalesUSD, SalesNetSteamSalesUSD,
			},
		},
		BuildParams: buildSteamSoldParams,
		Insert: func(ctx context.Context, dbtx core.DBTX, params any) error {
			return db.New(dbtx).InsertSteamSold(ctx, params.(db.InsertSteamSoldParams))
		},
		Count: func(ctx context.Context, dbtx core.DBTX) (int64, error) {
			return db.New(dbtx).CountSteamSold(ctx)
		},
		Key: func(params any) string {
			p := params.(db.InsertSteamSoldParams)
			return salesKey(p.BundleID, p.ProductID, p.Date, p.CountryCode, p.Type,
				p.GrossUnitsSold, p.NetUnitsSold, p.GrossSteamSaleUsd, p.NetSteamSaleUsd)
		},
		ListKeys: func(ctx context.Context, dbtx core.DBTX) ([]string, error) {
			rows, err := db.New(dbtx).ListSteamSoldKeys(ctx)
			if err != nil {
				return nil, err
			}
			keys := make([]string, len(rows))
			for i, r := range rows {
				keys[i] = salesKey(r.BundleID, r.ProductID, r.Date, r.CountryCode, r.Type,
					r.GrossUnitsSold, r.NetUnitsSold, r.GrossSteamSaleUsd, r.NetSteamSaleUsd)
			}
			return keys, nil
		},
		RowDate: func(params any) pgtype.Date {
			return params.(db.InsertSteamSoldParams).Date
		},
		MaxDate: func(ctx context.Context, dbtx core.DBTX) (pgtype.Date, error) {
			return db.New(dbtx).MaxSteamSoldDate(ctx)
		},
		Purge: func(ctx context.Context, dbtx core.DBTX, cutoff pgtype.Date) (int64, error) {
			return db.New(dbtx).PurgeSteamSoldBefore(ctx, cutoff)
		},
	})
}

func buildSteamSoldParams(rec report.Record) (any, error) {
	date := core.ToPgDate(cell(rec, SalesDate))
	if !date.Valid {
		return nil, errMissingDate
	}

	return db.InsertSteamSoldParams{
		Date:                  date,
		BundleID:              core.ToPgInt8(cell(rec, SalesBundleID)),
		BundleName:            core.ToPgText(cell(rec, SalesBundleName)),
		ProductID:             core.ToPgInt8(cell(rec, SalesProductID)),
		ProductName:           core.ToPgText(cell(rec, SalesProductName)),
		Type:                  core.ToPgText(cell(rec, SalesType)),
		Game:                  core.ToPgText(cell(rec, SalesGame)),
		Plateform:             core.ToPgText(cell(rec, SalesPlatform)),
		CountryCode:           core.ToPgText(cell(rec, SalesCountryCode)),
		Country:               core.ToPgText(cell(rec, SalesCountry)),
		Region:                core.ToPgText(cell(rec, SalesRegion)),
		GrossUnitsSold:        core.ToPgInt8(cell(rec, SalesGrossUnitsSold)),
		ChargebacksReturns:    core.ToPgInt8(cell(rec, SalesChargebacksReturns)),
		NetUnitsSold:          core.ToPgInt8(cell(rec, SalesNetUnitsSold)),
		BasePrice:             core.ToPgNumeric(cell(rec, SalesBasePrice)),
		SalePrice:             core.ToPgNumeric(cell(rec, SalesSalePrice)),
		Currency:              core.ToPgText(cell(rec, SalesCurrency)),
		GrossSteamSaleUsd:     core.ToPgNumeric(cell(rec, SalesGrossSteamSalesUSD)),
		ChargebacksReturnsUsd: core.ToPgNumeric(cell(rec, SalesChargebacksReturnsUSD)),
		VatUsd:                core.ToPgNumeric(cell(rec, SalesVATUSD)),
		NetSteamSaleUsd:       core.ToPgNumeric(cell(rec, SalesNetSteamSalesUSD)),
		Tag:                   core.ToPgText(cell(rec, SalesTag)),
	}, nil
}

// salesKey is the natural key of a sales row. Report rows and stored rows go
// through the same function.
func salesKey(
	bundleID, productID pgtype.Int8,
	date pgtype.Date,
	countryCode, typ pgtype.Text,
	grossUnits, netUnits pgtype.Int8,
	grossUSD, netUSD pgtype.Numeric,
) string {
	return core.JoinKey(
		core.Int8Key(bundleID),
		core.Int8Key(productID),
		core.DateKey(date),
		core.TextKey(countryCode),
		core.TextKey(typ),
		core.Int8Key(grossUnits),
		core.Int8Key(netUnits),
		core.NumericKey(grossUSD),
		core.NumericKey(netUSD),
	)
}
