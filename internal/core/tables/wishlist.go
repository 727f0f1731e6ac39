package tables

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/steamsync/internal/core"
	db "github.com/JonMunkholm/steamsync/internal/database"
	"github.com/JonMunkholm/steamsync/internal/report"
)

// Wishlist report header names.
const (
	WishlistDateLocal               = "DateLocal"
	WishlistGame                    = "Game"
	WishlistAdds                    = "Adds"
	WishlistDeletes                 = "Deletes"
	WishlistPurchasesAndActivations = "PurchasesAndActivations"
	WishlistGifts                   = "Gifts"
)

func init() {
	registerSteamWishlists()
}

// The natural key is date and game only. A changed count for a day already
// stored is not re-ingested.
func registerSteamWishlists() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   core.TableWishlists,
			Label: "Wishlists",
			Columns: []string{
				WishlistDateLocal, WishlistGame, WishlistAdds, WishlistDeletes,
				WishlistPurchasesAndActivations, WishlistGifts,
			},
			UniqueKey: []string{WishlistDateLocal, WishlistGame},
		},
		BuildParams: buildSteamWishlistParams,
		Insert: func(ctx context.Context, dbtx core.DBTX, params any) error {
			return db.New(dbtx).InsertSteamWishlist(ctx, params.(db.InsertSteamWishlistParams))
		},
		Count: func(ctx context.Context, dbtx core.DBTX) (int64, error) {
			return db.New(dbtx).CountSteamWishlists(ctx)
		},
		Key: func(params any) string {
			p := params.(db.InsertSteamWishlistParams)
			return wishlistKey(p.Datelocal, p.Game)
		},
		ListKeys: func(ctx context.Context, dbtx core.DBTX) ([]string, error) {
			rows, err := db.New(dbtx).ListSteamWishlistKeys(ctx)
			if err != nil {
				return nil, err
			}
			keys := make([]string, len(rows))
			for i, r := range rows {
				keys[i] = wishlistKey(r.Datelocal, r.Game)
			}
			return keys, nil
		},
	})
}

func buildSteamWishlistParams(rec report.Record) (any, error) {
	date := core.ToPgDate(cell(rec, WishlistDateLocal))
	if !date.Valid {
		return nil, errMissingDate
	}

	return db.InsertSteamWishlistParams{
		Datelocal:               date,
		Game:                    core.ToPgText(cell(rec, WishlistGame)),
		Adds:                    core.ToPgInt8(cell(rec, WishlistAdds)),
		Deletes:                 core.ToPgInt8(cell(rec, WishlistDeletes)),
		PurchasesAndActivations: core.ToPgInt8(cell(rec, WishlistPurchasesAndActivations)),
		Gifts:                   core.ToPgInt8(cell(rec, WishlistGifts)),
	}, nil
}

func wishlistKey(date pgtype.Date, game pgtype.Text) string {
	return core.JoinKey(core.DateKey(date), core.TextKey(game))
}
