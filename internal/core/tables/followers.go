package tables

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/steamsync/internal/core"
	db "github.com/JonMunkholm/steamsync/internal/database"
	"github.com/JonMunkholm/steamsync/internal/report"
)

func init() {
	registerSteamFollowers()
}

// Followers are a time series: no natural key, no retention.
func registerSteamFollowers() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:     core.TableFollowers,
			Label:   "Followers",
			Columns: []string{core.FollowerColumnDate, core.FollowerColumnGame, core.FollowerColumnAmount},
		},
		BuildParams: buildSteamFollowerParams,
		Insert: func(ctx context.Context, dbtx core.DBTX, params any) error {
			return db.New(dbtx).InsertSteamFollower(ctx, params.(db.InsertSteamFollowerParams))
		},
		Count: func(ctx context.Context, dbtx core.DBTX) (int64, error) {
			return db.New(dbtx).CountSteamFollowers(ctx)
		},
	})
}

func buildSteamFollowerParams(rec report.Record) (any, error) {
	takenAt := core.ToPgTimestamptz(cell(rec, core.FollowerColumnDate))
	if !takenAt.Valid {
		return nil, errMissingDate
	}
	amount := core.ToPgInt8(cell(rec, core.FollowerColumnAmount))
	if !amount.Valid {
		return nil, fmt.Errorf("invalid follower amount %q", cell(rec, core.FollowerColumnAmount))
	}

	return db.InsertSteamFollowerParams{
		Datelocal: takenAt,
		Game:      core.ToPgText(cell(rec, core.FollowerColumnGame)),
		Amount:    amount,
	}, nil
}
