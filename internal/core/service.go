package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/steamsync/internal/config"
	"github.com/JonMunkholm/steamsync/internal/logging"
	"github.com/JonMunkholm/steamsync/internal/report"
	"github.com/JonMunkholm/steamsync/internal/steam"
)

// DefaultRetentionDays is the trailing window of sales rows kept.
const DefaultRetentionDays = 35

// Columns of the one-row record built for each follower count.
const (
	FollowerColumnDate   = "Date"
	FollowerColumnGame   = "Game"
	FollowerColumnAmount = "Amount"
)

// Task names, in run order.
const (
	TaskSales     = "sales"
	TaskWishlists = "wishlists"
	TaskFollowers = "followers"
)

// Fetcher retrieves remote payloads. *steam.Client satisfies it.
type Fetcher interface {
	FetchReport(ctx context.Context, req steam.ReportRequest) (string, error)
	FetchFollowers(ctx context.Context, appID int64) (int64, error)
}

// Options configures a Service.
type Options struct {
	// CookieFormat is the Cookie header template, see steam.CookieFor.
	CookieFormat string

	// RetentionDays bounds the sales table (default: DefaultRetentionDays).
	RetentionDays int

	// Now is the clock used for follower timestamps (default: time.Now).
	Now func() time.Time
}

// Service syncs the remote reports into storage.
type Service struct {
	store         Store
	fetcher       Fetcher
	cookieFormat  string
	retentionDays int
	now           func() time.Time

	mu       sync.RWMutex
	entities config.Entities
}

// NewService creates a new Service instance.
func NewService(store Store, fetcher Fetcher, entities config.Entities, opts Options) *Service {
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:         store,
		fetcher:       fetcher,
		cookieFormat:  opts.CookieFormat,
		retentionDays: opts.RetentionDays,
		now:           opts.Now,
		entities:      entities,
	}
}

// SetEntities replaces the tracked entities. Procedures already running keep
// the lists they started with.
func (s *Service) SetEntities(e config.Entities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = e
}

// Entities returns the tracked entities.
func (s *Service) Entities() config.Entities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entities
}

// Tasks returns the sync procedures in run order.
func (s *Service) Tasks() []Task {
	return []Task{
		{Name: TaskSales, Run: s.SyncSales},
		{Name: TaskWishlists, Run: s.SyncWishlists},
		{Name: TaskFollowers, Run: s.SyncFollowers},
	}
}

// SyncSales ingests the sales report of every sold package in one transaction.
//
// Rows dated before the retention cutoff (latest stored day minus RetentionDays)
// are purged first and again before commit, so the bound holds against days
// added by this run. A row that fails to build or insert is logged and skipped.
// A report that cannot be fetched or parsed rolls everything back.
func (s *Service) SyncSales(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	def, err := table(TableSales)
	if err != nil {
		return result, err
	}
	packages := s.Entities().SoldPackages
	result.Entities = len(packages)
	log := logging.WithFields(ctx, "task", TaskSales)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return result, err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			log.Error("rollback failed", "error", err)
		} else {
			log.Warn("sales transaction rolled back")
		}
	}()

	cutoff, purged, err := s.enforceRetention(ctx, tx, def)
	if err != nil {
		return result, err
	}
	result.Purged += purged

	snap, err := loadSnapshot(ctx, tx, def)
	if err != nil {
		return result, err
	}

	for _, pkg := range packages {
		records, err := s.fetchRecords(ctx, steam.PackageSales, pkg)
		if err != nil {
			return result, err
		}
		if err := ingest(ctx, log, tx, def, pkg, records, snap, cutoff, &result); err != nil {
			return result, err
		}
	}

	_, purged, err = s.enforceRetention(ctx, tx, def)
	if err != nil {
		return result, err
	}
	result.Purged += purged

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit %s: %w", def.Info.Key, err)
	}
	committed = true

	log.Info("sales synced",
		"packages", result.Entities,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"out_of_window", result.OutOfWindow,
		"failed", result.Failed,
		"purged", result.Purged,
	)
	return result, nil
}

// SyncWishlists ingests the wishlist report of every wishlist app.
// There is no transaction: rows inserted before a failing report stay.
func (s *Service) SyncWishlists(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	def, err := table(TableWishlists)
	if err != nil {
		return result, err
	}
	apps := s.Entities().WishlistApps
	result.Entities = len(apps)
	log := logging.WithFields(ctx, "task", TaskWishlists)

	snap, err := loadSnapshot(ctx, s.store, def)
	if err != nil {
		return result, err
	}

	for _, app := range apps {
		records, err := s.fetchRecords(ctx, steam.WishlistActions, app)
		if err != nil {
			return result, err
		}
		if err := ingest(ctx, log, s.store, def, app, records, snap, pgtype.Date{}, &result); err != nil {
			return result, err
		}
	}

	log.Info("wishlists synced",
		"apps", result.Entities,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
	)
	return result, nil
}

// SyncFollowers appends one timestamped follower count per follower app.
// A payload without a count skips that app; any other fetch error aborts.
func (s *Service) SyncFollowers(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	def, err := table(TableFollowers)
	if err != nil {
		return result, err
	}
	apps := s.Entities().FollowerApps
	result.Entities = len(apps)
	log := logging.WithFields(ctx, "task", TaskFollowers)

	takenAt := s.now().UTC().Format(time.RFC3339)

	for _, app := range apps {
		count, err := s.fetcher.FetchFollowers(ctx, app.ID)
		if err != nil {
			if !steam.IsMalformedPayload(err) {
				return result, err
			}
			log.Warn("follower count missing", "app_id", app.ID, "error", err)
			result.Considered++
			result.addError(err.Error())
			continue
		}

		rec := report.Record{
			FollowerColumnDate:   takenAt,
			FollowerColumnGame:   app.Name,
			FollowerColumnAmount: strconv.FormatInt(count, 10),
		}
		if err := ingest(ctx, log, s.store, def, app, []report.Record{rec}, nil, pgtype.Date{}, &result); err != nil {
			return result, err
		}
	}

	log.Info("followers synced",
		"apps", result.Entities,
		"inserted", result.Inserted,
		"failed", result.Failed,
	)
	return result, nil
}

// TableStatus is the stored row count of one table.
type TableStatus struct {
	Info TableInfo
	Rows int64
	Err  string
}

// TableStatuses counts the rows of every registered table.
func (s *Service) TableStatuses(ctx context.Context) []TableStatus {
	defs := All()
	out := make([]TableStatus, 0, len(defs))
	for _, def := range defs {
		st := TableStatus{Info: def.Info}
		n, err := s.store.Count(ctx, def)
		if err != nil {
			st.Err = MapError(err).Message
		}
		st.Rows = n
		out = append(out, st)
	}
	return out
}

// fetchRecords downloads and parses one entity's report.
func (s *Service) fetchRecords(ctx context.Context, q steam.Query, ent config.TrackedEntity) ([]report.Record, error) {
	name := ent.Name
	if name == "" {
		name = strconv.FormatInt(ent.ID, 10)
	}

	raw, err := s.fetcher.FetchReport(ctx, steam.ReportRequest{
		Query:     q,
		ID:        ent.ID,
		Name:      name,
		DateStart: ent.DateStart,
		DateEnd:   ent.DateEnd,
		RunAs:     ent.RunAs,
		Cookie:    steam.CookieFor(s.cookieFormat, ent.RunAs),
	})
	if err != nil {
		return nil, err
	}

	if n := report.InvalidBytes(raw); n > 0 {
		logging.FromContext(ctx).Warn("report is not valid UTF-8, bytes replaced",
			"query", q.Name, "entity_id", ent.ID, "invalid_bytes", n)
	}

	_, records, err := report.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", q.Name, ent.ID, err)
	}
	return records, nil
}

// enforceRetention purges rows dated before the latest stored day minus the
// retention window. The returned cutoff is invalid when the table is empty.
func (s *Service) enforceRetention(ctx context.Context, rs RowStore, def TableDefinition) (pgtype.Date, int64, error) {
	if !def.Retains() {
		return pgtype.Date{}, 0, nil
	}

	latest, err := rs.MaxDate(ctx, def)
	if err != nil {
		return pgtype.Date{}, 0, fmt.Errorf("latest %s date: %w", def.Info.Key, err)
	}
	if !latest.Valid {
		return pgtype.Date{}, 0, nil
	}

	cutoff := pgtype.Date{Time: latest.Time.AddDate(0, 0, -s.retentionDays), Valid: true}
	n, err := rs.Purge(ctx, def, cutoff)
	if err != nil {
		return pgtype.Date{}, 0, fmt.Errorf("purge %s: %w", def.Info.Key, err)
	}
	return cutoff, n, nil
}

// ingest inserts the records of one entity that are neither duplicates nor
// older than cutoff. Row failures are counted; only a broken transaction is
// returned.
func ingest(
	ctx context.Context,
	log *slog.Logger,
	rs RowStore,
	def TableDefinition,
	ent config.TrackedEntity,
	records []report.Record,
	snap *Snapshot,
	cutoff pgtype.Date,
	result *SyncResult,
) error {
	dedup := snap != nil && def.Dedups()
	for i, rec := range records {
		result.Considered++

		params, err := def.BuildParams(rec)
		if err != nil {
			log.Warn("row rejected", "entity_id", ent.ID, "row", i+1, "error", err)
			result.addError(fmt.Sprintf("%s %d row %d: %v", def.Info.Key, ent.ID, i+1, err))
			continue
		}

		if cutoff.Valid && def.RowDate != nil {
			if d := def.RowDate(params); d.Valid && d.Time.Before(cutoff.Time) {
				result.OutOfWindow++
				continue
			}
		}

		var key string
		if dedup {
			key = def.Key(params)
			if snap.Contains(key) {
				result.Duplicates++
				continue
			}
		}

		if err := rs.Insert(ctx, def, params); err != nil {
			if errors.Is(err, ErrTxAborted) {
				return err
			}
			log.Error("insert failed", "entity_id", ent.ID, "row", i+1, "error", err)
			result.addError(fmt.Sprintf("%s %d row %d: %v", def.Info.Key, ent.ID, i+1, err))
			continue
		}

		if dedup {
			snap.Add(key)
		}
		result.Inserted++
	}
	return nil
}

// loadSnapshot returns the stored natural keys of def, or nil for a table
// that keeps every row.
func loadSnapshot(ctx context.Context, rs RowStore, def TableDefinition) (*Snapshot, error) {
	if !def.Dedups() {
		return nil, nil
	}
	keys, err := rs.ListKeys(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("load %s snapshot: %w", def.Info.Key, err)
	}
	return NewSnapshot(keys), nil
}

func table(key string) (TableDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return TableDefinition{}, fmt.Errorf("unknown table: %s", key)
	}
	return def, nil
}
