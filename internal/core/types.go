package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/steamsync/internal/report"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Table keys, matching the database table names.
const (
	TableSales     = "steam_sold"
	TableWishlists = "steam_wishlists"
	TableFollowers = "steam_followers"
)

// TableInfo contains display information about a table.
type TableInfo struct {
	Key       string   // Unique identifier: "steam_sold"
	Label     string   // Display name: "Sales"
	Columns   []string // Report header names read by BuildParams
	UniqueKey []string // Report columns Key is built from; empty for tables that keep every row
}

// BuildParamsFunc builds database insert parameters from a decoded report row.
type BuildParamsFunc func(rec report.Record) (any, error)

// KeyFunc returns the natural key of built params.
type KeyFunc func(params any) string

// RowDateFunc returns the day a row belongs to, for retention.
type RowDateFunc func(params any) pgtype.Date

// InsertFunc inserts a row into the database.
type InsertFunc func(ctx context.Context, db DBTX, params any) error

// ListKeysFunc returns the natural key of every stored row.
type ListKeysFunc func(ctx context.Context, db DBTX) ([]string, error)

// MaxDateFunc returns the latest stored day, or an invalid date for an empty table.
type MaxDateFunc func(ctx context.Context, db DBTX) (pgtype.Date, error)

// PurgeFunc deletes rows dated before cutoff and returns the count deleted.
type PurgeFunc func(ctx context.Context, db DBTX, cutoff pgtype.Date) (int64, error)

// CountFunc returns the number of stored rows.
type CountFunc func(ctx context.Context, db DBTX) (int64, error)

// TableDefinition contains everything needed to sync one table.
type TableDefinition struct {
	Info        TableInfo
	BuildParams BuildParamsFunc
	Insert      InsertFunc
	Count       CountFunc

	// Dedup. Tables without Key keep every row (time series).
	Key      KeyFunc
	ListKeys ListKeysFunc

	// Retention. Only tables with all three are purged.
	RowDate RowDateFunc
	MaxDate MaxDateFunc
	Purge   PurgeFunc
}

// Dedups reports whether rows are checked against a snapshot before insert.
func (t TableDefinition) Dedups() bool {
	return t.Key != nil && t.ListKeys != nil
}

// Retains reports whether the table is bounded by a retention window.
func (t TableDefinition) Retains() bool {
	return t.RowDate != nil && t.MaxDate != nil && t.Purge != nil
}

// SyncResult is the outcome of one sync procedure.
type SyncResult struct {
	Entities    int      `json:"entities"`
	Considered  int      `json:"considered"`
	Inserted    int      `json:"inserted"`
	Duplicates  int      `json:"duplicates"`
	OutOfWindow int      `json:"outOfWindow"`
	Failed      int      `json:"failed"`
	Purged      int64    `json:"purged"`
	Errors      []string `json:"errors,omitempty"`
}

// addError counts a row-level failure.
func (r *SyncResult) addError(msg string) {
	r.Failed++
	r.Errors = append(r.Errors, msg)
}

// Task is one independent sync procedure of a run.
type Task struct {
	Name string
	Run  func(ctx context.Context) (SyncResult, error)
}

// TaskResult is what a task returned. Err is set when the procedure aborted.
type TaskResult struct {
	Name       string        `json:"name"`
	Result     SyncResult    `json:"result"`
	Err        string        `json:"error,omitempty"`
	Code       string        `json:"code,omitempty"`
	Duration   time.Duration `json:"durationNs"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Failed reports whether the task aborted.
func (t TaskResult) Failed() bool {
	return t.Err != ""
}

// Trigger names what started a run.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// RunReport collects the task results of one run.
type RunReport struct {
	RunID      uuid.UUID    `json:"runId"`
	Trigger    Trigger      `json:"trigger"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Tasks      []TaskResult `json:"tasks"`
}

// Failed reports whether any task aborted.
func (r RunReport) Failed() bool {
	for _, t := range r.Tasks {
		if t.Failed() {
			return true
		}
	}
	return false
}

// Inserted returns the total rows inserted across tasks.
func (r RunReport) Inserted() int {
	n := 0
	for _, t := range r.Tasks {
		n += t.Result.Inserted
	}
	return n
}
