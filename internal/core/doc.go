// Package core provides the sync logic for the partner reports.
//
// This package holds the domain logic independent of the HTTP status page and
// the CLI. It can be used by the scheduler, the web server, or tests without
// modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Table Definitions: Registered via the registry, each table knows how to
//     build insert parameters from a report row, its natural key, and its
//     retention rule.
//   - Service: The sync procedures (sales, wishlists, followers).
//   - Scheduler: Runs the procedures at startup and daily, one run at a time.
//   - Store: Storage behind the procedures, backed by a pgx pool.
//
// # Table Registry
//
// Tables are registered at init time using [Register]. Each [TableDefinition]
// contains everything needed to ingest one report:
//
//	core.Register(core.TableDefinition{
//	    Info:        core.TableInfo{Key: "steam_wishlists", Label: "Wishlists"},
//	    BuildParams: buildWishlistParams,
//	    Insert:      insertWishlist,
//	    Key:         wishlistKey,
//	    ListKeys:    listWishlistKeys,
//	})
//
// The tables subpackage registers the built-in tables; import it for effect.
//
// # Deduplication
//
// A procedure loads the natural keys of the stored rows into a [Snapshot]
// before ingesting. A row whose key is in the snapshot is counted as a
// duplicate. Inserted keys are added, so repeats within a run are skipped too.
//
// # Retention
//
// Tables with a retention rule keep the rows no older than the latest stored
// day minus the retention window. Rows are purged before and after ingestion,
// and incoming rows older than the cutoff are skipped.
//
// # Errors
//
// Errors returned by a procedure abort it. Per-row failures are counted in the
// [SyncResult] and do not abort. [MapError] converts errors to operator-facing
// messages with stable codes.
package core
