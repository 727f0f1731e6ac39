package config

// entities.go loads the tracked package and app lists.
//
// Entities are structured (lists of objects with optional per-entity date ranges),
// which env vars express poorly, so they live in their own file read with viper.
// Any format viper understands works; the extension picks the decoder:
//
//	sold_packages:
//	  - id: 123456
//	    name: starter-pack
//	    run_as: publisher
//	wishlist_apps:
//	  - id: 480
//	    name: Spacewar
//	    run_as: publisher
//	    date_start: "2023-01-01"
//	follower_apps: []   # omit to reuse wishlist_apps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TrackedEntity is one package or app the sync follows.
type TrackedEntity struct {
	ID        int64  `mapstructure:"id" json:"id"`
	Name      string `mapstructure:"name" json:"name"`
	RunAs     string `mapstructure:"run_as" json:"runAs,omitempty"`
	DateStart string `mapstructure:"date_start" json:"dateStart,omitempty"`
	DateEnd   string `mapstructure:"date_end" json:"dateEnd,omitempty"`
}

// Entities groups the tracked entities by report.
type Entities struct {
	SoldPackages []TrackedEntity `mapstructure:"sold_packages" json:"soldPackages"`
	WishlistApps []TrackedEntity `mapstructure:"wishlist_apps" json:"wishlistApps"`
	FollowerApps []TrackedEntity `mapstructure:"follower_apps" json:"followerApps"`
}

// Count returns the total number of entries across all lists.
func (e Entities) Count() int {
	return len(e.SoldPackages) + len(e.WishlistApps) + len(e.FollowerApps)
}

// LoadEntities reads and validates the entities file at path.
// When follower_apps is absent the wishlist apps are followed.
func LoadEntities(path string) (Entities, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Entities{}, fmt.Errorf("read entities file %s: %w", path, err)
	}

	var e Entities
	if err := v.Unmarshal(&e); err != nil {
		return Entities{}, fmt.Errorf("decode entities file %s: %w", path, err)
	}
	if !v.IsSet("follower_apps") {
		e.FollowerApps = append([]TrackedEntity(nil), e.WishlistApps...)
	}

	e.normalize()
	if err := e.Validate(); err != nil {
		return Entities{}, fmt.Errorf("entities file %s: %w", path, err)
	}
	return e, nil
}

func (e *Entities) normalize() {
	for _, list := range [][]TrackedEntity{e.SoldPackages, e.WishlistApps, e.FollowerApps} {
		for i := range list {
			list[i].Name = strings.TrimSpace(list[i].Name)
			list[i].RunAs = strings.TrimSpace(list[i].RunAs)
			list[i].DateStart = strings.TrimSpace(list[i].DateStart)
			list[i].DateEnd = strings.TrimSpace(list[i].DateEnd)
		}
	}
}

// Validate checks ids and date overrides.
// Returns an error describing all validation failures.
func (e Entities) Validate() error {
	var errs []string

	check := func(list string, entities []TrackedEntity) {
		seen := make(map[int64]bool, len(entities))
		for i, ent := range entities {
			where := fmt.Sprintf("%s[%d]", list, i)
			if ent.ID <= 0 {
				errs = append(errs, where+": id must be positive")
			}
			if seen[ent.ID] {
				errs = append(errs, fmt.Sprintf("%s: duplicate id %d", where, ent.ID))
			}
			seen[ent.ID] = true

			var start, end time.Time
			var err error
			if ent.DateStart != "" {
				if start, err = time.Parse("2006-01-02", ent.DateStart); err != nil {
					errs = append(errs, fmt.Sprintf("%s: date_start %q must be YYYY-MM-DD", where, ent.DateStart))
				}
			}
			if ent.DateEnd != "" {
				if end, err = time.Parse("2006-01-02", ent.DateEnd); err != nil {
					errs = append(errs, fmt.Sprintf("%s: date_end %q must be YYYY-MM-DD", where, ent.DateEnd))
				}
			}
			if !start.IsZero() && !end.IsZero() && end.Before(start) {
				errs = append(errs, where+": date_end is before date_start")
			}
		}
	}

	check("sold_packages", e.SoldPackages)
	check("wishlist_apps", e.WishlistApps)
	check("follower_apps", e.FollowerApps)

	if len(errs) > 0 {
		return errors.New("validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// WatchEntities reloads the entities file whenever it is written or created (renamed
// into place), and passes the result to onChange. Invalid files are logged and ignored,
// keeping the previous lists. The watch ends when ctx is cancelled.
//
// The parent directory is watched rather than the file so editors that replace the
// file by rename are still seen.
func WatchEntities(ctx context.Context, path string, onChange func(Entities)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve entities path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isEntitiesChange(event, abs) {
					continue
				}
				e, err := LoadEntities(abs)
				if err != nil {
					slog.Warn("entities reload failed, keeping previous lists", "path", abs, "error", err)
					continue
				}
				slog.Info("entities reloaded",
					"path", abs,
					"sold_packages", len(e.SoldPackages),
					"wishlist_apps", len(e.WishlistApps),
					"follower_apps", len(e.FollowerApps),
				)
				onChange(e)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("entities watcher error", "error", err)
			}
		}
	}()

	return nil
}

// isEntitiesChange reports whether event touched the watched file in a way that
// may have changed its contents.
func isEntitiesChange(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
