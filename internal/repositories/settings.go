package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/showsync/internal/shared"
)

// Setting keys persisted in the settings table.
const (
	SettingMoviesEnabled    = "movies_enabled"
	SettingQuickSyncEnabled = "quick_sync_enabled"
)

// SettingKeys lists the keys accepted by [SettingsRepository.Set].
var SettingKeys = []string{SettingMoviesEnabled, SettingQuickSyncEnabled}

// SettingsRepository stores boolean feature toggles, falling back to config defaults for unset keys.
type SettingsRepository struct {
	db       DBTX
	defaults map[string]bool
}

// NewSettingsRepository creates a [SettingsRepository] whose unset keys resolve to the [shared.SyncConfig] values.
func NewSettingsRepository(db DBTX, defaults shared.SyncConfig) *SettingsRepository {
	return &SettingsRepository{
		db: db,
		defaults: map[string]bool{
			SettingMoviesEnabled:    defaults.MoviesEnabled,
			SettingQuickSyncEnabled: defaults.QuickSyncEnabled,
		},
	}
}

// MoviesEnabled reports whether movie kinds take part in export.
func (r *SettingsRepository) MoviesEnabled(ctx context.Context) (bool, error) {
	return r.Get(ctx, SettingMoviesEnabled)
}

// QuickSyncEnabled reports whether local mutations are queued for export.
func (r *SettingsRepository) QuickSyncEnabled(ctx context.Context) (bool, error) {
	return r.Get(ctx, SettingQuickSyncEnabled)
}

// Get returns the stored value of key or its default.
func (r *SettingsRepository) Get(ctx context.Context, key string) (bool, error) {
	def, ok := r.defaults[key]
	if !ok {
		return false, fmt.Errorf("%w: unknown setting %q", shared.ErrInvalidArgument, key)
	}

	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return false, shared.StoreError("get setting", fmt.Errorf("failed to query setting %s: %w", key, err))
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, shared.StoreError("get setting", fmt.Errorf("setting %s has non-boolean value %q", key, value))
	}
	return b, nil
}

// Set stores value for key.
func (r *SettingsRepository) Set(ctx context.Context, key string, value bool) error {
	if _, ok := r.defaults[key]; !ok {
		return fmt.Errorf("%w: unknown setting %q", shared.ErrInvalidArgument, key)
	}

	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, strconv.FormatBool(value), time.Now().UTC()); err != nil {
		return shared.StoreError("set setting", fmt.Errorf("failed to save setting %s: %w", key, err))
	}
	return nil
}

// All returns every known setting with its effective value.
func (r *SettingsRepository) All(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(SettingKeys))
	for _, key := range SettingKeys {
		v, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}
