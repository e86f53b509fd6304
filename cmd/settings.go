package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/formatter"
	"github.com/desertthunder/showsync/internal/shared"
)

// SettingsList prints every feature toggle with its effective value.
func (r *Runner) SettingsList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}
	all, err := s.settings.All(ctx)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]formatter.Row, len(keys))
	for i, k := range keys {
		rows[i] = formatter.Row{Label: k, Value: strconv.FormatBool(all[k])}
	}
	return r.writePlain("%s\n", formatter.SummaryTable("Settings", rows))
}

// SettingsGet prints one toggle, resolving unset keys to the config default.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: usage: settings get <key>", shared.ErrMissingArgument)
	}

	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}
	value, err := s.settings.Get(ctx, key)
	if err != nil {
		return err
	}
	return r.writePlain("%t\n", value)
}

// SettingsSet changes one feature toggle.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	raw := cmd.StringArg("value")
	if key == "" || raw == "" {
		return fmt.Errorf("%w: usage: settings set <key> <true|false>", shared.ErrMissingArgument)
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%w: %q is not a boolean", shared.ErrInvalidArgument, raw)
	}

	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}
	if err := s.settings.Set(ctx, key, value); err != nil {
		return err
	}
	r.logger.Debug("setting changed", "key", key, "value", value)
	return r.writePlain("✓ %s = %t\n", key, value)
}
