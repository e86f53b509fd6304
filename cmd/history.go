package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/formatter"
	"github.com/desertthunder/showsync/internal/shared"
)

// History prints recent sync runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}
	runs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return err
	}

	var data []byte
	switch format := cmd.String("format"); format {
	case "table":
		if len(runs) == 0 {
			return r.writePlain("No sync runs recorded\n")
		}
		return r.writePlain("%s\n", formatter.RunsTable(runs))
	case "json":
		data, err = formatter.ToJSON(runs)
	case "csv":
		data, err = formatter.ExportRunsToCSV(runs)
	case "md", "markdown":
		data, err = formatter.ExportRunsToMarkdown(runs)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "runs", len(runs))
		return nil
	}
	return r.writePlain("%s\n", data)
}
