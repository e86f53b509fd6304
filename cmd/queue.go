package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/formatter"
	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/shared"
	"github.com/desertthunder/showsync/internal/tasks"
)

// QueueAdd schedules items of one kind for the next sync.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: queue add <kind> <trakt-id>...", shared.ErrMissingArgument)
	}

	kind, err := models.ParseKind(args[0])
	if err != nil {
		return err
	}
	ids, err := parseIDs(args[1:])
	if err != nil {
		return err
	}

	req := tasks.ScheduleRequest{
		Kind:          kind,
		RemoteIDs:     ids,
		ShowID:        cmd.Int64("show"),
		ClearProgress: cmd.Bool("clear-progress"),
	}
	if req.ClearProgress && kind != models.KindEpisode {
		return fmt.Errorf("%w: --clear-progress only applies to %s items", shared.ErrInvalidArgument, models.KindEpisode)
	}
	if at := cmd.String("at"); at != "" {
		if req.At, err = time.Parse(time.RFC3339, at); err != nil {
			return fmt.Errorf("%w: --at must be RFC 3339: %v", shared.ErrInvalidArgument, err)
		}
	}

	scheduler, err := r.scheduler(ctx)
	if err != nil {
		return err
	}
	n, err := scheduler.Schedule(ctx, req)
	if err != nil {
		return err
	}
	if n == 0 {
		return r.writePlain("Nothing queued: quick sync is disabled or you are not logged in to Trakt\n")
	}
	return r.writePlain("✓ Queued %d %s item(s)\n", n, kind)
}

// QueueList prints pending items as a table, JSON or a CSV export.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	var kinds []models.Kind
	for _, s := range cmd.StringSlice("kind") {
		k, err := models.ParseKind(s)
		if err != nil {
			return err
		}
		kinds = append(kinds, k)
	}

	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}
	items, err := s.queue.List(ctx, kinds...)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		data, err := formatter.ExportQueueToCSV(items)
		if err != nil {
			return err
		}
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		r.logger.Info("queue exported", "path", path, "items", len(items))
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	if len(items) == 0 {
		return r.writePlain("Queue is empty\n")
	}
	return r.writePlain("%s\n", formatter.QueueTable(items))
}

// QueueCount prints the number of pending items per kind.
func (r *Runner) QueueCount(ctx context.Context, cmd *cli.Command) error {
	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}

	rows := make([]formatter.Row, 0, len(models.Kinds)+1)
	total := 0
	for _, k := range models.Kinds {
		n, err := s.queue.Count(ctx, k)
		if err != nil {
			return err
		}
		total += n
		rows = append(rows, formatter.Row{Label: k.String(), Value: strconv.Itoa(n)})
	}
	rows = append(rows, formatter.Row{Label: "total", Value: strconv.Itoa(total)})

	return r.writePlain("%s\n", formatter.SummaryTable("Pending items", rows))
}

// QueueClear removes every pending item.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to drop all pending items", shared.ErrMissingArgument)
	}

	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}
	n, err := s.queue.DeleteAll(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d item(s)\n", n)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q is not a Trakt id", shared.ErrInvalidArgument, a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
