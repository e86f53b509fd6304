// package formatter renders sync queue rows and run history as tables, CSV, Markdown and JSON.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/shared"
)

// TimeLayout is used for every timestamp rendered by this package.
const TimeLayout = "2006-01-02 15:04:05"

var (
	queueHeaders = []string{"ID", "Remote ID", "Kind", "Operation", "Parent", "Updated"}
	runHeaders   = []string{"Run", "Status", "History", "Watchlist", "Hidden", "Suppressed", "Started", "Duration", "Error"}
)

// Row is one label/value pair of a summary table.
type Row struct {
	Label string
	Value any
}

// QueueRecords converts queue items into string records in [queueHeaders] order.
func QueueRecords(items []models.SyncQueueItem) [][]string {
	records := make([][]string, 0, len(items))
	for _, item := range items {
		parent := ""
		if item.ParentListID != nil {
			parent = strconv.FormatInt(*item.ParentListID, 10)
		}
		records = append(records, []string{
			strconv.FormatInt(item.ID, 10),
			strconv.FormatInt(item.RemoteID, 10),
			item.Kind.String(),
			string(item.Operation),
			parent,
			formatTime(item.UpdatedAt),
		})
	}
	return records
}

// RunRecords converts sync runs into string records in [runHeaders] order.
func RunRecords(runs []*models.SyncRun) [][]string {
	records := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.CompletedAt != nil {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		records = append(records, []string{
			run.ID,
			string(run.Status),
			strconv.Itoa(run.HistoryCount),
			strconv.Itoa(run.WatchlistCount),
			strconv.Itoa(run.HiddenCount),
			strconv.Itoa(run.Suppressed),
			formatTime(run.StartedAt),
			duration,
			run.ErrorMessage,
		})
	}
	return records
}

// ExportQueueToCSV converts queue items to CSV with columns: ID, Remote ID, Kind, Operation, Parent, Updated
func ExportQueueToCSV(items []models.SyncQueueItem) ([]byte, error) {
	return exportCSV(queueHeaders, QueueRecords(items))
}

// ExportRunsToCSV converts sync runs to CSV.
func ExportRunsToCSV(runs []*models.SyncRun) ([]byte, error) {
	return exportCSV(runHeaders, RunRecords(runs))
}

// ExportRunsToMarkdown converts sync runs to a Markdown table.
func ExportRunsToMarkdown(runs []*models.SyncRun) ([]byte, error) {
	tw := newTable(runHeaders, RunRecords(runs), 2, 3, 4, 5)

	var buf bytes.Buffer
	buf.WriteString("# Sync History\n\n")
	buf.WriteString(tw.RenderMarkdown())
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// ToJSON renders v as indented JSON.
func ToJSON(v any) ([]byte, error) {
	return shared.MarshalJSON(v, true)
}

// QueueTable renders queue items as a terminal table.
func QueueTable(items []models.SyncQueueItem) string {
	tw := newTable(queueHeaders, QueueRecords(items), 1, 2)
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(items)})
	return tw.Render()
}

// RunsTable renders sync runs as a terminal table.
func RunsTable(runs []*models.SyncRun) string {
	return newTable(runHeaders, RunRecords(runs), 3, 4, 5, 6).Render()
}

// SummaryTable renders label/value rows, such as per-phase counts, as a two-column table.
func SummaryTable(title string, rows []Row) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}
	for _, r := range rows {
		tw.AppendRow(table.Row{r.Label, r.Value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return tw.Render()
}

// WriteExport writes data to path, creating or truncating the file.
func WriteExport(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: empty output path", shared.ErrInvalidArgument)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// newTable builds a rounded table; rightAligned holds 1-based column numbers.
func newTable(headers []string, records [][]string, rightAligned ...int) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, record := range records {
		row := make(table.Row, len(headers))
		for i := range headers {
			if i < len(record) {
				row[i] = record[i]
			}
		}
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, n := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

func exportCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}
