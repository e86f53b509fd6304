package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during an export run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current batch number within phase
	Total   int    // Items exported so far in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Authorize Phase = iota
	ExportHistory
	ClearProgress
	ExportWatchlist
	ExportHidden
	Cleanup
	Finished
)

func (p Phase) String() string {
	switch p {
	case Authorize:
		return "authorize"
	case ExportHistory:
		return "history"
	case ClearProgress:
		return "clear_progress"
	case ExportWatchlist:
		return "watchlist"
	case ExportHidden:
		return "hidden"
	case Cleanup:
		return "cleanup"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

// BatchReport is attached to batch updates as [ProgressUpdate.Data].
type BatchReport struct {
	Kinds      []string
	Items      int
	Suppressed int
	Sent       int
}

func authorizeUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Authorize, Message: "Checking Trakt authorization..."}
}

func nothingToExportUpdate(phase Phase) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Message: fmt.Sprintf("Nothing to export (%s).", phase)}
}

func batchUpdate(phase Phase, batch, total int, report BatchReport) ProgressUpdate {
	msg := fmt.Sprintf("[%s] batch %d: %d items", phase, batch, report.Items)
	if report.Suppressed > 0 {
		msg += fmt.Sprintf(" (%d already on Trakt)", report.Suppressed)
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    batch,
		Total:   total,
		Message: msg,
		Data:    report,
	}
}

func clearProgressUpdate(shows []int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClearProgress,
		Total:   len(shows),
		Message: fmt.Sprintf("Clearing progress for %d shows...", len(shows)),
		Data:    shows,
	}
}

func waitUpdate(phase Phase, d time.Duration) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Message: fmt.Sprintf("Waiting %s before next batch...", d)}
}

func cleanupUpdate(removed int64) ProgressUpdate {
	return ProgressUpdate{Phase: Cleanup, Total: int(removed), Message: fmt.Sprintf("Cleared %d queued items.", removed)}
}

func finishedUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Total:   result.Count(),
		Message: fmt.Sprintf("Finished with success: %d items exported.", result.Count()),
		Data:    result,
	}
}
