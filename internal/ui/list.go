package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/showsync/internal/models"
)

var (
	_ list.Item = queueItem{}
)

// queueItem wraps [models.SyncQueueItem] to implement [list.Item].
type queueItem struct {
	item models.SyncQueueItem
}

func (i queueItem) FilterValue() string { return i.item.Kind.String() }
func (i queueItem) Title() string {
	return fmt.Sprintf("%s #%d", kindLabel(i.item.Kind), i.item.RemoteID)
}
func (i queueItem) Description() string {
	desc := i.item.UpdatedAt.Local().Format("Jan 2 15:04")
	if i.item.ClearsProgress() {
		desc = fmt.Sprintf("%s • resets progress of show #%d", desc, *i.item.ParentListID)
	}
	return desc
}

func kindLabel(k models.Kind) string {
	switch k {
	case models.KindEpisode:
		return "Watched episode"
	case models.KindMovie:
		return "Watched movie"
	case models.KindShowWatchlist:
		return "Watchlist show"
	case models.KindMovieWatchlist:
		return "Watchlist movie"
	case models.KindHiddenShow:
		return "Hidden show"
	case models.KindHiddenMovie:
		return "Hidden movie"
	default:
		return k.String()
	}
}
