package task

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Tile is a task's rendering on one calendar day. Multi-day tasks produce a
// tile on every day they cover; days after the first are continuations.
type Tile struct {
	TaskID         string      `json:"task_id"`
	Date           time.Time   `json:"date"`
	Title          string      `json:"title"`
	Priority       string      `json:"priority"`
	Status         string      `json:"status"`
	StartTime      null.String `json:"start_time"`
	EndTime        null.String `json:"end_time"`
	Continuation   bool        `json:"continuation"`
	PoolID         null.String `json:"pool_id"`
	ClientID       null.String `json:"client_id"`
	ResponsibleIDs []string    `json:"responsible_ids"`
}

// TilesForRange expands tasks into per-day tiles clipped to [from, to].
func TilesForRange(tasks []ServiceTask, from, to, today time.Time) []Tile {
	from, to, today = dateOnly(from), dateOnly(to), dateOnly(today)
	var tiles []Tile
	for _, t := range tasks {
		startDate := dateOnly(t.StartDate)
		last := dateOnly(t.LastDate())
		if last.Before(from) || startDate.After(to) {
			continue
		}
		status := t.Status(today)
		for d := startDate; !d.After(last); d = d.AddDate(0, 0, 1) {
			if d.Before(from) || d.After(to) {
				continue
			}
			tiles = append(tiles, Tile{
				TaskID:         t.ID,
				Date:           d,
				Title:          t.Title,
				Priority:       t.Priority,
				Status:         status,
				StartTime:      t.StartTime,
				EndTime:        t.EndTime,
				Continuation:   !d.Equal(startDate),
				PoolID:         t.PoolID,
				ClientID:       t.ClientID,
				ResponsibleIDs: t.ResponsibleIDs,
			})
		}
	}
	return tiles
}
