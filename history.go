package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"imagine/core"
	"imagine/db"
)

// HistoryCmd lists the generations recorded with --history.
type HistoryCmd struct {
	Limit int           `name:"limit" short:"n" default:"20" help:"Number of entries to show"`
	RunID string        `name:"run" help:"Show only the prompts of this run ID"`
	Prune time.Duration `name:"prune" help:"Delete entries older than this before listing, e.g. 720h"`
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedCell  = cellStyle.Foreground(lipgloss.Color("9"))
)

func (c *HistoryCmd) Run(app *App, globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return &exitError{code: core.ExitCodeError, err: err}
	}
	if cfg.HistoryPath == "" {
		return &exitError{code: core.ExitCodeError, err: core.ErrMissingConfig("IMAGINE_HISTORY_DB")}
	}

	database, err := db.NewDatabase(cfg.HistoryPath)
	if err != nil {
		return &exitError{code: core.ExitCodeError, err: err}
	}
	defer database.Close()
	repo := db.NewRepository(database)

	if c.Prune > 0 {
		result, err := repo.PruneHistory(globals.ctx, c.Prune)
		if err != nil {
			return &exitError{code: core.ExitCodeError, err: err}
		}
		fmt.Fprintf(app.Stderr, "pruned %d %s\n", result.Deleted, plural(result.Deleted, "entry", "entries"))
	}

	var records []db.HistoryRecord
	if c.RunID != "" {
		records, err = repo.HistoryByRun(globals.ctx, c.RunID)
	} else {
		records, err = repo.RecentHistory(globals.ctx, c.Limit)
	}
	if err != nil {
		return &exitError{code: core.ExitCodeError, err: err}
	}

	renderHistory(app.Stdout, records, time.Now())
	if c.RunID == "" && len(records) > 0 {
		total, err := repo.CountHistory(globals.ctx)
		if err != nil {
			return &exitError{code: core.ExitCodeError, err: err}
		}
		fmt.Fprintf(app.Stderr, "%d of %d %s\n", len(records), total, plural(total, "entry", "entries"))
	}
	return nil
}

// renderHistory prints records as a table, or a single line when empty.
func renderHistory(w io.Writer, records []db.HistoryRecord, now time.Time) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no generations recorded")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		result := rec.Path
		if rec.Status != "done" {
			result = rec.ErrorMessage
		}
		rows = append(rows, []string{
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			shortRunID(rec.RunID),
			rec.Status,
			truncate(rec.Prompt, 40),
			truncate(result, 60),
			humanize.Bytes(uint64(rec.Bytes)),
			elapsed(time.Duration(rec.DurationMS) * time.Millisecond),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "RUN", "STATUS", "PROMPT", "RESULT", "SIZE", "TIME").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(records) && records[row].Status != "done" {
				return failedCell
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
