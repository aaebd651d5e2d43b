// Package progress shows live per-prompt status.
//
// A Board owns one row per task. Each task writes only to its own Slot; the
// board forwards every change to a Renderer, which draws it as a spinner
// board on a terminal or as plain lines otherwise.
package progress

import (
	"errors"
	"sync"

	"imagine/core"
)

// ErrSlotFinished is returned by reports sent after a slot's final report.
var ErrSlotFinished = errors.New("progress: slot already finished")

// Status is the display state of a row.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Finished reports whether s is a final status.
func (s Status) Finished() bool {
	return s == StatusDone || s == StatusFailed
}

// Row is the current state of one slot.
type Row struct {
	Index   int
	Label   string
	Message string
	Status  Status
}

// Renderer draws row changes. Update is called from many goroutines and
// must be safe for concurrent use.
type Renderer interface {
	Start() error
	Update(row Row)
	Stop() error
}

// Board aggregates the slots of one run.
type Board struct {
	renderer Renderer

	mu   sync.Mutex
	rows []Row
}

// NewBoard creates a board drawing through r.
func NewBoard(r Renderer) *Board {
	return &Board{renderer: r}
}

// Start starts the renderer.
func (b *Board) Start() error {
	return b.renderer.Start()
}

// Stop flushes the renderer. Call it once every task has finished.
func (b *Board) Stop() error {
	return b.renderer.Stop()
}

// Slot adds a row labelled label and returns its writer.
func (b *Board) Slot(label string) *Slot {
	b.mu.Lock()
	row := Row{Index: len(b.rows), Label: label, Status: StatusPending}
	b.rows = append(b.rows, row)
	b.mu.Unlock()

	b.renderer.Update(row)
	return &Slot{board: b, index: row.Index}
}

// Reporter is Slot typed as a core.ProgressReporter.
func (b *Board) Reporter(label string) core.ProgressReporter {
	return b.Slot(label)
}

// Rows returns a snapshot of every row.
func (b *Board) Rows() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Row(nil), b.rows...)
}

func (b *Board) set(index int, message string, status Status) {
	b.mu.Lock()
	b.rows[index].Message = message
	b.rows[index].Status = status
	row := b.rows[index]
	b.mu.Unlock()

	b.renderer.Update(row)
}

// Slot is the progress writer of a single task. It implements
// core.ProgressReporter and must only be used by that task.
type Slot struct {
	board    *Board
	index    int
	finished bool
}

// ReportProgress replaces the slot's message.
func (s *Slot) ReportProgress(message string) error {
	if s.finished {
		return ErrSlotFinished
	}
	s.board.set(s.index, message, StatusActive)
	return nil
}

// ReportSuccess finishes the slot with message.
func (s *Slot) ReportSuccess(message string) error {
	if s.finished {
		return ErrSlotFinished
	}
	s.finished = true
	s.board.set(s.index, message, StatusDone)
	return nil
}

// ReportError finishes the slot with the error text.
func (s *Slot) ReportError(err error) error {
	if s.finished {
		return ErrSlotFinished
	}
	s.finished = true
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	s.board.set(s.index, message, StatusFailed)
	return nil
}

var _ core.ProgressReporter = (*Slot)(nil)
