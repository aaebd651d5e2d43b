// Package pipeline runs one generate-then-download task per prompt and
// collects exactly one Outcome for each.
package pipeline

import (
	"time"
)

// State is the progress of a single task. States only move forward and a
// task enters exactly one terminal state.
type State int

const (
	StateStart State = iota
	StateGenerating
	StateDownloading
	StateDone
	StateFailedGenerate
	StateFailedDownload
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateGenerating:
		return "generating"
	case StateDownloading:
		return "downloading"
	case StateDone:
		return "done"
	case StateFailedGenerate:
		return "failed_generate"
	case StateFailedDownload:
		return "failed_download"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends the task.
func (s State) Terminal() bool {
	return s >= StateDone
}

// canMove reports whether a task in state s may enter next.
func (s State) canMove(next State) bool {
	switch s {
	case StateStart:
		return next == StateGenerating
	case StateGenerating:
		return next == StateDownloading || next == StateFailedGenerate
	case StateDownloading:
		return next == StateDone || next == StateFailedDownload
	default:
		return false
	}
}

// OutcomeKind is how a task ended.
type OutcomeKind int

const (
	OutcomeDone OutcomeKind = iota
	OutcomeFailedGenerate
	OutcomeFailedDownload
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDone:
		return "done"
	case OutcomeFailedGenerate:
		return "failed_generate"
	case OutcomeFailedDownload:
		return "failed_download"
	default:
		return "unknown"
	}
}

func outcomeKindFor(s State) OutcomeKind {
	switch s {
	case StateFailedGenerate:
		return OutcomeFailedGenerate
	case StateFailedDownload:
		return OutcomeFailedDownload
	default:
		return OutcomeDone
	}
}

// Outcome is the result of one task.
type Outcome struct {
	// Index is the position of the prompt in the resolved list
	Index int

	Kind   OutcomeKind
	Prompt string

	// Path is set only when Kind is OutcomeDone
	Path string

	// Err is set only when the task failed
	Err error

	// Bytes written to Path (or before the failure)
	Bytes int64

	Duration time.Duration
}

// OK reports whether the task produced its image.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeDone
}

// Summary counts outcomes by result.
type Summary struct {
	Done   int
	Failed int
}

// Summarize counts how many tasks succeeded and failed.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		if o.OK() {
			s.Done++
		} else {
			s.Failed++
		}
	}
	return s
}
