// Package core provides configuration, error types and shared interfaces for imagine.
package core

// ProgressReporter is the interface for reporting the progress of a single prompt.
// Each prompt owns exactly one reporter; nothing else writes to it.
//
// Reporting is purely observational. A failed report must never change what
// the prompt does next, so callers typically log and ignore the returned error.
//
// Example usage:
//
//	reporter.ReportProgress("Generating: a-red-fox")
//	// ... call the generation endpoint ...
//	reporter.ReportProgress("Downloading: a-red-fox")
//	// ... download ...
//	reporter.ReportSuccess("./a-red-fox-Xk2p9.png")
type ProgressReporter interface {
	// ReportProgress replaces the current status message.
	ReportProgress(message string) error

	// ReportError finishes the reporter with the error text as its final message.
	ReportError(err error) error

	// ReportSuccess finishes the reporter with a success message.
	ReportSuccess(message string) error
}
