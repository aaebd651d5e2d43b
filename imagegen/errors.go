package imagegen

import (
	"errors"
	"fmt"
)

// Error kinds reported by Kind. They are stable strings so they can be
// stored in the history ledger and logged as a field.
const (
	KindTransport  = "transport"
	KindRemote     = "remote"
	KindProtocol   = "protocol"
	KindFilesystem = "filesystem"
	KindUnknown    = "unknown"
)

// TransportError is returned when a request could not be completed at all:
// DNS, connect, TLS, a reset connection or a read failure mid-stream.
// A cancelled or expired context also surfaces as a TransportError.
type TransportError struct {
	Op  string // "generate" or "download"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is returned when the server answered with a non-success status.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string // server-provided message, if any
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.StatusCode)
}

// ProtocolError is returned when a successful response does not have the
// expected shape.
type ProtocolError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// FilesystemError wraps a local create, write, sync or close failure.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Kind classifies err into one of the Kind* constants.
func Kind(err error) string {
	var (
		transportErr  *TransportError
		remoteErr     *RemoteError
		protocolErr   *ProtocolError
		filesystemErr *FilesystemError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &remoteErr):
		return KindRemote
	case errors.As(err, &protocolErr):
		return KindProtocol
	case errors.As(err, &filesystemErr):
		return KindFilesystem
	default:
		return KindUnknown
	}
}
