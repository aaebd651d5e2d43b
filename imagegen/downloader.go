package imagegen

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
)

// ChunkSize is the read buffer size of a ByteStream.
const ChunkSize = 32 * 1024

// maxDrain bounds how much of an error body is read before closing it, so the
// connection can be reused without reading an arbitrarily large page.
const maxDrain = 64 * 1024

// ByteStream is a forward-only sequence of byte chunks over a response body.
//
// Use it like bufio.Scanner:
//
//	stream, err := client.Fetch(ctx, url)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    w.Write(stream.Chunk())
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
//
// A ByteStream is not restartable and must be closed by its single consumer.
type ByteStream struct {
	body    io.ReadCloser
	buf     []byte
	chunk   []byte
	pending error
	err     error
	done    bool
	closed  bool
	read    int64
	length  int64
}

func newByteStream(body io.ReadCloser, length int64) *ByteStream {
	return &ByteStream{
		body:   body,
		buf:    make([]byte, ChunkSize),
		length: length,
	}
}

// Next advances to the next chunk. It returns false at the end of the body
// or on the first read error; Err tells the two apart.
func (s *ByteStream) Next() bool {
	if s.done {
		return false
	}
	for {
		if s.pending != nil {
			s.finish(s.pending)
			return false
		}
		n, err := s.body.Read(s.buf)
		if err != nil {
			s.pending = err
		}
		if n > 0 {
			s.chunk = s.buf[:n]
			s.read += int64(n)
			return true
		}
	}
}

func (s *ByteStream) finish(err error) {
	s.done = true
	s.chunk = nil
	if !errors.Is(err, io.EOF) {
		s.err = &TransportError{Op: "download", Err: err}
	}
}

// Chunk returns the current chunk. It is only valid until the next call to Next.
func (s *ByteStream) Chunk() []byte {
	return s.chunk
}

// Err returns the error that ended the stream, or nil at a clean end of body.
func (s *ByteStream) Err() error {
	return s.err
}

// BytesRead returns the number of bytes delivered so far.
func (s *ByteStream) BytesRead() int64 {
	return s.read
}

// ContentLength returns the advertised body size, or -1 when unknown.
func (s *ByteStream) ContentLength() int64 {
	return s.length
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *ByteStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	return s.body.Close()
}

// Fetch issues a GET for imageURL and returns a stream over the body.
//
// Errors are *ProtocolError for a malformed URL, *TransportError when no
// response arrived and *RemoteError for any status other than 200.
func (c *Client) Fetch(ctx context.Context, imageURL string) (*ByteStream, error) {
	if _, err := url.ParseRequestURI(imageURL); err != nil {
		return nil, &ProtocolError{Op: "download", Reason: "invalid image URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &ProtocolError{Op: "download", Reason: "invalid image URL", Err: err}
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "download", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		resp.Body.Close()
		return nil, &RemoteError{Op: "download", StatusCode: resp.StatusCode}
	}

	return newByteStream(resp.Body, resp.ContentLength), nil
}
