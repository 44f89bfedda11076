// Package iohelper reads HTTP response bodies with size limits.
package iohelper

import (
	"errors"
	"io"
)

// Body size limits.
const (
	// SmallMaxBodySize is for error pages and health replies (8KB)
	SmallMaxBodySize int64 = 8 * 1024

	// drainLimit bounds how much is discarded before closing a body (64KB)
	drainLimit int64 = 64 * 1024
)

// ErrTooLarge is returned by ReadCapped when the reader holds more than the cap.
var ErrTooLarge = errors.New("iohelper: body exceeds size limit")

// ReadCapped reads all of r as long as it fits in maxSize bytes. A larger
// body yields ErrTooLarge and no data; one byte past the cap is read to tell
// the two apart. A nil reader is an empty body.
//
// Usage:
//
//	body, err := iohelper.ReadCapped(resp.Body, defaults.MaxResponseBytes)
func ReadCapped(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// ReadSmall reads at most SmallMaxBodySize bytes, truncating silently.
func ReadSmall(r io.Reader) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, SmallMaxBodySize))
}

// DrainAndClose discards what is left of r (up to 64KB) and closes it so the
// connection can be reused for keep-alive. Always returns nil, for use in defer.
func DrainAndClose(r io.ReadCloser) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	r.Close()
	return nil
}
