// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package sink provides a small retry-on-partial-write wrapper around an
// io.Writer, for the shell's stdout/stderr paths. Writes made through
// WriteString and Printf are flushed before the call returns.
package sink

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// Sink buffers writes to an underlying io.Writer and retries on the
// transient errors a terminal or pipe file descriptor can return
// (EINTR, EAGAIN), rather than surfacing them to the caller.
type Sink struct {
	w   io.Writer
	buf []byte
}

// New wraps w in a Sink with no initial buffered bytes.
func New(w io.Writer) *Sink {
	return &Sink{w: w}
}

// WriteString appends s to the buffer, flushing immediately: nothing is
// held across calls, since the shell interleaves stdout and stderr
// writers that can be swapped out from under it by redirections.
func (s *Sink) WriteString(str string) error {
	s.buf = append(s.buf, str...)
	return s.Flush()
}

// Printf formats and writes, flushing immediately.
func (s *Sink) Printf(format string, a ...any) error {
	s.buf = fmt.Appendf(s.buf[:0], format, a...)
	return s.Flush()
}

// Flush writes any buffered bytes to the underlying writer, retrying on
// EINTR/EAGAIN and on short writes, until the buffer is empty or a
// non-retryable error occurs.
func (s *Sink) Flush() error {
	for len(s.buf) > 0 {
		n, err := s.w.Write(s.buf)
		s.buf = s.buf[n:]
		if err != nil {
			if isRetryable(err) {
				continue
			}
			return err
		}
	}
	s.buf = s.buf[:0]
	return nil
}

func isRetryable(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

// Reset points the sink at a new underlying writer and discards any
// buffered bytes, without flushing them. This is the counterpart to
// libc's freestdout(): call it right after a fork-like split (a
// goroutine that will go on to write to a different descriptor) so the
// new path never re-flushes bytes the original path already owns.
func (s *Sink) Reset(w io.Writer) {
	s.w = w
	s.buf = s.buf[:0]
}

// FlushAll flushes every sink in order, stopping at the first error.
func FlushAll(sinks ...*Sink) error {
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}
