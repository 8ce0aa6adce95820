package sink

import (
	"bytes"
	"errors"
	"io"
	"syscall"
	"testing"
)

func TestWriteStringFlushesImmediately(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	if err := s.WriteString("hello "); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteString("world"); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "hello world"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrintf(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	if err := s.Printf("%d-%s", 7, "x"); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "7-x"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

type flakyWriter struct {
	fails int
	dst   *bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fails > 0 {
		w.fails--
		return 0, syscall.EINTR
	}
	return w.dst.Write(p)
}

func TestFlushRetriesOnEINTR(t *testing.T) {
	var dst bytes.Buffer
	w := &flakyWriter{fails: 2, dst: &dst}
	s := New(w)
	if err := s.WriteString("retry me"); err != nil {
		t.Fatal(err)
	}
	if got := dst.String(); got != "retry me" {
		t.Fatalf("got %q", got)
	}
}

type erroringWriter struct{ err error }

func (w *erroringWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestFlushPropagatesNonRetryableError(t *testing.T) {
	sentinel := errors.New("boom")
	s := New(&erroringWriter{err: sentinel})
	if err := s.WriteString("x"); !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want %v", err, sentinel)
	}
}

func TestResetDropsBufferedBytesAndRetargets(t *testing.T) {
	var first, second bytes.Buffer
	s := New(&first)
	s.buf = append(s.buf, "unflushed"...)
	s.Reset(&second)
	if err := s.WriteString("fresh"); err != nil {
		t.Fatal(err)
	}
	if first.Len() != 0 {
		t.Fatalf("first buffer should not have received the pre-reset bytes, got %q", first.String())
	}
	if got := second.String(); got != "fresh" {
		t.Fatalf("got %q", got)
	}
}

func TestFlushAllStopsAtFirstError(t *testing.T) {
	var ok bytes.Buffer
	sentinel := errors.New("fail")
	good := New(&ok)
	good.buf = append(good.buf, "a"...)
	bad := New(&erroringWriter{err: sentinel})
	bad.buf = append(bad.buf, "b"...)

	err := FlushAll(good, bad)
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want %v", err, sentinel)
	}
	if ok.String() != "a" {
		t.Fatalf("expected the first sink to have flushed before the error, got %q", ok.String())
	}
}

var _ io.Writer = (*flakyWriter)(nil)
