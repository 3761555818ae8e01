package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter fans records out to its sinks from a single goroutine. Sinks are flushed
// whenever the queue runs empty, so bursts are written in batches.
type asyncWriter struct {
	queue   chan []byte
	flushes chan chan error
	done    chan struct{}

	// mu orders Write and Flush against Close.
	mu     sync.RWMutex
	closed bool

	sinks []*bufio.Writer

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
		}
	}
	w := &asyncWriter{
		queue:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
		sinks:   sinks,
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case rec, ok := <-w.queue:
			if !ok {
				w.record(w.flush())
				return
			}
			w.write(rec)
			if len(w.queue) == 0 {
				w.record(w.flush())
			}
		case ack := <-w.flushes:
			w.drain()
			ack <- w.flush()
		}
	}
}

// Write copies p and queues it. It blocks while the queue is full rather than drop lines.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	rec := append([]byte(nil), p...)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- rec
	return nil
}

// Flush returns once everything queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return w.firstErr()
	}
	ack := make(chan error, 1)
	w.flushes <- ack
	w.mu.RUnlock()
	return <-ack
}

// Close drains the queue and reports the first sink error seen over the writer's life.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) drain() {
	for {
		select {
		case rec, ok := <-w.queue:
			if !ok {
				return
			}
			w.write(rec)
		default:
			return
		}
	}
}

// write hands rec to every sink; a failing sink does not starve the others.
func (w *asyncWriter) write(rec []byte) {
	for _, s := range w.sinks {
		if _, err := s.Write(rec); err != nil {
			w.record(err)
		}
	}
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
