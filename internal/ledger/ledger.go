package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrClosed is returned by Record after Close.
	ErrClosed = errors.New("ledger is closed")
	// ErrInvalidName is returned for names that would not fit on one line.
	ErrInvalidName = errors.New("ledger entry must be a non-empty single line")
)

type request struct {
	line string
	errc chan error
}

// Ledger is the append-only record of skipped renditions. A single goroutine
// owns the file; Record calls from any goroutine are serialized through it,
// so each caller's entries keep their order.
type Ledger struct {
	path string
	reqs chan request
	done chan struct{}

	mu       sync.RWMutex
	closed   bool
	closeErr error
}

// Open opens (creating if absent) the ledger file name inside dir for
// appending. Existing entries are never truncated.
func Open(dir, name string) (*Ledger, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}

	l := &Ledger{
		path: path,
		reqs: make(chan request),
		done: make(chan struct{}),
	}
	go l.run(f)

	return l, nil
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) run(f *os.File) {
	defer close(l.done)

	for req := range l.reqs {
		_, err := f.WriteString(req.line + "\n")
		req.errc <- err
	}

	l.closeErr = f.Close()
}

// Record appends name as one line. Repeated names are written again.
func (l *Ledger) Record(name string) error {
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return ErrClosed
	}

	errc := make(chan error, 1)
	l.reqs <- request{line: name, errc: errc}
	if err := <-errc; err != nil {
		return fmt.Errorf("failed to append to ledger %s: %w", l.path, err)
	}

	return nil
}

// Close stops the writer and closes the file. It is safe to call twice.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.reqs)
	l.mu.Unlock()

	<-l.done
	return l.closeErr
}
