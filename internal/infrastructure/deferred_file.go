package infrastructure

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"icarecli/internal/config"
)

// DeferredFile is a file output that holds writes in memory until Open is
// called. Closing a DeferredFile that was never opened drops what was written
// and leaves the file system untouched.
type DeferredFile struct {
	path string
	flag int

	mu     sync.Mutex
	buf    bytes.Buffer
	file   *os.File
	closed bool
}

// NewDeferredFile creates a deferred output for path. flag is combined with
// os.O_CREATE|os.O_WRONLY when the file is opened, e.g. os.O_APPEND or os.O_TRUNC.
func NewDeferredFile(path string, flag int) *DeferredFile {
	return &DeferredFile{path: path, flag: flag}
}

// Path returns the file path
func (d *DeferredFile) Path() string {
	return d.path
}

// Write buffers p until the file is opened, then writes through
func (d *DeferredFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return 0, os.ErrClosed
	case d.file != nil:
		return d.file.Write(p)
	default:
		return d.buf.Write(p)
	}
}

// Open creates the file and its directory and flushes the buffered writes.
// Opening an open file is a no-op.
func (d *DeferredFile) Open() error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return os.ErrClosed
	}
	if d.file != nil {
		return nil
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, config.DirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	file, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|d.flag, config.FilePerm)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", d.path, err)
	}
	if _, err := d.buf.WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", d.path, err)
	}

	d.file = file
	return nil
}

// Opened reports whether Open has succeeded
func (d *DeferredFile) Opened() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file != nil
}

// Close closes the file if it was opened and drops any buffered writes
func (d *DeferredFile) Close() error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.buf.Reset()

	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
