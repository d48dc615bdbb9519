// Package filerotate implements an append-only file that switches to
// a new file when the day (in UTC) changes.
package filerotate

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	Dir string
	// optional prefix of the file name
	Prefix string
	// extension of the file name, defaults to ".txt"
	Ext string
	// called after a file is closed, didRotate is false for Close()
	DidClose func(path string, didRotate bool)
	// for tests
	now func() time.Time
}

// File is safe for concurrent use
type File struct {
	mu     sync.Mutex
	config Config
	path   string
	// when the current file was opened
	opened time.Time
	file   *os.File
}

// IsSameDay returns true if t1 and t2 are on the same calendar day in UTC
func IsSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.UTC().Date()
	y2, m2, d2 := t2.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// PathForDay returns the path of the file used for a day of t
func (c *Config) PathForDay(t time.Time) string {
	ext := c.Ext
	if ext == "" {
		ext = ".txt"
	}
	return filepath.Join(c.Dir, c.Prefix+t.UTC().Format("2006-01-02")+ext)
}

// NewDaily opens (or creates) today's file in dir
func NewDaily(config *Config) (*File, error) {
	if config == nil || config.Dir == "" {
		return nil, errors.New("filerotate: must provide config.Dir")
	}
	f := &File{
		config: *config,
	}
	if f.config.now == nil {
		f.config.now = time.Now
	}
	if err := f.reopenIfNeeded(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) close(didRotate bool) error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	if err == nil && f.config.DidClose != nil {
		f.config.DidClose(f.path, didRotate)
	}
	return err
}

func (f *File) open(now time.Time) error {
	path := f.config.PathForDay(now)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// not O_APPEND so that Seek reports the write position
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err = file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return err
	}
	f.file = file
	f.path = path
	f.opened = now
	return nil
}

func (f *File) reopenIfNeeded() error {
	now := f.config.now()
	if f.file != nil && IsSameDay(f.opened, now) {
		return nil
	}
	if err := f.close(f.file != nil); err != nil {
		return err
	}
	return f.open(now)
}

// Write appends d to the current file
func (f *File) Write(d []byte) (int, error) {
	_, _, n, err := f.WriteSync(d, false)
	return n, err
}

// WriteSync appends d and, if flush is true, syncs the file to disk.
// Returns the file and offset at which d was written.
func (f *File) WriteSync(d []byte, flush bool) (string, int64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reopenIfNeeded(); err != nil {
		return "", 0, 0, err
	}
	pos, err := f.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", 0, 0, err
	}
	n, err := f.file.Write(d)
	if err == nil && flush {
		err = f.file.Sync()
	}
	return f.path, pos, n, err
}

// Close closes the current file. Write after Close re-opens it.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.close(false)
}
