// Package recordstore reads and writes a flat binary file of item records.
//
// The file has no header, footer or count. It's a concatenation of
// item.RecordSize records and the number of items is the file size divided
// by the record size.
package recordstore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kjk/inventory/atomicfile"
	"github.com/kjk/inventory/item"
	"github.com/kjk/inventory/u"
)

var (
	// ErrNotFound is returned by Load when the file doesn't exist yet.
	// It's not a failure: callers start with an empty collection
	ErrNotFound = errors.New("recordstore: file doesn't exist")
	// ErrRead is wrapped by errors for files that exist but can't be fully read
	ErrRead = errors.New("recordstore: read error")
	// ErrWrite is wrapped by errors for records that couldn't be fully written
	ErrWrite = errors.New("recordstore: write error")
)

// Store implements Load and Save as methods so that it can be swapped out.
// The zero value is ready to use.
type Store struct {
	// if true, Save truncates the file and writes in place.
	// A crash in the middle of Save leaves a truncated file.
	// By default we write to a temp file and rename it over the destination
	Direct bool
}

func (s Store) Load(path string) ([]item.Item, error) {
	return Load(path)
}

func (s Store) Save(path string, items []item.Item) error {
	if s.Direct {
		return SaveDirect(path, items)
	}
	return Save(path, items)
}

// Load reads all records from path
func Load(path string) ([]item.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	size := st.Size()
	if size%item.RecordSize != 0 {
		return nil, fmt.Errorf("%w: size of '%s' is %d, not a multiple of record size %d", ErrRead, path, size, item.RecordSize)
	}
	count := int(size / item.RecordSize)

	d := make([]byte, size)
	n, err := io.ReadFull(f, d)
	if err != nil {
		return nil, fmt.Errorf("%w: read %d of %d bytes from '%s': %w", ErrRead, n, size, path, err)
	}
	return Decode(d, count)
}

// Decode decodes count records from d
func Decode(d []byte, count int) ([]item.Item, error) {
	if len(d) < count*item.RecordSize {
		return nil, fmt.Errorf("%w: need %d bytes for %d records, have %d", ErrRead, count*item.RecordSize, count, len(d))
	}
	items := make([]item.Item, count)
	for i := range items {
		off := i * item.RecordSize
		if err := item.UnmarshalRecord(d[off:off+item.RecordSize], &items[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrRead, i, err)
		}
	}
	return items, nil
}

// Encode returns binary representation of items
func Encode(items []item.Item) []byte {
	d := make([]byte, 0, len(items)*item.RecordSize)
	for i := range items {
		d = items[i].MarshalRecord(d)
	}
	u.PanicIf(len(d) != len(items)*item.RecordSize, "encoded %d items as %d bytes", len(items), len(d))
	return d
}

// Save replaces the content of path with items.
// The file is written to a temporary file first and renamed so a crash
// never leaves a partial file behind.
func Save(path string, items []item.Item) error {
	d := Encode(items)
	f, err := atomicfile.New(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer f.RemoveIfNotClosed()

	_, err = f.Write(d)
	if err == nil && f.Written() != int64(len(d)) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("%w: wrote %d of %d bytes to '%s': %w", ErrWrite, f.Written(), len(d), path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// SaveDirect truncates path and writes items to it
func SaveDirect(path string, items []item.Item) error {
	d := Encode(items)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	n, err := f.Write(d)
	if err == nil && n != len(d) {
		err = io.ErrShortWrite
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: wrote %d of %d bytes to '%s': %w", ErrWrite, n, len(d), path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
