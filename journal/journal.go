// Package journal records every change made to the inventory in an
// append-only log that rotates daily. Each entry is a siser block named
// after the operation, with the item encoded as toon.
package journal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kjk/inventory/filerotate"
	"github.com/kjk/inventory/inventory"
	"github.com/kjk/inventory/siser"
	"github.com/toon-format/toon-go"
)

const (
	filePrefix = "journal-"
	fileExt    = ".siser"
)

// Journal is safe for concurrent use
type Journal struct {
	dir  string
	file *filerotate.File
	buf  bytes.Buffer
	mu   sync.Mutex
}

// Pos is where an entry starts
type Pos struct {
	Path   string
	Offset int64
}

// Entry is a single recorded change
type Entry struct {
	Pos  Pos
	Time time.Time
	Op   string
	// item and status encoded as toon
	Data string
}

// Open opens the journal in dir, creating dir if needed
func Open(dir string, didRotate func(path string)) (*Journal, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	didClose := func(path string, rotated bool) {
		if rotated && didRotate != nil {
			didRotate(path)
		}
	}
	f, err := filerotate.NewDaily(&filerotate.Config{
		Dir:      absDir,
		Prefix:   filePrefix,
		Ext:      fileExt,
		DidClose: didClose,
	})
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{
		dir:  absDir,
		file: f,
	}, nil
}

// Dir returns the directory with journal files
func (j *Journal) Dir() string {
	return j.dir
}

func encodeChange(c inventory.Change) ([]byte, error) {
	it := c.Item
	m := map[string]any{
		"id":        it.ID,
		"name":      it.Name,
		"quantity":  it.Quantity,
		"price":     it.Price,
		"category":  it.Category.String(),
		"persisted": c.Persisted,
	}
	return toon.Marshal(m)
}

// Write records c and syncs it to disk. Returns where the entry was written.
// It's safe to call on nil receiver.
func (j *Journal) Write(c inventory.Change) (Pos, error) {
	if j == nil {
		return Pos{}, nil
	}
	d, err := encodeChange(c)
	if err != nil {
		return Pos{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return Pos{}, errors.New("journal: closed")
	}
	// don't hold on to a buffer grown by a single large entry
	if j.buf.Cap() > 64*1024 {
		j.buf = bytes.Buffer{}
	}
	line := siser.MarshalLine(c.Op, time.Now().UTC(), d, &j.buf)
	path, off, _, err := j.file.WriteSync(line, true)
	if err != nil {
		return Pos{}, fmt.Errorf("journal: %w", err)
	}
	return Pos{Path: path, Offset: off}, nil
}

// Close closes the journal. It's safe to call on nil receiver.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// Files returns journal files in dir, oldest first
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var res []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		res = append(res, filepath.Join(dir, name))
	}
	// names are journal-YYYY-MM-DD.siser so lexical order is chronological
	sort.Strings(res)
	return res, nil
}

// ReadFile reads all entries from a journal file
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var res []Entry
	r := siser.NewReader(bufio.NewReader(f))
	for r.ReadNextData() {
		e := Entry{
			Pos:  Pos{Path: path, Offset: r.CurrRecordPos},
			Time: r.Timestamp.UTC(),
			Op:   r.Name,
			Data: string(r.Data),
		}
		res = append(res, e)
	}
	if err = r.Err(); err != nil {
		return res, fmt.Errorf("journal: reading '%s': %w", path, err)
	}
	return res, nil
}

// ReadDir reads entries from all journal files in dir, oldest first.
// A missing dir has no entries.
func ReadDir(dir string) ([]Entry, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	var res []Entry
	for _, path := range files {
		entries, err := ReadFile(path)
		res = append(res, entries...)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
