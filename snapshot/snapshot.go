// Package snapshot makes compressed point-in-time copies of the data file,
// restores them and uploads them to backup targets.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kjk/inventory/atomicfile"
	"github.com/kjk/inventory/item"
	"github.com/kjk/inventory/recordstore"
	"github.com/kjk/inventory/u"
)

// ErrInvalid is returned for data that is not a whole number of records
var ErrInvalid = errors.New("snapshot: size is not a multiple of record size")

const timeFormat = "20060102-150405"

// for tests
var timeNow = time.Now

func checkSize(size int64) error {
	if size%item.RecordSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrInvalid, size)
	}
	return nil
}

// snapshotPath returns a path in dir that doesn't exist yet, based on
// the name of the data file and the current time e.g.
// items-20240102-150405.dat.zst
func snapshotPath(dir, dataPath, ext string) string {
	base := filepath.Base(dataPath)
	dataExt := filepath.Ext(base)
	base = strings.TrimSuffix(base, dataExt)
	name := base + "-" + timeNow().UTC().Format(timeFormat)
	path := filepath.Join(dir, name+dataExt+ext)
	for i := 1; u.FileExists(path); i++ {
		path = filepath.Join(dir, name+"-"+strconv.Itoa(i)+dataExt+ext)
	}
	return path
}

// Create writes a compressed copy of dataPath into dir and returns its path.
// format is "zst", "br" or "gz".
func Create(dataPath, dir, format string) (string, error) {
	ext := u.CompressExt(format)
	if ext == "" {
		return "", fmt.Errorf("snapshot: unsupported format '%s'", format)
	}
	src, err := os.Open(dataPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	st, err := src.Stat()
	if err != nil {
		return "", err
	}
	if err = checkSize(st.Size()); err != nil {
		return "", err
	}
	if err = os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := snapshotPath(dir, dataPath, ext)
	f, err := atomicfile.New(path)
	if err != nil {
		return "", err
	}
	defer f.RemoveIfNotClosed()
	zw, err := u.NewCompressWriter(f, ext)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(zw, src)
	err2 := zw.Close()
	if err != nil {
		return "", err
	}
	if err2 != nil {
		return "", err2
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Restore replaces dataPath with the decompressed content of snapshotPath.
// The snapshot is fully decoded before dataPath is touched.
// Returns the number of restored items.
func Restore(snapshotPath, dataPath string) (int, error) {
	d, err := u.ReadFileMaybeCompressed(snapshotPath)
	if err != nil {
		return 0, fmt.Errorf("snapshot: reading '%s': %w", snapshotPath, err)
	}
	if err = checkSize(int64(len(d))); err != nil {
		return 0, err
	}
	n := len(d) / item.RecordSize
	if _, err = recordstore.Decode(d, n); err != nil {
		return 0, err
	}
	if err = atomicfile.WriteFile(dataPath, d); err != nil {
		return 0, fmt.Errorf("%w: '%s': %w", recordstore.ErrWrite, dataPath, err)
	}
	return n, nil
}

// List returns snapshots in dir, oldest first
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type snap struct {
		path    string
		modTime time.Time
	}
	var snaps []snap
	for _, e := range entries {
		if !e.Type().IsRegular() || u.CompressExt(filepath.Ext(e.Name())) == "" {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, snap{filepath.Join(dir, e.Name()), fi.ModTime()})
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		if snaps[i].modTime.Equal(snaps[j].modTime) {
			return snaps[i].path < snaps[j].path
		}
		return snaps[i].modTime.Before(snaps[j].modTime)
	})
	res := make([]string, len(snaps))
	for i, s := range snaps {
		res[i] = s.path
	}
	return res, nil
}
