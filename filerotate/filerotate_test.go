package filerotate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestIsSameDay(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC)
	assert.True(t, IsSameDay(t1, t1.Add(23*time.Hour)))
	assert.False(t, IsSameDay(t1, t1.Add(24*time.Hour)))
	// same day of year, different year
	assert.False(t, IsSameDay(t1, t1.AddDate(1, 0, 0)))
}

func TestNewDailyRequiresDir(t *testing.T) {
	_, err := NewDaily(nil)
	assert.Error(t, err)
	_, err = NewDaily(&Config{})
	assert.Error(t, err)
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	var closed []string
	var rotated []bool
	config := &Config{
		Dir:    dir,
		Prefix: "journal-",
		Ext:    ".siser",
		DidClose: func(path string, didRotate bool) {
			closed = append(closed, path)
			rotated = append(rotated, didRotate)
		},
		now: func() time.Time { return now },
	}
	f, err := NewDaily(config)
	assert.NoError(t, err)
	path1 := filepath.Join(dir, "journal-2024-03-01.siser")
	assert.Equal(t, path1, config.PathForDay(now))

	_, err = f.Write([]byte("one\n"))
	assert.NoError(t, err)
	path, pos, n, err := f.WriteSync([]byte("two\n"), true)
	assert.NoError(t, err)
	assert.Equal(t, path1, path)
	assert.Equal(t, int64(4), pos)
	assert.Equal(t, 4, n)

	now = now.Add(2 * time.Minute)
	path, pos, _, err = f.WriteSync([]byte("three\n"), false)
	assert.NoError(t, err)
	path2 := filepath.Join(dir, "journal-2024-03-02.siser")
	assert.Equal(t, path2, path)
	assert.Equal(t, int64(0), pos)
	assert.NoError(t, f.Close())

	assert.Equal(t, []string{path1, path2}, closed)
	assert.Equal(t, []bool{true, false}, rotated)

	d, err := os.ReadFile(path1)
	assert.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(d))
	d, err = os.ReadFile(path2)
	assert.NoError(t, err)
	assert.Equal(t, "three\n", string(d))

	// re-opening appends
	f, err = NewDaily(config)
	assert.NoError(t, err)
	_, pos, _, err = f.WriteSync([]byte("four\n"), false)
	assert.NoError(t, err)
	assert.Equal(t, int64(6), pos)
	assert.NoError(t, f.Close())
}
