package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/inventory/journal"
	"github.com/kjk/inventory/recordstore"
	"github.com/spf13/cobra"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func isolateConfig(t *testing.T) {
	t.Setenv("INVENTORY_CONFIG_FILE", "")
	t.Setenv("INVENTORY_SNAPSHOT_DIR", filepath.Join(t.TempDir(), "snapshots"))
	t.Setenv("INVENTORY_BACKUP_DIR", "")
}

func TestMenuCommand(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "items.dat")
	journalDir := filepath.Join(dir, "journal")

	out, err := run(t, "2\n1\nWidget\n5\n9.99\n0\n2\n2\nGizmo\n1\n3\n3\n4\n2\n7\n6\n", "--journal-dir", journalDir, path)
	assert.NoError(t, err)
	assertContains(t, out, "No file found, starting with 0 items.\n", "Item added successfully.\n")

	out, err = run(t, "6\n", path)
	assert.NoError(t, err)
	assertContains(t, out, "Loaded 2 items successfully.\n")

	out, err = run(t, "", "history", "--journal-dir", journalDir)
	assert.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, " add\n"))
	assert.Equal(t, 1, strings.Count(out, " update\n"))
	assertContains(t, out, "Widget", "Gizmo")

	_, err = run(t, "", "history")
	assert.Error(t, err)
}

func TestMenuCommandCorruptFile(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "items.dat")
	assert.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	out, err := run(t, "1\n6\n", path)
	assert.NoError(t, err)
	assertContains(t, out, "Error loading items: ", "No items to display.\n")
}

func TestMenuCommandSaveFails(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "missing-dir", "items.dat")
	for _, stdin := range []string{"6\n", ""} {
		out, err := run(t, stdin, path)
		assert.NoError(t, err)
		assertContains(t, out, "Error saving items to file.\nExiting program.\n")
	}
}

func TestFilesClosedWhenCommandFails(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "journal")
	logDir := filepath.Join(dir, "logs")

	a := &app{}
	root := newRootCmd(a)
	root.AddCommand(&cobra.Command{
		Use: "fail",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openJournal(); err != nil {
				return err
			}
			return errors.New("fail")
		},
	})
	root.SetArgs([]string{"--journal-dir", journalDir, "--log-dir", logDir, "fail"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := a.execute(root)
	assert.EqualError(t, err, "fail")
	// the journal was opened and then closed
	assert.True(t, a.journal == nil)
	files, err := journal.Files(journalDir)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(files))
}

func TestExportSnapshotRestoreBackup(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "items.dat")
	_, err := run(t, "2\n1\nWidget\n5\n9.99\n0\n6\n", path)
	assert.NoError(t, err)

	out, err := run(t, "", "export", path)
	assert.NoError(t, err)
	assertContains(t, out, `"Widget"`, `"Electronics"`)

	toonPath := filepath.Join(dir, "items.toon")
	_, err = run(t, "", "export", "--format", "toon", "--out", toonPath, path)
	assert.NoError(t, err)
	d, err := os.ReadFile(toonPath)
	assert.NoError(t, err)
	assertContains(t, string(d), "Widget")

	// extension is added when missing
	_, err = run(t, "", "export", "--format", "TOON", "--out", filepath.Join(dir, "exported"), path)
	assert.NoError(t, err)
	d, err = os.ReadFile(filepath.Join(dir, "exported.toon"))
	assert.NoError(t, err)
	assertContains(t, string(d), "Widget")

	_, err = run(t, "", "export", "--format", "xml", path)
	assert.Error(t, err)

	out, err = run(t, "", "snapshot", "--list")
	assert.NoError(t, err)
	assertContains(t, out, "No snapshots in ")

	out, err = run(t, "", "snapshot", "--format", "br", path)
	assert.NoError(t, err)
	snapPath := strings.TrimSpace(out)
	assert.True(t, strings.HasSuffix(snapPath, ".dat.br"), "out: %s", out)

	out, err = run(t, "", "snapshot", "--list")
	assert.NoError(t, err)
	assert.Equal(t, snapPath+"\n", out)

	restored := filepath.Join(dir, "restored.dat")
	out, err = run(t, "", "restore", snapPath, restored)
	assert.NoError(t, err)
	assertContains(t, out, "Restored 1 items")
	items, err := recordstore.Load(restored)
	assert.NoError(t, err)
	assert.Equal(t, "Widget", items[0].Name)

	_, err = run(t, "", "backup", path)
	assert.Error(t, err)

	backupDir := filepath.Join(dir, "backup")
	t.Setenv("INVENTORY_BACKUP_DIR", backupDir)
	out, err = run(t, "", "backup", path)
	assert.NoError(t, err)
	assertContains(t, out, backupDir)
}
