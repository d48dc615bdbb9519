// Package cli implements the inventory command line: an interactive menu
// and commands for history, export, snapshots and backups.
//
// Configuration comes from flags, INVENTORY_* environment variables,
// a .env file and an optional .inventory.yml (see package config).
package cli

import (
	"fmt"
	"io"

	"github.com/kjk/inventory/config"
	"github.com/kjk/inventory/inventory"
	"github.com/kjk/inventory/journal"
	"github.com/kjk/inventory/log"
	"github.com/kjk/inventory/recordstore"
	"github.com/spf13/cobra"
)

// app is state shared by all commands
type app struct {
	cfgFile string
	cfg     *config.Config
	journal *journal.Journal
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	log.Stdout = cmd.ErrOrStderr()
	log.Verbose = cfg.Verbose
	if err = log.Init(&log.Config{Dir: cfg.LogDir}); err != nil {
		return err
	}
	if cfg.File != "" {
		log.Verbosef("using config file '%s'\n", cfg.File)
	}
	return nil
}

// close releases files opened by setup and commands.
// It's called after the command runs, also when the command fails.
func (a *app) close() error {
	err := a.journal.Close()
	a.journal = nil
	log.Close()
	return err
}

// openJournal opens the journal if journal_dir is set
func (a *app) openJournal() error {
	if a.cfg.JournalDir == "" || a.journal != nil {
		return nil
	}
	didRotate := func(path string) {
		log.Verbosef("journal: rotated '%s'\n", path)
	}
	j, err := journal.Open(a.cfg.JournalDir, didRotate)
	if err != nil {
		return err
	}
	a.journal = j
	return nil
}

func (a *app) onChange(c inventory.Change) {
	if !c.Persisted {
		log.Errorf("%s of item %d was not saved to '%s'", c.Op, c.Item.ID, a.cfg.DataFile)
	} else {
		log.Verbosef("%s item %d\n", c.Op, c.Item.ID)
	}
	pos, err := a.journal.Write(c)
	if err != nil {
		log.Errorf("journal: %s of item %d not recorded: %s", c.Op, c.Item.ID, err)
		return
	}
	if pos.Path != "" {
		log.Verbosef("journal: %s of item %d at %s:%d\n", c.Op, c.Item.ID, pos.Path, pos.Offset)
	}
}

func (a *app) store() recordstore.Store {
	return recordstore.Store{Direct: a.cfg.DirectWrite}
}

func (a *app) dataFile(args []string) string {
	if len(args) > 0 && args[0] != "" {
		a.cfg.DataFile = args[0]
	}
	return a.cfg.DataFile
}

func (a *app) runMenu(cmd *cobra.Command, args []string) error {
	path := a.dataFile(args)
	if err := a.openJournal(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	opts := &inventory.Options{
		Store:    a.store(),
		OnChange: a.onChange,
	}
	m, err := inventory.Open(path, opts)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Error loading items: %s\n", err)
	case m.IsNew():
		fmt.Fprintf(out, "No file found, starting with %d items.\n", m.Len())
	default:
		fmt.Fprintf(out, "Loaded %d items successfully.\n", m.Len())
	}
	return RunMenu(m, cmd.InOrStdin(), out)
}

// newRootCmd creates the inventory command with all sub-commands
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "inventory [data-file]",
		Short: "Manage an inventory of items stored in a binary file",
		Long: `Manage an inventory of items stored in a flat binary file.

Without a sub-command runs an interactive menu to list, add, search,
update and delete items. Every change is saved immediately.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runMenu,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .inventory.yml, can also use INVENTORY_CONFIG_FILE env var)")
	flags.BoolP("verbose", "v", false, "verbose logging")
	flags.String("log-dir", "", "directory for log files")
	flags.String("journal-dir", "", "directory for the journal of changes")
	flags.Bool("direct-write", false, "save by truncating the data file instead of replacing it atomically")

	root.AddCommand(
		newHistoryCmd(a),
		newExportCmd(a),
		newSnapshotCmd(a),
		newRestoreCmd(a),
		newBackupCmd(a),
	)
	return root
}

// Execute runs the command line with given args, reading from in and
// writing to out and errOut
func Execute(args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return a.execute(root)
}

// execute runs root and closes what the command opened, even on error
func (a *app) execute(root *cobra.Command) error {
	err := root.Execute()
	if errClose := a.close(); err == nil {
		err = errClose
	}
	return err
}
