package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kjk/inventory/atomicfile"
	"github.com/kjk/inventory/export"
	"github.com/kjk/inventory/item"
	"github.com/kjk/inventory/journal"
	"github.com/kjk/inventory/log"
	"github.com/kjk/inventory/recordstore"
	"github.com/kjk/inventory/snapshot"
	"github.com/spf13/cobra"
)

func (a *app) loadItems(args []string) ([]item.Item, error) {
	items, err := a.store().Load(a.dataFile(args))
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, nil
	}
	return items, err
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the journal of changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JournalDir == "" {
				return errors.New("journal is disabled, set --journal-dir or journal_dir in config")
			}
			entries, err := journal.ReadDir(a.cfg.JournalDir)
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s %s\n%s", e.Time.Format("2006-01-02 15:04:05"), e.Op, e.Data)
				if len(e.Data) > 0 && e.Data[len(e.Data)-1] != '\n' {
					fmt.Fprintln(out)
				}
			}
			if len(entries) == 0 && err == nil {
				fmt.Fprintf(out, "No changes recorded.\n")
			}
			return err
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export [data-file]",
		Short: "Export items as json or toon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.loadItems(args)
			if err != nil {
				return err
			}
			if outPath == "" {
				return export.Write(cmd.OutOrStdout(), items, format)
			}
			d, err := export.Marshal(items, format)
			if err != nil {
				return err
			}
			if filepath.Ext(outPath) == "" {
				outPath += export.Ext(format)
			}
			if err = atomicfile.WriteFile(outPath, d); err != nil {
				return err
			}
			log.Logf("exported %d items to '%s'\n", len(items), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatJSON, "json or toon")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, extension is added if missing (default is stdout)")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var format string
	var list bool
	cmd := &cobra.Command{
		Use:   "snapshot [data-file]",
		Short: "Save a compressed copy of the data file in the snapshot directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				snaps, err := snapshot.List(a.cfg.Snapshot.Dir)
				if err != nil {
					return err
				}
				for _, path := range snaps {
					fmt.Fprintf(out, "%s\n", path)
				}
				if len(snaps) == 0 {
					fmt.Fprintf(out, "No snapshots in '%s'.\n", a.cfg.Snapshot.Dir)
				}
				return nil
			}
			if format == "" {
				format = a.cfg.Snapshot.Format
			}
			path, err := snapshot.Create(a.dataFile(args), a.cfg.Snapshot.Dir, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "zst, br or gz (default from config)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list existing snapshots, oldest first")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot> [data-file]",
		Short: "Replace the data file with the content of a snapshot",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath := a.dataFile(args[1:])
			n, err := snapshot.Restore(args[0], dataPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d items from '%s' to '%s'.\n", n, args[0], dataPath)
			return nil
		},
	}
}

// backupTargets creates targets for every configured backup destination
func (a *app) backupTargets(ctx context.Context) ([]snapshot.Target, func(), error) {
	var targets []snapshot.Target
	var closers []func() error
	closeAll := func() {
		for _, fn := range closers {
			log.IfErrf(fn())
		}
	}
	b := a.cfg.Backup
	if b.Dir != "" {
		targets = append(targets, &snapshot.DirTarget{Dir: b.Dir})
	}
	if b.Minio.Endpoint != "" {
		mc := snapshot.MinioConfig(b.Minio)
		t, err := snapshot.NewMinioTarget(ctx, &mc)
		if err != nil {
			return nil, closeAll, fmt.Errorf("minio: %w", err)
		}
		targets = append(targets, t)
	}
	if b.SFTP.Host != "" {
		sc := snapshot.SFTPConfig(b.SFTP)
		t, err := snapshot.NewSFTPTarget(&sc)
		if err != nil {
			return nil, closeAll, fmt.Errorf("sftp: %w", err)
		}
		closers = append(closers, t.Close)
		targets = append(targets, t)
	}
	if b.HTTP.URL != "" {
		targets = append(targets, &snapshot.HTTPTarget{URL: b.HTTP.URL, APIKey: b.HTTP.APIKey})
	}
	return targets, closeAll, nil
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [data-file]",
		Short: "Create a snapshot and upload it to all configured backup targets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			targets, closeAll, err := a.backupTargets(ctx)
			defer closeAll()
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return errors.New("no backup targets configured")
			}
			path, err := snapshot.Create(a.dataFile(args), a.cfg.Snapshot.Dir, a.cfg.Snapshot.Format)
			if err != nil {
				return err
			}
			locs, err := snapshot.Backup(ctx, path, targets, log.Logf)
			for _, loc := range locs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", loc)
			}
			return err
		},
	}
}
