package main

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrypster/lorebinders/internal/backup"
	"github.com/scrypster/lorebinders/internal/config"
	"github.com/scrypster/lorebinders/internal/connections"
)

var (
	backupDir  string
	backupKeep int
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the SQLite cache",
	Long: `Writes a verified snapshot of the SQLite cache into the backup directory
and prunes old snapshots beyond --keep.`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot>",
	Short: "Replace the SQLite cache with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	backupCmd.Flags().StringVar(&backupDir, "dir", "", "backup directory (default: <data_path>/backups)")
	backupCmd.Flags().IntVar(&backupKeep, "keep", 10, "number of snapshots to keep")
	rootCmd.AddCommand(backupCmd, restoreCmd)
}

func sqlitePath(cfg *config.Config) (string, error) {
	if cfg.Storage.Engine != "sqlite" {
		return "", errors.New("backup is only supported for the sqlite storage engine")
	}
	return filepath.Join(cfg.Storage.DataPath, connections.SQLiteFilename), nil
}

func runBackup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	dbPath, err := sqlitePath(cfg)
	if err != nil {
		return err
	}
	dir := backupDir
	if dir == "" {
		dir = filepath.Join(cfg.Storage.DataPath, "backups")
	}

	info, err := backup.Snapshot(cmd.Context(), dbPath, dir, time.Now())
	if err != nil {
		return err
	}
	cmd.Printf("Snapshot written to %s (%d bytes)\n", info.Path, info.Size)

	removed, err := backup.Prune(dir, backupKeep)
	for _, path := range removed {
		cmd.Printf("Removed %s\n", path)
	}
	return err
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	dbPath, err := sqlitePath(cfg)
	if err != nil {
		return err
	}
	if err := backup.Restore(cmd.Context(), args[0], dbPath); err != nil {
		return err
	}
	cmd.Printf("Restored %s from %s\n", dbPath, args[0])
	return nil
}
