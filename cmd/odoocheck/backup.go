package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/odoocheck/backup"
	"github.com/viant/odoocheck/config"
)

var backupRoot string

// backupCmd copies an addon into a fresh backup directory
var backupCmd = &cobra.Command{
	Use:   "backup [addon]",
	Short: "Copy an addon into a new timestamped backup directory",
	Long: `Copy an addon into <root>/<addon>_backup_<YYYYMMDD_HHMMSS>. An existing backup
is never reused, a numeric suffix is added instead. The copy carries a MANIFEST.yaml
with per-file hashes and a tree hash used by verify and restore.

Examples:
  # Backup next to the addon
  odoocheck backup ./records_management

  # Verify and restore a backup
  odoocheck backup verify ./records_management_backup_20240301_103000
  odoocheck backup restore ./records_management_backup_20240301_103000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify <backup>",
	Short: "Check a backup against its manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupVerify,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup> [target]",
	Short: "Copy a verified backup back, into its source by default",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runBackupRestore,
}

func init() {
	backupCmd.Flags().StringVar(&backupRoot, "root", "", "folder receiving backups (default backup.root, else the addon parent)")
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}

func newBackupService(cmd *cobra.Command, root string) (*backup.Service, *config.Config, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	return backup.New(logger), cfg, nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	root := addonRoot(args)
	service, cfg, err := newBackupService(cmd, root)
	if err != nil {
		return err
	}
	target := backupRoot
	if target == "" {
		target = cfg.Backup.Root
	}
	created, err := service.CreateUniqueBackup(cmd.Context(), root, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d files, %s)\n", created.Path, len(created.Manifest.Files), created.Manifest.TreeHash)
	return nil
}

func runBackupVerify(cmd *cobra.Command, args []string) error {
	service, _, err := newBackupService(cmd, "")
	if err != nil {
		return err
	}
	manifest, err := service.Verify(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s ok: %d files of %s\n", args[0], len(manifest.Files), manifest.Source)
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	service, _, err := newBackupService(cmd, "")
	if err != nil {
		return err
	}
	target := ""
	if len(args) > 1 {
		target = args[1]
	}
	restored, err := service.Restore(cmd.Context(), args[0], target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %d files\n", len(restored))
	return nil
}
