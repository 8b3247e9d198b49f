package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvandessel/inflood/internal/backup"
	"github.com/spf13/cobra"
)

func newRunsBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the run archive",
		Long: `Write every archived run to a checksummed, compressed snapshot.

Snapshots go to ~/.inflood/backups unless --output is given. After writing
into the backup directory, older snapshots are pruned: the newest --keep
are retained, plus any younger than --max-age.

Examples:
  inflood runs backup
  inflood runs backup --keep 5 --max-age 30d
  inflood runs backup -o /mnt/archive/runs.backup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			policy, err := retentionPolicy(keep, maxAge)
			if err != nil {
				return err
			}

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			dir := ""
			path := output
			if path == "" {
				if dir, err = backup.DefaultDir(); err != nil {
					return err
				}
				path = backup.GeneratePath(dir, time.Now())
			}

			header, err := backup.Backup(cmd.Context(), s, path)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			var pruned []string
			if dir != "" {
				if pruned, err = backup.ApplyRetention(dir, policy); err != nil {
					return fmt.Errorf("pruning old backups: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":   path,
					"header": header,
					"pruned": pruned,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d runs to %s\n", header.Runs, path)
			if len(pruned) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d old backups\n", len(pruned))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Snapshot file (default a new file in ~/.inflood/backups)")
	cmd.Flags().Int("keep", 10, "Number of snapshots to keep in the backup directory")
	cmd.Flags().String("max-age", "", "Also keep snapshots younger than this (e.g. 30d, 2w, 720h)")
	return cmd
}

// retentionPolicy builds the pruning policy of runs backup.
func retentionPolicy(keep int, maxAge string) (backup.RetentionPolicy, error) {
	if keep < 1 {
		return nil, fmt.Errorf("--keep must be at least 1, got %d", keep)
	}
	count := &backup.CountPolicy{MaxCount: keep}
	if maxAge == "" {
		return count, nil
	}
	age, err := backup.ParseDuration(maxAge)
	if err != nil {
		return nil, fmt.Errorf("invalid --max-age: %w", err)
	}
	return &backup.CompositePolicy{Policies: []backup.RetentionPolicy{
		count,
		&backup.AgePolicy{MaxAge: age},
	}}, nil
}

func newRunsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore runs from a snapshot",
		Long: `Verify a snapshot written by 'inflood runs backup' and restore its runs.
Runs already in the archive are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := backup.Restore(cmd.Context(), s, args[0])
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d runs (%d already present)\n", result.Restored, result.Skipped)
			return nil
		},
	}
}
