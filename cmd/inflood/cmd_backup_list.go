package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nvandessel/inflood/internal/backup"
	"github.com/spf13/cobra"
)

func newRunsBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List run archive snapshots, newest first",
		Long: `List the snapshots in ~/.inflood/backups with their size and run count.

Examples:
  inflood runs backups
  inflood runs backups --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := backup.DefaultDir()
			if err != nil {
				return fmt.Errorf("failed to get backup directory: %w", err)
			}

			backups, err := backup.List(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			if jsonOut {
				if backups == nil {
					backups = []backup.Info{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"backups":     backups,
					"total_count": len(backups),
					"directory":   dir,
				})
			}

			w := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintf(w, "No backups found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(w, "Backups in %s:\n", dir)
			var totalSize int64
			for _, b := range backups {
				totalSize += b.Size
				fmt.Fprintf(w, "  %s  %8s  %5d runs  %s\n",
					b.CreatedAt.Local().Format("2006-01-02 15:04"),
					formatBytes(b.Size),
					b.Runs,
					filepath.Base(b.Path))
			}
			fmt.Fprintf(w, "Total: %d backups, %s\n", len(backups), formatBytes(totalSize))
			return nil
		},
	}
}

func newRunsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a snapshot against its checksum",
		Long: `Check the SHA-256 checksum of a snapshot written by 'inflood runs backup'.

Examples:
  inflood runs verify ~/.inflood/backups/inflood-runs-20261018-120000.000000000.backup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			header, err := backup.Verify(args[0])
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "valid",
					"path":   args[0],
					"header": header,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup OK: %d runs, created %s\n",
				header.Runs, header.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(cmd.OutOrStdout(), "Checksum: %s\n", header.Checksum)
			return nil
		},
	}
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1fGB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1fMB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1fKB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
