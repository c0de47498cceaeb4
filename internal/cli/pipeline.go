package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/V4T54L/logvault/internal/usecase"
)

var sanitizeCmd = &cobra.Command{
	Use:     "sanitize",
	GroupID: GroupPipeline,
	Short:   "Mask PII in every raw log file",
	Long: `Read every file under RAW_LOG_DIR, mask PII line by line and write the
result under SANITIZED_LOG_DIR with the same relative path.

Unreadable files and failing lines are written to ERROR_LOG_PATH; they do
not stop the run.`,
	Args: cobra.NoArgs,
	RunE: runSanitize,
}

var backupCmd = &cobra.Command{
	Use:     "backup",
	GroupID: GroupPipeline,
	Short:   "Package sanitized logs into an encoded artifact",
	Long: `Archive every file under SANITIZED_LOG_DIR into a tar.gz, encode it and
leave backup-<YYYYMMDD-HHMMSS>.tar.gz.enc in BACKUP_OUTPUT_DIR.

With nothing to back up the command exits 0 without creating anything.
The encoding is reversible and is not encryption.`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: GroupPipeline,
	Short:   "Sanitize then back up",
	Args:    cobra.NoArgs,
	RunE:    runPipeline,
}

func init() {
	rootCmd.AddCommand(sanitizeCmd, backupCmd, runCmd)
}

func runSanitize(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	return sanitize(cmd, a)
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	return backup(cmd, a)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	if err := sanitize(cmd, a); err != nil {
		return err
	}
	return backup(cmd, a)
}

func sanitize(cmd *cobra.Command, a *app) error {
	uc, err := a.sanitizeUseCase()
	if err != nil {
		return err
	}
	summary, err := uc.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("sanitize failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sanitized %d file(s), %d line(s); %d file(s) and %d line(s) failed\n",
		summary.FilesTotal-summary.FilesFailed, summary.LinesProcessed, summary.FilesFailed, summary.LinesFailed)
	return nil
}

func backup(cmd *cobra.Command, a *app) error {
	uc, closeStores := a.backupUseCase(cmd.Context())
	defer closeStores()

	res, err := uc.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	printBackupResult(cmd, res)
	return nil
}

func printBackupResult(cmd *cobra.Command, res *usecase.BackupResult) {
	out := cmd.OutOrStdout()
	if res.Artifact == nil {
		fmt.Fprintf(out, "run %s: nothing to back up\n", res.RunID)
		return
	}
	fmt.Fprintf(out, "run %s: wrote %s (%d bytes, %d file(s))\n",
		res.RunID, res.Artifact.Path, res.Artifact.SizeBytes, res.Report.FileCount)
}
