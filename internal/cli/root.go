// Package cli provides the logvault commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "logvault",
	Short:   "Anonymize application logs and archive them as encoded backups",
	Version: Version,
	Long: `logvault masks PII (emails, phone numbers, national IDs, IP addresses)
in raw application logs and packages the sanitized output into encoded
backup artifacts.

Every setting comes from the environment (or a .env file); see
RAW_LOG_DIR, SANITIZED_LOG_DIR, BACKUP_OUTPUT_DIR and BACKUP_ENCODING.`,
	SilenceUsage: true,
}

// Command group IDs used to organize help output.
const (
	GroupPipeline = "pipeline"
	GroupInspect  = "inspect"
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPipeline, Title: "Pipeline:"},
		&cobra.Group{ID: GroupInspect, Title: "Inspection:"},
	)
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Already printed by cobra.
		return 1
	}
	return 0
}
