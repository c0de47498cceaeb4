package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/V4T54L/logvault/internal/adapter/encoding"
	"github.com/V4T54L/logvault/internal/usecase"
)

var restoreCmd = &cobra.Command{
	Use:     "restore <artifact> <dest-dir>",
	GroupID: GroupInspect,
	Short:   "Decode an artifact and extract its files",
	Long: `Decode a backup artifact and unpack the archive into dest-dir.

The artifact is decoded with BACKUP_ENCODING unless --encoding names the
mode it was written with. Entries are restored relative to dest-dir;
entries with absolute or parent-relative names are rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

var restoreEncoding string

func init() {
	restoreCmd.Flags().StringVar(&restoreEncoding, "encoding", "", "encoding the artifact was written with (base64, base64url); defaults to BACKUP_ENCODING")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	mode := a.cfg.BackupEncoding
	if restoreEncoding != "" {
		mode = restoreEncoding
	}
	dec := encoding.Select(mode, a.logger)

	n, err := usecase.NewRestoreUseCase(dec, a.logger).Restore(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %d file(s) into %s\n", n, args[1])
	return nil
}
