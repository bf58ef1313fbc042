package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load, chunk, embed and index every document in a folder",
	Long: `Ingest reads every supported file in dir (default: documents.dir from the
config), splits it into chunks, embeds them in batches and writes the index.
Unreadable files and failed batches are reported and skipped; the command
fails only when the folder cannot be read or the index cannot be written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir := cfg.Documents.Dir
	if len(args) == 1 {
		dir = args[0]
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.ingest.Ingest(ctx, dir)
	if err != nil {
		return err
	}
	printIngestReport(cmd.OutOrStdout(), dir, report)
	return nil
}
