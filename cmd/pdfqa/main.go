// Command pdfqa answers questions over a folder of PDF documents.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/config"
	logpkg "github.com/kailas-cloud/pdfqa/internal/logger"
)

var (
	flagConfig string
	flagEnv    string

	// set by the root PersistentPreRunE
	cfg    config.Config
	env    string
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "pdfqa",
	Short:        "Question answering over a folder of PDF documents",
	SilenceUsage: true,
	Long: `pdfqa ingests PDF and text files into a vector index and answers
questions from the indexed passages with an LLM, listing the sources used.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := godotenv.Load(flagEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", flagEnv, err)
		}

		env = config.GetEnv()
		var err error
		if flagConfig != "" {
			cfg, err = config.LoadFile(flagConfig)
		} else {
			cfg, err = config.Load(env)
		}
		if err != nil {
			return err
		}

		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file (default: config/$ENV.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", ".env", "Path to a dotenv file; a missing file is ignored")
	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
