package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"code-sprint/internal/content"
	"code-sprint/internal/database"
	"code-sprint/internal/sandbox"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Prepare the code-sprint database and content",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load")

	root.AddCommand(newUpCmd(&envFile))
	root.AddCommand(newCheckCmd())
	return root
}

func newUpCmd(envFile *string) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply the schema in one transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(*envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", *envFile, err)
			}
			dbURL := os.Getenv("DATABASE_URL")
			if dbURL == "" {
				return fmt.Errorf("DATABASE_URL not found in %s", *envFile)
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			start := time.Now()
			db, err := database.Connect(ctx, dbURL, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			logger.Info("schema applied", zap.Duration("took", time.Since(start)))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var contentPath, languagesPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the question catalog and the sandbox language table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := content.Load(contentPath)
			if err != nil {
				return err
			}
			langs, err := sandbox.LoadLanguages(languagesPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, ch := range catalog.Chapters() {
				fmt.Fprintf(out, "%-20s %d questions\n", ch.Title, len(ch.Questions))
			}
			fmt.Fprintf(out, "%d questions, languages: %s\n", catalog.Len(), strings.Join(langs.IDs(), ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&contentPath, "content", os.Getenv("CONTENT_PATH"), "question catalog JSON (built-in when empty)")
	cmd.Flags().StringVar(&languagesPath, "languages", os.Getenv("SANDBOX_LANGUAGES_FILE"), "sandbox language YAML (built-in when empty)")
	return cmd
}
