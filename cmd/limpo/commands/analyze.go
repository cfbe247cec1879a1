package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/imovel-limpo/engine/internal/extract"
)

var analyzeTimeout time.Duration

var analyzeCmd = &cobra.Command{
	Use:   "analyze <arquivo>",
	Short: "Analisa uma matrícula de imóvel",
	Long: `Analyze runs the full pipeline on one document: PDF, image or plain
text. The finished report is printed and saved to the configured store.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 15*time.Minute, "overall analysis timeout")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	analyzer, _, cleanup, err := buildAnalyzer(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	s := newSpinner("Analisando matrícula...")
	s.Start()

	rep, err := analyzer.AnalyzeUpload(ctx, extract.Upload{
		Filename: filepath.Base(path),
		Data:     data,
	})
	s.Stop()

	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printReport(rep)
	return nil
}
