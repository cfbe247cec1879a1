package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/imovel-limpo/engine/internal/domain"
)

var (
	reportsStatus    string
	reportsFavorites bool
	exportOutput     string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Gerencia análises salvas",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista análises salvas",
	RunE:  runReportsList,
}

var reportsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exporta todas as análises em JSON",
	RunE:  runReportsExport,
}

func init() {
	reportsListCmd.Flags().StringVar(&reportsStatus, "status", "", "filter by classification (limpo, atencao, pendencia)")
	reportsListCmd.Flags().BoolVar(&reportsFavorites, "favorites", false, "only favorites")
	reportsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsExportCmd)
	rootCmd.AddCommand(reportsCmd)
}

func runReportsList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	analyses, err := store.Filter(ctx, domain.AnalysisFilters{
		Classification: domain.Classification(reportsStatus),
		FavoritesOnly:  reportsFavorites,
	})
	if err != nil {
		return err
	}

	if len(analyses) == 0 {
		fmt.Println("Nenhuma análise encontrada.")
		return nil
	}

	for _, a := range analyses {
		marker := " "
		if a.Favorite {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  %-10s  matrícula %s\n",
			marker,
			a.ID,
			a.CreatedAt.Format("2006-01-02 15:04"),
			classificationLabel(a.Report.Classification),
			a.Report.Property.RegistrationNumber)
	}
	fmt.Printf("\n%d análise(s)\n", len(analyses))
	return nil
}

func runReportsExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := store.ExportJSON(ctx)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Printf("Exportado para %s\n", exportOutput)
	return nil
}
