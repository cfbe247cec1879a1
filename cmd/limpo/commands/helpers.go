package commands

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/imovel-limpo/engine/internal/config"
	"github.com/imovel-limpo/engine/internal/domain"
	"github.com/imovel-limpo/engine/internal/extract"
	"github.com/imovel-limpo/engine/internal/llm"
	"github.com/imovel-limpo/engine/internal/observability"
	"github.com/imovel-limpo/engine/internal/pdf"
	"github.com/imovel-limpo/engine/internal/pipeline"
	"github.com/imovel-limpo/engine/internal/registry"
	"github.com/imovel-limpo/engine/internal/report"
	"github.com/imovel-limpo/engine/internal/storage"
)

// loadConfig reads configuration honoring the --config flag and .env files.
func loadConfig() (*config.Config, *observability.Logger, error) {
	godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		ServiceName: "limpo",
	})

	if noColor {
		color.NoColor = true
	}
	return cfg, logger, nil
}

// buildAnalyzer wires the full pipeline. The cleanup closes the store.
func buildAnalyzer(cfg *config.Config, logger *observability.Logger) (*pipeline.Analyzer, storage.Store, func(), error) {
	llmClient, err := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	gateway := extract.NewGateway(llmClient, pdf.NewConverter(), logger)
	extractor := extract.NewStructuredExtractor(llmClient, logger)
	lookupClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Token,
		cfg.Registry.RequestTimeout, logger)
	fanout := registry.NewEngine(lookupClient, registry.EngineConfig{
		CallSpacing: cfg.Registry.CallSpacing,
	}, logger)
	synthesizer := report.NewSynthesizer(llmClient, logger)

	analyzer := pipeline.NewAnalyzer(gateway, extractor, fanout, synthesizer, store, logger)
	cleanup := func() { store.Close() }
	return analyzer, store, cleanup, nil
}

// openStore opens the configured analysis store.
func openStore(cfg *config.Config, logger *observability.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "postgres":
		return storage.NewSQLStore("postgres", cfg.Storage.Postgres.DSN,
			cfg.Storage.Postgres.MaxOpenConns, logger)
	default:
		return storage.NewSQLStore("sqlite3", cfg.Storage.SQLite.Path, 0, logger)
	}
}

// newSpinner creates the standard progress spinner.
func newSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	return s
}

// classificationLabel renders a classification with its color.
func classificationLabel(c domain.Classification) string {
	switch c {
	case domain.ClassificationClean:
		return color.GreenString("LIMPO")
	case domain.ClassificationCaution:
		return color.YellowString("ATENÇÃO")
	case domain.ClassificationPending:
		return color.RedString("PENDÊNCIA")
	default:
		return string(c)
	}
}

// statusLabel renders a check status with its color.
func statusLabel(s domain.CheckStatus) string {
	switch s {
	case domain.CheckNegative:
		return color.GreenString("negativa")
	case domain.CheckPositive:
		return color.RedString("positiva")
	case domain.CheckError:
		return color.RedString("erro")
	case domain.CheckNotPerformed:
		return color.HiBlackString("não consultada")
	default:
		return string(s)
	}
}

func printReport(rep *domain.AnalysisReport) {
	bold := color.New(color.Bold)

	fmt.Println()
	bold.Println("Imóvel")
	fmt.Printf("  Matrícula: %s\n", rep.Property.RegistrationNumber)
	if rep.Property.RegistryOffice != "" {
		fmt.Printf("  Cartório:  %s\n", rep.Property.RegistryOffice)
	}
	if rep.Property.Address != "" {
		fmt.Printf("  Endereço:  %s\n", rep.Property.Address)
	}

	fmt.Println()
	bold.Println("Proprietários atuais")
	for _, p := range rep.Parties {
		fmt.Printf("  %s (%s %s)\n", p.Name, p.Kind, p.TaxID)
	}

	fmt.Println()
	bold.Println("Certidões")
	for _, c := range rep.Checks {
		fmt.Printf("  [%s] %s\n", statusLabel(c.Status), c.DisplayName)
		if c.Details != "" {
			fmt.Printf("      %s\n", c.Details)
		}
	}

	if len(rep.OpenIssues) > 0 {
		fmt.Println()
		bold.Println("Pendências")
		for _, issue := range rep.OpenIssues {
			fmt.Printf("  - %s\n", issue)
		}
	}

	fmt.Println()
	fmt.Printf("Status: %s   Prazo estimado: %s\n",
		classificationLabel(rep.Classification), rep.EstimatedResolutionTime)
	fmt.Println()
	fmt.Println(rep.NarrativeSummary)
}
