// Package commands implements the limpo CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "limpo",
	Short: "Imóvel Limpo - análise de matrículas e certidões",
	Long: `Limpo runs the Imóvel Limpo analysis pipeline from the terminal:
extracts the property record from a matrícula document, queries the public
certificates for every current owner and prints the risk report.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
