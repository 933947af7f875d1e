package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "reglens",
	Short: "Regulatory compliance retrieval and gap analysis engine",
	Long: `Reglens ingests regulatory and internal policy documents, indexes them
for hybrid (vector + keyword) retrieval, and uses the retrieved context to
identify compliance gaps and draft policy amendments with an LLM.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".reglens.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
