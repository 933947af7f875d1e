package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglens/reglens/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .reglens.yml configuration file",
	Long:  `Creates a .reglens.yml in the current directory with the default configuration, ready to edit.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(cfgFile); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", cfgFile)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(cfgFile); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", cfgFile)
	fmt.Println("Set ANTHROPIC_API_KEY (or OPENAI_API_KEY) and OPENAI_API_KEY for embeddings, then run `reglens ingest`.")
	return nil
}
