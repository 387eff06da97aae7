package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (.gddconfig merged over defaults)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config == nil {
			return fmt.Errorf("configuration not loaded")
		}
		out := cmd.OutOrStdout()
		if configJSON {
			data, err := json.MarshalIndent(Config, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting configuration as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		if BasePath != "" {
			fmt.Fprintf(out, "# base path: %s\n", BasePath)
		}
		data, err := yaml.Marshal(Config)
		if err != nil {
			return fmt.Errorf("formatting configuration: %w", err)
		}
		_, err = out.Write(data)
		return err
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configJSON, "json", false, "Output as JSON")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
