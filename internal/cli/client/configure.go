package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd manages config.yaml.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change client configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-url <url>",
		Short: "Save the API base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			if config == nil {
				config = &GlobalConfig{}
			}
			config.APIURL = args[0]
			if err := SaveGlobalConfig(config); err != nil {
				return err
			}
			path, _ := GetConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved api_url to %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the API URL in effect and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("api-url")
			source, apiURL, err := ResolveAPIURL(flagURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "api_url: %s (%s)\n", apiURL, source)
			return nil
		},
	})

	return cmd
}
