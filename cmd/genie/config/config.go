// Package configcmder provides the config command for managing persistent
// genie configuration stored in the .genie/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent genie configuration.

Configuration is stored as config.toml in the .genie/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_target, client.model, client.product, client.deep_think,
  serve.listen

Use subcommands to get, set, or list configuration values:
  genie config set <key> <value>    Set a configuration value
  genie config get <key>            Get a configuration value
  genie config list                 List all configuration values

Examples:
  genie config set client.model qwen-max
  genie config set client.product dataAgent
  genie config get client.api_target
  genie config list`

const configShortDesc string = "Manage persistent genie configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
