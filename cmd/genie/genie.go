// Package geniecmder
package geniecmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/genie-cli/genie/cmd/genie/chat"
	configcmder "github.com/genie-cli/genie/cmd/genie/config"
	servecmder "github.com/genie-cli/genie/cmd/genie/serve"
	uicmder "github.com/genie-cli/genie/cmd/genie/ui"
	versioncmder "github.com/genie-cli/genie/cmd/version"
)

const genieLongDesc string = `Genie is a terminal client for conversational data agents.

Talk to an agent backend from your terminal:
  genie chat           Interactive chat in plain terminal output
  genie ui             Interactive chat in a full-screen TUI
  genie serve          Run a local dev agent backend`

const genieShortDesc string = "Genie - Terminal Agent Chat"

func NewGenieCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genie",
		Short: genieShortDesc,
		Long:  genieLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .genie/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(uicmder.NewUICmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
