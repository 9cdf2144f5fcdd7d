// Package uicmder provides the ui command: a full-screen TUI chat client
// for agent backends.
package uicmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genie-cli/genie/pkg/config"
	"github.com/genie-cli/genie/pkg/conversation"
	"github.com/genie-cli/genie/pkg/logger"
	"github.com/genie-cli/genie/pkg/stream"
)

type uiCommander struct {
	target    string
	model     string
	product   string
	deepThink bool
	debug     bool
	logFile   string
}

const uiLongDesc string = `Start a full-screen TUI chat session against an agent backend.

The TUI shows the conversation transcript, streams responses in place, and
opens a side panel for tasks, plans, and file previews in agent mode. Since
the terminal is owned by the TUI, logs go to --log-file when provided.

Examples:
  genie ui
  genie ui --target http://localhost:8000 --product dataAgent
  genie ui --debug --log-file /tmp/genie-ui.log`

const uiShortDesc string = "Full-screen TUI agent chat"

var uiFlags = config.FlagSet{
	config.FlagTarget:    {Name: "target", Shorthand: "t", ViperKey: "client.api_target", Description: "Agent backend URL"},
	config.FlagModel:     {Name: "model", Shorthand: "m", ViperKey: "client.model", Description: "Model name (e.g., qwen-plus, qwen-max)"},
	config.FlagProduct:   {Name: "product", ViperKey: "client.product", Description: "Agent product (agent, dataAgent)"},
	config.FlagDeepThink: {Name: "deep-think", ViperKey: "client.deep_think", Description: "Enable deep thinking mode"},
}

var uiFlagKeys = []string{config.FlagTarget, config.FlagModel, config.FlagProduct, config.FlagDeepThink}

func NewUICmd() *cobra.Command {
	cmder := &uiCommander{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: uiShortDesc,
		Long:  uiLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, uiFlags, uiFlagKeys)
			cmder.target = v.GetString("client.api_target")
			cmder.model = v.GetString("client.model")
			cmder.product = v.GetString("client.product")
			cmder.deepThink = v.GetBool("client.deep_think")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, uiFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, uiFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, uiFlags, config.FlagProduct, &cmder.product)
	config.AddBoolFlag(cmd, uiFlags, config.FlagDeepThink, &cmder.deepThink)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Write logs to this file instead of discarding them")

	return cmd
}

func (c *uiCommander) run() error {
	// The TUI owns stdout, so logs are discarded unless a file is given.
	zapLogger := zap.NewNop()
	slogger := logger.Nop()
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		zapLogger = logger.NewLoggerWithWriters(c.debug, f)
		slogger = logger.New(
			logger.WithJSON(true),
			logger.WithDebug(c.debug),
			logger.WithWriter(f),
		)
	}
	defer func() { _ = zapLogger.Sync() }()

	client := stream.NewClient(c.target, zapLogger)
	session := conversation.NewSession(conversation.Config{
		Product:   conversation.Product(c.product),
		DeepThink: c.deepThink,
		Model:     c.model,
		Opener:    client,
		Logger:    zapLogger,
	})

	return runChatTUI(session, c.model, slogger)
}
