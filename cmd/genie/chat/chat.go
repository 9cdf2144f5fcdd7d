// Package chatcmder provides the chat command for interactive agent chat
// in plain terminal output.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genie-cli/genie/pkg/cliui"
	"github.com/genie-cli/genie/pkg/config"
	"github.com/genie-cli/genie/pkg/conversation"
	"github.com/genie-cli/genie/pkg/logger"
	"github.com/genie-cli/genie/pkg/stream"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("genie> ")
)

type chatCommander struct {
	target    string
	model     string
	product   string
	deepThink bool
	debug     bool

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session against an agent backend.

The chat command streams agent responses into your terminal. In the default
agent mode the backend works through a task and reports progress tips before
the answer. In data analysis mode (--product dataAgent) answers may carry an
embedded chart, which is summarized after the response text.

Examples:
  genie chat
  genie chat --target http://localhost:8000 --model qwen-max
  genie chat --product dataAgent
  genie chat --product dataAgent --deep-think`

const chatShortDesc string = "Interactive agent chat in plain terminal output"

var chatFlags = config.FlagSet{
	config.FlagTarget:    {Name: "target", Shorthand: "t", ViperKey: "client.api_target", Description: "Agent backend URL"},
	config.FlagModel:     {Name: "model", Shorthand: "m", ViperKey: "client.model", Description: "Model name (e.g., qwen-plus, qwen-max)"},
	config.FlagProduct:   {Name: "product", ViperKey: "client.product", Description: "Agent product (agent, dataAgent)"},
	config.FlagDeepThink: {Name: "deep-think", ViperKey: "client.deep_think", Description: "Enable deep thinking mode"},
}

var chatFlagKeys = []string{config.FlagTarget, config.FlagModel, config.FlagProduct, config.FlagDeepThink}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, chatFlags, chatFlagKeys)
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

	config.AddStringFlag(cmd, chatFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, chatFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, chatFlags, config.FlagProduct, &cmder.product)
	config.AddBoolFlag(cmd, chatFlags, config.FlagDeepThink, &cmder.deepThink)

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if err := cliui.Step(os.Stdout, fmt.Sprintf("Connecting to %s", c.target), func() error {
		return checkBackend(c.target)
	}); err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}

	client := stream.NewClient(c.target, c.logger)
	session := conversation.NewSession(conversation.Config{
		Product:   conversation.Product(c.product),
		DeepThink: c.deepThink,
		Model:     c.model,
		Opener:    client,
		Logger:    c.logger,
	})

	r := newRenderer(os.Stdout, session)
	mode := session.Mode()
	if mode == conversation.ModeData {
		session.DataTurns().Subscribe(r.onDataUpdate)
	} else {
		session.AgentTurns().Subscribe(r.onAgentUpdate)
	}

	fmt.Println()
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.model),
	)
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Target:"),
		cliui.ValueStyle.Render(c.target),
	)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Mode:"),
		cliui.ValueStyle.Render(mode.String()),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		handle, err := session.Dispatch(context.Background(), input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		r.begin(handle)

		// Replay any updates that landed before begin() armed the renderer.
		if mode == conversation.ModeData {
			r.onDataUpdate(handle)
		} else {
			r.onAgentUpdate(handle)
		}

		r.wait()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// checkBackend probes the backend health endpoint before the REPL starts, so
// a bad --target fails fast instead of on the first query.
func checkBackend(target string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(strings.TrimRight(target, "/") + "/api/chat/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	return nil
}
