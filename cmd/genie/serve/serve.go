// Package servecmder provides the serve command for running the dev agent backend.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/genie-cli/genie/pkg/config"
	"github.com/genie-cli/genie/pkg/logger"
	"github.com/genie-cli/genie/server"
)

type ServeCommander struct {
	listen  string
	logFile string
	debug   bool
	logger  *slog.Logger
}

const serveLongDesc string = `Run a local dev agent backend.

The dev server speaks the same SSE chat protocol a production agent backend
does, answering queries from a small scripted responder. Use it to try out
"genie chat" and "genie ui" without a real deployment:

  genie serve
  genie chat --target http://localhost:8000

Queries mentioning charts, plots, or trends get an answer with an embedded
chart when the client asks in data analysis mode.`

const serveShortDesc string = "Run a local dev agent backend"

var serveFlags = config.FlagSet{
	config.FlagListen: {Name: "listen", Shorthand: "l", ViperKey: "serve.listen", Description: "Address for the dev server to listen on"},
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, []string{config.FlagListen})
			cmder.listen = v.GetString("serve.listen")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagListen, &cmder.listen)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// buildLogger assembles the serve logger: pretty records on stdout for the
// operator, fanned out to a JSON file when --log-file is set. The returned
// closer releases the file.
func (c *ServeCommander) buildLogger() (*slog.Logger, func(), error) {
	pretty := logger.New(logger.WithPretty(true), logger.WithDebug(c.debug))
	if c.logFile == "" {
		return pretty, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	jsonLogger := logger.New(logger.WithJSON(true), logger.WithDebug(c.debug), logger.WithWriter(f))
	return logger.Multi(pretty, jsonLogger), func() { _ = f.Close() }, nil
}

func (c *ServeCommander) run() error {
	slogger, closeLogs, err := c.buildLogger()
	if err != nil {
		return err
	}
	defer closeLogs()
	c.logger = slogger

	srv := server.NewServer(server.Config{
		ListenAddr: c.listen,
	}, server.NewResponder(), c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- fmt.Errorf("dev server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return srv.Shutdown()
	}
}
