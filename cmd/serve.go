/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/generator"
	"github.com/moamenhredeen/oasgate/internal/logger"
	"github.com/moamenhredeen/oasgate/internal/mock"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/sample"
	"github.com/moamenhredeen/oasgate/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the contract over HTTP",
	Long: `Serve every operation of the contract. Requests are validated against the
contract before they reach a handler and responses are checked before they
are sent.

Without handlers every operation answers 501. Use --mock to answer with
generated responses, or --sample to serve the bundled sample service.

Examples:
  # Mock server for a contract
  oasgate serve --contract api.yaml --mock

  # The sample service on another port
  oasgate serve --sample --addr :9090`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) {
	cfg, err := loadConfig(cmd, map[string]string{
		"contract":                      "contract",
		"server.addr":                   "addr",
		"dispatch.mock":                 "mock",
		"dispatch.require_all_handlers": "require-all",
		"dispatch.strict_bodies":        "strict",
		"log.level":                     "log-level",
		"log.format":                    "log-format",
	})
	if err != nil {
		fail("%v", err)
	}

	log := logger.New(cfg.Log)

	var c *contract.Contract
	if useSample {
		c, err = sample.Contract()
	} else {
		c, err = contract.LoadFile(cfg.Contract)
	}
	if err != nil {
		log.Fatal().Err(err).Str("contract", cfg.Contract).Msg("failed to load contract")
	}

	reg := registry.New(c)
	if useSample {
		if err := sample.Register(reg, sample.DefaultService{}); err != nil {
			log.Fatal().Err(err).Msg("failed to register sample handlers")
		}
	}
	if cfg.Dispatch.Mock {
		ids, err := mock.Register(reg, c, generator.NewGenerator())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to register mock handlers")
		}
		log.Info().Int("operations", len(ids)).Msg("mock handlers registered")
	}
	if unhandled := reg.Unhandled(); len(unhandled) > 0 && !cfg.Dispatch.RequireAllHandlers {
		log.Warn().Int("operations", len(unhandled)).Msg("operations without a handler answer 501")
	}

	srv, err := server.New(cfg, c, reg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("contract", "", "OpenAPI contract file")
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().Bool("mock", false, "Answer unhandled operations with generated responses")
	serveCmd.Flags().Bool("require-all", false, "Refuse to start while an operation has no handler")
	serveCmd.Flags().Bool("strict", false, "Reject undeclared body properties")
	serveCmd.Flags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	serveCmd.Flags().String("log-format", "console", "Log format: json, console")
}
