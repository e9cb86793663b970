/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moamenhredeen/oasgate/internal/config"
	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/sample"
)

var (
	configFile string
	useSample  bool

	isTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	white  = color.New(color.FgWhite, color.Bold).SprintFunc()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "oasgate",
	Short: "Serve, probe and benchmark HTTP APIs from an OpenAPI contract",
	Long: `oasgate turns an OpenAPI 3 document into the request handling core of a
service. Requests are resolved to contract operations, validated against the
declared parameters and bodies, dispatched to registered handlers and the
responses are checked against the contract before they are sent.

The same contract drives a conformance probe and a benchmark against any
running server.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./oasgate.toml if present)")
	rootCmd.PersistentFlags().BoolVar(&useSample, "sample", false, "Use the embedded sample contract")
}

// loadConfig reads the configuration with the command's flags bound to
// their keys. bindings maps config keys to flag names.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	v := viper.New()
	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	if useSample {
		v.Set("contract", sampleContractName)
	}
	return config.Load(v, configFile)
}

const sampleContractName = "embedded sample-oas3.yaml"

// loadContract loads the embedded sample with --sample, otherwise the
// contract file given as the only argument
func loadContract(args []string) (*contract.Contract, error) {
	if useSample {
		return sample.Contract()
	}
	if len(args) == 0 {
		return nil, errors.New("a contract file or --sample is required")
	}
	return contract.LoadFile(args[0])
}

// fail prints an error and exits with status 1
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s "+format+"\n", append([]any{red("Error:")}, args...)...)
	os.Exit(1)
}
