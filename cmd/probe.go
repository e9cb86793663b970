/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/models"
	"github.com/moamenhredeen/oasgate/internal/output"
	"github.com/moamenhredeen/oasgate/internal/probe"
)

var (
	serverURL string
	filter    string
	tags      []string
	verbose   bool

	probeTimeout      time.Duration
	probeOutputFormat string
	probeOutputFile   string
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe [openapi-contract-file]",
	Short: "Check a running server against its contract",
	Long: `Send one generated request to every operation of the contract and check that
the response status is declared and the body matches the declared schema.

Examples:
  # Probe the server declared in the contract
  oasgate probe api.yaml

  # Probe a local server, only the pets operations
  oasgate probe api.yaml --server http://localhost:8080 --tags pets -v`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := loadContract(args)
		if err != nil {
			fail("%v", err)
		}

		ops := probe.Filter(c.Operations(), filter, tags)
		if len(ops) == 0 {
			fmt.Println("No operations found matching the criteria")
			os.Exit(0)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var s *spinner.Spinner
		onEvent := func(event probe.Event) {
			prefix := fmt.Sprintf("[%d/%d]", event.Index+1, event.Total)
			switch event.Type {
			case probe.EventStarting:
				if isTTY {
					s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
					s.Suffix = fmt.Sprintf(" %s %s %s", prefix, event.Operation.Method, event.Operation.Path)
					s.Start()
				}
			case probe.EventCompleted:
				if s != nil {
					s.Stop()
					s = nil
				}
				printProbeResult(prefix, *event.Result)
			}
		}

		summary := probe.New(probeTimeout).Operations(ctx, ops, baseURL(c), onEvent)

		if probeOutputFormat != "" {
			format, err := output.ParseFormat(probeOutputFormat)
			if err != nil {
				fail("%v", err)
			}
			if err := output.ExportProbeSummary(summary, format, probeOutputFile); err != nil {
				fail("exporting results: %v", err)
			}
			if probeOutputFile != "" {
				fmt.Printf("\nResults exported to: %s\n", probeOutputFile)
			}
		}

		displayProbeSummary(summary)
		if summary.Failed > 0 {
			os.Exit(1)
		}
	},
}

// baseURL is the --server flag or the first server the contract declares
func baseURL(c *contract.Contract) string {
	if serverURL != "" {
		return serverURL
	}
	return c.ServerURLs()[0]
}

func printProbeResult(prefix string, result models.ProbeResult) {
	status := green("✓")
	if !result.Passed {
		status = red("✗")
	}
	fmt.Printf("%s %s %s %s", prefix, status, result.Method, result.Path)
	if result.StatusCode > 0 {
		fmt.Printf(" %s", cyan(result.StatusCode))
	}
	if !result.Passed && result.Error != "" && !verbose {
		fmt.Printf(" - %s", result.Error)
	}
	fmt.Println()

	if !verbose {
		return
	}
	if result.OperationID != "" {
		fmt.Printf("    Operation ID:  %s\n", result.OperationID)
	}
	fmt.Printf("    URL:           %s\n", result.URL)
	fmt.Printf("    Response Time: %v\n", result.ResponseTime.Round(time.Microsecond))
	if result.Error != "" {
		fmt.Printf("    Error:         %s\n", red(result.Error))
	}
	for _, v := range result.Violations {
		fmt.Printf("      - %s\n", v)
	}
}

func displayProbeSummary(summary models.ProbeSummary) {
	fmt.Println()
	fmt.Printf("%s\n", white("=== Probe Results ==="))
	fmt.Printf("Total:  %d\n", summary.Total)
	fmt.Printf("Passed: %s\n", green(summary.Passed))
	if summary.Failed > 0 {
		fmt.Printf("Failed: %s\n", red(summary.Failed))
	} else {
		fmt.Printf("Failed: %d\n", summary.Failed)
	}
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVar(&serverURL, "server", "", "Override server URL from the contract")
	probeCmd.Flags().StringVar(&filter, "filter", "", "Filter operations by path pattern or operation ID")
	probeCmd.Flags().StringSliceVar(&tags, "tags", []string{}, "Filter by OpenAPI tags (can be specified multiple times)")
	probeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output")
	probeCmd.Flags().DurationVarP(&probeTimeout, "timeout", "t", 30*time.Second, "Request timeout")
	probeCmd.Flags().StringVarP(&probeOutputFormat, "output", "o", "", "Output format: json, yaml, csv")
	probeCmd.Flags().StringVar(&probeOutputFile, "output-file", "", "Write output to file (default: stdout)")
}
