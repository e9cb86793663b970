/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/moamenhredeen/oasgate/internal/benchmarker"
	"github.com/moamenhredeen/oasgate/internal/models"
	"github.com/moamenhredeen/oasgate/internal/output"
	"github.com/moamenhredeen/oasgate/internal/probe"
)

var (
	benchConfig       = benchmarker.DefaultConfig()
	benchOutputFormat string
	benchOutputFile   string
)

// benchmarkCmd represents the benchmark command
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark [openapi-contract-file]",
	Short: "Measure latency of a running server",
	Long: `Send every generated request of the contract repeatedly and report latency
percentiles, throughput and errors per operation. Responses that do not match
the contract are counted as mismatches.

Examples:
  # 1000 requests per operation, 10 at a time, at most 200 req/s
  oasgate benchmark api.yaml -n 1000 -c 10 --rate 200

  # Export the results
  oasgate benchmark api.yaml -o csv --output-file bench.csv`,
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
		onEvent := func(event benchmarker.Event) {
			label := fmt.Sprintf("[%d/%d] %s %s", event.Index+1, event.Total, event.Operation.Method, event.Operation.Path)
			if isTTY && s == nil && event.Type != benchmarker.EventBenchmarkCompleted {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Start()
			}
			switch event.Type {
			case benchmarker.EventWarmupStarting:
				if s != nil {
					s.Suffix = " " + label + " warming up"
				}
			case benchmarker.EventBenchmarkStarting, benchmarker.EventBenchmarkProgress:
				if s != nil {
					s.Suffix = fmt.Sprintf(" %s %d/%d %s", label, event.Progress, event.MaxIter,
						yellow(fmt.Sprintf("%d errors", event.ErrorCount)))
				}
			case benchmarker.EventBenchmarkCompleted:
				if s != nil {
					s.Stop()
					s = nil
				}
				printBenchmarkResult(label, *event.Result)
			}
		}

		summary := benchmarker.New(benchConfig).Operations(ctx, ops, baseURL(c), onEvent)
		if ctx.Err() != nil {
			fmt.Println(yellow("interrupted, results are partial"))
		}

		if benchOutputFormat != "" {
			format, err := output.ParseFormat(benchOutputFormat)
			if err != nil {
				fail("%v", err)
			}
			if err := output.ExportBenchmarkSummary(summary, format, benchOutputFile); err != nil {
				fail("exporting results: %v", err)
			}
			if benchOutputFile == "" {
				return
			}
			fmt.Printf("\nResults exported to: %s\n", benchOutputFile)
		}

		displayBenchmarkSummary(summary)
	},
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func printBenchmarkResult(label string, r models.BenchmarkResult) {
	status := green("✓")
	if r.ErrorCount > 0 {
		status = red("✗")
	}
	fmt.Printf("%s %s p50 %.2fms p99 %.2fms %.1f req/s", status, label, ms(r.P50Time), ms(r.P99Time), r.RequestsPerSec)
	if r.ErrorCount > 0 {
		fmt.Printf(" %s", red(fmt.Sprintf("%d errors, %d mismatches", r.ErrorCount, r.MismatchCount)))
	}
	fmt.Println()

	if !verbose {
		return
	}
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("    %s x%d\n", cyan(code), r.StatusCodes[code])
	}
	for _, e := range r.SampleErrors {
		fmt.Printf("      - %s\n", red(e))
	}
}

func displayBenchmarkSummary(summary models.BenchmarkSummary) {
	fmt.Println()
	fmt.Printf("%s\n", white("=== Benchmark Results ==="))
	fmt.Printf("Requests:   %d in %v (%.1f req/s)\n",
		summary.TotalRequests, summary.TotalDuration.Round(time.Millisecond), summary.OverallReqsPerSec)
	fmt.Printf("Latency:    min %.2fms avg %.2fms max %.2fms\n",
		ms(summary.OverallMinTime), ms(summary.OverallAvgTime), ms(summary.OverallMaxTime))
	if summary.TotalErrors > 0 {
		fmt.Printf("Errors:     %s (%.2f%%), %d mismatches\n",
			red(summary.TotalErrors), summary.OverallErrorRate, summary.TotalMismatches)
	} else {
		fmt.Printf("Errors:     %s\n", green(0))
	}
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	f := benchmarkCmd.Flags()
	f.StringVar(&serverURL, "server", "", "Override server URL from the contract")
	f.StringVar(&filter, "filter", "", "Filter operations by path pattern or operation ID")
	f.StringSliceVar(&tags, "tags", []string{}, "Filter by OpenAPI tags")
	f.BoolVarP(&verbose, "verbose", "v", false, "Show status codes and sample errors")
	f.IntVarP(&benchConfig.Iterations, "iterations", "n", benchConfig.Iterations, "Requests per operation")
	f.IntVarP(&benchConfig.Concurrency, "concurrency", "c", benchConfig.Concurrency, "Concurrent requests")
	f.IntVarP(&benchConfig.WarmupRuns, "warmup", "w", benchConfig.WarmupRuns, "Warmup requests, not counted")
	f.Float64VarP(&benchConfig.RateLimit, "rate", "r", 0, "Max requests per second (0 = unlimited)")
	f.DurationVarP(&benchConfig.Timeout, "timeout", "t", benchConfig.Timeout, "Request timeout")
	f.BoolVar(&benchConfig.DisableKeepAlive, "no-keepalive", false, "Disable HTTP connection reuse")
	f.StringVarP(&benchOutputFormat, "output", "o", "", "Output format: json, yaml, csv")
	f.StringVar(&benchOutputFile, "output-file", "", "Write output to file (default: stdout)")
}
