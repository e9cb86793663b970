// Package output exports probe and benchmark results and operation tables.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/models"
)

// Format represents the output format type
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Route is one row of an operation table
type Route struct {
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	OperationID string   `json:"operation_id" yaml:"operation_id"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Handled     bool     `json:"handled" yaml:"handled"`
}

// Routes builds the operation table of c. handled reports whether an
// operation has a registered handler and may be nil.
func Routes(c *contract.Contract, handled func(id string) bool) []Route {
	ops := c.Operations()
	routes := make([]Route, 0, len(ops))
	for _, op := range ops {
		routes = append(routes, Route{
			Method:      op.Method,
			Path:        op.Path,
			OperationID: op.ID,
			Summary:     op.Summary,
			Tags:        op.Tags,
			Deprecated:  op.Deprecated,
			Handled:     handled != nil && handled(op.ID),
		})
	}
	return routes
}

// ExportProbeSummary exports probe results to the specified format
func ExportProbeSummary(summary models.ProbeSummary, format Format, filePath string) error {
	return export(filePath, func(w io.Writer) error {
		switch format {
		case FormatJSON:
			return writeJSON(w, summary)
		case FormatYAML:
			return writeYAML(w, summary)
		case FormatCSV:
			return writeProbeCSV(w, summary)
		default:
			return fmt.Errorf("unsupported format: %s", format)
		}
	})
}

// ExportBenchmarkSummary exports benchmark results to the specified format
func ExportBenchmarkSummary(summary models.BenchmarkSummary, format Format, filePath string) error {
	return export(filePath, func(w io.Writer) error {
		switch format {
		case FormatJSON:
			return writeJSON(w, summary)
		case FormatYAML:
			return writeYAML(w, summary)
		case FormatCSV:
			return writeBenchmarkCSV(w, summary)
		default:
			return fmt.Errorf("unsupported format: %s", format)
		}
	})
}

// WriteRoutes writes an operation table to w
func WriteRoutes(w io.Writer, routes []Route, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, routes)
	case FormatYAML:
		return writeYAML(w, routes)
	case FormatCSV:
		return writeRoutesCSV(w, routes)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// export writes to stdout when filePath is empty
func export(filePath string, write func(io.Writer) error) error {
	if filePath == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeProbeCSV(w io.Writer, summary models.ProbeSummary) error {
	cw := csv.NewWriter(w)

	header := []string{
		"method", "path", "operation_id", "passed", "status_code",
		"response_time_ms", "violations", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range summary.Results {
		row := []string{
			r.Method,
			r.Path,
			r.OperationID,
			strconv.FormatBool(r.Passed),
			strconv.Itoa(r.StatusCode),
			millis(r.ResponseTime.Microseconds()),
			strconv.Itoa(len(r.Violations)),
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeBenchmarkCSV(w io.Writer, summary models.BenchmarkSummary) error {
	cw := csv.NewWriter(w)

	header := []string{
		"method", "path", "operation_id", "iterations", "concurrency",
		"min_ms", "max_ms", "avg_ms", "p50_ms", "p90_ms", "p99_ms",
		"requests_per_sec", "success_count", "error_count", "mismatch_count", "error_rate",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range summary.Results {
		row := []string{
			r.Method,
			r.Path,
			r.OperationID,
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.Concurrency),
			millis(r.MinTime.Microseconds()),
			millis(r.MaxTime.Microseconds()),
			millis(r.AvgTime.Microseconds()),
			millis(r.P50Time.Microseconds()),
			millis(r.P90Time.Microseconds()),
			millis(r.P99Time.Microseconds()),
			fmt.Sprintf("%.2f", r.RequestsPerSec),
			strconv.Itoa(r.SuccessCount),
			strconv.Itoa(r.ErrorCount),
			strconv.Itoa(r.MismatchCount),
			fmt.Sprintf("%.2f", r.ErrorRate),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeRoutesCSV(w io.Writer, routes []Route) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"method", "path", "operation_id", "summary", "tags", "deprecated", "handled"}); err != nil {
		return err
	}
	for _, r := range routes {
		row := []string{
			r.Method,
			r.Path,
			r.OperationID,
			r.Summary,
			strings.Join(r.Tags, ";"),
			strconv.FormatBool(r.Deprecated),
			strconv.FormatBool(r.Handled),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func millis(us int64) string {
	return fmt.Sprintf("%.2f", float64(us)/1000)
}

// ParseFormat parses a string into a Format, returning error if invalid
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format '%s': must be 'json', 'yaml' or 'csv'", s)
	}
}
