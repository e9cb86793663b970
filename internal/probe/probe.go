// Package probe checks a running server against its contract: it sends a
// generated request to every operation and validates each response with
// the same rules the serializer enforces on the server side.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/generator"
	"github.com/moamenhredeen/oasgate/internal/models"
	"github.com/moamenhredeen/oasgate/internal/serializer"
)

// EventType represents the type of probe event
type EventType int

const (
	// EventStarting is sent before an operation is probed
	EventStarting EventType = iota
	// EventCompleted is sent with the result of an operation
	EventCompleted
)

// Event reports progress of a probe run
type Event struct {
	Type      EventType
	Operation *contract.Operation
	Result    *models.ProbeResult // nil for Starting events
	Index     int
	Total     int
}

// OnEvent is a callback for probe events
type OnEvent func(event Event)

// Probe sends generated requests and checks the responses
type Probe struct {
	builder    *RequestBuilder
	serializer *serializer.Serializer
	client     *http.Client
}

// New creates a probe with a per-request timeout
func New(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Probe{
		builder:    NewRequestBuilder(generator.NewGenerator()),
		serializer: serializer.New(nil),
		client:     &http.Client{Timeout: timeout},
	}
}

// Operation probes a single operation. Transport and contract failures are
// reported in the result, not as an error.
func (p *Probe) Operation(ctx context.Context, op *contract.Operation, baseURL string) models.ProbeResult {
	result := models.ProbeResult{
		Method:      op.Method,
		Path:        op.Path,
		OperationID: op.ID,
	}

	req, err := p.builder.BuildRequest(op, baseURL)
	if err != nil {
		result.Error = fmt.Sprintf("failed to build request: %v", err)
		return result
	}
	result.URL = req.URL.String()

	start := time.Now()
	resp, err := p.client.Do(req.WithContext(ctx))
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read response: %v", err)
		return result
	}

	if err := p.serializer.Check(op, resp.StatusCode, resp.Header.Get("Content-Type"), body); err != nil {
		result.Error = err.Error()
		var mismatch *serializer.SerializationMismatchError
		if errors.As(err, &mismatch) {
			result.Violations = mismatch.Violations
		}
		return result
	}

	if resp.StatusCode >= 500 {
		result.Error = fmt.Sprintf("server error: %s", strings.TrimSpace(string(body)))
		return result
	}
	result.Passed = true
	return result
}

// Operations probes every operation in order
func (p *Probe) Operations(ctx context.Context, ops []*contract.Operation, baseURL string, onEvent OnEvent) models.ProbeSummary {
	summary := models.ProbeSummary{Results: make([]models.ProbeResult, 0, len(ops))}
	total := len(ops)

	for i, op := range ops {
		if ctx.Err() != nil {
			break
		}
		if onEvent != nil {
			onEvent(Event{Type: EventStarting, Operation: op, Index: i, Total: total})
		}

		result := p.Operation(ctx, op, baseURL)
		summary.AddResult(result)

		if onEvent != nil {
			onEvent(Event{Type: EventCompleted, Operation: op, Result: &result, Index: i, Total: total})
		}
	}
	return summary
}

// Filter selects operations whose path or id contains filter and that
// carry one of tags, when given
func Filter(ops []*contract.Operation, filter string, tags []string) []*contract.Operation {
	var filtered []*contract.Operation
	for _, op := range ops {
		if filter != "" && !strings.Contains(op.Path, filter) && !strings.Contains(op.ID, filter) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(op.Tags, tags) {
			continue
		}
		filtered = append(filtered, op)
	}
	return filtered
}

func hasAnyTag(opTags, wanted []string) bool {
	for _, want := range wanted {
		for _, tag := range opTags {
			if tag == want {
				return true
			}
		}
	}
	return false
}
