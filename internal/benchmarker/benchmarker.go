// Package benchmarker measures the latency of contract operations on a
// running server. Every response is also checked against the contract.
package benchmarker

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/generator"
	"github.com/moamenhredeen/oasgate/internal/models"
	"github.com/moamenhredeen/oasgate/internal/probe"
	"github.com/moamenhredeen/oasgate/internal/serializer"
)

// EventType represents the type of benchmark event
type EventType int

const (
	EventWarmupStarting EventType = iota
	EventWarmupCompleted
	EventBenchmarkStarting
	// EventBenchmarkProgress is sent roughly every 5% of the iterations
	EventBenchmarkProgress
	EventBenchmarkCompleted
)

// Event reports progress of a benchmark run
type Event struct {
	Type      EventType
	Operation *contract.Operation
	Result    *models.BenchmarkResult // nil until completed
	Index     int
	Total     int
	Progress  int
	MaxIter   int

	RunningAvg    time.Duration
	RunningReqSec float64
	ErrorCount    int
}

// OnEvent is a callback for benchmark events
type OnEvent func(event Event)

// Config holds benchmark configuration
type Config struct {
	Iterations       int
	Concurrency      int
	WarmupRuns       int
	RateLimit        float64 // requests per second, 0 means unlimited
	Timeout          time.Duration
	DisableKeepAlive bool
}

// DefaultConfig returns default benchmark configuration
func DefaultConfig() Config {
	return Config{
		Iterations:  100,
		Concurrency: 1,
		WarmupRuns:  5,
		Timeout:     30 * time.Second,
	}
}

// Benchmarker runs benchmarks
type Benchmarker struct {
	config     Config
	builder    *probe.RequestBuilder
	serializer *serializer.Serializer
	client     *http.Client
	limiter    *rate.Limiter
}

// New creates a benchmarker. Invalid counts are raised to their minimum.
func New(config Config) *Benchmarker {
	config.Iterations = max(1, config.Iterations)
	config.Concurrency = max(1, config.Concurrency)
	config.WarmupRuns = max(0, config.WarmupRuns)

	transport := &http.Transport{
		DisableKeepAlives:   config.DisableKeepAlive,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: config.Concurrency,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(1, int(config.RateLimit)))
	}

	return &Benchmarker{
		config:     config,
		builder:    probe.NewRequestBuilder(generator.NewGenerator()),
		serializer: serializer.New(nil),
		client:     &http.Client{Timeout: config.Timeout, Transport: transport},
		limiter:    limiter,
	}
}

type requestResult struct {
	Duration   time.Duration
	StatusCode int
	Mismatch   bool
	Error      string
}

// Operation benchmarks a single operation
func (b *Benchmarker) Operation(ctx context.Context, op *contract.Operation, baseURL string, onEvent OnEvent, index, total int) (models.BenchmarkResult, error) {
	result := models.BenchmarkResult{
		Method:      op.Method,
		Path:        op.Path,
		OperationID: op.ID,
		Iterations:  b.config.Iterations,
		Concurrency: b.config.Concurrency,
		WarmupRuns:  b.config.WarmupRuns,
		RateLimit:   b.config.RateLimit,
		StatusCodes: make(map[int]int),
	}

	if _, err := b.builder.BuildRequest(op, baseURL); err != nil {
		return result, fmt.Errorf("failed to build request: %w", err)
	}

	emit := func(e Event) {
		if onEvent != nil {
			e.Operation, e.Index, e.Total = op, index, total
			onEvent(e)
		}
	}

	if b.config.WarmupRuns > 0 {
		emit(Event{Type: EventWarmupStarting, MaxIter: b.config.WarmupRuns})
		for i := 0; i < b.config.WarmupRuns; i++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			b.execute(ctx, op, baseURL)
		}
		emit(Event{Type: EventWarmupCompleted})
	}

	emit(Event{Type: EventBenchmarkStarting, MaxIter: b.config.Iterations})

	start := time.Now()
	raw := b.run(ctx, op, baseURL, emit)
	result.TotalDuration = time.Since(start)

	result = b.process(result, raw)
	emit(Event{Type: EventBenchmarkCompleted, Result: &result})

	return result, ctx.Err()
}

// run executes the iterations on a pool of Concurrency workers
func (b *Benchmarker) run(ctx context.Context, op *contract.Operation, baseURL string, emit func(Event)) []requestResult {
	results := make([]requestResult, b.config.Iterations)
	jobs := make(chan int, b.config.Iterations)

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		completed     int
		totalDuration time.Duration
		errorCount    int
	)
	start := time.Now()
	progressInterval := max(1, b.config.Iterations/20)

	for w := 0; w < b.config.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = requestResult{Error: ctx.Err().Error()}
					continue
				}
				if b.limiter != nil {
					if err := b.limiter.Wait(ctx); err != nil {
						results[i] = requestResult{Error: err.Error()}
						continue
					}
				}

				res := b.execute(ctx, op, baseURL)
				results[i] = res

				mu.Lock()
				completed++
				totalDuration += res.Duration
				if res.Error != "" {
					errorCount++
				}
				done, avg, errs := completed, totalDuration/time.Duration(completed), errorCount
				mu.Unlock()

				if done%progressInterval == 0 {
					var reqSec float64
					if elapsed := time.Since(start).Seconds(); elapsed > 0 {
						reqSec = float64(done) / elapsed
					}
					emit(Event{
						Type:          EventBenchmarkProgress,
						Progress:      done,
						MaxIter:       b.config.Iterations,
						RunningAvg:    avg,
						RunningReqSec: reqSec,
						ErrorCount:    errs,
					})
				}
			}
		}()
	}

	for i := 0; i < b.config.Iterations; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// execute sends one request and checks the response against the contract
func (b *Benchmarker) execute(ctx context.Context, op *contract.Operation, baseURL string) requestResult {
	var result requestResult

	req, err := b.builder.BuildRequest(op, baseURL)
	if err != nil {
		result.Error = fmt.Sprintf("build request failed: %v", err)
		return result
	}

	start := time.Now()
	resp, err := b.client.Do(req.WithContext(ctx))
	if err != nil {
		result.Duration = time.Since(start)
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result.Duration = time.Since(start)
	result.StatusCode = resp.StatusCode
	if err != nil {
		result.Error = fmt.Sprintf("failed to read response: %v", err)
		return result
	}

	if err := b.serializer.Check(op, resp.StatusCode, resp.Header.Get("Content-Type"), body); err != nil {
		result.Mismatch = true
		result.Error = err.Error()
		return result
	}
	if resp.StatusCode >= 500 {
		result.Error = fmt.Sprintf("server error: status %d", resp.StatusCode)
	}
	return result
}

// process calculates statistics from raw results
func (b *Benchmarker) process(result models.BenchmarkResult, raw []requestResult) models.BenchmarkResult {
	var durations []time.Duration
	var total time.Duration
	seen := make(map[string]bool)

	for _, r := range raw {
		if r.StatusCode > 0 {
			result.StatusCodes[r.StatusCode]++
		}
		if r.Mismatch {
			result.MismatchCount++
		}
		if r.Error != "" {
			result.ErrorCount++
			if len(result.SampleErrors) < 5 && !seen[r.Error] {
				result.SampleErrors = append(result.SampleErrors, r.Error)
				seen[r.Error] = true
			}
			continue
		}
		result.SuccessCount++
		durations = append(durations, r.Duration)
		total += r.Duration
	}

	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		result.MinTime = durations[0]
		result.MaxTime = durations[len(durations)-1]
		result.AvgTime = total / time.Duration(len(durations))
		result.P50Time = percentile(durations, 50)
		result.P90Time = percentile(durations, 90)
		result.P99Time = percentile(durations, 99)
	}

	if result.TotalDuration > 0 {
		result.RequestsPerSec = float64(result.Iterations) / result.TotalDuration.Seconds()
	}
	if result.Iterations > 0 {
		result.ErrorRate = float64(result.ErrorCount) / float64(result.Iterations) * 100
	}
	return result
}

// percentile interpolates the p-th percentile of sorted durations
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := float64(len(sorted)-1) * float64(p) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return time.Duration(float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight)
}

// Operations benchmarks each operation in turn until ctx is done
func (b *Benchmarker) Operations(ctx context.Context, ops []*contract.Operation, baseURL string, onEvent OnEvent) models.BenchmarkSummary {
	summary := models.BenchmarkSummary{
		Iterations:  b.config.Iterations,
		Concurrency: b.config.Concurrency,
		WarmupRuns:  b.config.WarmupRuns,
		Results:     make([]models.BenchmarkResult, 0, len(ops)),
	}

	start := time.Now()
	for i, op := range ops {
		if ctx.Err() != nil {
			break
		}
		result, err := b.Operation(ctx, op, baseURL, onEvent, i, len(ops))
		if err != nil && result.SuccessCount == 0 {
			result.SampleErrors = append(result.SampleErrors, err.Error())
			result.ErrorCount = result.Iterations
			result.ErrorRate = 100
		}
		summary.AddResult(result)
	}

	summary.Finalize(time.Since(start))
	return summary
}
