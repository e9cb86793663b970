package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moamenhredeen/oasgate/internal/config"
	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/generator"
	"github.com/moamenhredeen/oasgate/internal/mock"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/server"
)

func loadPetstore(t *testing.T) *contract.Contract {
	t.Helper()
	c, err := contract.LoadFile("../../testdata/petstore.yaml")
	if err != nil {
		t.Fatalf("Failed to load contract: %v", err)
	}
	return c
}

func operation(t *testing.T, c *contract.Contract, id string) *contract.Operation {
	t.Helper()
	op, ok := c.Operation(id)
	if !ok {
		t.Fatalf("Operation %s not found", id)
	}
	return op
}

func TestBuildRequest(t *testing.T) {
	c := loadPetstore(t)
	rb := NewRequestBuilder(generator.NewSeeded(1))

	req, err := rb.BuildRequest(operation(t, c, "getPet"), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if req.Method != http.MethodGet {
		t.Errorf("Expected GET, got %s", req.Method)
	}
	if !strings.HasPrefix(req.URL.Path, "/pets/") {
		t.Errorf("Expected /pets/{id}, got %s", req.URL.Path)
	} else if _, err := strconv.Atoi(strings.TrimPrefix(req.URL.Path, "/pets/")); err != nil {
		t.Errorf("Expected an integer id in %s", req.URL.Path)
	}
	if got := req.Header.Get("User-Agent"); got != UserAgent {
		t.Errorf("Expected User-Agent %q, got %q", UserAgent, got)
	}

	req, err = rb.BuildRequest(operation(t, c, "listPets"), "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	limit, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil {
		t.Fatalf("Expected an integer limit: %v", err)
	}
	if limit < 1 || limit > 100 {
		t.Errorf("Expected limit in [1, 100], got %d", limit)
	}
	if len(req.URL.Query()["tag"]) == 0 {
		t.Error("Expected tag query values")
	}
	if trace := req.Header.Get("X-Trace"); trace != "true" && trace != "false" {
		t.Errorf("Expected boolean X-Trace, got %q", trace)
	}

	req, err = rb.BuildRequest(operation(t, c, "createPet"), "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}
	if req.ContentLength <= 0 {
		t.Errorf("Expected a request body, got length %d", req.ContentLength)
	}

	if _, err := rb.BuildRequest(nil, "http://localhost"); err == nil {
		t.Error("Expected error for nil operation")
	}
}

func newMockServer(t *testing.T, c *contract.Contract) *httptest.Server {
	t.Helper()
	reg := registry.New(c)
	if _, err := mock.Register(reg, c, generator.NewSeeded(2)); err != nil {
		t.Fatalf("Failed to register mocks: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Addr:            ":0",
			ShutdownTimeout: time.Second,
			MaxBodyBytes:    1 << 16,
			SystemPrefix:    "/_",
		},
		Dispatch: config.DispatchConfig{DefaultTimeout: time.Second, RequireAllHandlers: true},
	}
	s, err := server.New(cfg, c, reg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestProbeMockedContractPasses(t *testing.T) {
	c := loadPetstore(t)
	ts := newMockServer(t, c)

	var events []Event
	summary := New(time.Second).Operations(context.Background(), c.Operations(), ts.URL, func(e Event) {
		events = append(events, e)
	})

	for _, r := range summary.Results {
		if !r.Passed {
			t.Errorf("%s %s failed: %s", r.Method, r.Path, r.Error)
		}
	}
	if summary.Total != len(c.Operations()) || summary.Failed != 0 {
		t.Errorf("Expected %d passed, got total %d failed %d", len(c.Operations()), summary.Total, summary.Failed)
	}
	if len(events) != 2*len(c.Operations()) {
		t.Fatalf("Expected %d events, got %d", 2*len(c.Operations()), len(events))
	}
	if events[0].Type != EventStarting || events[1].Type != EventCompleted {
		t.Errorf("Expected starting then completed, got %v then %v", events[0].Type, events[1].Type)
	}
	if events[1].Result == nil {
		t.Error("Expected a result on the completed event")
	}
}

func TestProbeReportsMismatch(t *testing.T) {
	c := loadPetstore(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"seven"}`))
	}))
	defer ts.Close()

	result := New(time.Second).Operation(context.Background(), operation(t, c, "getPet"), ts.URL)
	if result.Passed {
		t.Fatal("Expected mismatch to fail")
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", result.StatusCode)
	}
	if len(result.Violations) != 2 {
		t.Fatalf("Expected 2 violations, got %v", result.Violations)
	}
	if result.Violations[0].Field != "name" || result.Violations[1].Field != "id" {
		t.Errorf("Expected violations on name and id, got %v", result.Violations)
	}
}

func TestProbeReportsUndeclaredStatus(t *testing.T) {
	c := loadPetstore(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()

	result := New(time.Second).Operation(context.Background(), operation(t, c, "getPet"), ts.URL)
	if result.Passed || !strings.Contains(result.Error, "not declared") {
		t.Errorf("Expected undeclared status failure, got passed=%v error=%q", result.Passed, result.Error)
	}
}

func TestProbeTransportError(t *testing.T) {
	c := loadPetstore(t)
	result := New(100*time.Millisecond).Operation(context.Background(), operation(t, c, "getPet"), "http://127.0.0.1:1")
	if result.Passed || !strings.Contains(result.Error, "request failed") {
		t.Errorf("Expected transport failure, got passed=%v error=%q", result.Passed, result.Error)
	}
}

func TestFilter(t *testing.T) {
	c := loadPetstore(t)
	ops := c.Operations()

	tests := []struct {
		name   string
		filter string
		tags   []string
		want   int
	}{
		{"no filter", "", nil, len(ops)},
		{"path", "/owners", nil, 2},
		{"operation id", "slowReport", nil, 1},
		{"tags", "", []string{"reports", "owners"}, 3},
		{"path and tag", "/pets", []string{"reports"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Filter(ops, tt.filter, tt.tags)); got != tt.want {
				t.Errorf("Expected %d operations, got %d", tt.want, got)
			}
		})
	}
}
