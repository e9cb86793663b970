package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/moamenhredeen/oasgate/internal/apierr"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/schema"
)

// OperationInfo describes one operation on the operations endpoint
type OperationInfo struct {
	ID         string   `json:"id"`
	Method     string   `json:"method"`
	Path       string   `json:"path"`
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Deprecated bool     `json:"deprecated,omitempty"`
	Timeout    string   `json:"timeout"`
	Handled    bool     `json:"handled"`
}

func (s *Server) registerSystemRoutes(r *mux.Router) {
	r.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/contract", s.handleContract).Methods(http.MethodGet)
	r.HandleFunc("/operations", s.handleOperations).Methods(http.MethodGet)
	r.HandleFunc("/schemas/{name}", s.handleSchema).Methods(http.MethodGet)
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleContract(w http.ResponseWriter, _ *http.Request) {
	raw := s.contract.Raw()
	contentType := "application/yaml"
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	ops := s.contract.Operations()
	out := make([]OperationInfo, 0, len(ops))
	for _, op := range ops {
		out = append(out, OperationInfo{
			ID:         op.ID,
			Method:     op.Method,
			Path:       op.Path,
			Summary:    op.Summary,
			Tags:       op.Tags,
			Deprecated: op.Deprecated,
			Timeout:    s.cfg.Dispatch.HandlerTimeout(op.ID, op.Timeout).String(),
			Handled:    s.registry.Has(registry.OperationID(op.ID)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sch, ok := s.contract.Schema(name)
	if !ok {
		apierr.Write(w, apierr.New(apierr.CodeNotFound, "schema "+name+" is not declared"))
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(schema.ToJSONSchema(sch))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
