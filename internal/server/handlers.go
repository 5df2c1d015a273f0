package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/registry"
)

// Error codes for failures that are not compile errors.
const (
	codeBadRequest        = "INVALID_REQUEST"
	codeSeasonUnavailable = "SEASON_UNAVAILABLE"
	codeExecutionDisabled = "EXECUTION_DISABLED"
	codeQueryFailed       = "QUERY_FAILED"
	codeInternal          = "INTERNAL"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error response.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ColumnID  string `json:"column_id,omitempty"`
	Param     string `json:"param,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ResultsResponse is the body of POST /data-views/results.
type ResultsResponse struct {
	ViewID   string                 `json:"view_id,omitempty"`
	Hash     string                 `json:"hash"`
	Columns  []string               `json:"columns"`
	Rows     [][]any                `json:"rows"`
	Metadata compiler.CacheMetadata `json:"data_view_metadata"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	defs := s.compiler.Registry().List()
	out := make([]registry.ColumnInfo, len(defs))
	for i, d := range defs {
		out[i] = d.Info()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	res, ok := s.compile(w, r)
	if !ok {
		return
	}
	etag := fmt.Sprintf("%q", res.Hash)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", res.Metadata.CacheTTL/1000))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.exec == nil {
		s.writeError(w, r, http.StatusNotImplemented, ErrorDetail{Code: codeExecutionDisabled, Message: "no database configured"})
		return
	}
	res, ok := s.compile(w, r)
	if !ok {
		return
	}
	rows, err := s.exec.Query(r.Context(), res.Query)
	if err != nil {
		s.logger.Error("query failed", "request_id", RequestID(r.Context()), "hash", res.Hash, "error", err)
		s.writeError(w, r, http.StatusBadGateway, ErrorDetail{Code: codeQueryFailed, Message: err.Error()})
		return
	}
	w.Header().Set("ETag", fmt.Sprintf("%q", res.Hash))
	writeJSON(w, http.StatusOK, ResultsResponse{
		ViewID:   res.ViewID,
		Hash:     res.Hash,
		Columns:  rows.Columns,
		Rows:     rows.Rows,
		Metadata: res.Metadata,
	})
}

// compile decodes the request body and compiles it, writing the error
// response itself when it fails.
func (s *Server) compile(w http.ResponseWriter, r *http.Request) (*compiler.Result, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, ErrorDetail{Code: codeBadRequest, Message: err.Error()})
		return nil, false
	}
	req, err := compiler.ParseRequestJSON(body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrorDetail{Code: codeBadRequest, Message: err.Error()})
		return nil, false
	}

	sc, err := s.seasons.Current(r.Context())
	if err != nil {
		s.logger.Error("season context unavailable", "request_id", RequestID(r.Context()), "error", err)
		s.writeError(w, r, http.StatusServiceUnavailable, ErrorDetail{Code: codeSeasonUnavailable, Message: err.Error()})
		return nil, false
	}

	res, err := s.compiler.Compile(req, sc)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			s.writeError(w, r, http.StatusBadRequest, ErrorDetail{
				Code:     string(ce.Code),
				Message:  ce.Message,
				ColumnID: ce.ColumnID,
				Param:    ce.Param,
			})
			return nil, false
		}
		s.logger.Error("compile failed", "request_id", RequestID(r.Context()), "error", err)
		s.writeError(w, r, http.StatusInternalServerError, ErrorDetail{Code: codeInternal, Message: err.Error()})
		return nil, false
	}
	return res, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, detail ErrorDetail) {
	detail.RequestID = RequestID(r.Context())
	writeJSON(w, status, ErrorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
