package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/nexas/pkg/batch"
	"github.com/ssargent/nexas/pkg/convert"
	"github.com/ssargent/nexas/pkg/storage"
)

// Content types produced by the conversion endpoints
const (
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
	ContentTypeCSV    = "text/csv; charset=utf-8"
)

const defaultRunLimit = 20

// Server holds the API server state
type Server struct {
	conv    Converter
	runs    RunStore
	config  ServerConfig
	metrics Recorder
}

// NewServer creates a new API server. runs may be nil when no journal is
// configured.
func NewServer(conv Converter, runs RunStore, config ServerConfig, metrics Recorder) *Server {
	return &Server{
		conv:    conv,
		runs:    runs,
		config:  config,
		metrics: metrics,
	}
}

// readBody reads the whole request body within the configured limit. It sends
// the error response itself and returns false on failure.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	if len(body) == 0 {
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func tableFormat(w http.ResponseWriter, r *http.Request) (string, bool) {
	format := r.URL.Query().Get("format")
	switch format {
	case "":
		return convert.FormatJSON, true
	case convert.FormatJSON, convert.FormatCSV:
		return format, true
	default:
		sendError(w, fmt.Sprintf("Unsupported format %q", format), http.StatusBadRequest)
		return "", false
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleDecodeScript godoc
//
//	@Summary		Decode a compiled script
//	@Description	Convert a compiled script into its JSON document
//	@Tags			scripts
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"Compiled script"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/scripts/decode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleDecodeScript(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	doc, err := s.conv.DecodeScript(body)
	if err != nil {
		sendConversionError(w, err)
		return
	}
	sendBytes(w, ContentTypeJSON, doc)
}

// handleEncodeScript godoc
//
//	@Summary		Encode a compiled script
//	@Description	Convert a JSON document back into a compiled script
//	@Tags			scripts
//	@Accept			json
//	@Produce		octet-stream
//	@Param			body	body		map[string]interface{}	true	"Script document"
//	@Success		200		{string}	byte
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/scripts/encode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleEncodeScript(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	data, err := s.conv.EncodeScript(body)
	if err != nil {
		sendConversionError(w, err)
		return
	}
	sendBytes(w, ContentTypeBinary, data)
}

// handleDecodeTable godoc
//
//	@Summary		Decode a config table
//	@Description	Convert a binary table into JSON or CSV
//	@Tags			tables
//	@Accept			octet-stream
//	@Produce		json,text/csv
//	@Param			format	query		string	false	"json (default) or csv"
//	@Param			body	body		[]byte	true	"Binary table"
//	@Success		200		{string}	string
//	@Failure		400		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/tables/decode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleDecodeTable(w http.ResponseWriter, r *http.Request) {
	format, ok := tableFormat(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	out, err := s.conv.DecodeTable(body, format)
	if err != nil {
		sendConversionError(w, err)
		return
	}
	contentType := ContentTypeJSON
	if format == convert.FormatCSV {
		contentType = ContentTypeCSV
	}
	sendBytes(w, contentType, out)
}

// handleEncodeTable godoc
//
//	@Summary		Encode a config table
//	@Description	Convert a JSON or CSV table into its binary form
//	@Tags			tables
//	@Accept			json,text/csv
//	@Produce		octet-stream
//	@Param			format	query		string	false	"json (default) or csv"
//	@Param			body	body		string	true	"Table document"
//	@Success		200		{string}	byte
//	@Failure		400		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/tables/encode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleEncodeTable(w http.ResponseWriter, r *http.Request) {
	format, ok := tableFormat(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	out, err := s.conv.EncodeTable(body, format)
	if err != nil {
		sendConversionError(w, err)
		return
	}
	sendBytes(w, ContentTypeBinary, out)
}

// handleListRuns godoc
//
//	@Summary		List runs
//	@Description	List journaled batch runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of runs"
//	@Success		200		{object}	APIResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/runs [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		sendError(w, "Run journal is not configured", http.StatusNotFound)
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := s.runs.List(limit)
	if err != nil {
		sendError(w, "Failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]RunSummary, 0, len(reports))
	for _, rep := range reports {
		summaries = append(summaries, summarize(rep))
	}
	sendSuccess(w, summaries)
}

// handleGetRun godoc
//
//	@Summary		Get a run
//	@Description	Get the per-file results of one journaled run
//	@Tags			runs
//	@Produce		json
//	@Param			id	path		string	true	"Run ID"
//	@Success		200	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/runs/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		sendError(w, "Run journal is not configured", http.StatusNotFound)
		return
	}

	id := chi.URLParam(r, "id")
	report, err := s.runs.Get(id)
	if errors.Is(err, storage.ErrRunNotFound) {
		sendError(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendSuccess(w, report)
}

func summarize(r *batch.Report) RunSummary {
	return RunSummary{
		ID:        r.ID,
		Operation: r.Operation,
		Started:   r.Started.Format(time.RFC3339),
		Duration:  r.Duration.Round(time.Millisecond).String(),
		Succeeded: r.Succeeded(),
		Failed:    r.Failed(),
	}
}
