package api

import (
	"context"
	"net/http"

	"github.com/ssargent/nexas/pkg/batch"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Kind and Field describe codec failures
	Kind   string `json:"kind,omitempty"`
	Field  string `json:"field,omitempty"`
	Offset *int64 `json:"offset,omitempty"`
}

// RunSummary is one line of the run listing
type RunSummary struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	Started   string `json:"started"`
	Duration  string `json:"duration"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr         string
	APIKey       string // empty disables authentication
	MaxBodyBytes int64
}

// Converter performs the conversions served by the API
type Converter interface {
	DecodeScript(data []byte) ([]byte, error)
	EncodeScript(doc []byte) ([]byte, error)
	DecodeTable(data []byte, format string) ([]byte, error)
	EncodeTable(data []byte, format string) ([]byte, error)
}

// RunStore exposes the run journal read-only
type RunStore interface {
	List(limit int) ([]*batch.Report, error)
	Get(id string) (*batch.Report, error)
}

// Recorder receives HTTP metrics and serves them
type Recorder interface {
	RecordHealthCheck(success bool)
	RecordAuthRequest(success bool)
	InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc
	Handler() http.Handler
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is canceled
	StartServer(ctx context.Context, conv Converter, runs RunStore, config ServerConfig, metrics Recorder) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
