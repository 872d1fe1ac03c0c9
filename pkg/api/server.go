// Package api nexas REST API
//
// @title           nexas REST API
// @version         1.0.0
// @description     Converts NeXAS compiled scripts and config tables to and from their text forms.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
)

const shutdownTimeout = 10 * time.Second

// Routes builds the router for every endpoint
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health check stays reachable without a key
		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Group(func(r chi.Router) {
			if s.config.APIKey != "" {
				r.Use(apiKeyMiddleware(s.config.APIKey, s.metrics))
			}

			r.Post("/scripts/decode", s.metrics.InstrumentHandler("POST", "/api/v1/scripts/decode", s.handleDecodeScript))
			r.Post("/scripts/encode", s.metrics.InstrumentHandler("POST", "/api/v1/scripts/encode", s.handleEncodeScript))
			r.Post("/tables/decode", s.metrics.InstrumentHandler("POST", "/api/v1/tables/decode", s.handleDecodeTable))
			r.Post("/tables/encode", s.metrics.InstrumentHandler("POST", "/api/v1/tables/encode", s.handleEncodeTable))

			r.Get("/runs", s.metrics.InstrumentHandler("GET", "/api/v1/runs", s.handleListRuns))
			r.Get("/runs/{id}", s.metrics.InstrumentHandler("GET", "/api/v1/runs/{id}", s.handleGetRun))
		})
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", handleSwagger)

	return r
}

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	<title>nexas API Documentation</title>
	<link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	<script>
	  window.onload = function() {
	    SwaggerUIBundle({
	      url: '/swagger/doc.json',
	      dom_id: '#swagger-ui',
	      presets: [
	        SwaggerUIBundle.presets.apis,
	        SwaggerUIBundle.presets.standalone
	      ]
	    });
	  };
	</script>
</body>
</html>`

func handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		sendBytes(w, "text/html; charset=utf-8", []byte(swaggerUI))
	case "/swagger/doc.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			slog.Error("Failed to generate swagger doc", "error", err)
			sendError(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		sendBytes(w, ContentTypeJSON, []byte(doc))
	default:
		http.NotFound(w, r)
	}
}

// StartServer serves the API on config.Addr until ctx is canceled, then shuts
// down gracefully.
func StartServer(ctx context.Context, conv Converter, runs RunStore, config ServerConfig, metrics Recorder) error {
	ln, err := net.Listen("tcp", config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Addr, err)
	}
	return Serve(ctx, ln, NewServer(conv, runs, config, metrics))
}

// Serve serves s on ln until ctx is canceled
func Serve(ctx context.Context, ln net.Listener, s *Server) error {
	SwaggerInfo.Host = ln.Addr().String()

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Starting nexas REST API server", "addr", ln.Addr().String())
		slog.Info("Metrics available", "url", "http://"+ln.Addr().String()+"/metrics")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
