// Package di provides dependency injection container
package di

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ssargent/nexas/pkg/api" //nolint:depguard
	"github.com/ssargent/nexas/pkg/batch"
	"github.com/ssargent/nexas/pkg/config"
	"github.com/ssargent/nexas/pkg/convert"
	"github.com/ssargent/nexas/pkg/metrics"
	"github.com/ssargent/nexas/pkg/storage"
)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	metrics       *metrics.Metrics
	journal       *storage.Journal
	converter     *convert.Converter
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container from cfg. The run
// journal is opened only when cfg names a journal directory.
func NewContainer(cfg *config.Config, logger *slog.Logger, metricOpts ...metrics.Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conv, err := convert.New(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		logger:        logger,
		metrics:       metrics.NewMetrics(metricOpts...),
		converter:     conv,
		serverFactory: api.NewServerFactory(),
	}

	if cfg.Journal.Dir != "" {
		journal, err := storage.Open(cfg.Journal.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open run journal: %w", err)
		}
		c.journal = journal
	}

	return c, nil
}

// Config returns the resolved configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the metrics registry
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Converter returns the configured converter
func (c *Container) Converter() *convert.Converter {
	return c.converter
}

// Journal returns the run journal, or nil when none is configured
func (c *Container) Journal() *storage.Journal {
	return c.journal
}

// RunStore returns the journal as an api.RunStore. It is a nil interface when
// no journal is configured.
func (c *Container) RunStore() api.RunStore {
	if c.journal == nil {
		return nil
	}
	return c.journal
}

// Runner builds a batch runner wired to the container's logger, metrics and
// journal
func (c *Container) Runner() *batch.Runner {
	opts := []batch.Option{
		batch.WithWorkers(c.config.Batch.Workers),
		batch.WithTimeout(c.config.Batch.Timeout),
		batch.WithLogger(c.logger),
		batch.WithMetrics(c.metrics),
	}
	if c.journal != nil {
		opts = append(opts, batch.WithRecorder(c.journal))
	}
	return batch.NewRunner(opts...)
}

// ServerConfig returns the API server settings
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Addr:         c.config.Server.Addr,
		APIKey:       c.config.Server.APIKey,
		MaxBodyBytes: c.config.Server.MaxBodyBytes,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// WriteMetrics writes the metrics textfile when one is configured
func (c *Container) WriteMetrics() error {
	if c.config.Metrics.Textfile == "" {
		return nil
	}
	return c.metrics.WriteTextfile(c.config.Metrics.Textfile)
}

// Close releases the journal
func (c *Container) Close() error {
	var errs []error
	if c.journal != nil {
		errs = append(errs, c.journal.Close())
		c.journal = nil
	}
	return errors.Join(errs...)
}
