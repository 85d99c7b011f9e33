// Package service wires the stores and domain components into one
// facade for the CLI and the daemon.
package service

import (
	"fmt"
	"io"
	"os"

	"github.com/Ning0612/Regsync/internal/config"
	"github.com/Ning0612/Regsync/internal/jobs"
	"github.com/Ning0612/Regsync/internal/lifecycle"
	"github.com/Ning0612/Regsync/internal/logger"
	"github.com/Ning0612/Regsync/internal/prober"
	"github.com/Ning0612/Regsync/internal/query"
	"github.com/Ning0612/Regsync/internal/registry"
	"github.com/Ning0612/Regsync/internal/store"
	"github.com/Ning0612/Regsync/internal/store/sqlite"
)

// Service exposes the replication-policy core built from configuration
type Service struct {
	config *config.Config
	store  store.Store

	Endpoints *registry.Registry
	Rules     *lifecycle.Manager
	Jobs      *jobs.Tracker
	Query     *query.Engine
	Prober    *prober.Prober
}

// New opens the sqlite store under the configured data directory and
// assembles the service
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := sqlite.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	svc := NewWithStore(cfg, st)
	return svc, nil
}

// NewWithStore assembles the service on an already-open store. Tests
// inject store.NewMemory() here.
func NewWithStore(cfg *config.Config, st store.Store) *Service {
	endpoints := registry.New(st, st)
	return &Service{
		config:    cfg,
		store:     st,
		Endpoints: endpoints,
		Rules:     lifecycle.NewManager(st, endpoints, logger.Get()),
		Jobs:      jobs.NewTracker(st, logger.Get()),
		Query:     query.NewEngine(st, st),
		Prober:    prober.New(st, cfg.Probe.Timeout()),
	}
}

// Config returns the configuration the service was built from
func (s *Service) Config() *config.Config {
	return s.config
}

// Close releases the underlying store
func (s *Service) Close() error {
	return s.store.Close()
}

var _ io.Closer = (*Service)(nil)
