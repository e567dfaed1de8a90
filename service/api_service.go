// Package service wires the core components into long-running services:
// the HTTP API server and the background decryption worker.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/encfund/fundraiser/api"
	"github.com/encfund/fundraiser/campaign"
	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/token"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage   *storage.Storage
	engine    fhe.Engine
	ledger    *token.Ledger
	campaigns *campaign.Manager
	api       *api.API
	mu        sync.Mutex
	cancel    context.CancelFunc
	host      string
	port      int
}

// NewAPI creates a new APIService instance over the already wired core
// components.
func NewAPI(stg *storage.Storage, engine fhe.Engine, ledger *token.Ledger,
	campaigns *campaign.Manager, host string, port int,
) *APIService {
	return &APIService{
		storage:   stg,
		engine:    engine,
		ledger:    ledger,
		campaigns: campaigns,
		host:      host,
		port:      port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:      as.host,
		Port:      as.port,
		Storage:   as.storage,
		Engine:    as.engine,
		Ledger:    as.ledger,
		Campaigns: as.campaigns,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
