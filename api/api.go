// Package api exposes the fundraising system over HTTP: campaign
// lifecycle, encrypted contributions, token balances and operator
// grants, and the asynchronous user decryption queue. Mutating endpoints
// authenticate their caller by recovering the address from an Ethereum
// personal-message signature over a request-specific message.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/campaign"
	"github.com/encfund/fundraiser/fhe"
	stg "github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/token"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the already wired core components.
type APIConfig struct {
	Host      string
	Port      int
	Storage   *stg.Storage
	Engine    fhe.Engine
	Ledger    *token.Ledger
	Campaigns *campaign.Manager
}

// API type represents the API HTTP server.
type API struct {
	router    *chi.Mux
	storage   *stg.Storage
	engine    fhe.Engine
	ledger    *token.Ledger
	campaigns *campaign.Manager
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil || conf.Engine == nil || conf.Ledger == nil || conf.Campaigns == nil {
		return nil, fmt.Errorf("missing core components")
	}
	a := &API{
		storage:   conf.Storage,
		engine:    conf.Engine,
		ledger:    conf.Ledger,
		campaigns: conf.Campaigns,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", CampaignsEndpoint, "method", "POST")
	a.router.Post(CampaignsEndpoint, a.newCampaign)
	log.Infow("register handler", "endpoint", CampaignsEndpoint, "method", "GET")
	a.router.Get(CampaignsEndpoint, a.listCampaigns)
	log.Infow("register handler", "endpoint", CampaignEndpoint, "method", "GET")
	a.router.Get(CampaignEndpoint, a.campaignInfo)
	log.Infow("register handler", "endpoint", CampaignEndpoint, "method", "PUT")
	a.router.Put(CampaignEndpoint, a.setCampaignDetails)
	log.Infow("register handler", "endpoint", CampaignCloseEndpoint, "method", "POST")
	a.router.Post(CampaignCloseEndpoint, a.closeCampaign)
	log.Infow("register handler", "endpoint", ContributionsEndpoint, "method", "POST")
	a.router.Post(ContributionsEndpoint, a.contribute)
	log.Infow("register handler", "endpoint", ContributionEndpoint, "method", "GET")
	a.router.Get(ContributionEndpoint, a.contribution)
	log.Infow("register handler", "endpoint", CampaignTotalEndpoint, "method", "GET")
	a.router.Get(CampaignTotalEndpoint, a.campaignTotal)
	log.Infow("register handler", "endpoint", BalanceEndpoint, "method", "GET")
	a.router.Get(BalanceEndpoint, a.balance)
	log.Infow("register handler", "endpoint", MintEndpoint, "method", "POST")
	a.router.Post(MintEndpoint, a.mint)
	log.Infow("register handler", "endpoint", OperatorsEndpoint, "method", "POST")
	a.router.Post(OperatorsEndpoint, a.setOperator)
	log.Infow("register handler", "endpoint", DecryptEndpoint, "method", "POST")
	a.router.Post(DecryptEndpoint, a.queueDecrypt)
	log.Infow("register handler", "endpoint", DecryptStatusEndpoint, "method", "GET")
	a.router.Get(DecryptStatusEndpoint, a.decryptStatus)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
