// Command fundraiserd runs the confidential fundraising daemon: the
// encrypted token ledger, the campaign manager, the HTTP API and the
// background decryption worker, all over a single persistent database.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/campaign"
	"github.com/encfund/fundraiser/fhe/coprocessor"
	"github.com/encfund/fundraiser/service"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/token"
)

func main() {
	dataDir := flag.String("dataDir", func() string {
		home, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}
		return filepath.Join(home, ".fundraiserd")
	}(), "data directory for the database")
	dbType := flag.String("dbType", db.TypePebble, "key-value database type")
	host := flag.String("host", "0.0.0.0", "API host")
	port := flag.Int("port", 8080, "API port")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	chainID := flag.Uint("chainID", 1, "chain ID namespace for campaign identifiers")
	minter := flag.String("minter", "", "address allowed to mint tokens (empty for open minting)")
	decryptInterval := flag.Duration("decryptInterval", time.Second, "polling interval of the decryption worker")
	flag.Parse()

	log.Init(*logLevel, "stdout", nil)

	database, err := metadb.New(*dbType, filepath.Join(*dataDir, "fundraiser"))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	engine, err := coprocessor.New(coprocessor.Config{Store: stg})
	if err != nil {
		log.Fatalf("failed to create encryption engine: %v", err)
	}

	var minterAddr common.Address
	if *minter != "" {
		if !common.IsHexAddress(*minter) {
			log.Fatalf("invalid minter address: %s", *minter)
		}
		minterAddr = common.HexToAddress(*minter)
	}
	ledger, err := token.New(token.Config{
		Store:   stg,
		Engine:  engine,
		Address: common.BytesToAddress([]byte("fundraiser-token")),
		Minter:  minterAddr,
	})
	if err != nil {
		log.Fatalf("failed to create token ledger: %v", err)
	}

	campaigns, err := campaign.NewManager(campaign.Config{
		Store:   stg,
		Engine:  engine,
		Ledger:  ledger,
		ChainID: uint32(*chainID),
	})
	if err != nil {
		log.Fatalf("failed to create campaign manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiService := service.NewAPI(stg, engine, ledger, campaigns, *host, *port)
	if err := apiService.Start(ctx); err != nil {
		log.Fatalf("failed to start API service: %v", err)
	}
	defer apiService.Stop()

	decryptWorker := service.NewDecryptWorker(stg, engine, *decryptInterval)
	if err := decryptWorker.Start(ctx); err != nil {
		log.Fatalf("failed to start decryption worker: %v", err)
	}
	defer decryptWorker.Stop()

	log.Infow("fundraiser daemon running", "dataDir", *dataDir, "host", *host, "port", *port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
}
