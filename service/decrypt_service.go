package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
)

// DecryptWorker represents a service that resolves queued user decryption
// requests in the background. It polls the storage queue, asks the engine
// to verify and decrypt each request, and persists the result so the API
// can serve it.
type DecryptWorker struct {
	storage  *storage.Storage
	engine   fhe.Engine
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
}

// NewDecryptWorker creates a new DecryptWorker instance.
func NewDecryptWorker(stg *storage.Storage, engine fhe.Engine, interval time.Duration) *DecryptWorker {
	return &DecryptWorker{
		storage:  stg,
		engine:   engine,
		interval: interval,
	}
}

// Start begins the background processing loop. It returns an error if the
// service is already running.
func (dw *DecryptWorker) Start(ctx context.Context) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	dw.cancel = cancel

	go dw.processRequests(ctx)
	return nil
}

// Stop halts the background processing loop.
func (dw *DecryptWorker) Stop() {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.cancel != nil {
		dw.cancel()
		dw.cancel = nil
	}
}

func (dw *DecryptWorker) processRequests(ctx context.Context) {
	ticker := time.NewTicker(dw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dw.drainQueue()
		}
	}
}

// drainQueue resolves every pending request. Rejections are stored as
// results too, so clients always get an answer when polling.
func (dw *DecryptWorker) drainQueue() {
	for {
		req, key, err := dw.storage.NextDecryptRequest()
		if errors.Is(err, storage.ErrNoMoreElements) {
			return
		}
		if err != nil {
			log.Warnw("failed to fetch next decryption request", "error", err.Error())
			return
		}
		handles := make([]fhe.Handle, len(req.Handles))
		for i, h := range req.Handles {
			handles[i] = fhe.Handle(h)
		}
		res := &storage.DecryptResult{CompletedAt: time.Now()}
		values, err := dw.engine.UserDecrypt(handles, req.Account, req.Signature)
		if err != nil {
			res.Error = err.Error()
			log.Debugw("decryption request rejected",
				"requestId", key.String(),
				"account", req.Account.Hex(),
				"error", err.Error())
		} else {
			res.Values = values
		}
		if err := dw.storage.MarkDecryptDone(key, res); err != nil {
			log.Warnw("failed to store decryption result", "requestId", key.String(), "error", err.Error())
			return
		}
	}
}
