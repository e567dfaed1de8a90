package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/types"
)

// queueDecrypt queues a user decryption request for asynchronous
// processing. The signature is verified by the engine when the request is
// picked up, so a bad signature surfaces in the result, not here.
// POST /decrypt
func (a *API) queueDecrypt(w http.ResponseWriter, r *http.Request) {
	req := &DecryptRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(req.Handles) == 0 {
		ErrInvalidParameter.With("no handles to decrypt").Write(w)
		return
	}
	id, err := a.storage.PushDecryptRequest(&storage.DecryptRequest{
		Account:   req.Account,
		Handles:   req.Handles,
		Signature: req.Signature,
	})
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	log.Debugw("decryption request queued", "requestId", id.String(), "account", req.Account.Hex())
	httpWriteJSON(w, &DecryptQueuedResponse{RequestID: id})
}

// decryptStatus polls the status of a decryption request
// GET /decrypt/{requestId}
func (a *API) decryptStatus(w http.ResponseWriter, r *http.Request) {
	id := types.HexBytes{}
	if err := id.SetString(chi.URLParam(r, DecryptRequestURLParam)); err != nil {
		ErrMalformedBody.Withf("could not decode request ID: %v", err).Write(w)
		return
	}
	// the queue is checked before the results, so a request the worker
	// resolves between the two reads answers with its result instead of a
	// not found
	pending, err := a.storage.HasDecryptRequest(id)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	if pending {
		httpWriteJSON(w, &DecryptStatusResponse{Pending: true})
		return
	}
	res, err := a.storage.DecryptResult(id)
	if err == nil {
		httpWriteJSON(w, &DecryptStatusResponse{
			Values: res.Values,
			Error:  res.Error,
		})
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	ErrResourceNotFound.Withf("unknown decryption request %s", id.String()).Write(w)
}
