package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/util"
)

// balance returns the encrypted balance handle of an account
// GET /token/balances/{address}
func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(util.TrimHex(addr)) {
		ErrMalformedAddress.Withf("%s", addr).Write(w)
		return
	}
	handle, err := a.ledger.BalanceOf(common.HexToAddress(addr))
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &BalanceResponse{Balance: handle})
}

// mint credits new tokens to an account, caller checked against the
// configured minter
// POST /token/mint
func (a *API) mint(w http.ResponseWriter, r *http.Request) {
	req := &MintRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	caller, err := ethereum.AddrFromSignature(req.SignableMessage(), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	balance, err := a.ledger.Mint(caller, req.To, req.Amount)
	if err != nil {
		fromError(err).Write(w)
		return
	}
	log.Infow("minted tokens", "to", req.To.Hex(), "amount", req.Amount)
	httpWriteJSON(w, &MintResponse{Balance: balance})
}

// setOperator grants an operator time-bounded rights over the signer's
// balance
// POST /token/operators
func (a *API) setOperator(w http.ResponseWriter, r *http.Request) {
	req := &OperatorRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	owner, err := ethereum.AddrFromSignature(req.SignableMessage(), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.ledger.SetOperator(owner, req.Operator, time.Unix(req.Expiry, 0)); err != nil {
		fromError(err).Write(w)
		return
	}
	httpWriteOK(w)
}
