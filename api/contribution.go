package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/util"
)

// contribute submits an encrypted contribution to a campaign
// POST /campaigns/{campaignId}/contributions
func (a *API) contribute(w http.ResponseWriter, r *http.Request) {
	c, ok := a.campaignFromRequest(w, r)
	if !ok {
		return
	}
	req := &ContributionRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	contributor, err := ethereum.AddrFromSignature(req.SignableMessage(c.ID()), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := c.Contribute(contributor, req.Amount, req.Proof); err != nil {
		fromError(err).Write(w)
		return
	}
	log.Infow("contribution accepted",
		"campaignId", c.ID().String(),
		"contributor", contributor.Hex())
	httpWriteOK(w)
}

// contribution returns the cumulative encrypted contribution handle of an
// account in a campaign
// GET /campaigns/{campaignId}/contributions/{address}
func (a *API) contribution(w http.ResponseWriter, r *http.Request) {
	c, ok := a.campaignFromRequest(w, r)
	if !ok {
		return
	}
	addr := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(util.TrimHex(addr)) {
		ErrMalformedAddress.Withf("%s", addr).Write(w)
		return
	}
	handle, err := c.ContributionOf(common.HexToAddress(addr))
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &ContributionResponse{Contribution: handle})
}

// campaignTotal returns the handle of the encrypted running total of a
// campaign
// GET /campaigns/{campaignId}/total
func (a *API) campaignTotal(w http.ResponseWriter, r *http.Request) {
	c, ok := a.campaignFromRequest(w, r)
	if !ok {
		return
	}
	httpWriteJSON(w, &TotalResponse{TotalRaised: c.TotalRaised()})
}
