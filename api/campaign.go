package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/campaign"
	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/types"
)

// campaignFromRequest resolves the campaign URL parameter to its runtime
// handle. On failure it writes the error response and returns false.
func (a *API) campaignFromRequest(w http.ResponseWriter, r *http.Request) (*campaign.Campaign, bool) {
	id := types.HexBytes{}
	if err := id.SetString(chi.URLParam(r, CampaignURLParam)); err != nil {
		ErrMalformedCampaignID.WithErr(err).Write(w)
		return nil, false
	}
	if len(id) != types.CampaignIDSize {
		ErrMalformedCampaignID.Withf("got %d bytes, expected %d", len(id), types.CampaignIDSize).Write(w)
		return nil, false
	}
	c, err := a.campaigns.Campaign(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrCampaignNotFound.Withf("%s", id.String()).Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return nil, false
	}
	return c, true
}

// newCampaign creates a new fundraising campaign owned by the signer
// POST /campaigns
func (a *API) newCampaign(w http.ResponseWriter, r *http.Request) {
	req := &CampaignRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	owner, err := ethereum.AddrFromSignature(req.SignableMessage(), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	c, err := a.campaigns.CreateCampaign(owner, req.Name, req.TargetAmount, time.Unix(req.EndTime, 0))
	if err != nil {
		fromError(err).Write(w)
		return
	}
	log.Infow("new campaign", "campaignId", c.ID().String(), "owner", owner.Hex())
	httpWriteJSON(w, &CampaignCreatedResponse{
		CampaignID: c.ID(),
		Account:    c.Account(),
	})
}

// listCampaigns returns the records of all campaigns
// GET /campaigns
func (a *API) listCampaigns(w http.ResponseWriter, _ *http.Request) {
	list, err := a.campaigns.List()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &CampaignList{Campaigns: list})
}

// campaignInfo returns the record of a single campaign
// GET /campaigns/{campaignId}
func (a *API) campaignInfo(w http.ResponseWriter, r *http.Request) {
	c, ok := a.campaignFromRequest(w, r)
	if !ok {
		return
	}
	httpWriteJSON(w, c.Details())
}

// setCampaignDetails overwrites the name, target and deadline of a
// campaign, owner only
// PUT /campaigns/{campaignId}
func (a *API) setCampaignDetails(w http.ResponseWriter, r *http.Request) {
	c, ok := a.campaignFromRequest(w, r)
	if !ok {
		return
	}
	req := &CampaignDetailsRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	caller, err := ethereum.AddrFromSignature(req.SignableMessage(c.ID()), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := c.SetDetails(caller, req.Name, req.TargetAmount, time.Unix(req.EndTime, 0)); err != nil {
		fromError(err).Write(w)
		return
	}
	httpWriteJSON(w, c.Details())
}

// closeCampaign ends a campaign and sweeps its funds to the owner
// POST /campaigns/{campaignId}/close
func (a *API) closeCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := a.campaignFromRequest(w, r)
	if !ok {
		return
	}
	req := &CloseCampaignRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	caller, err := ethereum.AddrFromSignature(req.SignableMessage(c.ID()), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := c.End(caller); err != nil {
		fromError(err).Write(w)
		return
	}
	httpWriteJSON(w, c.Details())
}
