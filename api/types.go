package api

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encfund/fundraiser/types"
)

// CampaignRequest is the body to create a new campaign. The owner is
// recovered from the signature over SignableMessage, so whoever signed
// the request becomes the campaign owner.
type CampaignRequest struct {
	Name         string         `json:"name"`
	TargetAmount uint64         `json:"targetAmount"`
	EndTime      int64          `json:"endTime"` // unix seconds
	Signature    types.HexBytes `json:"signature"`
}

// SignableMessage returns the message the owner must sign to create the
// campaign.
func (r *CampaignRequest) SignableMessage() []byte {
	return fmt.Appendf(nil, "create-campaign/%s/%d/%d", r.Name, r.TargetAmount, r.EndTime)
}

// CampaignDetailsRequest is the body to overwrite the details of an
// existing campaign. Only the owner's signature is accepted.
type CampaignDetailsRequest struct {
	Name         string         `json:"name"`
	TargetAmount uint64         `json:"targetAmount"`
	EndTime      int64          `json:"endTime"` // unix seconds
	Signature    types.HexBytes `json:"signature"`
}

// SignableMessage returns the message the owner must sign to edit the
// campaign details.
func (r *CampaignDetailsRequest) SignableMessage(campaignID types.HexBytes) []byte {
	return fmt.Appendf(nil, "set-campaign/%s/%s/%d/%d", campaignID.String(), r.Name, r.TargetAmount, r.EndTime)
}

// CampaignCreatedResponse is the response to a campaign creation request.
type CampaignCreatedResponse struct {
	CampaignID types.HexBytes `json:"campaignId"`
	Account    common.Address `json:"account"`
}

// CampaignList is the response to a campaign listing request.
type CampaignList struct {
	Campaigns []*types.Campaign `json:"campaigns"`
}

// CloseCampaignRequest is the body to end a campaign, sweeping its funds
// to the owner. Only the owner's signature is accepted.
type CloseCampaignRequest struct {
	Signature types.HexBytes `json:"signature"`
}

// SignableMessage returns the message the owner must sign to end the
// campaign.
func (r *CloseCampaignRequest) SignableMessage(campaignID types.HexBytes) []byte {
	return fmt.Appendf(nil, "close-campaign/%s", campaignID.String())
}

// ContributionRequest is the body to contribute an encrypted amount to a
// campaign. Amount is a ciphertext handle with an input proof bound to
// the campaign account, and the contributor is recovered from the
// signature.
type ContributionRequest struct {
	Amount    types.HexBytes `json:"amount"`
	Proof     types.HexBytes `json:"proof"`
	Signature types.HexBytes `json:"signature"`
}

// SignableMessage returns the message the contributor must sign to
// authorize the contribution.
func (r *ContributionRequest) SignableMessage(campaignID types.HexBytes) []byte {
	return fmt.Appendf(nil, "contribute/%s/%s", campaignID.String(), r.Amount.String())
}

// ContributionResponse is the response to a contribution query, carrying
// the cumulative encrypted contribution handle of an account.
type ContributionResponse struct {
	Contribution types.HexBytes `json:"contribution"`
}

// TotalResponse carries the handle of the encrypted running total of a
// campaign. It is empty before the first contribution.
type TotalResponse struct {
	TotalRaised types.HexBytes `json:"totalRaised"`
}

// BalanceResponse carries the encrypted balance handle of an account. It
// is empty for accounts without activity.
type BalanceResponse struct {
	Balance types.HexBytes `json:"balance"`
}

// MintRequest is the body to mint new tokens. The caller is recovered
// from the signature and checked against the configured minter.
type MintRequest struct {
	To        common.Address `json:"to"`
	Amount    uint64         `json:"amount"`
	Signature types.HexBytes `json:"signature"`
}

// SignableMessage returns the message the minter must sign.
func (r *MintRequest) SignableMessage() []byte {
	return fmt.Appendf(nil, "mint/%s/%d", r.To.Hex(), r.Amount)
}

// MintResponse carries the new encrypted balance handle after a mint.
type MintResponse struct {
	Balance types.HexBytes `json:"balance"`
}

// OperatorRequest is the body to grant an operator time-bounded rights
// over the signer's balance. The owner is recovered from the signature.
type OperatorRequest struct {
	Operator  common.Address `json:"operator"`
	Expiry    int64          `json:"expiry"` // unix seconds
	Signature types.HexBytes `json:"signature"`
}

// SignableMessage returns the message the owner must sign to grant the
// operator.
func (r *OperatorRequest) SignableMessage() []byte {
	return fmt.Appendf(nil, "set-operator/%s/%d", r.Operator.Hex(), r.Expiry)
}

// DecryptRequest is the body to queue a user decryption request. The
// signature is an Ethereum personal-message signature over the engine's
// decryption digest for (account, handles); it is verified when the
// request is processed.
type DecryptRequest struct {
	Account   common.Address   `json:"account"`
	Handles   []types.HexBytes `json:"handles"`
	Signature types.HexBytes   `json:"signature"`
}

// DecryptQueuedResponse is the response to a queued decryption request.
type DecryptQueuedResponse struct {
	RequestID types.HexBytes `json:"requestId"`
}

// DecryptStatusResponse is the response to a decryption status poll.
// While the request is pending only Pending is set; once resolved it
// carries either the plaintext values keyed by handle hex or the
// rejection error.
type DecryptStatusResponse struct {
	Pending bool              `json:"pending"`
	Values  map[string]uint64 `json:"values,omitempty"`
	Error   string            `json:"error,omitempty"`
}
