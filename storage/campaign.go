package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"

	"github.com/encfund/fundraiser/types"
)

// contributionKey builds the composite (campaign, contributor) key.
func contributionKey(campaignID types.HexBytes, contributor common.Address) []byte {
	key := make([]byte, 0, len(campaignID)+common.AddressLength)
	key = append(key, campaignID...)
	key = append(key, contributor.Bytes()...)
	return key
}

// Campaign retrieves a campaign record. Returns ErrNotFound if the
// campaign does not exist.
func (s *Storage) Campaign(id types.HexBytes) (*types.Campaign, error) {
	campaign := &types.Campaign{}
	if err := s.getArtifact(campaignPrefix, id, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// CampaignTx is like Campaign but reads within a caller-owned transaction.
func (s *Storage) CampaignTx(wTx db.WriteTx, id types.HexBytes) (*types.Campaign, error) {
	campaign := &types.Campaign{}
	if err := s.getArtifactTx(wTx, campaignPrefix, id, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// SetCampaign stores a campaign record.
func (s *Storage) SetCampaign(campaign *types.Campaign) error {
	if campaign == nil || len(campaign.ID) == 0 {
		return fmt.Errorf("invalid campaign record")
	}
	return s.setArtifact(campaignPrefix, campaign.ID, campaign)
}

// SetCampaignTx stores a campaign record within a caller-owned
// transaction.
func (s *Storage) SetCampaignTx(wTx db.WriteTx, campaign *types.Campaign) error {
	if campaign == nil || len(campaign.ID) == 0 {
		return fmt.Errorf("invalid campaign record")
	}
	return s.setArtifactTx(wTx, campaignPrefix, campaign.ID, campaign)
}

// ListCampaigns returns the IDs of all stored campaigns.
func (s *Storage) ListCampaigns() ([][]byte, error) {
	return s.listArtifacts(campaignPrefix)
}

// Contribution returns the cumulative encrypted contribution handle of a
// contributor in a campaign. Returns ErrNotFound if the contributor never
// contributed.
func (s *Storage) Contribution(campaignID types.HexBytes, contributor common.Address) (types.HexBytes, error) {
	var handle types.HexBytes
	if err := s.getArtifact(contributionPrefix, contributionKey(campaignID, contributor), &handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// ContributionTx is like Contribution but reads within a caller-owned
// transaction.
func (s *Storage) ContributionTx(wTx db.WriteTx, campaignID types.HexBytes, contributor common.Address) (types.HexBytes, error) {
	var handle types.HexBytes
	if err := s.getArtifactTx(wTx, contributionPrefix, contributionKey(campaignID, contributor), &handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// SetContributionTx stores the cumulative encrypted contribution handle of
// a contributor within a caller-owned transaction.
func (s *Storage) SetContributionTx(wTx db.WriteTx, campaignID types.HexBytes, contributor common.Address, handle types.HexBytes) error {
	return s.setArtifactTx(wTx, contributionPrefix, contributionKey(campaignID, contributor), handle)
}
