package types

const (
	// CampaignIDSize is the size in bytes of a marshaled campaign ID.
	CampaignIDSize = 32
	// HandleSize is the size in bytes of a ciphertext handle.
	HandleSize = 32
)
