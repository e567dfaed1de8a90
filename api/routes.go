package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// CampaignsEndpoint is the endpoint for creating and listing campaigns
	CampaignsEndpoint = "/campaigns"
	// CampaignEndpoint is the endpoint to get and edit a single campaign
	CampaignURLParam = "campaignId"
	CampaignEndpoint = "/campaigns/{" + CampaignURLParam + "}"
	// CampaignCloseEndpoint is the endpoint to end a campaign and sweep
	// its funds to the owner
	CampaignCloseEndpoint = CampaignEndpoint + "/close"
	// ContributionsEndpoint is the endpoint for submitting a contribution
	ContributionsEndpoint = CampaignEndpoint + "/contributions"
	// ContributionEndpoint is the endpoint to get the cumulative
	// contribution handle of an account
	AddressURLParam      = "address"
	ContributionEndpoint = ContributionsEndpoint + "/{" + AddressURLParam + "}"
	// CampaignTotalEndpoint is the endpoint to get the encrypted total
	// raised handle
	CampaignTotalEndpoint = CampaignEndpoint + "/total"
	// BalanceEndpoint is the endpoint to get the encrypted balance handle
	// of an account
	BalanceEndpoint = "/token/balances/{" + AddressURLParam + "}"
	// MintEndpoint is the endpoint for minting new tokens
	MintEndpoint = "/token/mint"
	// OperatorsEndpoint is the endpoint for granting operator rights
	OperatorsEndpoint = "/token/operators"
	// DecryptEndpoint is the endpoint for queueing a user decryption
	// request
	DecryptEndpoint = "/decrypt"
	// DecryptStatusEndpoint is the endpoint to poll a decryption request
	DecryptRequestURLParam = "requestId"
	DecryptStatusEndpoint  = "/decrypt/{" + DecryptRequestURLParam + "}"
)
