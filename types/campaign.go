package types

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Campaign holds the metadata and encrypted aggregate state of a
// fundraising campaign. TargetAmount is intentionally a plaintext value
// (the goal is public); TotalRaised is an opaque ciphertext handle.
type Campaign struct {
	ID           HexBytes       `json:"id"           cbor:"0,keyasint,omitempty"`
	Name         string         `json:"name"         cbor:"1,keyasint,omitempty"`
	TargetAmount uint64         `json:"targetAmount" cbor:"2,keyasint,omitempty"`
	EndTime      time.Time      `json:"endTime"      cbor:"3,keyasint,omitempty"`
	Closed       bool           `json:"closed"       cbor:"4,keyasint,omitempty"`
	Owner        common.Address `json:"owner"        cbor:"5,keyasint,omitempty"`
	Account      common.Address `json:"account"      cbor:"6,keyasint,omitempty"`
	TotalRaised  HexBytes       `json:"totalRaised"  cbor:"7,keyasint,omitempty"`
}

func (c *Campaign) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}
