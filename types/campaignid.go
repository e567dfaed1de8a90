package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// CampaignID is the type to identify a fundraising campaign. It is composed
// of:
// - ChainID (4 bytes)
// - Owner address (20 bytes)
// - Nonce (8 bytes)
type CampaignID struct {
	ChainID uint32
	Address common.Address
	Nonce   uint64
}

// Marshal encodes CampaignID to its 32 byte form.
func (c *CampaignID) Marshal() []byte {
	chainID := make([]byte, 4)
	binary.BigEndian.PutUint32(chainID, c.ChainID)

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, c.Nonce)

	var id bytes.Buffer
	id.Write(chainID[:4])
	id.Write(c.Address.Bytes()[:20])
	id.Write(nonce[:8])
	return id.Bytes()
}

// Unmarshal decodes bytes to CampaignID.
func (c *CampaignID) Unmarshal(data []byte) error {
	if len(data) != CampaignIDSize {
		return fmt.Errorf("invalid CampaignID length: %d", len(data))
	}
	c.ChainID = binary.BigEndian.Uint32(data[:4])
	c.Address = common.BytesToAddress(data[4:24])
	c.Nonce = binary.BigEndian.Uint64(data[24:32])
	return nil
}

// SetBytes decodes the given bytes into the receiver and returns it. It
// panics if the bytes are not a valid campaign ID.
func (c *CampaignID) SetBytes(data []byte) *CampaignID {
	if err := c.Unmarshal(data); err != nil {
		panic(err)
	}
	return c
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (c *CampaignID) MarshalBinary() ([]byte, error) {
	return c.Marshal(), nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (c *CampaignID) UnmarshalBinary(data []byte) error {
	return c.Unmarshal(data)
}

// String returns a human readable representation of the campaign ID.
func (c *CampaignID) String() string {
	return hex.EncodeToString(c.Marshal())
}
