package storage

import (
	"github.com/encfund/fundraiser/types"
)

// EngineKey is the persistent key material of the encryption engine: the
// scheme's private scalar and the secret that binds input proofs. It is
// written once at first boot and reloaded on every restart, so persisted
// handles stay decryptable and old input proofs stay verifiable.
type EngineKey struct {
	CurveType   string         `json:"curveType"   cbor:"0,keyasint"`
	PrivKey     types.HexBytes `json:"privKey"     cbor:"1,keyasint"`
	InputSecret types.HexBytes `json:"inputSecret" cbor:"2,keyasint"`
}

// engineKeyID is the single key under the engine key prefix.
var engineKeyID = []byte("engine")

// EngineKey returns the stored engine key material. Returns ErrNotFound
// on a fresh database.
func (s *Storage) EngineKey() (*EngineKey, error) {
	key := &EngineKey{}
	if err := s.getArtifact(engineKeyPrefix, engineKeyID, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SetEngineKey stores the engine key material.
func (s *Storage) SetEngineKey(key *EngineKey) error {
	return s.setArtifact(engineKeyPrefix, engineKeyID, key)
}
