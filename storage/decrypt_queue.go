package storage

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/encfund/fundraiser/types"
)

// DecryptRequest is a pending user decryption round-trip: an account asks
// for the plaintexts behind a set of handles it has been allowed for,
// authorizing the request with a personal-message signature.
type DecryptRequest struct {
	Account   common.Address   `json:"account"   cbor:"0,keyasint"`
	Handles   []types.HexBytes `json:"handles"   cbor:"1,keyasint"`
	Signature types.HexBytes   `json:"signature" cbor:"2,keyasint"`
}

// DecryptResult is the outcome of a resolved decryption request. Values
// maps handle hex to plaintext; Error is set when the request was
// rejected.
type DecryptResult struct {
	Values      map[string]uint64 `json:"values,omitempty" cbor:"0,keyasint,omitempty"`
	Error       string            `json:"error,omitempty"  cbor:"1,keyasint,omitempty"`
	CompletedAt time.Time         `json:"completedAt"      cbor:"2,keyasint"`
}

// PushDecryptRequest stores a new request in the pending queue and
// returns its key.
func (s *Storage) PushDecryptRequest(req *DecryptRequest) (types.HexBytes, error) {
	val, err := encodeArtifact(req)
	if err != nil {
		return nil, err
	}
	key := hashKey(val)
	if err := s.setArtifact(decryptReqPrefix, key, req); err != nil {
		return nil, err
	}
	return key, nil
}

// NextDecryptRequest returns the next pending request and its key. If no
// requests are pending, returns ErrNoMoreElements.
func (s *Storage) NextDecryptRequest() (*DecryptRequest, types.HexBytes, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pr := prefixeddb.NewPrefixedReader(s.db, decryptReqPrefix)
	var chosenKey, chosenVal []byte
	if err := pr.Iterate(nil, func(k, v []byte) bool {
		chosenKey = append([]byte{}, k...)
		chosenVal = append([]byte{}, v...)
		return false
	}); err != nil {
		return nil, nil, err
	}
	if chosenVal == nil {
		return nil, nil, ErrNoMoreElements
	}
	req := &DecryptRequest{}
	if err := decodeArtifact(chosenVal, req); err != nil {
		return nil, nil, err
	}
	return req, chosenKey, nil
}

// MarkDecryptDone stores the result of a processed request and removes it
// from the pending queue.
func (s *Storage) MarkDecryptDone(key types.HexBytes, res *DecryptResult) error {
	if err := s.setArtifact(decryptResPrefix, key, res); err != nil {
		return err
	}
	if err := s.deleteArtifact(decryptReqPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// DecryptResult returns the result of a request by key. Returns
// ErrNotFound while the request is still pending or unknown.
func (s *Storage) DecryptResult(key types.HexBytes) (*DecryptResult, error) {
	res := &DecryptResult{}
	if err := s.getArtifact(decryptResPrefix, key, res); err != nil {
		return nil, err
	}
	return res, nil
}

// HasDecryptRequest reports whether a request with the given key is still
// pending.
func (s *Storage) HasDecryptRequest(key types.HexBytes) (bool, error) {
	req := &DecryptRequest{}
	err := s.getArtifact(decryptReqPrefix, key, req)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
