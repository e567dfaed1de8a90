package storage

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"

	"github.com/encfund/fundraiser/types"
)

// OperatorGrant is a time-bounded delegation that allows an operator to
// move funds out of an owner's confidential balance. Expiry is the only
// revocation mechanism.
type OperatorGrant struct {
	Expiry time.Time `json:"expiry" cbor:"0,keyasint"`
}

// operatorKey builds the composite (owner, operator) key.
func operatorKey(owner, operator common.Address) []byte {
	key := make([]byte, 0, 2*common.AddressLength)
	key = append(key, owner.Bytes()...)
	key = append(key, operator.Bytes()...)
	return key
}

// Balance returns the encrypted balance handle of an account. Returns
// ErrNotFound for accounts without activity.
func (s *Storage) Balance(account common.Address) (types.HexBytes, error) {
	var handle types.HexBytes
	if err := s.getArtifact(balancePrefix, account.Bytes(), &handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// BalanceTx is like Balance but reads within a caller-owned transaction.
func (s *Storage) BalanceTx(wTx db.WriteTx, account common.Address) (types.HexBytes, error) {
	var handle types.HexBytes
	if err := s.getArtifactTx(wTx, balancePrefix, account.Bytes(), &handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// SetBalanceTx stores the encrypted balance handle of an account within a
// caller-owned transaction.
func (s *Storage) SetBalanceTx(wTx db.WriteTx, account common.Address, handle types.HexBytes) error {
	return s.setArtifactTx(wTx, balancePrefix, account.Bytes(), handle)
}

// Operator returns the grant for the (owner, operator) pair. Returns
// ErrNotFound if no grant was ever set.
func (s *Storage) Operator(owner, operator common.Address) (*OperatorGrant, error) {
	grant := &OperatorGrant{}
	if err := s.getArtifact(operatorPrefix, operatorKey(owner, operator), grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// OperatorTx is like Operator but reads within a caller-owned transaction.
func (s *Storage) OperatorTx(wTx db.WriteTx, owner, operator common.Address) (*OperatorGrant, error) {
	grant := &OperatorGrant{}
	if err := s.getArtifactTx(wTx, operatorPrefix, operatorKey(owner, operator), grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// SetOperator stores (or overwrites) the grant for the (owner, operator)
// pair.
func (s *Storage) SetOperator(owner, operator common.Address, grant *OperatorGrant) error {
	return s.setArtifact(operatorPrefix, operatorKey(owner, operator), grant)
}
