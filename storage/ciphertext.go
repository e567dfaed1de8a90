package storage

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encfund/fundraiser/types"
)

// aclKey builds the composite (handle, account) key.
func aclKey(handle types.HexBytes, account common.Address) []byte {
	key := make([]byte, 0, len(handle)+common.AddressLength)
	key = append(key, handle...)
	key = append(key, account.Bytes()...)
	return key
}

// Ciphertext returns the serialized ciphertext referenced by a handle.
// Returns ErrNotFound for unknown handles.
func (s *Storage) Ciphertext(handle types.HexBytes) ([]byte, error) {
	var data []byte
	if err := s.getArtifact(ciphertextPrefix, handle, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// SetCiphertext stores a serialized ciphertext under its handle.
// Ciphertexts are content-addressed and append-only; storing the same
// handle twice is harmless.
func (s *Storage) SetCiphertext(handle types.HexBytes, data []byte) error {
	return s.setArtifact(ciphertextPrefix, handle, data)
}

// AllowHandle grants an account decryption access on a handle. Grants are
// never revoked.
func (s *Storage) AllowHandle(handle types.HexBytes, account common.Address) error {
	return s.setArtifact(aclPrefix, aclKey(handle, account), true)
}

// HandleAllowed reports whether an account has decryption access on a
// handle.
func (s *Storage) HandleAllowed(handle types.HexBytes, account common.Address) (bool, error) {
	var allowed bool
	err := s.getArtifact(aclPrefix, aclKey(handle, account), &allowed)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return allowed, nil
}
