// Package fhe declares the encrypted value capability consumed by the
// token ledger and the campaign state machine. An Engine owns opaque
// ciphertext handles of bounded unsigned integers and performs arithmetic
// and access-control operations on them; the consumers never observe a
// plaintext, never branch on one, and never compare one.
//
// The handle model follows confidential-token semantics: every mutation
// produces a fresh handle, handles are never updated in place, and a
// handle can only be decrypted by accounts it has been explicitly allowed
// for, through an asynchronous signed user-decryption exchange.
package fhe

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encfund/fundraiser/types"
)

// Handle is an opaque reference to an encrypted 64-bit unsigned integer
// held by an Engine. A nil handle denotes the implicit zero value of an
// account that never had activity.
type Handle = types.HexBytes

var (
	// ErrUnknownHandle is returned when a handle does not reference a
	// ciphertext known to the engine.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")
	// ErrInvalidProof is returned when an input proof does not bind the
	// ciphertext to the claimed contract and user context.
	ErrInvalidProof = errors.New("invalid input proof")
	// ErrAccessDenied is returned when an account requests the plaintext of
	// a handle it has not been allowed for, or presents a signature that
	// does not match the account.
	ErrAccessDenied = errors.New("access denied")
	// ErrPlaintextRange is returned when a plaintext cannot be recovered
	// within the engine's decryptable range.
	ErrPlaintextRange = errors.New("plaintext outside of decryptable range")
)

// Engine is the encrypted value capability. All operations act on opaque
// handles; implementations decide how ciphertexts are stored and which
// encryption scheme backs them.
type Engine interface {
	// EncryptInput encrypts value client-side, bound to the given contract
	// and user context. It returns the new handle and the input proof that
	// VerifyInput will accept for exactly that context.
	EncryptInput(contract, user common.Address, value uint64) (Handle, types.HexBytes, error)

	// VerifyInput checks that proof binds handle to the given contract and
	// user context and returns the handle ready for use. It fails with
	// ErrInvalidProof on any mismatch, without detail on why.
	VerifyInput(handle Handle, proof types.HexBytes, contract, user common.Address) (Handle, error)

	// TrivialEncrypt produces a handle for a publicly known value.
	TrivialEncrypt(value uint64) (Handle, error)

	// Add returns a fresh handle whose plaintext is the sum of the
	// plaintexts of a and b.
	Add(a, b Handle) (Handle, error)

	// Sub returns a fresh handle whose plaintext is the plaintext of a
	// minus the plaintext of b.
	Sub(a, b Handle) (Handle, error)

	// Le returns a fresh handle encrypting 1 if the plaintext of a is less
	// than or equal to the plaintext of b, and 0 otherwise.
	Le(a, b Handle) (Handle, error)

	// Select returns a fresh handle whose plaintext equals the plaintext of
	// ifTrue when cond encrypts a non-zero value, and the plaintext of
	// ifFalse otherwise. The result is re-randomized so it cannot be linked
	// to either input handle.
	Select(cond, ifTrue, ifFalse Handle) (Handle, error)

	// Allow grants account permanent decryption access on handle.
	Allow(handle Handle, account common.Address) error

	// IsAllowed reports whether account has decryption access on handle.
	IsAllowed(handle Handle, account common.Address) (bool, error)

	// UserDecrypt returns the plaintexts behind the given handles for an
	// account that has been allowed on all of them. The signature must be
	// an Ethereum personal-message signature by account over
	// DecryptDigest(account, handles). The call is read-only and
	// idempotent; it never mutates engine state.
	UserDecrypt(handles []Handle, account common.Address, signature []byte) (map[string]uint64, error)
}

// DecryptDigest builds the message an account signs to authorize the
// decryption of a set of handles. Engine implementations verify the
// authorization signature against this exact message.
func DecryptDigest(account common.Address, handles []Handle) []byte {
	msg := []byte("fundraiser-user-decrypt/")
	msg = append(msg, account.Bytes()...)
	for _, h := range handles {
		msg = append(msg, h...)
	}
	return msg
}
