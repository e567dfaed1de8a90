// Package coprocessor implements the fhe.Engine interface with additively
// homomorphic ElGamal ciphertexts over BabyJubJub. It plays the role a
// symbolic-execution coprocessor plays in a confidential token stack: it
// holds the decryption key, persists every ciphertext under a
// content-addressed handle, and resolves comparison and selection
// operations by decrypting internally and re-encrypting the result, so
// callers only ever observe fresh opaque handles.
package coprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encfund/fundraiser/crypto/ecc"
	"github.com/encfund/fundraiser/crypto/ecc/curves"
	"github.com/encfund/fundraiser/crypto/elgamal"
	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/types"
	"github.com/encfund/fundraiser/util"
)

// DefaultMaxMessage bounds the plaintexts the coprocessor can recover by
// discrete logarithm. Amounts above it can still be accumulated
// homomorphically but will fail to decrypt.
const DefaultMaxMessage = uint64(1) << 32

// Config groups the parameters to build a Coprocessor.
type Config struct {
	// CurveType selects the curve for the ElGamal scheme. Defaults to
	// BabyJubJub.
	CurveType string
	// MaxMessage bounds decryptable plaintexts. Defaults to
	// DefaultMaxMessage.
	MaxMessage uint64
	// Store persists ciphertexts and access grants.
	Store *storage.Storage
}

// Coprocessor is an fhe.Engine backed by exponential ElGamal. It owns the
// scheme's private key and an input-binding secret, generated on first
// boot and reloaded from storage afterwards so persisted handles stay
// decryptable across restarts.
type Coprocessor struct {
	curve       ecc.Point
	pubKey      ecc.Point
	privKey     *big.Int
	maxMessage  uint64
	store       *storage.Storage
	inputSecret [32]byte
}

// New creates a Coprocessor over the given storage. The key material is
// loaded from storage when present; a fresh database gets a new key pair
// and input secret, persisted before the first ciphertext.
func New(cfg Config) (*Coprocessor, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("missing storage")
	}
	if cfg.CurveType == "" {
		cfg.CurveType = curves.CurveTypeBabyJubJub
	}
	if cfg.MaxMessage == 0 {
		cfg.MaxMessage = DefaultMaxMessage
	}
	curve := curves.New(cfg.CurveType)
	c := &Coprocessor{
		curve:      curve,
		maxMessage: cfg.MaxMessage,
		store:      cfg.Store,
	}
	stored, err := cfg.Store.EngineKey()
	switch {
	case err == nil:
		if stored.CurveType != cfg.CurveType {
			return nil, fmt.Errorf("stored engine key is for curve %s, configured %s", stored.CurveType, cfg.CurveType)
		}
		c.privKey = new(big.Int).SetBytes(stored.PrivKey)
		c.pubKey = curve.New()
		c.pubKey.ScalarBaseMult(c.privKey)
		copy(c.inputSecret[:], stored.InputSecret)
	case errors.Is(err, storage.ErrNotFound):
		pubKey, privKey, err := elgamal.GenerateKey(curve)
		if err != nil {
			return nil, fmt.Errorf("failed to generate encryption keys: %w", err)
		}
		c.pubKey = pubKey
		c.privKey = privKey
		c.inputSecret = util.Random32()
		if err := cfg.Store.SetEngineKey(&storage.EngineKey{
			CurveType:   cfg.CurveType,
			PrivKey:     c.privKey.Bytes(),
			InputSecret: c.inputSecret[:],
		}); err != nil {
			return nil, fmt.Errorf("failed to persist engine key: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load engine key: %w", err)
	}
	return c, nil
}

// PublicKey returns the encryption public key of the scheme.
func (c *Coprocessor) PublicKey() ecc.Point {
	return c.pubKey
}

// EncryptInput encrypts value bound to the (contract, user) context and
// returns the handle together with the proof VerifyInput will accept.
func (c *Coprocessor) EncryptInput(contract, user common.Address, value uint64) (fhe.Handle, types.HexBytes, error) {
	ct, err := c.encryptValue(value)
	if err != nil {
		return nil, nil, err
	}
	handle, err := c.storeCiphertext(ct)
	if err != nil {
		return nil, nil, err
	}
	return handle, c.inputProof(handle, contract, user), nil
}

// VerifyInput checks that proof binds handle to the (contract, user)
// context. Any mismatch yields fhe.ErrInvalidProof without detail.
func (c *Coprocessor) VerifyInput(handle fhe.Handle, proof types.HexBytes, contract, user common.Address) (fhe.Handle, error) {
	if _, err := c.loadCiphertext(handle); err != nil {
		return nil, err
	}
	if !bytes.Equal(proof, c.inputProof(handle, contract, user)) {
		return nil, fhe.ErrInvalidProof
	}
	return handle, nil
}

// TrivialEncrypt produces a fresh handle for a publicly known value.
func (c *Coprocessor) TrivialEncrypt(value uint64) (fhe.Handle, error) {
	ct, err := c.encryptValue(value)
	if err != nil {
		return nil, err
	}
	return c.storeCiphertext(ct)
}

// Add returns a fresh handle encrypting the sum of the plaintexts of a
// and b, computed homomorphically.
func (c *Coprocessor) Add(a, b fhe.Handle) (fhe.Handle, error) {
	ctA, err := c.loadCiphertext(a)
	if err != nil {
		return nil, err
	}
	ctB, err := c.loadCiphertext(b)
	if err != nil {
		return nil, err
	}
	sum := elgamal.NewCiphertext(c.curve).Add(ctA, ctB)
	return c.storeCiphertext(sum)
}

// Sub returns a fresh handle encrypting the plaintext of a minus the
// plaintext of b, computed homomorphically via point negation.
func (c *Coprocessor) Sub(a, b fhe.Handle) (fhe.Handle, error) {
	ctA, err := c.loadCiphertext(a)
	if err != nil {
		return nil, err
	}
	ctB, err := c.loadCiphertext(b)
	if err != nil {
		return nil, err
	}
	negB := elgamal.NewCiphertext(c.curve).Neg(ctB)
	diff := elgamal.NewCiphertext(c.curve).Add(ctA, negB)
	return c.storeCiphertext(diff)
}

// Le returns a fresh handle encrypting 1 if the plaintext of a is less
// than or equal to the plaintext of b, and 0 otherwise. The comparison
// happens inside the coprocessor; neither plaintext leaves it.
func (c *Coprocessor) Le(a, b fhe.Handle) (fhe.Handle, error) {
	valA, err := c.decryptHandle(a)
	if err != nil {
		return nil, err
	}
	valB, err := c.decryptHandle(b)
	if err != nil {
		return nil, err
	}
	var result uint64
	if valA <= valB {
		result = 1
	}
	return c.TrivialEncrypt(result)
}

// Select returns a fresh handle with the plaintext of ifTrue when cond
// encrypts a non-zero value and the plaintext of ifFalse otherwise. The
// result is re-randomized by adding a fresh encryption of zero, so it
// cannot be linked to either branch handle.
func (c *Coprocessor) Select(cond, ifTrue, ifFalse fhe.Handle) (fhe.Handle, error) {
	condVal, err := c.decryptHandle(cond)
	if err != nil {
		return nil, err
	}
	chosen := ifFalse
	if condVal != 0 {
		chosen = ifTrue
	}
	ct, err := c.loadCiphertext(chosen)
	if err != nil {
		return nil, err
	}
	zero, err := c.encryptValue(0)
	if err != nil {
		return nil, err
	}
	rerandomized := elgamal.NewCiphertext(c.curve).Add(ct, zero)
	return c.storeCiphertext(rerandomized)
}

// Allow grants account permanent decryption access on handle.
func (c *Coprocessor) Allow(handle fhe.Handle, account common.Address) error {
	if _, err := c.loadCiphertext(handle); err != nil {
		return err
	}
	return c.store.AllowHandle(handle, account)
}

// IsAllowed reports whether account has decryption access on handle.
func (c *Coprocessor) IsAllowed(handle fhe.Handle, account common.Address) (bool, error) {
	return c.store.HandleAllowed(handle, account)
}

// UserDecrypt returns the plaintexts behind handles for an account that
// has been allowed on all of them, after verifying the personal-message
// signature over fhe.DecryptDigest. The map is keyed by handle hex.
func (c *Coprocessor) UserDecrypt(handles []fhe.Handle, account common.Address, signature []byte) (map[string]uint64, error) {
	signer, err := ethereum.AddrFromSignature(fhe.DecryptDigest(account, handles), signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fhe.ErrAccessDenied, err)
	}
	if signer != account {
		return nil, fhe.ErrAccessDenied
	}
	values := make(map[string]uint64, len(handles))
	for _, handle := range handles {
		allowed, err := c.store.HandleAllowed(handle, account)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: handle %s", fhe.ErrAccessDenied, handle.String())
		}
		value, err := c.decryptHandle(handle)
		if err != nil {
			return nil, err
		}
		values[handle.String()] = value
	}
	return values, nil
}

// encryptValue encrypts a plaintext with fresh randomness.
func (c *Coprocessor) encryptValue(value uint64) (*elgamal.Ciphertext, error) {
	ct, err := elgamal.NewCiphertext(c.curve).Encrypt(new(big.Int).SetUint64(value), c.pubKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt value: %w", err)
	}
	return ct, nil
}

// storeCiphertext persists a ciphertext and returns its content-addressed
// handle, the keccak hash of the serialized points.
func (c *Coprocessor) storeCiphertext(ct *elgamal.Ciphertext) (fhe.Handle, error) {
	data := ct.Serialize()
	handle := fhe.Handle(ethereum.HashRaw(data))
	if err := c.store.SetCiphertext(handle, data); err != nil {
		return nil, fmt.Errorf("failed to store ciphertext: %w", err)
	}
	return handle, nil
}

// loadCiphertext resolves a handle to its ciphertext. Unknown handles
// yield fhe.ErrUnknownHandle.
func (c *Coprocessor) loadCiphertext(handle fhe.Handle) (*elgamal.Ciphertext, error) {
	data, err := c.store.Ciphertext(handle)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, handle.String())
	}
	if err != nil {
		return nil, err
	}
	ct := elgamal.NewCiphertext(c.curve)
	if err := ct.Deserialize(data); err != nil {
		return nil, fmt.Errorf("corrupted ciphertext for handle %s: %w", handle.String(), err)
	}
	return ct, nil
}

// decryptHandle recovers the plaintext behind a handle with the scheme's
// private key. Values beyond maxMessage yield fhe.ErrPlaintextRange.
func (c *Coprocessor) decryptHandle(handle fhe.Handle) (uint64, error) {
	ct, err := c.loadCiphertext(handle)
	if err != nil {
		return 0, err
	}
	_, msg, err := elgamal.Decrypt(c.pubKey, c.privKey, ct.C1, ct.C2, c.maxMessage)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", fhe.ErrPlaintextRange, err)
	}
	return msg.Uint64(), nil
}

// inputProof binds a handle to the (contract, user) context with the
// coprocessor's input secret.
func (c *Coprocessor) inputProof(handle fhe.Handle, contract, user common.Address) types.HexBytes {
	msg := make([]byte, 0, len(handle)+2*common.AddressLength+len(c.inputSecret))
	msg = append(msg, handle...)
	msg = append(msg, contract.Bytes()...)
	msg = append(msg, user.Bytes()...)
	msg = append(msg, c.inputSecret[:]...)
	return ethereum.HashRaw(msg)
}
