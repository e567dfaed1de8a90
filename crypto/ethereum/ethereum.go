// Package ethereum provides secp256k1 signing keys, Ethereum-style
// personal-message signatures and address recovery. Signatures
// authenticate API callers and authorize user decryption requests.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/encfund/fundraiser/util"
)

// SignatureLength is the size in bytes of an ECDSA signature with recovery
// id.
const SignatureLength = 65

// signaturePrefix is the EIP-191 personal message prefix.
const signaturePrefix = "\u0019Ethereum Signed Message:\n"

// SignKeys is an ECDSA key pair on the secp256k1 curve.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty key pair.
func NewSignKeys() *SignKeys {
	return new(SignKeys)
}

// Generate creates a fresh random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key from its hexadecimal representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key in
// hexadecimal.
func (k *SignKeys) HexString() (string, string) {
	pub := hex.EncodeToString(k.PublicKey())
	priv := hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the hexadecimal string form of the address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs a message using the Ethereum personal-message digest.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(Hash(message), &k.Private)
}

// Hash returns the Ethereum personal-message digest of message.
func Hash(message []byte) []byte {
	return HashRaw(fmt.Appendf(nil, "%s%d%s", signaturePrefix, len(message), message))
}

// HashRaw hashes data with Keccak256 without any prefix.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// AddrFromPublicKey derives the Ethereum address from a compressed public
// key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	pubKey, err := ethcrypto.DecompressPubkey(pub)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// AddrFromSignature recovers the address that signed message with an
// Ethereum personal-message signature.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	// accept both raw {0,1} and Ethereum {27,28} recovery ids
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(Hash(message), sig)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
