package elgamal

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/encfund/fundraiser/crypto/ecc/curves"
)

func TestGenerateKey(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, publicKey, qt.Not(qt.IsNil))
	qt.Assert(t, privateKey, qt.Not(qt.IsNil))

	// Check if publicKey = privateKey * G
	testPoint := curve.New()
	testPoint.SetGenerator()
	testPoint.ScalarMult(testPoint, privateKey)
	qt.Assert(t, testPoint.Equal(publicKey), qt.IsTrue)
}

func TestEncryptDecrypt(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	maxMessage := uint64(1000)

	for _, m := range []uint64{0, 1, 42, 999} {
		msg := new(big.Int).SetUint64(m)
		c1, c2, k, err := Encrypt(publicKey, msg)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, k, qt.Not(qt.IsNil))

		M, recoveredMsg, err := Decrypt(publicKey, privateKey, c1, c2, maxMessage)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, recoveredMsg.String(), qt.DeepEquals, msg.String())

		// Check M = m * G
		testPoint := curve.New()
		testPoint.SetGenerator()
		testPoint.ScalarMult(testPoint, msg)
		qt.Assert(t, testPoint.Equal(M), qt.IsTrue)
	}
}

func TestDecryptOutOfRange(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	c1, c2, _, err := Encrypt(publicKey, big.NewInt(5000))
	qt.Assert(t, err, qt.IsNil)

	_, _, err = Decrypt(publicKey, privateKey, c1, c2, 1000)
	qt.Assert(t, err, qt.ErrorMatches, ".*outside of decryptable range.*")
}

func TestCheckK(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, _, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	c1, _, k, err := Encrypt(publicKey, big.NewInt(7))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, CheckK(c1, k), qt.IsTrue)
	qt.Assert(t, CheckK(c1, new(big.Int).Add(k, big.NewInt(1))), qt.IsFalse)
}
