package coprocessor

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/encfund/fundraiser/crypto/ecc/curves"
	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
)

func newTestCoprocessor(t *testing.T) *Coprocessor {
	c := qt.New(t)
	engine, err := New(Config{
		Store:      storage.New(metadb.NewTest(t)),
		MaxMessage: 1 << 16,
	})
	c.Assert(err, qt.IsNil)
	return engine
}

func TestTrivialEncryptAndDecrypt(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	handle, err := engine.TrivialEncrypt(42)
	c.Assert(err, qt.IsNil)
	c.Assert(handle, qt.HasLen, 32)

	value, err := engine.decryptHandle(handle)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(42))
}

func TestFreshHandles(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	// same plaintext, different randomness, different handles
	h1, err := engine.TrivialEncrypt(7)
	c.Assert(err, qt.IsNil)
	h2, err := engine.TrivialEncrypt(7)
	c.Assert(err, qt.IsNil)
	c.Assert(h1.String(), qt.Not(qt.Equals), h2.String())
}

func TestArithmetic(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	a, err := engine.TrivialEncrypt(100)
	c.Assert(err, qt.IsNil)
	b, err := engine.TrivialEncrypt(58)
	c.Assert(err, qt.IsNil)

	sum, err := engine.Add(a, b)
	c.Assert(err, qt.IsNil)
	value, err := engine.decryptHandle(sum)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(158))

	diff, err := engine.Sub(a, b)
	c.Assert(err, qt.IsNil)
	value, err = engine.decryptHandle(diff)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(42))
}

func TestLe(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	a, err := engine.TrivialEncrypt(100)
	c.Assert(err, qt.IsNil)
	b, err := engine.TrivialEncrypt(58)
	c.Assert(err, qt.IsNil)

	le, err := engine.Le(b, a)
	c.Assert(err, qt.IsNil)
	value, err := engine.decryptHandle(le)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(1))

	gt, err := engine.Le(a, b)
	c.Assert(err, qt.IsNil)
	value, err = engine.decryptHandle(gt)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(0))

	eq, err := engine.Le(a, a)
	c.Assert(err, qt.IsNil)
	value, err = engine.decryptHandle(eq)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(1))
}

func TestSelect(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	ifTrue, err := engine.TrivialEncrypt(500)
	c.Assert(err, qt.IsNil)
	ifFalse, err := engine.TrivialEncrypt(0)
	c.Assert(err, qt.IsNil)

	one, err := engine.TrivialEncrypt(1)
	c.Assert(err, qt.IsNil)
	zero, err := engine.TrivialEncrypt(0)
	c.Assert(err, qt.IsNil)

	chosen, err := engine.Select(one, ifTrue, ifFalse)
	c.Assert(err, qt.IsNil)
	// the result carries the plaintext but not the handle of the branch
	c.Assert(chosen.String(), qt.Not(qt.Equals), ifTrue.String())
	value, err := engine.decryptHandle(chosen)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(500))

	chosen, err = engine.Select(zero, ifTrue, ifFalse)
	c.Assert(err, qt.IsNil)
	value, err = engine.decryptHandle(chosen)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(0))
}

func TestUnknownHandle(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	bogus := fhe.Handle(make([]byte, 32))
	_, err := engine.Add(bogus, bogus)
	c.Assert(err, qt.ErrorIs, fhe.ErrUnknownHandle)
	err = engine.Allow(bogus, common.Address{})
	c.Assert(err, qt.ErrorIs, fhe.ErrUnknownHandle)
}

func TestInputProofBinding(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	contract := common.HexToAddress("0x1111111111111111111111111111111111111111")
	user := common.HexToAddress("0x2222222222222222222222222222222222222222")
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")

	handle, proof, err := engine.EncryptInput(contract, user, 42)
	c.Assert(err, qt.IsNil)

	verified, err := engine.VerifyInput(handle, proof, contract, user)
	c.Assert(err, qt.IsNil)
	c.Assert(verified.String(), qt.Equals, handle.String())

	// any context mismatch is rejected without detail
	_, err = engine.VerifyInput(handle, proof, contract, other)
	c.Assert(err, qt.ErrorIs, fhe.ErrInvalidProof)
	_, err = engine.VerifyInput(handle, proof, other, user)
	c.Assert(err, qt.ErrorIs, fhe.ErrInvalidProof)
	_, err = engine.VerifyInput(handle, []byte("bogus"), contract, user)
	c.Assert(err, qt.ErrorIs, fhe.ErrInvalidProof)
}

func TestUserDecrypt(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	keys := ethereum.NewSignKeys()
	c.Assert(keys.Generate(), qt.IsNil)
	account := keys.Address()

	handle, err := engine.TrivialEncrypt(1234)
	c.Assert(err, qt.IsNil)
	handles := []fhe.Handle{handle}

	signature, err := keys.SignEthereum(fhe.DecryptDigest(account, handles))
	c.Assert(err, qt.IsNil)

	// not allowed yet
	_, err = engine.UserDecrypt(handles, account, signature)
	c.Assert(err, qt.ErrorIs, fhe.ErrAccessDenied)

	c.Assert(engine.Allow(handle, account), qt.IsNil)
	allowed, err := engine.IsAllowed(handle, account)
	c.Assert(err, qt.IsNil)
	c.Assert(allowed, qt.IsTrue)

	values, err := engine.UserDecrypt(handles, account, signature)
	c.Assert(err, qt.IsNil)
	c.Assert(values[handle.String()], qt.Equals, uint64(1234))

	// a signature by someone else does not grant access
	otherKeys := ethereum.NewSignKeys()
	c.Assert(otherKeys.Generate(), qt.IsNil)
	otherSignature, err := otherKeys.SignEthereum(fhe.DecryptDigest(account, handles))
	c.Assert(err, qt.IsNil)
	_, err = engine.UserDecrypt(handles, account, otherSignature)
	c.Assert(err, qt.ErrorIs, fhe.ErrAccessDenied)
}

func TestKeyPersistsAcrossRestarts(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	cfg := Config{Store: stg, MaxMessage: 1 << 16}
	engine, err := New(cfg)
	c.Assert(err, qt.IsNil)

	contract := common.HexToAddress("0x1111111111111111111111111111111111111111")
	user := common.HexToAddress("0x2222222222222222222222222222222222222222")
	handle, proof, err := engine.EncryptInput(contract, user, 4242)
	c.Assert(err, qt.IsNil)

	// a second engine over the same store reuses the persisted key, so
	// handles encrypted before the restart remain decryptable and their
	// proofs verifiable
	reopened, err := New(cfg)
	c.Assert(err, qt.IsNil)
	value, err := reopened.decryptHandle(handle)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.Equals, uint64(4242))
	_, err = reopened.VerifyInput(handle, proof, contract, user)
	c.Assert(err, qt.IsNil)

	// a curve mismatch with the stored key is rejected instead of rekeyed
	_, err = New(Config{Store: stg, CurveType: curves.CurveTypeBN254})
	c.Assert(err, qt.IsNotNil)
}

func TestCurveTypes(t *testing.T) {
	for _, curveType := range []string{curves.CurveTypeBabyJubJub, curves.CurveTypeBN254} {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)
			engine, err := New(Config{
				Store:      storage.New(metadb.NewTest(t)),
				CurveType:  curveType,
				MaxMessage: 1 << 16,
			})
			c.Assert(err, qt.IsNil)

			a, err := engine.TrivialEncrypt(100)
			c.Assert(err, qt.IsNil)
			b, err := engine.TrivialEncrypt(58)
			c.Assert(err, qt.IsNil)
			sum, err := engine.Add(a, b)
			c.Assert(err, qt.IsNil)
			value, err := engine.decryptHandle(sum)
			c.Assert(err, qt.IsNil)
			c.Assert(value, qt.Equals, uint64(158))
		})
	}
}

func TestDecryptRange(t *testing.T) {
	c := qt.New(t)
	engine := newTestCoprocessor(t)

	// accumulate beyond the decryptable range
	handle, err := engine.TrivialEncrypt(1 << 15)
	c.Assert(err, qt.IsNil)
	sum := handle
	for i := 0; i < 3; i++ {
		sum, err = engine.Add(sum, handle)
		c.Assert(err, qt.IsNil)
	}
	_, err = engine.decryptHandle(sum)
	c.Assert(err, qt.ErrorIs, fhe.ErrPlaintextRange)
}
