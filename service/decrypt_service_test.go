package service

import (
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/fhe/coprocessor"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/types"
)

func TestDecryptWorker(t *testing.T) {
	c := qt.New(t)

	stg := storage.New(metadb.NewTest(t))
	engine, err := coprocessor.New(coprocessor.Config{
		Store:      stg,
		MaxMessage: 1 << 16,
	})
	c.Assert(err, qt.IsNil)

	keys := ethereum.NewSignKeys()
	c.Assert(keys.Generate(), qt.IsNil)
	account := keys.Address()

	handle, err := engine.TrivialEncrypt(4242)
	c.Assert(err, qt.IsNil)
	c.Assert(engine.Allow(handle, account), qt.IsNil)

	signature, err := keys.SignEthereum(fhe.DecryptDigest(account, []fhe.Handle{handle}))
	c.Assert(err, qt.IsNil)

	id, err := stg.PushDecryptRequest(&storage.DecryptRequest{
		Account:   account,
		Handles:   []types.HexBytes{handle},
		Signature: signature,
	})
	c.Assert(err, qt.IsNil)

	// a second request with a bogus signature must be rejected, not dropped
	badID, err := stg.PushDecryptRequest(&storage.DecryptRequest{
		Account:   account,
		Handles:   []types.HexBytes{handle},
		Signature: types.HexBytes{0x01},
	})
	c.Assert(err, qt.IsNil)

	worker := NewDecryptWorker(stg, engine, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Assert(worker.Start(ctx), qt.IsNil)
	defer worker.Stop()

	// starting twice fails
	c.Assert(worker.Start(ctx), qt.ErrorMatches, "service already running")

	waitResult := func(id types.HexBytes) *storage.DecryptResult {
		for i := 0; i < 100; i++ {
			res, err := stg.DecryptResult(id)
			if err == nil {
				return res
			}
			c.Assert(errors.Is(err, storage.ErrNotFound), qt.IsTrue)
			time.Sleep(20 * time.Millisecond)
		}
		c.Fatal("decryption request was not resolved in time")
		return nil
	}

	res := waitResult(id)
	c.Assert(res.Error, qt.Equals, "")
	c.Assert(res.Values[handle.String()], qt.Equals, uint64(4242))

	badRes := waitResult(badID)
	c.Assert(badRes.Error, qt.Not(qt.Equals), "")
	c.Assert(badRes.Values, qt.HasLen, 0)
}
