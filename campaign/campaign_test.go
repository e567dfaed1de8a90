package campaign

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/fhe/coprocessor"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/token"
)

type testEnv struct {
	store     *storage.Storage
	engine    fhe.Engine
	ledger    *token.Ledger
	manager   *Manager
	mockClock *clock.Mock
}

func newTestEnv(t *testing.T, allowLateEdits bool) *testEnv {
	c := qt.New(t)

	stg := storage.New(metadb.NewTest(t))
	engine, err := coprocessor.New(coprocessor.Config{
		Store:      stg,
		MaxMessage: 1 << 24,
	})
	c.Assert(err, qt.IsNil)

	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ledger, err := token.New(token.Config{
		Store:   stg,
		Engine:  engine,
		Clock:   mockClock,
		Address: common.BytesToAddress([]byte("test-token")),
	})
	c.Assert(err, qt.IsNil)

	manager, err := NewManager(Config{
		Store:          stg,
		Engine:         engine,
		Ledger:         ledger,
		Clock:          mockClock,
		ChainID:        1,
		AllowLateEdits: allowLateEdits,
	})
	c.Assert(err, qt.IsNil)

	return &testEnv{
		store:     stg,
		engine:    engine,
		ledger:    ledger,
		manager:   manager,
		mockClock: mockClock,
	}
}

func newAccount(t *testing.T) *ethereum.SignKeys {
	keys := ethereum.NewSignKeys()
	qt.Assert(t, keys.Generate(), qt.IsNil)
	return keys
}

func (env *testEnv) decrypt(t *testing.T, keys *ethereum.SignKeys, handle fhe.Handle) uint64 {
	c := qt.New(t)
	handles := []fhe.Handle{handle}
	signature, err := keys.SignEthereum(fhe.DecryptDigest(keys.Address(), handles))
	c.Assert(err, qt.IsNil)
	values, err := env.engine.UserDecrypt(handles, keys.Address(), signature)
	c.Assert(err, qt.IsNil)
	return values[handle.String()]
}

// contribute funds the contributor, grants the campaign account as
// operator and submits an encrypted contribution.
func (env *testEnv) contribute(t *testing.T, cmp *Campaign, keys *ethereum.SignKeys, amount uint64) error {
	c := qt.New(t)
	err := env.ledger.SetOperator(keys.Address(), cmp.Account(), env.mockClock.Now().Add(24*time.Hour))
	c.Assert(err, qt.IsNil)
	handle, proof, err := env.engine.EncryptInput(env.ledger.Address(), cmp.Account(), amount)
	c.Assert(err, qt.IsNil)
	return cmp.Contribute(keys.Address(), handle, proof)
}

func TestCampaignLifecycle(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, false)

	owner := newAccount(t)
	bob := newAccount(t)
	carol := newAccount(t)

	_, err := env.ledger.Mint(bob.Address(), bob.Address(), 1000000)
	c.Assert(err, qt.IsNil)
	_, err = env.ledger.Mint(carol.Address(), carol.Address(), 500000)
	c.Assert(err, qt.IsNil)

	endTime := env.mockClock.Now().Add(3600 * time.Second)
	cmp, err := env.manager.CreateCampaign(owner.Address(), "open source fund", 5000000, endTime)
	c.Assert(err, qt.IsNil)
	c.Assert(cmp.IsActive(), qt.IsTrue)
	c.Assert(cmp.TotalRaised(), qt.IsNil)

	// two contributions accumulate into the encrypted total
	c.Assert(env.contribute(t, cmp, bob, 100000), qt.IsNil)
	c.Assert(env.contribute(t, cmp, carol, 200000), qt.IsNil)

	total := cmp.TotalRaised()
	c.Assert(total, qt.Not(qt.IsNil))
	c.Assert(env.decrypt(t, owner, total), qt.Equals, uint64(300000))

	bobContribution, err := cmp.ContributionOf(bob.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.decrypt(t, bob, bobContribution), qt.Equals, uint64(100000))

	carolContribution, err := cmp.ContributionOf(carol.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.decrypt(t, carol, carolContribution), qt.Equals, uint64(200000))

	bobBalance, err := env.ledger.BalanceOf(bob.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.decrypt(t, bob, bobBalance), qt.Equals, uint64(900000))

	// only the owner can end the campaign
	c.Assert(cmp.End(bob.Address()), qt.ErrorIs, ErrUnauthorized)

	// ending sweeps the raised funds to the owner
	c.Assert(cmp.End(owner.Address()), qt.IsNil)
	c.Assert(cmp.IsActive(), qt.IsFalse)
	c.Assert(cmp.Details().Closed, qt.IsTrue)

	ownerBalance, err := env.ledger.BalanceOf(owner.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.decrypt(t, owner, ownerBalance), qt.Equals, uint64(300000))

	// closed is terminal
	c.Assert(cmp.End(owner.Address()), qt.ErrorIs, ErrCampaignClosed)
	c.Assert(env.contribute(t, cmp, bob, 1000), qt.ErrorIs, ErrCampaignClosed)
}

func TestRepeatedContributionsFold(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, false)

	owner := newAccount(t)
	bob := newAccount(t)

	_, err := env.ledger.Mint(bob.Address(), bob.Address(), 1000000)
	c.Assert(err, qt.IsNil)

	cmp, err := env.manager.CreateCampaign(owner.Address(), "matching fund", 1000000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.IsNil)

	c.Assert(env.contribute(t, cmp, bob, 100000), qt.IsNil)
	c.Assert(env.contribute(t, cmp, bob, 50000), qt.IsNil)

	contribution, err := cmp.ContributionOf(bob.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.decrypt(t, bob, contribution), qt.Equals, uint64(150000))
	c.Assert(env.decrypt(t, owner, cmp.TotalRaised()), qt.Equals, uint64(150000))
}

func TestContributionOverBalanceAddsZero(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, false)

	owner := newAccount(t)
	bob := newAccount(t)

	_, err := env.ledger.Mint(bob.Address(), bob.Address(), 1000)
	c.Assert(err, qt.IsNil)

	cmp, err := env.manager.CreateCampaign(owner.Address(), "small fund", 1000000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.IsNil)

	// over-ask accumulates zero, keeping the totals consistent with the
	// escrowed balance
	c.Assert(env.contribute(t, cmp, bob, 5000), qt.IsNil)
	c.Assert(env.decrypt(t, owner, cmp.TotalRaised()), qt.Equals, uint64(0))

	bobBalance, err := env.ledger.BalanceOf(bob.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.decrypt(t, bob, bobBalance), qt.Equals, uint64(1000))
}

func TestDeadlineBlocksContributions(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, false)

	owner := newAccount(t)
	bob := newAccount(t)

	_, err := env.ledger.Mint(bob.Address(), bob.Address(), 1000000)
	c.Assert(err, qt.IsNil)

	cmp, err := env.manager.CreateCampaign(owner.Address(), "short fund", 1000000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.IsNil)

	// past the deadline the campaign stops accepting contributions even
	// though nobody closed it
	env.mockClock.Add(2 * time.Hour)
	c.Assert(cmp.IsActive(), qt.IsFalse)
	c.Assert(env.contribute(t, cmp, bob, 1000), qt.ErrorIs, ErrCampaignClosed)

	// the owner can still end it and collect
	c.Assert(cmp.End(owner.Address()), qt.IsNil)
}

func TestSetDetails(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, false)

	owner := newAccount(t)
	stranger := newAccount(t)

	cmp, err := env.manager.CreateCampaign(owner.Address(), "old name", 1000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.IsNil)

	newEnd := env.mockClock.Now().Add(2 * time.Hour)
	c.Assert(cmp.SetDetails(stranger.Address(), "new name", 2000, newEnd), qt.ErrorIs, ErrUnauthorized)
	c.Assert(cmp.SetDetails(owner.Address(), "", 2000, newEnd), qt.ErrorIs, ErrInvalidParameter)
	c.Assert(cmp.SetDetails(owner.Address(), "new name", 2000, time.Time{}), qt.ErrorIs, ErrInvalidParameter)

	c.Assert(cmp.SetDetails(owner.Address(), "new name", 2000, newEnd), qt.IsNil)
	details := cmp.Details()
	c.Assert(details.Name, qt.Equals, "new name")
	c.Assert(details.TargetAmount, qt.Equals, uint64(2000))
	c.Assert(details.EndTime.Equal(newEnd), qt.IsTrue)

	// closed campaigns reject edits by default
	c.Assert(cmp.End(owner.Address()), qt.IsNil)
	c.Assert(cmp.SetDetails(owner.Address(), "late name", 3000, newEnd), qt.ErrorIs, ErrCampaignClosed)
}

func TestSetDetailsLateEdits(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, true)

	owner := newAccount(t)
	cmp, err := env.manager.CreateCampaign(owner.Address(), "old name", 1000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.IsNil)
	c.Assert(cmp.End(owner.Address()), qt.IsNil)

	c.Assert(cmp.SetDetails(owner.Address(), "late name", 3000, env.mockClock.Now().Add(time.Hour)), qt.IsNil)
	c.Assert(cmp.Details().Name, qt.Equals, "late name")
}

func TestManagerValidation(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, false)
	owner := newAccount(t)

	_, err := env.manager.CreateCampaign(owner.Address(), "", 1000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.ErrorIs, ErrInvalidParameter)

	_, err = env.manager.CreateCampaign(owner.Address(), "stale", 1000, env.mockClock.Now().Add(-time.Hour))
	c.Assert(err, qt.ErrorIs, ErrInvalidParameter)
}

func TestManagerResolveAndList(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t, false)
	owner := newAccount(t)

	cmp1, err := env.manager.CreateCampaign(owner.Address(), "first", 1000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.IsNil)
	cmp2, err := env.manager.CreateCampaign(owner.Address(), "second", 2000, env.mockClock.Now().Add(time.Hour))
	c.Assert(err, qt.IsNil)
	c.Assert(cmp1.ID().String(), qt.Not(qt.Equals), cmp2.ID().String())

	list, err := env.manager.List()
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 2)

	_, err = env.manager.Campaign(make([]byte, 32))
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	// a fresh manager over the same storage lazily reloads campaigns
	reloaded, err := NewManager(Config{
		Store:   env.store,
		Engine:  env.engine,
		Ledger:  env.ledger,
		Clock:   env.mockClock,
		ChainID: 1,
	})
	c.Assert(err, qt.IsNil)
	got, err := reloaded.Campaign(cmp1.ID())
	c.Assert(err, qt.IsNil)
	c.Assert(got.Details().Name, qt.Equals, "first")
}
