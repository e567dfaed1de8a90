// Package campaign implements confidential fundraising campaigns on top
// of the token ledger. Each campaign accumulates encrypted contributions
// into a dedicated account, tracks per-contributor cumulative handles and
// an encrypted running total, and follows a monotonic Open to Closed
// lifecycle where closing sweeps the raised funds to the owner.
package campaign

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/token"
	"github.com/encfund/fundraiser/types"
)

var (
	// ErrUnauthorized is returned when the caller is not the campaign
	// owner.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCampaignClosed is returned when a contribution or mutation
	// arrives after the campaign closed or its deadline passed.
	ErrCampaignClosed = errors.New("campaign closed")
	// ErrInvalidParameter is returned when campaign details are outside
	// of their accepted domain.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Campaign is the runtime handle of a single fundraising campaign. All
// mutations persist through the shared storage and run as atomic units of
// work; the in-memory record is only replaced after a successful commit.
type Campaign struct {
	mu             sync.Mutex
	store          *storage.Storage
	engine         fhe.Engine
	ledger         *token.Ledger
	clock          clock.Clock
	data           *types.Campaign
	allowLateEdits bool
}

// ID returns the campaign identifier.
func (c *Campaign) ID() types.HexBytes {
	return c.data.ID
}

// Owner returns the campaign owner address.
func (c *Campaign) Owner() common.Address {
	return c.data.Owner
}

// Account returns the ledger account that escrows the campaign funds.
func (c *Campaign) Account() common.Address {
	return c.data.Account
}

// Details returns a copy of the campaign record.
func (c *Campaign) Details() *types.Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := *c.data
	return &data
}

// TotalRaised returns the handle of the encrypted running total, or nil
// before the first contribution.
func (c *Campaign) TotalRaised() fhe.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fhe.Handle(c.data.TotalRaised)
}

// ContributionOf returns the cumulative encrypted contribution handle of
// an account, or nil if it never contributed.
func (c *Campaign) ContributionOf(contributor common.Address) (fhe.Handle, error) {
	handle, err := c.store.Contribution(c.data.ID, contributor)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fhe.Handle(handle), nil
}

// IsActive reports whether the campaign currently accepts contributions.
// The deadline is re-evaluated on every call, so a campaign becomes
// inactive the moment its end time passes even if nobody closed it.
func (c *Campaign) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isActive()
}

// isActive is IsActive without the lock, for callers that already hold
// it.
func (c *Campaign) isActive() bool {
	return !c.data.Closed && c.clock.Now().Before(c.data.EndTime)
}

// Contribute moves an encrypted amount from the contributor into the
// campaign account and folds it into the contributor's cumulative handle
// and the encrypted total. The campaign acts as the ledger operator, so
// the contributor must have granted it beforehand and the input proof
// must bind the amount to the campaign account. The whole sequence
// commits atomically or not at all.
func (c *Campaign) Contribute(contributor common.Address, amount fhe.Handle, proof types.HexBytes) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isActive() {
		return fmt.Errorf("%w: %s", ErrCampaignClosed, c.data.ID.String())
	}
	data := *c.data
	if err := c.store.Update(func(wTx db.WriteTx) error {
		transferred, err := c.ledger.TransferFromTx(wTx, data.Account, contributor, data.Account, amount, proof)
		if err != nil {
			return err
		}
		// fold the transferred handle, not the requested one, so the
		// accumulators stay equal to the escrowed balance even when an
		// over-ask moved zero
		contribution := transferred
		prev, err := c.store.ContributionTx(wTx, data.ID, contributor)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err == nil {
			if contribution, err = c.engine.Add(fhe.Handle(prev), transferred); err != nil {
				return err
			}
		}
		total := transferred
		if len(data.TotalRaised) > 0 {
			if total, err = c.engine.Add(fhe.Handle(data.TotalRaised), transferred); err != nil {
				return err
			}
		}
		for _, account := range []common.Address{contributor, data.Owner} {
			if err := c.engine.Allow(contribution, account); err != nil {
				return err
			}
			if err := c.engine.Allow(total, account); err != nil {
				return err
			}
		}
		if err := c.store.SetContributionTx(wTx, data.ID, contributor, types.HexBytes(contribution)); err != nil {
			return err
		}
		data.TotalRaised = types.HexBytes(total)
		return c.store.SetCampaignTx(wTx, &data)
	}); err != nil {
		return err
	}
	c.data = &data
	log.Debugw("contribution accepted", "campaign", data.ID.String(), "contributor", contributor.Hex())
	return nil
}

// End closes the campaign and sweeps the escrowed balance to the owner.
// Only the owner may end a campaign, a campaign can be ended before its
// deadline, and ending twice fails.
func (c *Campaign) End(caller common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.data.Owner {
		return fmt.Errorf("%w: only the owner can end the campaign", ErrUnauthorized)
	}
	if c.data.Closed {
		return fmt.Errorf("%w: already ended", ErrCampaignClosed)
	}
	data := *c.data
	if err := c.store.Update(func(wTx db.WriteTx) error {
		if _, err := c.ledger.SweepTx(wTx, data.Account, data.Owner); err != nil {
			return err
		}
		data.Closed = true
		return c.store.SetCampaignTx(wTx, &data)
	}); err != nil {
		return err
	}
	c.data = &data
	log.Infow("campaign ended", "campaign", data.ID.String(), "owner", data.Owner.Hex())
	return nil
}

// SetDetails overwrites the campaign name, target and deadline. Only the
// owner may edit, and a closed campaign rejects edits unless late edits
// were enabled at creation. The update is a full overwrite; there is no
// per-field patching.
func (c *Campaign) SetDetails(caller common.Address, name string, targetAmount uint64, endTime time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.data.Owner {
		return fmt.Errorf("%w: only the owner can edit the campaign", ErrUnauthorized)
	}
	if c.data.Closed && !c.allowLateEdits {
		return fmt.Errorf("%w: cannot edit an ended campaign", ErrCampaignClosed)
	}
	if name == "" || endTime.IsZero() {
		return fmt.Errorf("%w: campaign details require a name and an end time", ErrInvalidParameter)
	}
	data := *c.data
	data.Name = name
	data.TargetAmount = targetAmount
	data.EndTime = endTime
	if err := c.store.SetCampaign(&data); err != nil {
		return err
	}
	c.data = &data
	return nil
}
