package campaign

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/crypto/ethereum"
	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/token"
	"github.com/encfund/fundraiser/types"
)

// campaignAccountSeed salts the derivation of campaign escrow accounts so
// they cannot collide with externally owned addresses.
const campaignAccountSeed = "campaign-account"

// Config groups the parameters to build a Manager.
type Config struct {
	// Store persists campaign records and contributions.
	Store *storage.Storage
	// Engine performs the encrypted arithmetic of contributions.
	Engine fhe.Engine
	// Ledger holds the balances campaigns draw from and escrow into.
	Ledger *token.Ledger
	// Clock provides the time for deadline checks. Defaults to the system
	// clock.
	Clock clock.Clock
	// ChainID namespaces campaign identifiers.
	ChainID uint32
	// AllowLateEdits lets owners edit campaign details after closing.
	AllowLateEdits bool
}

// Manager creates campaigns and resolves campaign identifiers to their
// runtime handles, loading persisted campaigns lazily after a restart.
type Manager struct {
	mu             sync.Mutex
	store          *storage.Storage
	engine         fhe.Engine
	ledger         *token.Ledger
	clock          clock.Clock
	chainID        uint32
	allowLateEdits bool
	nonce          uint64
	campaigns      map[string]*Campaign
}

// NewManager creates a Manager from its configuration. The identifier
// nonce resumes after the already persisted campaigns.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil || cfg.Engine == nil || cfg.Ledger == nil {
		return nil, fmt.Errorf("missing storage, engine or ledger")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	existing, err := cfg.Store.ListCampaigns()
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return &Manager{
		store:          cfg.Store,
		engine:         cfg.Engine,
		ledger:         cfg.Ledger,
		clock:          cfg.Clock,
		chainID:        cfg.ChainID,
		allowLateEdits: cfg.AllowLateEdits,
		nonce:          uint64(len(existing)),
		campaigns:      make(map[string]*Campaign),
	}, nil
}

// CreateCampaign creates and persists a new campaign owned by owner, with
// a fresh escrow account derived from its identifier. The end time must
// be in the future and the name must not be empty.
func (m *Manager) CreateCampaign(owner common.Address, name string, targetAmount uint64, endTime time.Time) (*Campaign, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: campaign name cannot be empty", ErrInvalidParameter)
	}
	if !endTime.After(m.clock.Now()) {
		return nil, fmt.Errorf("%w: campaign end time must be in the future", ErrInvalidParameter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := types.CampaignID{
		ChainID: m.chainID,
		Address: owner,
		Nonce:   m.nonce,
	}
	idBytes := types.HexBytes(id.Marshal())
	data := &types.Campaign{
		ID:           idBytes,
		Name:         name,
		TargetAmount: targetAmount,
		EndTime:      endTime,
		Owner:        owner,
		Account:      deriveAccount(idBytes),
	}
	if err := m.store.SetCampaign(data); err != nil {
		return nil, err
	}
	m.nonce++
	c := m.wrap(data)
	m.campaigns[string(idBytes)] = c
	log.Infow("campaign created",
		"campaign", data.ID.String(),
		"owner", owner.Hex(),
		"target", targetAmount,
		"endTime", endTime)
	return c, nil
}

// Campaign resolves a campaign identifier to its runtime handle. Returns
// storage.ErrNotFound for unknown identifiers.
func (m *Manager) Campaign(id types.HexBytes) (*Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[string(id)]; ok {
		return c, nil
	}
	data, err := m.store.Campaign(id)
	if err != nil {
		return nil, err
	}
	c := m.wrap(data)
	m.campaigns[string(id)] = c
	return c, nil
}

// List returns the records of all persisted campaigns.
func (m *Manager) List() ([]*types.Campaign, error) {
	ids, err := m.store.ListCampaigns()
	if err != nil {
		return nil, err
	}
	list := make([]*types.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := m.Campaign(id)
		if err != nil {
			return nil, err
		}
		list = append(list, c.Details())
	}
	return list, nil
}

func (m *Manager) wrap(data *types.Campaign) *Campaign {
	return &Campaign{
		store:          m.store,
		engine:         m.engine,
		ledger:         m.ledger,
		clock:          m.clock,
		data:           data,
		allowLateEdits: m.allowLateEdits,
	}
}

// deriveAccount derives the escrow account of a campaign from its
// identifier, taking the low 20 bytes of a salted keccak hash.
func deriveAccount(id types.HexBytes) common.Address {
	seed := append([]byte(campaignAccountSeed), id...)
	return common.BytesToAddress(ethereum.HashRaw(seed)[12:])
}
