package app

import (
	"context"
	"maps"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/authz"
	"github.com/bhargavryzer/Ownmali-sub000/internal/clock"
	"github.com/bhargavryzer/Ownmali-sub000/internal/compliance"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. One
// instance backs every service in a test so cross-service calls inside a
// transaction see shared state, and WithTx restores a snapshot on error to
// mirror rollback.
type fakeStore struct {
	inTx bool

	paused     bool
	assets     map[string]domain.Asset
	orders     map[string]domain.Order
	holdings   map[string]domain.Holding // assetID + "/" + account
	escrows    map[string]domain.EscrowAccount
	wallets    map[string]domain.Wallet
	movements  []domain.EscrowMovement
	events     []domain.OrderEvent
	roles      map[string][]authz.Role
	registry   map[string]bool // assetID + "/" + account
	updates    map[string]domain.MetadataUpdate
	signatures map[string]bool // updateID + "/" + signer
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assets:     map[string]domain.Asset{},
		orders:     map[string]domain.Order{},
		holdings:   map[string]domain.Holding{},
		escrows:    map[string]domain.EscrowAccount{},
		wallets:    map[string]domain.Wallet{},
		roles:      map[string][]authz.Role{},
		registry:   map[string]bool{},
		updates:    map[string]domain.MetadataUpdate{},
		signatures: map[string]bool{},
	}
}

func holdingKey(assetID, account string) string { return assetID + "/" + account }

type storeSnapshot struct {
	paused     bool
	assets     map[string]domain.Asset
	orders     map[string]domain.Order
	holdings   map[string]domain.Holding
	escrows    map[string]domain.EscrowAccount
	wallets    map[string]domain.Wallet
	movements  []domain.EscrowMovement
	events     []domain.OrderEvent
	roles      map[string][]authz.Role
	registry   map[string]bool
	updates    map[string]domain.MetadataUpdate
	signatures map[string]bool
}

func (f *fakeStore) snapshot() storeSnapshot {
	return storeSnapshot{
		paused:     f.paused,
		assets:     maps.Clone(f.assets),
		orders:     maps.Clone(f.orders),
		holdings:   maps.Clone(f.holdings),
		escrows:    maps.Clone(f.escrows),
		wallets:    maps.Clone(f.wallets),
		movements:  slices.Clone(f.movements),
		events:     slices.Clone(f.events),
		roles:      maps.Clone(f.roles),
		registry:   maps.Clone(f.registry),
		updates:    maps.Clone(f.updates),
		signatures: maps.Clone(f.signatures),
	}
}

func (f *fakeStore) restore(s storeSnapshot) {
	f.paused = s.paused
	f.assets = s.assets
	f.orders = s.orders
	f.holdings = s.holdings
	f.escrows = s.escrows
	f.wallets = s.wallets
	f.movements = s.movements
	f.events = s.events
	f.roles = s.roles
	f.registry = s.registry
	f.updates = s.updates
	f.signatures = s.signatures
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.inTx {
		return fn(ctx)
	}
	f.inTx = true
	snap := f.snapshot()
	err := fn(ctx)
	f.inTx = false
	if err != nil {
		f.restore(snap)
	}
	return err
}

func (f *fakeStore) IsPaused(context.Context) (bool, error) { return f.paused, nil }

func (f *fakeStore) GetAsset(_ context.Context, assetID string) (domain.Asset, error) {
	asset, ok := f.assets[assetID]
	if !ok {
		return domain.Asset{}, domain.ErrAssetNotFound
	}
	return asset, nil
}

func (f *fakeStore) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
	return f.GetAsset(ctx, assetID)
}

func (f *fakeStore) CreateAsset(_ context.Context, asset domain.Asset) error {
	for _, existing := range f.assets {
		if existing.Symbol == asset.Symbol {
			return domain.ErrAssetExists
		}
	}
	if _, ok := f.assets[asset.ID]; ok {
		return domain.ErrAssetExists
	}
	f.assets[asset.ID] = asset
	return nil
}

func (f *fakeStore) UpdateAsset(_ context.Context, asset domain.Asset) error {
	if _, ok := f.assets[asset.ID]; !ok {
		return domain.ErrAssetNotFound
	}
	f.assets[asset.ID] = asset
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return f.GetOrder(ctx, orderID)
}

func (f *fakeStore) CreateOrder(_ context.Context, order domain.Order) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) UpdateOrder(_ context.Context, order domain.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) ListOrdersByInvestor(_ context.Context, investor string) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range f.orders {
		if order.Investor == investor {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) AppendOrderEvent(_ context.Context, event domain.OrderEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) GetHolding(_ context.Context, assetID, account string) (domain.Holding, error) {
	holding, ok := f.holdings[holdingKey(assetID, account)]
	if !ok {
		return domain.Holding{AssetID: assetID, Account: account}, nil
	}
	return holding, nil
}

func (f *fakeStore) GetHoldingForUpdate(ctx context.Context, assetID, account string) (domain.Holding, error) {
	return f.GetHolding(ctx, assetID, account)
}

func (f *fakeStore) UpsertHolding(_ context.Context, holding domain.Holding) error {
	f.holdings[holdingKey(holding.AssetID, holding.Account)] = holding
	return nil
}

func (f *fakeStore) GetEscrow(_ context.Context, assetID string) (domain.EscrowAccount, error) {
	escrow, ok := f.escrows[assetID]
	if !ok {
		return domain.EscrowAccount{}, domain.ErrEscrowNotFound
	}
	return escrow, nil
}

func (f *fakeStore) GetEscrowForUpdate(ctx context.Context, assetID string) (domain.EscrowAccount, error) {
	return f.GetEscrow(ctx, assetID)
}

func (f *fakeStore) CreateEscrow(_ context.Context, escrow domain.EscrowAccount) error {
	f.escrows[escrow.AssetID] = escrow
	return nil
}

func (f *fakeStore) UpdateEscrowBalance(_ context.Context, assetID string, balance decimal.Decimal, at time.Time) error {
	escrow, ok := f.escrows[assetID]
	if !ok {
		return domain.ErrEscrowNotFound
	}
	escrow.Balance = balance
	escrow.UpdatedAt = at
	f.escrows[assetID] = escrow
	return nil
}

func (f *fakeStore) InsertMovement(_ context.Context, movement domain.EscrowMovement) error {
	f.movements = append(f.movements, movement)
	return nil
}

func (f *fakeStore) GetWalletForUpdate(_ context.Context, account string) (domain.Wallet, error) {
	wallet, ok := f.wallets[account]
	if !ok {
		return domain.Wallet{Account: account, Balance: decimal.Zero}, nil
	}
	return wallet, nil
}

func (f *fakeStore) UpsertWallet(_ context.Context, wallet domain.Wallet) error {
	f.wallets[wallet.Account] = wallet
	return nil
}

func (f *fakeStore) UpsertComplianceEntry(_ context.Context, entry domain.ComplianceEntry) error {
	f.registry[holdingKey(entry.AssetID, entry.Account)] = entry.Status == domain.ComplianceApproved
	return nil
}

func (f *fakeStore) UpsertRoleGrant(_ context.Context, grant domain.RoleGrant) error {
	role := authz.Role(grant.Role)
	if slices.Contains(f.roles[grant.Account], role) {
		return nil
	}
	f.roles[grant.Account] = append(f.roles[grant.Account], role)
	return nil
}

func (f *fakeStore) DeleteRoleGrant(_ context.Context, account, role string) error {
	granted := f.roles[account]
	f.roles[account] = slices.DeleteFunc(slices.Clone(granted), func(r authz.Role) bool {
		return r == authz.Role(role)
	})
	return nil
}

func (f *fakeStore) SetPaused(_ context.Context, paused bool, _ time.Time) error {
	f.paused = paused
	return nil
}

func (f *fakeStore) RolesOf(_ context.Context, account string) ([]authz.Role, error) {
	return f.roles[account], nil
}

func (f *fakeStore) Approved(_ context.Context, assetID, account string) (bool, error) {
	return f.registry[holdingKey(assetID, account)], nil
}

func (f *fakeStore) CreateMetadataUpdate(_ context.Context, update domain.MetadataUpdate) error {
	f.updates[update.ID] = update
	return nil
}

func (f *fakeStore) GetMetadataUpdateForUpdate(_ context.Context, updateID string) (domain.MetadataUpdate, error) {
	update, ok := f.updates[updateID]
	if !ok {
		return domain.MetadataUpdate{}, domain.ErrUpdateNotFound
	}
	return update, nil
}

func (f *fakeStore) UpdateMetadataUpdate(_ context.Context, update domain.MetadataUpdate) error {
	if _, ok := f.updates[update.ID]; !ok {
		return domain.ErrUpdateNotFound
	}
	f.updates[update.ID] = update
	return nil
}

func (f *fakeStore) AddMetadataApproval(_ context.Context, approval domain.MetadataApproval) error {
	key := approval.UpdateID + "/" + approval.Signer
	if f.signatures[key] {
		return domain.ErrAlreadyApproved
	}
	f.signatures[key] = true
	return nil
}

// Seed helpers keep test setup short. They write directly, outside any
// transaction.

func (f *fakeStore) seedAsset(asset domain.Asset) {
	f.assets[asset.ID] = asset
	f.escrows[asset.ID] = domain.EscrowAccount{
		AssetID:        asset.ID,
		CustodyAccount: domain.CustodyAccount(asset.ID),
		Balance:        decimal.Zero,
	}
	f.registry[holdingKey(asset.ID, asset.OwnerAccount)] = true
	f.registry[holdingKey(asset.ID, domain.CustodyAccount(asset.ID))] = true
}

func (f *fakeStore) seedWallet(account string, balance int64) {
	f.wallets[account] = domain.Wallet{Account: account, Balance: decimal.NewFromInt(balance)}
}

func (f *fakeStore) seedHolding(assetID, account string, balance int64) {
	f.holdings[holdingKey(assetID, account)] = domain.Holding{
		AssetID: assetID,
		Account: account,
		Balance: balance,
	}
	asset := f.assets[assetID]
	asset.TotalSupply += balance
	f.assets[assetID] = asset
}

func (f *fakeStore) lockHolding(assetID, account string, until time.Time) {
	holding := f.holdings[holdingKey(assetID, account)]
	holding.AssetID = assetID
	holding.Account = account
	holding.LockedUntil = &until
	f.holdings[holdingKey(assetID, account)] = holding
}

func (f *fakeStore) approve(assetID, account string) {
	f.registry[holdingKey(assetID, account)] = true
}

func (f *fakeStore) revoke(assetID, account string) {
	f.registry[holdingKey(assetID, account)] = false
}

func (f *fakeStore) grantRole(account string, role authz.Role) {
	f.roles[account] = append(f.roles[account], role)
}

func (f *fakeStore) holdingOf(assetID, account string) domain.Holding {
	return f.holdings[holdingKey(assetID, account)]
}

func (f *fakeStore) walletOf(account string) domain.Wallet {
	wallet, ok := f.wallets[account]
	if !ok {
		return domain.Wallet{Account: account, Balance: decimal.Zero}
	}
	return wallet
}

// memCache is a map-backed OrderCache recording hits so tests can assert
// the read path and invalidation.
type memCache struct {
	orders    map[string]domain.Order
	investors map[string][]domain.Order
	hits      int
}

func newMemCache() *memCache {
	return &memCache{
		orders:    map[string]domain.Order{},
		investors: map[string][]domain.Order{},
	}
}

func (c *memCache) GetOrder(_ context.Context, orderID string) (domain.Order, bool) {
	order, ok := c.orders[orderID]
	if ok {
		c.hits++
	}
	return order, ok
}

func (c *memCache) SetOrder(_ context.Context, order domain.Order) {
	c.orders[order.ID] = order
}

func (c *memCache) GetInvestorOrders(_ context.Context, investor string) ([]domain.Order, bool) {
	orders, ok := c.investors[investor]
	if ok {
		c.hits++
	}
	return orders, ok
}

func (c *memCache) SetInvestorOrders(_ context.Context, investor string, orders []domain.Order) {
	c.investors[investor] = orders
}

func (c *memCache) Invalidate(_ context.Context, orderID, investor string) {
	delete(c.orders, orderID)
	delete(c.investors, investor)
}

type engineOption func(*Config, *Deps)

func withOrderPolicy(p OrderPolicy) engineOption {
	return func(cfg *Config, _ *Deps) { cfg.OrderPolicy = p }
}

func withCache(c OrderCache) engineOption {
	return func(_ *Config, deps *Deps) { deps.Cache = c }
}

func withMaxBatch(n int) engineOption {
	return func(cfg *Config, _ *Deps) { cfg.MaxBatchSize = n }
}

func withThreshold(n int) engineOption {
	return func(cfg *Config, _ *Deps) { cfg.MetadataThreshold = n }
}

// newTestEngine wires a full engine over one in-memory store with the
// registry gate and a fixed clock.
func newTestEngine(t *testing.T, now time.Time, opts ...engineOption) (*Engine, *fakeStore, *clock.Fixed) {
	t.Helper()
	store := newFakeStore()
	clk := clock.NewFixed(now)
	cfg := Config{
		OrderPolicy:       OrderPolicyOpen,
		MaxBatchSize:      10,
		MetadataThreshold: 2,
	}
	deps := Deps{
		Orders: store,
		Tokens: store,
		Escrow: store,
		Admin:  store,
		Roles:  store,
		Gate:   compliance.NewRegistryGate(store),
		Clock:  clk,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	engine, err := NewEngine(cfg, deps)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, store, clk
}

// seedDemoAsset provisions the standard test asset directly in the store.
func seedDemoAsset(store *fakeStore) domain.Asset {
	asset := domain.Asset{
		ID:           "asset-1",
		Name:         "Harbor Tower",
		Symbol:       "HBT",
		OwnerAccount: "owner",
		Active:       true,
		MaxSupply:    1_000_000,
	}
	store.seedAsset(asset)
	return asset
}
