package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"gacha-bot/internal/achievement"
	"gacha-bot/internal/model"
	"gacha-bot/internal/repository"
)

// zeroRand always lands in the first bucket: every draw resolves to the r3
// tier and its first member.
type zeroRand struct{}

func (zeroRand) Float64() float64 { return 0 }

// memDB is an in-memory stand-in for the database. Batches run against a copy
// of the state that is kept only when the batch succeeds.
type memDB struct {
	mu sync.Mutex

	players   map[int64]*model.Player
	banners   map[int64]*model.Banner
	items     []model.Item
	inventory map[int64]map[int64]int
	txs       map[int64][]int64
	unlocks   map[int64]map[string]struct{}
	assets    map[string]memAsset

	failAppendAfter int
	calls           int
}

type memAsset struct {
	contentType string
	data        []byte
}

func newMemDB() *memDB {
	return &memDB{
		players:         map[int64]*model.Player{},
		banners:         map[int64]*model.Banner{},
		inventory:       map[int64]map[int64]int{},
		txs:             map[int64][]int64{},
		unlocks:         map[int64]map[string]struct{}{},
		assets:          map[string]memAsset{},
		failAppendAfter: -1,
	}
}

// seedExample installs pickup A (r3), B and C (r2), D, E and F (r1) on banner 7
// with the 3.0/3.0/18.5/78.5 preset.
func (m *memDB) seedExample() {
	m.items = []model.Item{
		{ID: 1, Name: "A", Rarity: 3, VersionID: 1, VersionName: "v1"},
		{ID: 2, Name: "B", Rarity: 2, VersionID: 1, VersionName: "v1"},
		{ID: 3, Name: "C", Rarity: 2, VersionID: 1, VersionName: "v1"},
		{ID: 4, Name: "D", Rarity: 1, VersionID: 1, VersionName: "v1"},
		{ID: 5, Name: "E", Rarity: 1, VersionID: 1, VersionName: "v1"},
		{ID: 6, Name: "F", Rarity: 1, VersionID: 1, VersionName: "v1"},
	}
	m.banners[7] = &model.Banner{
		ID:   7,
		Name: "Example",
		Preset: &model.RatePreset{
			ID:         1,
			PickupRate: decimal.RequireFromString("3.0"),
			R3Rate:     decimal.RequireFromString("3.0"),
			R2Rate:     decimal.RequireFromString("18.5"),
			R1Rate:     decimal.RequireFromString("78.5"),
		},
		IncludedVersions: []int64{1},
		PickupIDs:        []int64{1},
	}
	m.banners[8] = &model.Banner{ID: 8, Name: "No preset"}
}

func (m *memDB) addPlayer(id int64) {
	m.players[id] = &model.Player{TelegramID: id, Username: "p"}
}

// ---- PlayerStore ----

func (m *memDB) GetByID(_ context.Context, id int64) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memDB) GetOrCreate(ctx context.Context, id int64, username string) (*model.Player, bool, error) {
	if p, err := m.GetByID(ctx, id); err == nil {
		return p, false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[id] = &model.Player{TelegramID: id, Username: username}
	cp := *m.players[id]
	return &cp, true, nil
}

func (m *memDB) UpdateUsername(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return repository.ErrPlayerNotFound
	}
	p.Username = username
	return nil
}

// ---- CatalogProvider ----

func (m *memDB) GetBanner(_ context.Context, id int64) (*model.Banner, error) {
	b, ok := m.banners[id]
	if !ok {
		return nil, repository.ErrBannerNotFound
	}
	return b, nil
}

func (m *memDB) Items(context.Context) ([]model.Item, error) {
	return m.items, nil
}

func (m *memDB) ListBanners(context.Context) ([]model.BannerSummary, error) {
	m.calls++
	var out []model.BannerSummary
	for _, b := range m.banners {
		out = append(out, model.BannerSummary{ID: b.ID, Name: b.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- batches ----

func (m *memDB) runner() BatchRunner {
	return func(ctx context.Context, fn func(store BatchStore) error) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		tx := &memTx{db: m, inventory: cloneInv(m.inventory), txs: cloneTxs(m.txs), unlocks: cloneUnlocks(m.unlocks)}
		if err := fn(tx); err != nil {
			return err
		}
		m.inventory, m.txs, m.unlocks = tx.inventory, tx.txs, tx.unlocks
		return nil
	}
}

func (m *memDB) txCount(user int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs[user])
}

func (m *memDB) owned(user, item int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inventory[user][item]
}

type memTx struct {
	db        *memDB
	inventory map[int64]map[int64]int
	txs       map[int64][]int64
	unlocks   map[int64]map[string]struct{}
}

var errInjected = errors.New("injected failure")

func (t *memTx) Prefetch(_ context.Context, user int64, ids []int64) (map[int64]int, error) {
	out := map[int64]int{}
	for _, id := range ids {
		if n := t.inventory[user][id]; n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (t *memTx) AppendTransaction(_ context.Context, user, _, item int64) error {
	if t.db.failAppendAfter >= 0 && len(t.txs[user]) >= t.db.failAppendAfter {
		return errInjected
	}
	t.txs[user] = append(t.txs[user], item)
	return nil
}

func (t *memTx) CreateEntry(_ context.Context, user, item int64) error {
	if t.inventory[user] == nil {
		t.inventory[user] = map[int64]int{}
	}
	t.inventory[user][item]++
	return nil
}

func (t *memTx) IncrementEntry(_ context.Context, user, item int64) error {
	if t.inventory[user][item] == 0 {
		return repository.ErrEntryNotFound
	}
	t.inventory[user][item]++
	return nil
}

func (t *memTx) CountByUser(_ context.Context, user int64) (int64, error) {
	return int64(len(t.txs[user])), nil
}

func (t *memTx) UnlockedKeys(_ context.Context, user int64) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	for k := range t.unlocks[user] {
		out[k] = struct{}{}
	}
	return out, nil
}

func (t *memTx) OwnedItems(_ context.Context, user int64) ([]achievement.ItemRef, error) {
	var refs []achievement.ItemRef
	for _, it := range t.db.items {
		if t.inventory[user][it.ID] > 0 {
			refs = append(refs, achievement.ItemRef{Name: it.Name, Version: it.VersionName})
		}
	}
	return refs, nil
}

func (t *memTx) Unlock(_ context.Context, user int64, key string) (bool, error) {
	if t.unlocks[user] == nil {
		t.unlocks[user] = map[string]struct{}{}
	}
	if _, ok := t.unlocks[user][key]; ok {
		return false, nil
	}
	t.unlocks[user][key] = struct{}{}
	return true, nil
}

// ---- AssetStore ----

func (m *memDB) Put(_ context.Context, owner string, id int64, kind, contentType string, data []byte) error {
	m.assets[AssetKey(owner, id, kind)] = memAsset{contentType: contentType, data: data}
	return nil
}

func (m *memDB) Get(_ context.Context, owner string, id int64, kind string) ([]byte, string, error) {
	m.calls++
	a, ok := m.assets[AssetKey(owner, id, kind)]
	if !ok {
		return nil, "", repository.ErrAssetNotFound
	}
	return a.data, a.contentType, nil
}

func cloneInv(in map[int64]map[int64]int) map[int64]map[int64]int {
	out := make(map[int64]map[int64]int, len(in))
	for u, inv := range in {
		out[u] = make(map[int64]int, len(inv))
		for k, v := range inv {
			out[u][k] = v
		}
	}
	return out
}

func cloneTxs(in map[int64][]int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(in))
	for u, txs := range in {
		out[u] = append([]int64(nil), txs...)
	}
	return out
}

func cloneUnlocks(in map[int64]map[string]struct{}) map[int64]map[string]struct{} {
	out := make(map[int64]map[string]struct{}, len(in))
	for u, keys := range in {
		out[u] = make(map[string]struct{}, len(keys))
		for k := range keys {
			out[u][k] = struct{}{}
		}
	}
	return out
}
