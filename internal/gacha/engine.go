// Package gacha implements the per-banner draw engine: pool partitioning,
// weight computation and rarity-tiered sampling with the 10-draw guarantee.
package gacha

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"gacha-bot/internal/model"
)

// Supported batch sizes.
const (
	SingleDraw = 1
	TenDraw    = 10
)

// Tier is a rarity class used for the first sampling layer.
type Tier int

// Tiers in descending rarity. Fallback walks towards higher values.
const (
	TierR3 Tier = iota
	TierR2
	TierR1
)

// Rarity returns the item rarity a tier draws from.
func (t Tier) Rarity() int {
	switch t {
	case TierR3:
		return model.RarityThree
	case TierR2:
		return model.RarityTwo
	default:
		return model.RarityOne
	}
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierR3:
		return "r3"
	case TierR2:
		return "r2"
	default:
		return "r1"
	}
}

// Rand is the random source used by the sampling step.
// *math/rand/v2.Rand satisfies it. Implementations need not be safe for
// concurrent use; callers pass one per request.
type Rand interface {
	Float64() float64
}

// NewRand returns a time-seeded random source for a single request.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
}

// NewSeededRand returns a reproducible random source.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Pools is the disjoint partition of a banner's eligible items.
type Pools struct {
	Pickup []model.Item
	R3     []model.Item
	R2     []model.Item
	R1     []model.Item
}

// Weights holds the per-member weight of each pool, aligned with Pools.
type Weights struct {
	Pickup []decimal.Decimal
	R3     []decimal.Decimal
	R2     []decimal.Decimal
	R1     []decimal.Decimal
}

// Engine draws items for one banner. It holds no mutable state after
// construction and is safe for concurrent use.
type Engine struct {
	bannerID int64
	pools    Pools
	weights  Weights
	pickup   map[int64]struct{}

	normalRates     [3]decimal.Decimal // r3, r2, r1
	guaranteedRates [2]decimal.Decimal // r3, r2+r1

	normalF     []float64
	guaranteedF []float64
	tierItems   [3][]model.Item
	tierWeights [3][]float64
}

// NewEngine builds the probability model for a banner over the full catalog.
// It returns ErrConfiguration when the banner has no preset, when rates are
// inconsistent, or when a pool carrying rate mass has no eligible members.
func NewEngine(banner *model.Banner, catalog []model.Item) (*Engine, error) {
	if banner == nil {
		return nil, fmt.Errorf("%w: banner is nil", ErrConfiguration)
	}
	preset := banner.Preset
	if preset == nil {
		return nil, fmt.Errorf("%w: banner %d has no rate preset", ErrConfiguration, banner.ID)
	}
	if err := validatePreset(preset); err != nil {
		return nil, fmt.Errorf("%w: banner %d: %v", ErrConfiguration, banner.ID, err)
	}

	pools, pickupSet, err := partition(banner, catalog)
	if err != nil {
		return nil, fmt.Errorf("%w: banner %d: %v", ErrConfiguration, banner.ID, err)
	}

	nonPickup := preset.NonPickupR3Rate()
	checks := []struct {
		name    string
		rate    decimal.Decimal
		members int
	}{
		{"pickup", preset.PickupRate, len(pools.Pickup)},
		{"general-r3", nonPickup, len(pools.R3)},
		{"general-r2", preset.R2Rate, len(pools.R2)},
		{"general-r1", preset.R1Rate, len(pools.R1)},
	}
	for _, c := range checks {
		if c.rate.IsPositive() && c.members == 0 {
			return nil, fmt.Errorf("%w: banner %d: %s pool has rate %s but no eligible items",
				ErrConfiguration, banner.ID, c.name, c.rate.String())
		}
	}
	// pickups are rarity 3 here, so they count toward the guaranteed slot
	if len(pools.Pickup)+len(pools.R3)+len(pools.R2) == 0 {
		return nil, fmt.Errorf("%w: banner %d: no rarity 2 or 3 item for the guaranteed slot",
			ErrConfiguration, banner.ID)
	}

	e := &Engine{
		bannerID: banner.ID,
		pools:    pools,
		pickup:   pickupSet,
		weights: Weights{
			Pickup: splitEvenly(preset.PickupRate, len(pools.Pickup)),
			R3:     splitEvenly(nonPickup, len(pools.R3)),
			R2:     splitEvenly(preset.R2Rate, len(pools.R2)),
			R1:     splitEvenly(preset.R1Rate, len(pools.R1)),
		},
		normalRates:     [3]decimal.Decimal{preset.R3Rate, preset.R2Rate, preset.R1Rate},
		guaranteedRates: [2]decimal.Decimal{preset.R3Rate, preset.R2Rate.Add(preset.R1Rate)},
	}

	e.normalF = toFloats(e.normalRates[:])
	e.guaranteedF = toFloats(e.guaranteedRates[:])

	e.tierItems[TierR3] = append(append([]model.Item{}, pools.Pickup...), pools.R3...)
	e.tierWeights[TierR3] = append(toFloats(e.weights.Pickup), toFloats(e.weights.R3)...)
	e.tierItems[TierR2] = pools.R2
	e.tierWeights[TierR2] = toFloats(e.weights.R2)
	e.tierItems[TierR1] = pools.R1
	e.tierWeights[TierR1] = toFloats(e.weights.R1)

	return e, nil
}

func validatePreset(p *model.RatePreset) error {
	for _, r := range []decimal.Decimal{p.PickupRate, p.R3Rate, p.R2Rate, p.R1Rate} {
		if r.IsNegative() {
			return fmt.Errorf("rate preset %d has a negative rate", p.ID)
		}
	}
	if p.PickupRate.GreaterThan(p.R3Rate) {
		return fmt.Errorf("rate preset %d: pickup rate %s exceeds r3 rate %s",
			p.ID, p.PickupRate.String(), p.R3Rate.String())
	}
	if p.R3Rate.Add(p.R2Rate).Add(p.R1Rate).IsZero() {
		return fmt.Errorf("rate preset %d has no probability mass", p.ID)
	}
	return nil
}

// partition splits the catalog into pickup and general pools. Pickups are
// drawn only under the r3 tier, so every pickup must be rarity 3.
// General eligibility: version included, not pickup, not excluded, and
// limited only when the banner allows it.
func partition(banner *model.Banner, catalog []model.Item) (Pools, map[int64]struct{}, error) {
	byID := make(map[int64]model.Item, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}

	excluded := toSet(banner.ExcludedIDs)
	versions := toSet(banner.IncludedVersions)

	var pools Pools
	pickup := make(map[int64]struct{}, len(banner.PickupIDs))
	for _, id := range banner.PickupIDs {
		if _, dup := pickup[id]; dup {
			continue
		}
		it, ok := byID[id]
		if !ok {
			return Pools{}, nil, fmt.Errorf("pickup item %d is not in the catalog", id)
		}
		if _, ok := excluded[id]; ok {
			return Pools{}, nil, fmt.Errorf("pickup item %d is also excluded", id)
		}
		if it.Rarity != model.RarityThree {
			return Pools{}, nil, fmt.Errorf("pickup item %d has rarity %d, pickups must be rarity %d",
				id, it.Rarity, model.RarityThree)
		}
		pickup[id] = struct{}{}
		pools.Pickup = append(pools.Pickup, it)
	}

	general := make([]model.Item, 0, len(catalog))
	for _, it := range catalog {
		if _, ok := versions[it.VersionID]; !ok {
			continue
		}
		if _, ok := pickup[it.ID]; ok {
			continue
		}
		if _, ok := excluded[it.ID]; ok {
			continue
		}
		if it.Limited && !banner.IncludeLimited {
			continue
		}
		general = append(general, it)
	}
	sort.Slice(general, func(i, j int) bool { return general[i].ID < general[j].ID })

	for _, it := range general {
		switch it.Rarity {
		case model.RarityThree:
			pools.R3 = append(pools.R3, it)
		case model.RarityTwo:
			pools.R2 = append(pools.R2, it)
		case model.RarityOne:
			pools.R1 = append(pools.R1, it)
		}
	}
	return pools, pickup, nil
}

// Draw performs a batch. amount 1 is one normal draw; amount 10 is nine normal
// draws followed by one guaranteed draw.
func (e *Engine) Draw(amount int, rng Rand) ([]model.Item, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, amount)
	normal := amount
	if amount == TenDraw {
		normal = TenDraw - 1
	}
	for i := 0; i < normal; i++ {
		it, _, err := e.drawOne(rng, false)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if amount == TenDraw {
		it, _, err := e.drawOne(rng, true)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// ValidateAmount rejects batch sizes other than 1 and 10.
func ValidateAmount(amount int) error {
	if amount != SingleDraw && amount != TenDraw {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	return nil
}

// drawOne samples a tier, then an item inside it. It also reports the tier the
// item was resolved from.
func (e *Engine) drawOne(rng Rand, guaranteed bool) (model.Item, Tier, error) {
	var order []Tier
	if guaranteed {
		// r1 is unreachable; an empty r2 borrows from r3 rather than dropping below
		// the floor.
		switch sampleIndex(e.guaranteedF, rng) {
		case 0:
			order = []Tier{TierR3, TierR2}
		case 1:
			order = []Tier{TierR2, TierR3}
		}
	} else {
		switch sampleIndex(e.normalF, rng) {
		case 0:
			order = []Tier{TierR3, TierR2, TierR1}
		case 1:
			order = []Tier{TierR2, TierR1}
		case 2:
			order = []Tier{TierR1}
		}
	}

	for _, t := range order {
		items := e.tierItems[t]
		if len(items) == 0 {
			continue
		}
		idx := sampleIndex(e.tierWeights[t], rng)
		if idx < 0 {
			idx = int(rng.Float64() * float64(len(items)))
			if idx >= len(items) {
				idx = len(items) - 1
			}
		}
		return items[idx], t, nil
	}
	return model.Item{}, 0, fmt.Errorf("%w: banner %d (guaranteed=%v)", ErrEmptyPool, e.bannerID, guaranteed)
}

// IsPickup reports whether an item is on the banner's pickup list.
func (e *Engine) IsPickup(itemID int64) bool {
	_, ok := e.pickup[itemID]
	return ok
}

// Pools returns a copy of the pool partition.
func (e *Engine) Pools() Pools {
	return Pools{
		Pickup: append([]model.Item(nil), e.pools.Pickup...),
		R3:     append([]model.Item(nil), e.pools.R3...),
		R2:     append([]model.Item(nil), e.pools.R2...),
		R1:     append([]model.Item(nil), e.pools.R1...),
	}
}

// Weights returns a copy of the per-member weights.
func (e *Engine) Weights() Weights {
	return Weights{
		Pickup: append([]decimal.Decimal(nil), e.weights.Pickup...),
		R3:     append([]decimal.Decimal(nil), e.weights.R3...),
		R2:     append([]decimal.Decimal(nil), e.weights.R2...),
		R1:     append([]decimal.Decimal(nil), e.weights.R1...),
	}
}

// TierRates returns the tier weights used for the first sampling layer:
// [r3, r2, r1] for normal draws and [r3, r2+r1] for the guaranteed slot.
func (e *Engine) TierRates(guaranteed bool) []decimal.Decimal {
	if guaranteed {
		return append([]decimal.Decimal(nil), e.guaranteedRates[:]...)
	}
	return append([]decimal.Decimal(nil), e.normalRates[:]...)
}

// sampleIndex picks an index with probability proportional to its weight.
// Weights are normalised at sampling time. Returns -1 when all weights are zero.
func sampleIndex(weights []float64, rng Rand) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	r := rng.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return i
		}
		r -= w
		last = i
	}
	// float rounding can leave r just above the final bucket
	return last
}

func splitEvenly(rate decimal.Decimal, n int) []decimal.Decimal {
	if n == 0 {
		return nil
	}
	share := rate.Div(decimal.NewFromInt(int64(n)))
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = share
	}
	return out
}

func toFloats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.InexactFloat64()
	}
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
