package gacha

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"gacha-bot/internal/model"
)

// genBanner builds a random but valid banner over a random catalog.
func genBanner(t *rapid.T) (*model.Banner, []model.Item) {
	n3 := rapid.IntRange(0, 4).Draw(t, "r3")
	n2 := rapid.IntRange(1, 5).Draw(t, "r2")
	n1 := rapid.IntRange(1, 8).Draw(t, "r1")
	nPickup := rapid.IntRange(0, 2).Draw(t, "pickup")

	var catalog []model.Item
	next := int64(1)
	add := func(rarity, n int) []int64 {
		var added []int64
		for i := 0; i < n; i++ {
			catalog = append(catalog, model.Item{ID: next, Name: fmt.Sprintf("item-%d", next), Rarity: rarity, VersionID: 1})
			added = append(added, next)
			next++
		}
		return added
	}
	add(model.RarityThree, n3)
	add(model.RarityTwo, n2)
	add(model.RarityOne, n1)
	pickupIDs := add(model.RarityThree, nPickup)

	// rates in tenths of a percent
	r3 := rapid.IntRange(1, 100).Draw(t, "r3_rate")
	r2 := rapid.IntRange(1, 300).Draw(t, "r2_rate")
	r1 := rapid.IntRange(0, 900).Draw(t, "r1_rate")
	pickupRate := 0
	if nPickup > 0 {
		pickupRate = rapid.IntRange(1, r3).Draw(t, "pickup_rate")
	}
	if n3 == 0 {
		// general r3 must carry no mass without members
		if nPickup == 0 {
			r3 = 0
		} else {
			pickupRate = r3
		}
	}

	tenth := func(v int) decimal.Decimal { return decimal.New(int64(v), -1) }
	banner := &model.Banner{
		ID: 1,
		Preset: &model.RatePreset{
			ID:         1,
			PickupRate: tenth(pickupRate),
			R3Rate:     tenth(r3),
			R2Rate:     tenth(r2),
			R1Rate:     tenth(r1),
		},
		IncludedVersions: []int64{1},
		PickupIDs:        pickupIDs,
	}
	return banner, catalog
}

func TestProperty_TenthSlotIsAtLeastRarityTwo(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		banner, catalog := genBanner(t)
		e, err := NewEngine(banner, catalog)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}

		seed := rapid.Uint64().Draw(t, "seed")
		items, err := e.Draw(TenDraw, NewSeededRand(seed))
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if len(items) != TenDraw {
			t.Fatalf("expected %d items, got %d", TenDraw, len(items))
		}
		if items[9].Rarity < model.RarityTwo {
			t.Fatalf("10th item has rarity %d", items[9].Rarity)
		}
	})
}

func TestProperty_PickupOnlyFromR3Tier(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		banner, catalog := genBanner(t)
		e, err := NewEngine(banner, catalog)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}

		rng := NewSeededRand(rapid.Uint64().Draw(t, "seed"))
		guaranteed := rapid.Bool().Draw(t, "guaranteed")
		for i := 0; i < 50; i++ {
			it, tier, err := e.drawOne(rng, guaranteed)
			if err != nil {
				t.Fatalf("drawOne: %v", err)
			}
			if e.IsPickup(it.ID) && tier != TierR3 {
				t.Fatalf("pickup item %d drawn from tier %s", it.ID, tier)
			}
			if it.Rarity != tier.Rarity() {
				t.Fatalf("item %d rarity %d drawn from tier %s", it.ID, it.Rarity, tier)
			}
		}
	})
}

func TestProperty_PartitionIsDisjoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		banner, catalog := genBanner(t)
		e, err := NewEngine(banner, catalog)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}

		seen := map[int64]bool{}
		p := e.Pools()
		for _, pool := range [][]model.Item{p.Pickup, p.R3, p.R2, p.R1} {
			for _, it := range pool {
				if seen[it.ID] {
					t.Fatalf("item %d appears in two pools", it.ID)
				}
				seen[it.ID] = true
			}
		}
	})
}
