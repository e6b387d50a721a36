package achievement

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gacha-bot/internal/model"
)

type fakeStore struct {
	unlocked map[string]struct{}
	owned    []ItemRef
	unlocks  []string
	// racing simulates rows written by a concurrent batch after the
	// unlocked set was read.
	racing map[string]bool
}

func newFakeStore(owned ...ItemRef) *fakeStore {
	return &fakeStore{unlocked: map[string]struct{}{}, owned: owned, racing: map[string]bool{}}
}

func (s *fakeStore) UnlockedKeys(_ context.Context, _ int64) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(s.unlocked))
	for k := range s.unlocked {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *fakeStore) OwnedItems(_ context.Context, _ int64) ([]ItemRef, error) {
	return s.owned, nil
}

func (s *fakeStore) Unlock(_ context.Context, _ int64, key string) (bool, error) {
	if _, ok := s.unlocked[key]; ok || s.racing[key] {
		s.unlocked[key] = struct{}{}
		return false, nil
	}
	s.unlocked[key] = struct{}{}
	s.unlocks = append(s.unlocks, key)
	return true, nil
}

func r3(n int) []model.Item {
	out := make([]model.Item, 0, 10)
	for i := 0; i < n; i++ {
		out = append(out, model.Item{ID: int64(100 + i), Rarity: model.RarityThree})
	}
	for len(out) < 10 {
		out = append(out, model.Item{ID: 1, Rarity: model.RarityOne})
	}
	return out
}

func keys(as []model.Achievement) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Key
	}
	return out
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(DefaultMilestones, []Rule{{
		Achievement: model.Achievement{Key: "COLLECTION_TRIO", Name: "Trio", Category: model.CategoryCollection},
		Items:       []ItemRef{{"Aru", "Original"}, {"Mutsuki", "Original"}, {"Kayoko", "Original"}},
	}})
	require.NoError(t, err)
	return reg
}

func TestRegistry_BuiltIns(t *testing.T) {
	reg := testRegistry(t)

	assert.Equal(t, 5, reg.Count())
	assert.Equal(t,
		[]string{KeyLuckDoubleR3, KeyLuckTripleR3, "COLLECTION_TRIO", "MILESTONE_PULLS_10", "MILESTONE_PULLS_1000"},
		keys(reg.Achievements()))

	rule, ok := reg.Get("MILESTONE_PULLS_1000")
	require.True(t, ok)
	assert.Equal(t, int64(1000), rule.Threshold)
	assert.Equal(t, model.CategoryMilestone, rule.Category)

	_, ok = reg.Get("NOPE")
	assert.False(t, ok)
}

func TestRegistry_Rejects(t *testing.T) {
	_, err := NewRegistry([]int64{10, 10}, nil)
	assert.Error(t, err, "duplicate milestone")

	_, err = NewRegistry([]int64{0}, nil)
	assert.Error(t, err)

	_, err = NewRegistry(nil, []Rule{{Achievement: model.Achievement{Key: "X", Category: model.CategoryCollection}}})
	assert.Error(t, err, "empty collection")

	_, err = NewRegistry(nil, []Rule{{
		Achievement: model.Achievement{Key: KeyLuckDoubleR3, Category: model.CategoryCollection},
		Items:       []ItemRef{{"A", "B"}},
	}})
	assert.Error(t, err, "key clash with built-in")
}

func TestLoadRegistry_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b_problem_solver.json", `{
		"key": "COLLECTION_PROBLEM_SOLVER",
		"name": "Problem Solver 68",
		"description": "Own every member.",
		"category": "COLLECTION",
		"items": [{"name": "Aru", "version": "Original"}, {"name": "Haruka", "version": "Original"}]
	}`)
	write("a_other.json", `{"key": "IGNORED", "category": "LUCK"}`)
	write("notes.txt", `not json`)

	reg, err := LoadRegistry(dir, []int64{50})
	require.NoError(t, err)

	rule, ok := reg.Get("COLLECTION_PROBLEM_SOLVER")
	require.True(t, ok)
	assert.Equal(t, "Problem Solver 68", rule.Name)
	assert.Equal(t, []ItemRef{{"Aru", "Original"}, {"Haruka", "Original"}}, rule.Items)

	_, ok = reg.Get("IGNORED")
	assert.False(t, ok)
	_, ok = reg.Get("MILESTONE_PULLS_50")
	assert.True(t, ok)
}

func TestLoadRegistry_BadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{`), 0o644))

	_, err := LoadRegistry(dir, nil)
	assert.Error(t, err)
}

func TestLoadRegistry_MissingDirectory(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "absent"), DefaultMilestones)
	require.NoError(t, err)
	assert.Empty(t, reg.ByCategory(model.CategoryCollection))
}

func TestEvaluate_Luck(t *testing.T) {
	engine := NewEngine(testRegistry(t))
	ctx := context.Background()

	store := newFakeStore()
	got, err := engine.Evaluate(ctx, store, 1, r3(1), 0, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = engine.Evaluate(ctx, store, 1, r3(3), 1, 11)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyLuckDoubleR3, KeyLuckTripleR3, "MILESTONE_PULLS_10"}, keys(got))
}

func TestEvaluate_CollectionNeedsEveryMember(t *testing.T) {
	engine := NewEngine(testRegistry(t))
	ctx := context.Background()

	store := newFakeStore(ItemRef{"Aru", "Original"}, ItemRef{"Mutsuki", "Original"}, ItemRef{"Kayoko", "Swimsuit"})
	got, err := engine.Evaluate(ctx, store, 1, nil, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	store.owned = append(store.owned, ItemRef{"Kayoko", "Original"})
	got, err = engine.Evaluate(ctx, store, 1, nil, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"COLLECTION_TRIO"}, keys(got))
}

func TestEvaluate_MilestonesCrossedTogether(t *testing.T) {
	engine := NewEngine(testRegistry(t))

	store := newFakeStore()
	got, err := engine.Evaluate(context.Background(), store, 1, r3(0), 995, 1005)
	require.NoError(t, err)
	assert.Equal(t, []string{"MILESTONE_PULLS_10", "MILESTONE_PULLS_1000"}, keys(got))
}

func TestEvaluate_ConcurrentUnlockIsNotReturned(t *testing.T) {
	engine := NewEngine(testRegistry(t))

	store := newFakeStore()
	store.racing["MILESTONE_PULLS_10"] = true
	got, err := engine.Evaluate(context.Background(), store, 1, r3(2), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyLuckDoubleR3}, keys(got))
}

func TestProperty_ReevaluationNeverReawards(t *testing.T) {
	engine := NewEngine(testRegistry(t))

	rapid.Check(t, func(t *rapid.T) {
		store := newFakeStore()
		if rapid.Bool().Draw(t, "full_set") {
			store.owned = []ItemRef{{"Aru", "Original"}, {"Mutsuki", "Original"}, {"Kayoko", "Original"}}
		}
		count := rapid.Int64Range(0, 2000).Draw(t, "pre")
		batches := rapid.IntRange(1, 6).Draw(t, "batches")

		seen := map[string]bool{}
		for i := 0; i < batches; i++ {
			n := rapid.IntRange(0, 10).Draw(t, "r3")
			got, err := engine.Evaluate(context.Background(), store, 1, r3(n), count, count+10)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			for _, a := range got {
				if seen[a.Key] {
					t.Fatalf("achievement %s awarded twice", a.Key)
				}
				seen[a.Key] = true
			}
			count += 10
		}
		if len(store.unlocks) != len(seen) {
			t.Fatalf("%d rows written for %d awards", len(store.unlocks), len(seen))
		}
	})
}
