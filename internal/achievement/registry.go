// Package achievement evaluates unlock rules against a batch and a player's
// cumulative state.
package achievement

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"gacha-bot/internal/model"
)

// Built-in rule keys.
const (
	KeyLuckDoubleR3 = "LUCK_DOUBLE_R3"
	KeyLuckTripleR3 = "LUCK_TRIPLE_R3"
	milestonePrefix = "MILESTONE_PULLS_"
)

// DefaultMilestones are the lifetime pull thresholds used when none are configured.
var DefaultMilestones = []int64{10, 1000}

// ItemRef names a catalog item by name and version, the identity collection
// sets are written against.
type ItemRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String returns the "name|version" form.
func (r ItemRef) String() string {
	return r.Name + "|" + r.Version
}

// Rule is one registered achievement and its parameters.
type Rule struct {
	model.Achievement

	// Threshold is the r3 count for LUCK rules and the pull count for MILESTONE rules.
	Threshold int64
	// Items is the required set for COLLECTION rules.
	Items []ItemRef
}

// collectionFile is the on-disk form of a collection achievement.
type collectionFile struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Items       []ItemRef `json:"items"`
}

// Registry holds every rule, keyed by achievement key. It is built once at
// startup and never modified.
type Registry struct {
	rules []Rule
	byKey map[string]int
}

// NewRegistry builds a registry from the built-in LUCK rules, one MILESTONE rule
// per threshold and the given collection rules.
func NewRegistry(milestones []int64, collections []Rule) (*Registry, error) {
	r := &Registry{byKey: make(map[string]int)}

	luck := []Rule{
		{
			Achievement: model.Achievement{
				Key:         KeyLuckDoubleR3,
				Name:        "Double Fortune",
				Description: "Pull two or more rarity 3 items in one batch.",
				Category:    model.CategoryLuck,
			},
			Threshold: 2,
		},
		{
			Achievement: model.Achievement{
				Key:         KeyLuckTripleR3,
				Name:        "Triple Fortune",
				Description: "Pull three or more rarity 3 items in one batch.",
				Category:    model.CategoryLuck,
			},
			Threshold: 3,
		},
	}
	for _, rule := range luck {
		if err := r.add(rule); err != nil {
			return nil, err
		}
	}

	for _, rule := range collections {
		if rule.Category != model.CategoryCollection {
			return nil, fmt.Errorf("achievement %q: expected category %s, got %s", rule.Key, model.CategoryCollection, rule.Category)
		}
		if len(rule.Items) == 0 {
			return nil, fmt.Errorf("achievement %q: collection has no items", rule.Key)
		}
		if err := r.add(rule); err != nil {
			return nil, err
		}
	}

	thresholds := append([]int64(nil), milestones...)
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] < thresholds[j] })
	for _, n := range thresholds {
		if n <= 0 {
			return nil, fmt.Errorf("milestone threshold must be positive, got %d", n)
		}
		rule := Rule{
			Achievement: model.Achievement{
				Key:         MilestoneKey(n),
				Name:        fmt.Sprintf("%d Pulls", n),
				Description: fmt.Sprintf("Reach %d lifetime pulls.", n),
				Category:    model.CategoryMilestone,
			},
			Threshold: n,
		}
		if err := r.add(rule); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) add(rule Rule) error {
	if rule.Key == "" {
		return errors.New("achievement key cannot be empty")
	}
	if _, ok := r.byKey[rule.Key]; ok {
		return fmt.Errorf("duplicate achievement key %q", rule.Key)
	}
	r.byKey[rule.Key] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// LoadRegistry reads collection definitions from every *.json file in dir and
// builds a registry around them. A missing directory yields no collection rules.
func LoadRegistry(dir string, milestones []int64) (*Registry, error) {
	collections, err := LoadCollections(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(milestones, collections)
}

// LoadCollections parses the collection definition files in dir, in file name
// order. Files of another category are skipped.
func LoadCollections(dir string) ([]Rule, error) {
	if dir == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list achievement files: %w", err)
	}
	if len(paths) == 0 {
		log.Warn().Str("dir", dir).Msg("No collection achievement definitions found")
		return nil, nil
	}
	sort.Strings(paths)

	var rules []Rule
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		var f collectionFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p, err)
		}
		if !strings.EqualFold(f.Category, string(model.CategoryCollection)) {
			log.Debug().Str("file", p).Str("category", f.Category).Msg("Skipping non-collection achievement file")
			continue
		}
		rules = append(rules, Rule{
			Achievement: model.Achievement{
				Key:         f.Key,
				Name:        f.Name,
				Description: f.Description,
				Category:    model.CategoryCollection,
			},
			Items: f.Items,
		})
	}

	log.Info().Str("dir", dir).Int("count", len(rules)).Msg("Loaded collection achievements")
	return rules, nil
}

// MilestoneKey returns the achievement key for a lifetime pull threshold.
func MilestoneKey(n int64) string {
	return fmt.Sprintf("%s%d", milestonePrefix, n)
}

// Get retrieves a rule by key.
func (r *Registry) Get(key string) (Rule, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// Achievements returns every registered descriptor in registration order.
func (r *Registry) Achievements() []model.Achievement {
	out := make([]model.Achievement, len(r.rules))
	for i, rule := range r.rules {
		out[i] = rule.Achievement
	}
	return out
}

// ByCategory returns the rules of one category in registration order.
func (r *Registry) ByCategory(c model.AchievementCategory) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Category == c {
			out = append(out, rule)
		}
	}
	return out
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	return len(r.rules)
}
