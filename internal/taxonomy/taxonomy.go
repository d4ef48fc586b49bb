package taxonomy

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Pillar is one of the three mutually-exclusive risk pillars every
// keyword category maps into.
type Pillar string

const (
	Functional Pillar = "Functional"
	Economic   Pillar = "Economic"
	Experience Pillar = "Experience"
)

// pillarByCategory is the fixed category -> pillar policy. It is the single
// place this mapping exists; every component reads the pillar from the
// Category it was resolved into.
var pillarByCategory = map[string]Pillar{
	"critical":           Functional,
	"performance":        Functional,
	"privacy":            Functional,
	"scam_financial":     Economic,
	"subscription":       Economic,
	"ads":                Economic,
	"usability":          Experience,
	"competitor_mention": Experience,
	"generic_pain":       Experience,
}

// knownCategories returns the fixed category names in a stable order.
func knownCategories() []string {
	names := make([]string, 0, len(pillarByCategory))
	for name := range pillarByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Category is an immutable keyword category with its severity weight and
// pillar assignment. Keywords are stored pre-lowered.
type Category struct {
	Name     string
	Keywords []string
	Weight   float64
	Pillar   Pillar
}

// Taxonomy is the read-only keyword lookup used by the whole analysis run.
// It is constructed once from config and injected into every component;
// nothing mutates it afterwards.
type Taxonomy struct {
	categories []Category
	byName     map[string]int
}

// CategoryConfig is the raw per-category shape coming from the
// configuration loader.
type CategoryConfig struct {
	Keywords []string
	Weight   float64
}

// New builds a Taxonomy from configured categories. Every category in the
// fixed pillar map is present in the result: categories missing from the
// config get weight 0 with a warning instead of failing the run. Configured
// categories unknown to the pillar map are kept and assigned to Experience,
// also with a warning.
func New(configured map[string]CategoryConfig) (*Taxonomy, error) {
	t := &Taxonomy{byName: make(map[string]int)}

	for _, name := range knownCategories() {
		cc, ok := configured[name]
		if !ok {
			log.Printf("taxonomy: category %q missing from config, using weight 0", name)
			t.append(Category{Name: name, Pillar: pillarByCategory[name]})
			continue
		}
		if cc.Weight <= 0 {
			return nil, fmt.Errorf("category %q: weight must be > 0, got %v", name, cc.Weight)
		}
		t.append(Category{
			Name:     name,
			Keywords: lowerAll(cc.Keywords),
			Weight:   cc.Weight,
			Pillar:   pillarByCategory[name],
		})
	}

	// Extra categories from config, stable order.
	var extras []string
	for name := range configured {
		if _, ok := pillarByCategory[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		cc := configured[name]
		if cc.Weight <= 0 {
			return nil, fmt.Errorf("category %q: weight must be > 0, got %v", name, cc.Weight)
		}
		log.Printf("taxonomy: category %q has no pillar mapping, assigning Experience", name)
		t.append(Category{
			Name:     name,
			Keywords: lowerAll(cc.Keywords),
			Weight:   cc.Weight,
			Pillar:   Experience,
		})
	}

	return t, nil
}

func (t *Taxonomy) append(c Category) {
	t.byName[c.Name] = len(t.categories)
	t.categories = append(t.categories, c)
}

// Categories returns the categories in their stable construction order.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.categories)
}

// Lookup returns the category with the given name, if present.
func (t *Taxonomy) Lookup(name string) (Category, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Category{}, false
	}
	return t.categories[idx], true
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
