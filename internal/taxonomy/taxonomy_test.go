package taxonomy

import (
	"testing"
)

func testConfig() map[string]CategoryConfig {
	return map[string]CategoryConfig{
		"critical":           {Keywords: []string{"crash", "broken"}, Weight: 3.0},
		"performance":        {Keywords: []string{"slow", "lag"}, Weight: 2.0},
		"privacy":            {Keywords: []string{"tracking"}, Weight: 2.5},
		"scam_financial":     {Keywords: []string{"scam", "charged"}, Weight: 3.0},
		"subscription":       {Keywords: []string{"subscription", "cancel"}, Weight: 2.0},
		"ads":                {Keywords: []string{"ads"}, Weight: 1.5},
		"usability":          {Keywords: []string{"confusing"}, Weight: 1.0},
		"competitor_mention": {Keywords: []string{"better than"}, Weight: 1.0},
		"generic_pain":       {Keywords: []string{"terrible"}, Weight: 1.0},
	}
}

func TestNewAssignsPillars(t *testing.T) {
	tax, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := map[string]Pillar{
		"critical":       Functional,
		"performance":    Functional,
		"privacy":        Functional,
		"scam_financial": Economic,
		"subscription":   Economic,
		"ads":            Economic,
		"usability":      Experience,
		"generic_pain":   Experience,
	}
	for name, want := range cases {
		cat, ok := tax.Lookup(name)
		if !ok {
			t.Fatalf("category %q missing", name)
		}
		if cat.Pillar != want {
			t.Errorf("category %q: pillar = %q, want %q", name, cat.Pillar, want)
		}
	}
}

func TestNewMissingCategoryGetsZeroWeight(t *testing.T) {
	cfg := testConfig()
	delete(cfg, "ads")

	tax, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cat, ok := tax.Lookup("ads")
	if !ok {
		t.Fatal("ads should still be present with zero weight")
	}
	if cat.Weight != 0 {
		t.Errorf("weight = %v, want 0", cat.Weight)
	}
	if len(cat.Keywords) != 0 {
		t.Errorf("keywords = %v, want none", cat.Keywords)
	}
}

func TestNewUnknownCategoryMapsToExperience(t *testing.T) {
	cfg := testConfig()
	cfg["weird_new_category"] = CategoryConfig{Keywords: []string{"odd"}, Weight: 1.0}

	tax, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cat, ok := tax.Lookup("weird_new_category")
	if !ok {
		t.Fatal("unknown category should be kept")
	}
	if cat.Pillar != Experience {
		t.Errorf("pillar = %q, want Experience", cat.Pillar)
	}
}

func TestNewRejectsNonPositiveWeight(t *testing.T) {
	cfg := testConfig()
	cfg["critical"] = CategoryConfig{Keywords: []string{"crash"}, Weight: 0}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for zero weight")
	}
}

func TestNewLowersKeywords(t *testing.T) {
	cfg := testConfig()
	cfg["critical"] = CategoryConfig{Keywords: []string{"  CRASH ", "Broken"}, Weight: 3.0}
	tax, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cat, _ := tax.Lookup("critical")
	if cat.Keywords[0] != "crash" || cat.Keywords[1] != "broken" {
		t.Errorf("keywords = %v, want lowercased trimmed", cat.Keywords)
	}
}

func TestCategoriesStableOrder(t *testing.T) {
	a, _ := New(testConfig())
	b, _ := New(testConfig())
	for i := range a.Categories() {
		if a.Categories()[i].Name != b.Categories()[i].Name {
			t.Fatalf("order differs at %d: %q vs %q", i, a.Categories()[i].Name, b.Categories()[i].Name)
		}
	}
}
