package roadnet

import "testing"

func TestDefaultCategoriesCoverDrivableSet(t *testing.T) {
	cats := DefaultCategories()
	if len(cats) != len(drivableHighway) {
		t.Fatalf("got %d categories, want %d", len(cats), len(drivableHighway))
	}
	for _, c := range cats {
		if _, ok := drivableHighway[c]; !ok {
			t.Errorf("category %q not in the drivable vocabulary", c)
		}
	}
}

func TestCategorySet(t *testing.T) {
	testCases := []struct {
		name       string
		categories []string
		wantLen    int
		contains   string
	}{
		{
			name:       "empty filter falls back to drivable set",
			categories: nil,
			wantLen:    len(drivableHighway),
			contains:   "residential",
		},
		{
			name:       "explicit filter",
			categories: []string{"primary", "secondary"},
			wantLen:    2,
			contains:   "primary",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			set := categorySet(tt.categories)
			if len(set) != tt.wantLen {
				t.Errorf("set has %d entries, want %d", len(set), tt.wantLen)
			}
			if _, ok := set[tt.contains]; !ok {
				t.Errorf("set missing %q", tt.contains)
			}
		})
	}
}
