package catalog

import "testing"

func TestAllOrder(t *testing.T) {
	expected := []string{"desire", "family", "work", "health", "other"}
	got := All()

	if len(got) != len(expected) {
		t.Fatalf("Expected %d categories, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	got := All()
	got[0] = "hacked"

	if All()[0] != Desire {
		t.Error("Mutating the returned slice must not change the catalog")
	}
	if IsMember("hacked") {
		t.Error("Mutation leaked into membership")
	}
}

func TestIsMember(t *testing.T) {
	cases := map[string]bool{
		"desire":  true,
		"work":    true,
		"other":   true,
		"Work":    false,
		" work":   false,
		"":        false,
		"secrets": false,
	}

	for input, expected := range cases {
		if got := IsMember(input); got != expected {
			t.Errorf("IsMember(%q) = %v, expected %v", input, got, expected)
		}
	}
}
