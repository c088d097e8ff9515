package uuid

import (
	"sort"
	"testing"

	googleuuid "github.com/google/uuid"
)

func TestNewIDIsSortableV7(t *testing.T) {
	t.Parallel()

	gen := New()
	ids := make([]string, 0, 5)
	for range 5 {
		id, err := gen.NewID()
		if err != nil {
			t.Fatalf("NewID() error = %v", err)
		}
		parsed, err := googleuuid.Parse(id)
		if err != nil {
			t.Fatalf("run id %q is not a UUID: %v", id, err)
		}
		if parsed.Version() != 7 {
			t.Fatalf("run id version = %d, want 7", parsed.Version())
		}
		ids = append(ids, id)
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("run ids not issued in order: %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
