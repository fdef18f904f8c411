package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("not a UUID: %q", id)
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		next := gen()
		if next < prev {
			t.Fatalf("v7 IDs not monotonic: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("bld_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "bld_") || len(id) != 4+36 {
		t.Fatalf("prefixed id: %q", id)
	}
}
