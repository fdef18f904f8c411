package ledger

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/refonte/build"
	"github.com/hazyhaar/refonte/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := NewStore(db, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func art(id, parent string, success bool) *build.Artifact {
	return &build.Artifact{
		ID:        id,
		ParentID:  parent,
		HTML:      "<!DOCTYPE html><html><body>" + id + "</body></html>",
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}
}

// WHAT: a recorded artifact round-trips through Close (which drains)
// and comes back intact, defects included.
func TestRecord_RoundTrip(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := NewStore(db, nil)

	a := art("bld_a", "", false)
	a.Defects = []build.Defect{
		{Kind: build.DefectMissingTarget, Severity: build.SeverityCritical, Description: "no target"},
	}
	s.RecordAsync(a)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(context.Background(), "bld_a")
	if err != nil {
		t.Fatal(err)
	}
	if got.HTML != a.HTML {
		t.Fatal("html mismatch")
	}
	if got.Success {
		t.Fatal("success flag lost")
	}
	if len(got.Defects) != 1 || got.Defects[0].Kind != build.DefectMissingTarget {
		t.Fatalf("defects: %+v", got.Defects)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get(context.Background(), "bld_missing"); err == nil {
		t.Fatal("expected not-found error")
	}
}

// WHAT: Lineage walks the parent chain newest first and tolerates a
// missing ancestor by returning the partial chain.
func TestLineage(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := NewStore(db, nil)

	s.RecordAsync(art("bld_1", "", false))
	s.RecordAsync(art("bld_2", "bld_1", false))
	s.RecordAsync(art("bld_3", "bld_2", true))
	s.RecordAsync(art("bld_orphan", "bld_gone", true))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	chain, err := s.Lineage(context.Background(), "bld_3")
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length: %d", len(chain))
	}
	for i, want := range []string{"bld_3", "bld_2", "bld_1"} {
		if chain[i].ID != want {
			t.Fatalf("chain[%d]: %q, want %q", i, chain[i].ID, want)
		}
	}

	partial, err := s.Lineage(context.Background(), "bld_orphan")
	if err != nil {
		t.Fatal(err)
	}
	if len(partial) != 1 || partial[0].ID != "bld_orphan" {
		t.Fatalf("partial chain: %+v", partial)
	}
}

func TestRecent_OrderAndLimit(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := NewStore(db, nil)

	base := time.Now().UTC()
	for i, id := range []string{"bld_x", "bld_y", "bld_z"} {
		a := art(id, "", true)
		a.CreatedAt = base.Add(time.Duration(i) * time.Second)
		s.RecordAsync(a)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("length: %d", len(got))
	}
	if got[0].ID != "bld_z" || got[1].ID != "bld_y" {
		t.Fatalf("order: %s, %s", got[0].ID, got[1].ID)
	}
}

// WHAT: Close is idempotent and a full buffer drops instead of blocking.
func TestClose_Idempotent(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	s := NewStore(db, nil)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	// after Close the channel is closed; RecordAsync must not be called.
}
