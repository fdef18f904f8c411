package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys: got %d, want 1", fk)
	}
}

func TestOpen_WithSchema(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE things (id TEXT PRIMARY KEY)`))

	if _, err := db.Exec(`INSERT INTO things (id) VALUES ('a')`); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}
}

func TestOpen_BadSchema(t *testing.T) {
	_, err := Open(":memory:", WithSchema("NOT SQL AT ALL"))
	if err == nil {
		t.Fatal("expected schema error")
	}
}

func TestRunTx_CommitAndRollback(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE n (v INTEGER)`))
	ctx := context.Background()

	if err := RunTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO n (v) VALUES (1)`)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	errFail := errors.New("fail")
	err := RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO n (v) VALUES (2)`); err != nil {
			return err
		}
		return errFail
	})
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM n`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("rows after rollback: got %d, want 1", count)
	}
}

func TestIsBusy(t *testing.T) {
	if IsBusy(nil) {
		t.Fatal("nil is not busy")
	}
	if !IsBusy(errors.New("SQLITE_BUSY: database is locked")) {
		t.Fatal("busy error not detected")
	}
	if IsBusy(errors.New("syntax error")) {
		t.Fatal("false positive")
	}
}
