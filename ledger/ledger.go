// Package ledger persists build artifacts to SQLite asynchronously.
//
// The pipeline never waits on the ledger: artifacts are queued and
// flushed in batches by a background goroutine, and a full buffer
// drops rather than backpressures a build in flight. The ledger is an
// audit trail, not a source of truth.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/refonte/build"
	"github.com/hazyhaar/refonte/dbopen"
)

// Schema for the artifacts table. Call Store.Init() or apply via
// dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	parent_id TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL,
	html TEXT NOT NULL,
	defects TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_parent ON artifacts(parent_id) WHERE parent_id != '';
CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);
`

const (
	bufferSize = 256
	batchSize  = 32
)

// Store persists artifacts to a SQLite table asynchronously.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	ch     chan *build.Artifact
	done   chan struct{}
	once   sync.Once
}

// NewStore creates a ledger backed by the given database connection and
// starts its flush goroutine.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		db:     db,
		logger: logger,
		ch:     make(chan *build.Artifact, bufferSize),
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Init creates the artifacts table if it doesn't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// RecordAsync queues an artifact for persistence. Non-blocking; drops
// if the buffer is full.
func (s *Store) RecordAsync(a *build.Artifact) {
	select {
	case s.ch <- a:
	default:
		s.logger.Warn("ledger: buffer full, artifact dropped", "artifact_id", a.ID)
	}
}

// Close drains the buffer and stops the flush goroutine.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return nil
}

// Get loads one artifact by ID.
func (s *Store) Get(ctx context.Context, id string) (*build.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, parent_id, success, html, defects, created_at FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ledger: artifact %q not found", id)
	}
	return a, err
}

// Lineage returns the artifact and its ancestors, newest first,
// following parent_id until the chain ends or breaks.
func (s *Store) Lineage(ctx context.Context, id string) ([]*build.Artifact, error) {
	var chain []*build.Artifact
	for id != "" {
		a, err := s.Get(ctx, id)
		if err != nil {
			if len(chain) > 0 {
				// chain broken: the parent was dropped or never recorded
				return chain, nil
			}
			return nil, err
		}
		chain = append(chain, a)
		id = a.ParentID
	}
	return chain, nil
}

// Recent returns the latest artifacts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*build.Artifact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, success, html, defects, created_at FROM artifacts
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	var out []*build.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (*build.Artifact, error) {
	var a build.Artifact
	var defects sql.NullString
	var createdAt int64
	if err := row.Scan(&a.ID, &a.ParentID, &a.Success, &a.HTML, &defects, &createdAt); err != nil {
		return nil, err
	}
	if defects.Valid && defects.String != "" {
		if err := json.Unmarshal([]byte(defects.String), &a.Defects); err != nil {
			return nil, fmt.Errorf("ledger: defects for %s: %w", a.ID, err)
		}
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &a, nil
}

func (s *Store) flushLoop() {
	defer close(s.done)

	batch := make([]*build.Artifact, 0, batchSize)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case a, ok := <-s.ch:
			if !ok {
				s.flushBatch(batch)
				return
			}
			batch = append(batch, a)
			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *Store) flushBatch(batch []*build.Artifact) {
	if len(batch) == 0 {
		return
	}

	err := dbopen.RunTx(context.Background(), s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO artifacts (id, parent_id, success, html, defects, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("ledger: prepare: %w", err)
		}
		defer stmt.Close()

		for _, a := range batch {
			defects := ""
			if len(a.Defects) > 0 {
				data, err := json.Marshal(a.Defects)
				if err != nil {
					s.logger.Error("ledger: marshal defects", "artifact_id", a.ID, "error", err)
					continue
				}
				defects = string(data)
			}
			if _, err := stmt.Exec(a.ID, a.ParentID, a.Success, a.HTML, defects, a.CreatedAt.UnixMilli()); err != nil {
				return fmt.Errorf("ledger: insert %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("ledger: flush batch", "size", len(batch), "error", err)
	}
}
