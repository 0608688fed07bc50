package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/reconcile"
)

// PutConfig stores cfg under ref. It returns changed=false, and leaves the
// row untouched, when the stored config already has the same content hash.
// Otherwise the body is replaced and the revision incremented.
func (s *Store) PutConfig(ctx context.Context, ref string, cfg *config.MachineConfig) (changed bool, err error) {
	hash, err := config.Hash(cfg)
	if err != nil {
		return false, fmt.Errorf("put config %q: %w", ref, err)
	}
	body, err := marshalConfig(cfg)
	if err != nil {
		return false, fmt.Errorf("put config %q: %w", ref, err)
	}

	// Use a transaction so the hash check and the upsert are atomic
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("put config %q: begin tx: %w", ref, err)
	}
	defer tx.Rollback() // No-op if committed

	var current string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM machine_configs WHERE ref = ?`, ref).Scan(&current)
	switch {
	case err == nil && current == hash:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("put config %q: %w", ref, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO machine_configs (ref, hash, body, revision)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(ref) DO UPDATE SET
			hash = excluded.hash,
			body = excluded.body,
			revision = machine_configs.revision + 1
	`, ref, hash, body)
	if err != nil {
		return false, fmt.Errorf("put config %q: %w", ref, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("put config %q: commit: %w", ref, err)
	}
	return true, nil
}

// DeleteConfig removes the config for ref. It returns false if none was
// stored.
func (s *Store) DeleteConfig(ctx context.Context, ref string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM machine_configs WHERE ref = ?`, ref)
	if err != nil {
		return false, fmt.Errorf("delete config %q: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete config %q: %w", ref, err)
	}
	return n > 0, nil
}

// PutClip stores a clip under its name, replacing any previous version.
// It returns changed=false when the stored clip has the same content hash.
func (s *Store) PutClip(ctx context.Context, cfg *config.ClipConfig) (changed bool, err error) {
	hash, err := config.HashClip(cfg)
	if err != nil {
		return false, fmt.Errorf("put clip %q: %w", cfg.Name, err)
	}
	body, err := marshalClip(cfg)
	if err != nil {
		return false, fmt.Errorf("put clip %q: %w", cfg.Name, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO clips (name, hash, body)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			hash = excluded.hash,
			body = excluded.body
		WHERE clips.hash != excluded.hash
	`, cfg.Name, hash, body)
	if err != nil {
		return false, fmt.Errorf("put clip %q: %w", cfg.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put clip %q: %w", cfg.Name, err)
	}
	return n > 0, nil
}

// RecordSync appends a sync run to the history and returns its seq.
// syncErr may be nil.
func (s *Store) RecordSync(ctx context.Context, runID string, rep reconcile.Report, syncErr error) (int64, error) {
	body, err := marshalReport(rep)
	if err != nil {
		return 0, fmt.Errorf("record sync: %w", err)
	}
	errText := ""
	if syncErr != nil {
		errText = syncErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, ref, hash, report, error)
		VALUES (?, ?, ?, ?, ?)
	`, runID, rep.Ref, rep.Hash, body, errText)
	if err != nil {
		return 0, fmt.Errorf("record sync: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record sync: %w", err)
	}
	return seq, nil
}
