package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/animfsm/internal/config"
	"github.com/roach88/animfsm/internal/reconcile"
)

// SyncRun is one recorded reconciliation.
type SyncRun struct {
	Seq    int64            `json:"seq"`
	RunID  string           `json:"run_id"`
	Ref    string           `json:"ref"`
	Hash   string           `json:"hash"`
	Report reconcile.Report `json:"report"`
	Error  string           `json:"error,omitempty"`
}

// GetConfig returns the stored config for ref. It implements config.Source;
// a missing ref yields an error wrapping config.ErrNotFound.
func (s *Store) GetConfig(ctx context.Context, ref string) (*config.MachineConfig, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM machine_configs WHERE ref = ?`, ref).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %q: %w", ref, config.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", ref, err)
	}
	return unmarshalConfig(body)
}

// ConfigHash returns the stored hash and revision for ref.
// Returns sql.ErrNoRows if not found.
func (s *Store) ConfigHash(ctx context.Context, ref string) (hash string, revision int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT hash, revision FROM machine_configs WHERE ref = ?
	`, ref).Scan(&hash, &revision)
	return hash, revision, err
}

// Refs returns every stored ref in binary order.
func (s *Store) Refs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT ref FROM machine_configs ORDER BY ref COLLATE BINARY ASC`)
}

// Clips returns every stored clip in name order.
func (s *Store) Clips(ctx context.Context) ([]*config.ClipConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM clips ORDER BY name COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	clips := []*config.ClipConfig{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		c, err := unmarshalClip(body)
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return clips, nil
}

// ListSyncs returns recorded sync runs, oldest first. An empty ref lists
// every ref; limit <= 0 means no limit, otherwise the newest limit runs are
// returned.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListSyncs(ctx context.Context, ref string, limit int) ([]SyncRun, error) {
	query := `
		SELECT seq, run_id, ref, hash, report, error FROM (
			SELECT seq, run_id, ref, hash, report, error
			FROM sync_runs
			WHERE (? = '' OR ref = ?)
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, query, ref, ref, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	runs := []SyncRun{}
	for rows.Next() {
		var run SyncRun
		var body string
		if err := rows.Scan(&run.Seq, &run.RunID, &run.Ref, &run.Hash, &body, &run.Error); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		if run.Report, err = unmarshalReport(body); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}
	return runs, nil
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}
