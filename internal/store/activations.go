package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Record appends an activation to the log.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency - a duplicate seq is
// silently ignored.
func (s *Store) Record(ctx context.Context, act ir.Activation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activations (seq, player, entry_id, entry_name, chain, input)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		act.Seq,
		act.Player,
		act.EntryID,
		act.EntryName,
		act.Chain,
		act.Input,
	)
	if err != nil {
		return fmt.Errorf("record activation: %w", err)
	}
	return nil
}

// ActivationFilter narrows ReadActivations. Zero fields match everything.
type ActivationFilter struct {
	Player   string
	Chain    string
	AfterSeq int64
	Limit    int
}

// ReadActivations returns activations matching f, ordered by seq.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadActivations(ctx context.Context, f ActivationFilter) ([]ir.Activation, error) {
	var (
		where []string
		args  []any
	)
	if f.Player != "" {
		where = append(where, "player = ?")
		args = append(args, f.Player)
	}
	if f.Chain != "" {
		where = append(where, "chain = ?")
		args = append(args, f.Chain)
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := `SELECT seq, player, entry_id, entry_name, chain, input FROM activations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activations: %w", err)
	}
	defer rows.Close()

	acts := []ir.Activation{}
	for rows.Next() {
		act, err := scanActivation(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activations: %w", err)
	}

	return acts, nil
}

// MaxSeq returns the highest recorded seq, or 0 for an empty log.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM activations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

func scanActivation(rows *sql.Rows) (ir.Activation, error) {
	var act ir.Activation
	if err := rows.Scan(&act.Seq, &act.Player, &act.EntryID, &act.EntryName, &act.Chain, &act.Input); err != nil {
		return ir.Activation{}, fmt.Errorf("scan activation: %w", err)
	}
	return act, nil
}
