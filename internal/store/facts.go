package store

import (
	"context"
	"fmt"
)

// LoadFacts returns the saved facts for player.
// Returns an empty map (not nil) if nothing was saved.
func (s *Store) LoadFacts(ctx context.Context, player string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fact, value
		FROM facts
		WHERE player = ?
		ORDER BY fact COLLATE BINARY ASC
	`, player)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	values := make(map[string]int)
	for rows.Next() {
		var (
			name  string
			value int
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}

	return values, nil
}

// SaveFacts replaces the saved facts for player with values.
// Runs in one transaction, so a failed save leaves the previous set intact.
func (s *Store) SaveFacts(ctx context.Context, player string, values map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save facts: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM facts WHERE player = ?`, player); err != nil {
		return fmt.Errorf("save facts: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO facts (player, fact, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save facts: prepare: %w", err)
	}
	defer stmt.Close()

	for name, value := range values {
		if _, err := stmt.ExecContext(ctx, player, name, value); err != nil {
			return fmt.Errorf("save facts: insert %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save facts: commit: %w", err)
	}
	return nil
}

// FactPlayers returns every player with saved facts, sorted.
func (s *Store) FactPlayers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT player FROM facts ORDER BY player COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query fact players: %w", err)
	}
	defer rows.Close()

	players := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan fact player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fact players: %w", err)
	}
	return players, nil
}
