package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftlint/driftlint/internal/types"
)

// ReplacePatterns swaps the stored pattern snapshot for the given set in one
// transaction. Patterns are recomputed per pass and replaced, never mutated.
func (s *Store) ReplacePatterns(ctx context.Context, patterns []types.AggregatedPattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning pattern snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patterns`); err != nil {
		return fmt.Errorf("clearing pattern snapshot: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patterns
			(id, category, dominant_variant, dominant_description,
			 confidence, total_observations, variants, evidence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing pattern insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range patterns {
		variants, err := json.Marshal(p.Variants)
		if err != nil {
			return fmt.Errorf("encoding variants for pattern %s: %w", p.ID, err)
		}
		evidence, err := json.Marshal(p.Evidence)
		if err != nil {
			return fmt.Errorf("encoding evidence for pattern %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Category, p.DominantVariant, p.DominantDescription,
			p.Confidence, p.TotalObservations, string(variants), string(evidence), now,
		); err != nil {
			return fmt.Errorf("inserting pattern %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// GetPatterns returns the stored pattern snapshot ordered by id.
func (s *Store) GetPatterns(ctx context.Context) ([]types.AggregatedPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, dominant_variant, dominant_description,
		       confidence, total_observations, variants, evidence
		FROM patterns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying patterns: %w", err)
	}
	defer rows.Close()

	var patterns []types.AggregatedPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// GetPattern returns one pattern by id, or nil if absent.
func (s *Store) GetPattern(ctx context.Context, id string) (*types.AggregatedPattern, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, category, dominant_variant, dominant_description,
		       confidence, total_observations, variants, evidence
		FROM patterns WHERE id = ?`, id)

	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (types.AggregatedPattern, error) {
	var p types.AggregatedPattern
	var variantsJSON, evidenceJSON string

	err := row.Scan(&p.ID, &p.Category, &p.DominantVariant, &p.DominantDescription,
		&p.Confidence, &p.TotalObservations, &variantsJSON, &evidenceJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return p, err
		}
		return p, fmt.Errorf("scanning pattern row: %w", err)
	}
	if err := json.Unmarshal([]byte(variantsJSON), &p.Variants); err != nil {
		return p, fmt.Errorf("decoding variants for pattern %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(evidenceJSON), &p.Evidence); err != nil {
		return p, fmt.Errorf("decoding evidence for pattern %s: %w", p.ID, err)
	}
	return p, nil
}
