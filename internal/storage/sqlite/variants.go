package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftlint/driftlint/internal/types"
)

// CreateVariant stores an approved deviation record.
func (s *Store) CreateVariant(ctx context.Context, v *types.ApprovedVariant) error {
	var scopeRange sql.NullString
	if v.Scope.Range != nil {
		data, err := json.Marshal(v.Scope.Range)
		if err != nil {
			return fmt.Errorf("encoding scope range for variant %s: %w", v.ID, err)
		}
		scopeRange = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approved_variants
			(id, pattern_id, scope_file, scope_glob, scope_range,
			 reason, approver, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.PatternID, v.Scope.File, v.Scope.Glob, scopeRange,
		v.Reason, v.Approver, v.ApprovedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting approved variant %s: %w", v.ID, err)
	}
	return nil
}

// DeleteVariant removes an approved deviation record.
func (s *Store) DeleteVariant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM approved_variants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting approved variant %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("approved variant %s not found", id)
	}
	return nil
}

// ListVariants returns all approved deviations ordered by approval time.
func (s *Store) ListVariants(ctx context.Context) ([]*types.ApprovedVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern_id, scope_file, scope_glob, scope_range,
		       reason, approver, approved_at
		FROM approved_variants ORDER BY approved_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying approved variants: %w", err)
	}
	defer rows.Close()

	var out []*types.ApprovedVariant
	for rows.Next() {
		var v types.ApprovedVariant
		var scopeRange sql.NullString
		var approvedAt string

		if err := rows.Scan(&v.ID, &v.PatternID, &v.Scope.File, &v.Scope.Glob,
			&scopeRange, &v.Reason, &v.Approver, &approvedAt); err != nil {
			return nil, fmt.Errorf("scanning approved variant row: %w", err)
		}
		if scopeRange.Valid {
			var r types.Range
			if err := json.Unmarshal([]byte(scopeRange.String), &r); err != nil {
				return nil, fmt.Errorf("decoding scope range for variant %s: %w", v.ID, err)
			}
			v.Scope.Range = &r
		}
		if v.ApprovedAt, err = time.Parse(time.RFC3339Nano, approvedAt); err != nil {
			return nil, fmt.Errorf("parsing approved_at for variant %s: %w", v.ID, err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
