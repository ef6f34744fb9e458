package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/driftlint/driftlint/internal/types"
)

// UpsertViolation inserts or refreshes an active violation row. An existing
// row keeps its first_seen; a previously resolved row is reactivated (the
// deviation reappeared and its history reattaches).
func (s *Store) UpsertViolation(ctx context.Context, v *types.Violation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO violations
			(id, pattern_id, category, file,
			 start_line, start_char, end_line, end_char,
			 severity, expected, actual,
			 first_seen, last_seen, occurrences, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			expected = excluded.expected,
			actual = excluded.actual,
			last_seen = excluded.last_seen,
			occurrences = excluded.occurrences,
			resolved_at = NULL`,
		v.ID, v.PatternID, v.Category, v.File,
		v.Range.Start.Line, v.Range.Start.Character, v.Range.End.Line, v.Range.End.Character,
		string(v.Severity), v.Expected, v.Actual,
		v.FirstSeen.UTC().Format(time.RFC3339Nano),
		v.LastSeen.UTC().Format(time.RFC3339Nano),
		v.Occurrences,
	)
	if err != nil {
		return fmt.Errorf("upserting violation %s: %w", v.ID, err)
	}
	return nil
}

// GetViolation returns one violation by id (active or resolved), or nil.
func (s *Store) GetViolation(ctx context.Context, id string) (*types.Violation, error) {
	row := s.db.QueryRowContext(ctx, violationSelect+` WHERE id = ?`, id)
	v, err := scanViolation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// ListActiveViolations returns unresolved violations ordered by file, then
// pattern, then range start.
func (s *Store) ListActiveViolations(ctx context.Context) ([]*types.Violation, error) {
	rows, err := s.db.QueryContext(ctx, violationSelect+`
		WHERE resolved_at IS NULL
		ORDER BY file, pattern_id, start_line, start_char`)
	if err != nil {
		return nil, fmt.Errorf("querying active violations: %w", err)
	}
	defer rows.Close()

	var out []*types.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ResolveViolation marks one violation resolved. The row is retained for
// history reattachment.
func (s *Store) ResolveViolation(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE violations SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("resolving violation %s: %w", id, err)
	}
	return nil
}

// ResolveMissing resolves every active violation not present in activeIDs.
func (s *Store) ResolveMissing(ctx context.Context, activeIDs []string, at time.Time) (int, error) {
	ts := at.UTC().Format(time.RFC3339Nano)

	if len(activeIDs) == 0 {
		res, err := s.db.ExecContext(ctx,
			`UPDATE violations SET resolved_at = ? WHERE resolved_at IS NULL`, ts)
		if err != nil {
			return 0, fmt.Errorf("resolving stale violations: %w", err)
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(activeIDs)), ",")
	args := make([]any, 0, len(activeIDs)+1)
	args = append(args, ts)
	for _, id := range activeIDs {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE violations SET resolved_at = ?
		 WHERE resolved_at IS NULL AND id NOT IN (%s)`, placeholders), args...)
	if err != nil {
		return 0, fmt.Errorf("resolving stale violations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetViolationHistory returns prior sighting data for an id, including
// resolved rows.
func (s *Store) GetViolationHistory(ctx context.Context, id string) (time.Time, int, bool, error) {
	var firstSeen string
	var occurrences int

	err := s.db.QueryRowContext(ctx,
		`SELECT first_seen, occurrences FROM violations WHERE id = ?`, id).
		Scan(&firstSeen, &occurrences)
	if err == sql.ErrNoRows {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("querying history for %s: %w", id, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, firstSeen)
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("parsing first_seen for %s: %w", id, err)
	}
	return ts, occurrences, true, nil
}

const violationSelect = `
	SELECT id, pattern_id, category, file,
	       start_line, start_char, end_line, end_char,
	       severity, expected, actual,
	       first_seen, last_seen, occurrences
	FROM violations`

func scanViolation(row rowScanner) (*types.Violation, error) {
	var v types.Violation
	var severity, firstSeen, lastSeen string

	err := row.Scan(&v.ID, &v.PatternID, &v.Category, &v.File,
		&v.Range.Start.Line, &v.Range.Start.Character, &v.Range.End.Line, &v.Range.End.Character,
		&severity, &v.Expected, &v.Actual,
		&firstSeen, &lastSeen, &v.Occurrences)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning violation row: %w", err)
	}

	v.Severity = types.Severity(severity)
	if v.FirstSeen, err = time.Parse(time.RFC3339Nano, firstSeen); err != nil {
		return nil, fmt.Errorf("parsing first_seen for %s: %w", v.ID, err)
	}
	if v.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
		return nil, fmt.Errorf("parsing last_seen for %s: %w", v.ID, err)
	}
	return &v, nil
}
