package history

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/modelbay/modelbay/internal/database"
)

const (
	encodingNone = ""
	encodingGzip = "gzip"

	defaultListLimit = 50
	maxListLimit     = 500
)

// Store reads and writes run records in SQLite.
type Store struct {
	db *database.DB
	// compressThreshold is the output size in bytes above which the
	// snapshot is gzipped before storage. Zero disables compression.
	compressThreshold int
}

func NewStore(db *database.DB, compressThreshold int) *Store {
	return &Store{
		db:                db,
		compressThreshold: compressThreshold,
	}
}

// Create inserts one record. The output snapshot is compressed when it
// exceeds the configured threshold.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	snapshot, encoding, err := s.encodeOutput(rec.Output)
	if err != nil {
		return fmt.Errorf("encoding output snapshot: %w", err)
	}

	if rec.CreatedAt == "" {
		rec.CreatedAt = database.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_history (
			id, artifact_id, function_name, requester, status, duration_ms,
			args_snapshot, output_snapshot, output_encoding,
			stdout, stderr, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ArtifactID, rec.Function, rec.Requester, rec.Status, rec.DurationMs,
		rec.Args, snapshot, encoding,
		rec.Stdout, rec.Stderr, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}
	return nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, artifact_id, function_name, requester, status, duration_ms,
		       args_snapshot, output_snapshot, output_encoding,
		       stdout, stderr, error, created_at
		FROM run_history WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run record: %w", err)
	}
	return rec, nil
}

// List returns records newest-first, optionally filtered by artifact
// and status.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	query := `
		SELECT id, artifact_id, function_name, requester, status, duration_ms,
		       args_snapshot, output_snapshot, output_encoding,
		       stdout, stderr, error, created_at
		FROM run_history WHERE 1=1`
	var args []any

	if filter.ArtifactID != "" {
		query += " AND artifact_id = ?"
		args = append(args, filter.ArtifactID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of records matching the filter, ignoring
// its limit and offset.
func (s *Store) Count(ctx context.Context, filter ListFilter) (int, error) {
	query := "SELECT COUNT(*) FROM run_history WHERE 1=1"
	var args []any

	if filter.ArtifactID != "" {
		query += " AND artifact_id = ?"
		args = append(args, filter.ArtifactID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting run records: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes records created before the given RFC3339
// cutoff and returns how many were deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM run_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired run records: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) encodeOutput(output string) ([]byte, string, error) {
	if output == "" {
		return nil, encodingNone, nil
	}
	if s.compressThreshold <= 0 || len(output) < s.compressThreshold {
		return []byte(output), encodingNone, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(output)); err != nil {
		return nil, "", err
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), encodingGzip, nil
}

func decodeOutput(snapshot []byte, encoding string) (string, error) {
	if len(snapshot) == 0 {
		return "", nil
	}
	if encoding != encodingGzip {
		return string(snapshot), nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(snapshot))
	if err != nil {
		return "", fmt.Errorf("opening compressed snapshot: %w", err)
	}
	defer zr.Close()

	decoded, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("decompressing snapshot: %w", err)
	}
	return string(decoded), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var snapshot []byte
	var encoding string

	err := row.Scan(
		&rec.ID, &rec.ArtifactID, &rec.Function, &rec.Requester, &rec.Status, &rec.DurationMs,
		&rec.Args, &snapshot, &encoding,
		&rec.Stdout, &rec.Stderr, &rec.Error, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	output, err := decodeOutput(snapshot, encoding)
	if err != nil {
		return nil, err
	}
	rec.Output = output
	return &rec, nil
}
