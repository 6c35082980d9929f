package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// RawPayload is a stored forecast API response.
type RawPayload struct {
	ID                int64
	RunID             sql.NullInt64
	FetchedAt         time.Time
	Source            string
	LocationName      sql.NullString
	PayloadCompressed []byte
	PayloadHash       string
	SchemaVersion     int
}

// StoreRawPayload persists a compressed API response. Returns the payload ID,
// or 0 if an identical payload (same hash) was already stored.
func (s *Store) StoreRawPayload(runID *int64, source, locationName string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	var runIDNull sql.NullInt64
	if runID != nil {
		runIDNull = sql.NullInt64{Int64: *runID, Valid: true}
	}
	var locNull sql.NullString
	if locationName != "" {
		locNull = sql.NullString{String: locationName, Valid: true}
	}

	res, err := s.db.Exec(`
		INSERT INTO raw_payloads (run_id, fetched_at, source, location_name, payload_compressed, payload_hash, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(payload_hash) DO NOTHING
	`, runIDNull, time.Now().UTC(), source, locNull, buf.Bytes(), hashHex)
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// LatestRawPayload returns the decompressed body of the newest payload stored
// for a source, or nil when none exists.
func (s *Store) LatestRawPayload(source string) ([]byte, error) {
	row := s.db.QueryRow(`
		SELECT payload_compressed
		FROM raw_payloads
		WHERE source = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, source)

	var compressed []byte
	if err := row.Scan(&compressed); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return payload, nil
}
