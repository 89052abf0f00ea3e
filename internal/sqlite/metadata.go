package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/roach88/recstore/internal/fingerprint"
	"github.com/roach88/recstore/internal/rowstore"
)

// metadata is the JSON document stored in recstore_metadata.
type metadata struct {
	Version     int                 `json:"version"`
	Fingerprint string              `json:"fingerprint"`
	Descriptor  rowstore.Descriptor `json:"descriptor"`
}

// Inspection is a decoded metadata blob, for tools that show store contents.
type Inspection struct {
	Version     int
	Fingerprint string
	Descriptor  rowstore.Descriptor
}

// Inspect decodes md as produced by this engine.
func Inspect(md rowstore.Metadata) (Inspection, error) {
	m, err := decodeMetadata(md)
	if err != nil {
		return Inspection{}, err
	}
	return Inspection(m), nil
}

func newMetadata(desc rowstore.Descriptor) (metadata, error) {
	fp, err := fingerprint.Of(desc)
	if err != nil {
		return metadata{}, err
	}
	return metadata{Version: desc.Version, Fingerprint: fp, Descriptor: desc}, nil
}

func decodeMetadata(md rowstore.Metadata) (metadata, error) {
	var m metadata
	if err := json.Unmarshal(md, &m); err != nil {
		return metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if m.Fingerprint == "" {
		return metadata{}, fmt.Errorf("decode metadata: missing fingerprint")
	}
	return m, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readMetadata returns the stored metadata blob, or ok=false when the
// database has never been initialized.
func readMetadata(ctx context.Context, db execer) (rowstore.Metadata, bool, error) {
	var blob []byte
	err := db.QueryRowContext(ctx,
		`SELECT data FROM `+metadataTable+` WHERE id = 1`).Scan(&blob)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil && isNoSuchTable(err):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("read metadata: %w", err)
	}
	return rowstore.Metadata(blob), true, nil
}

// writeMetadata stores the metadata for desc and mirrors its version into
// PRAGMA user_version.
func writeMetadata(ctx context.Context, db execer, desc rowstore.Descriptor) error {
	m, err := newMetadata(desc)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+metadataTable+` (
			id   INTEGER PRIMARY KEY CHECK (id = 1),
			data BLOB NOT NULL
		)`); err != nil {
		return fmt.Errorf("create metadata table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO `+metadataTable+` (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, blob); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", desc.Version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
