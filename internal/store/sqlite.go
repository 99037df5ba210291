package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is bumped when the table layout changes.
const schemaVersion = 1

// SQLiteCache stores the Record in a single SQLite file.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens or creates the cache database at path.
// Parent directories are created if they do not exist. A file that is not a
// usable cache database yields an error wrapping ErrCorrupt.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &SQLiteCache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL,
		cache_key TEXT NOT NULL,
		build_id TEXT NOT NULL,
		embedding_model TEXT NOT NULL,
		source TEXT NOT NULL,
		content_sha256 TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		position INTEGER PRIMARY KEY,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Load reads the stored record. See Cache.Load.
func (s *SQLiteCache) Load(ctx context.Context, key string) (*Record, error) {
	var (
		rec        Record
		version    int
		dims       int
		chunkCount int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT schema_version, cache_key, build_id, embedding_model, source, content_sha256,
		        dimensions, chunk_count, created_at
		 FROM cache_meta WHERE id = 1`,
	).Scan(&version, &rec.Key, &rec.BuildID, &rec.EmbeddingModel, &rec.Source, &rec.ContentSHA256,
		&dims, &chunkCount, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read metadata: %v", ErrCorrupt, err)
	}
	if version != schemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, expected %d", ErrKeyMismatch, version, schemaVersion)
	}
	if key != "" && rec.Key != key {
		return nil, fmt.Errorf("%w: stored %s, expected %s", ErrKeyMismatch, shortKey(rec.Key), shortKey(key))
	}
	if dims <= 0 || chunkCount <= 0 {
		return nil, fmt.Errorf("%w: metadata has %d dimensions and %d chunks", ErrCorrupt, dims, chunkCount)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT position, content, embedding FROM chunks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: read chunks: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	rec.Chunks = make([]string, 0, chunkCount)
	rec.Vectors = make([][]float32, 0, chunkCount)
	for rows.Next() {
		var (
			pos     int
			content string
			blob    []byte
		)
		if err := rows.Scan(&pos, &content, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", ErrCorrupt, err)
		}
		if pos != len(rec.Chunks) {
			return nil, fmt.Errorf("%w: chunk position %d, expected %d", ErrCorrupt, pos, len(rec.Chunks))
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrCorrupt, pos, err)
		}
		rec.Chunks = append(rec.Chunks, content)
		rec.Vectors = append(rec.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read chunks: %v", ErrCorrupt, err)
	}
	if len(rec.Chunks) != chunkCount {
		return nil, fmt.Errorf("%w: found %d chunks, metadata says %d", ErrCorrupt, len(rec.Chunks), chunkCount)
	}
	return &rec, nil
}

// Save validates rec and replaces the stored record in one transaction.
// Empty BuildID and CreatedAt are filled in.
func (s *SQLiteCache) Save(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if rec.BuildID == "" {
		rec.BuildID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_meta`); err != nil {
		return fmt.Errorf("clear metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_meta (id, schema_version, cache_key, build_id, embedding_model, source,
		                         content_sha256, dimensions, chunk_count, created_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schemaVersion, rec.Key, rec.BuildID, rec.EmbeddingModel, rec.Source, rec.ContentSHA256,
		rec.Dimensions(), len(rec.Chunks), rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (position, content, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, content := range rec.Chunks {
		if _, err := stmt.ExecContext(ctx, i, content, encodeVector(rec.Vectors[i])); err != nil {
			return fmt.Errorf("write chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func shortKey(k string) string {
	if len(k) > 12 {
		return k[:12]
	}
	return k
}
