package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists samples and weights in a single sqlite database
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// Single writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSample(ctx context.Context, sample Sample) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO samples (session, created_at, rating, weight, play_seconds, genome, features)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sample.Session, sample.CreatedAt.UnixNano(), sample.Rating, sample.Weight, sample.PlaySeconds,
		encodeFloats(sample.Genome), encodeFloats(sample.Features))
	return err
}

func (s *SQLiteStore) RecentSamples(ctx context.Context, limit int) ([]Sample, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT session, created_at, rating, weight, play_seconds, genome, features
		FROM (SELECT * FROM samples ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			sample           Sample
			created          int64
			genome, features []byte
		)
		if err := rows.Scan(&sample.Session, &created, &sample.Rating, &sample.Weight,
			&sample.PlaySeconds, &genome, &features); err != nil {
			return nil, err
		}
		sample.CreatedAt = time.Unix(0, created).UTC()
		if sample.Genome, err = decodeFloats(genome); err != nil {
			return nil, fmt.Errorf("decode sample genome: %w", err)
		}
		if sample.Features, err = decodeFloats(features); err != nil {
			return nil, fmt.Errorf("decode sample features: %w", err)
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveWeights(ctx context.Context, name string, blob []float32) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := EncodeBlob(&buf, blob); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO weights (name, updated_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`, name, time.Now().UnixNano(), buf.Bytes())
	return err
}

func (s *SQLiteStore) LoadWeights(ctx context.Context, name string) ([]float32, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM weights WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	blob, err := DecodeBlob(bytes.NewReader(payload), -1)
	if err != nil {
		return nil, false, fmt.Errorf("decode weights %s: %w", name, err)
	}
	return blob, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			rating REAL NOT NULL,
			weight REAL NOT NULL,
			play_seconds REAL NOT NULL,
			genome BLOB NOT NULL,
			features BLOB
		);
		CREATE TABLE IF NOT EXISTS weights (
			name TEXT PRIMARY KEY,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}

func encodeFloats(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, ErrBlobTruncated
	}
	if len(buf) == 0 {
		return nil, nil
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}
