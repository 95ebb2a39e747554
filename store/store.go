// Package store persists processed documents and their chunks in
// SQLite, with FTS5 full-text search and sqlite-vec KNN search over
// chunk embeddings.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Document represents a row in the documents table. Key is the stable
// content-derived identifier exposed to API clients; ID is the internal
// rowid.
type Document struct {
	ID           int64  `json:"id"`
	Key          string `json:"key"`
	Path         string `json:"path"`
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	Title        string `json:"title"`
	Number       string `json:"number"`
	DocType      string `json:"doc_type"`
	Organization string `json:"organization"`
	ApprovalDate string `json:"approval_date"`
	ContentHash  string `json:"content_hash"`
	Status       string `json:"status"`
	Metadata     string `json:"metadata,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Chunk represents a row in the chunks table.
type Chunk struct {
	ID            int64   `json:"id"`
	DocumentID    int64   `json:"document_id"`
	Key           string  `json:"key"` // per-document chunk id, e.g. "chunk_3"
	Content       string  `json:"content"`
	ChunkType     string  `json:"chunk_type"`
	SectionNumber string  `json:"section_number"`
	SectionTitle  string  `json:"section_title"`
	SectionLevel  int     `json:"section_level"`
	PartNumber    int     `json:"part_number"`
	PositionInDoc int     `json:"position_in_doc"`
	WordCount     int     `json:"word_count"`
	CharCount     int     `json:"char_count"`
	QualityScore  float64 `json:"quality_score"`
	Metadata      string  `json:"metadata,omitempty"`
	ContentHash   string  `json:"content_hash"`
}

// RetrievalResult holds a chunk with its retrieval score and document
// info.
type RetrievalResult struct {
	ChunkID       int64   `json:"chunk_id"`
	DocumentID    int64   `json:"document_id"`
	DocumentKey   string  `json:"document_key"`
	Content       string  `json:"content"`
	ChunkType     string  `json:"chunk_type"`
	SectionNumber string  `json:"section_number"`
	SectionTitle  string  `json:"section_title"`
	Filename      string  `json:"filename"`
	Score         float64 `json:"score"`
}

// Store wraps the SQLite database for all normdoc persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, embeddingDim: embeddingDim}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// ---------------------------------------------------------------------------
// Document operations
// ---------------------------------------------------------------------------

// UpsertDocument inserts or updates a document record keyed by its
// stable document key. Returns the internal document ID.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_key, path, filename, format, title, number, doc_type,
			organization, approval_date, content_hash, status, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_key) DO UPDATE SET
			path = excluded.path,
			filename = excluded.filename,
			format = excluded.format,
			title = excluded.title,
			number = excluded.number,
			doc_type = excluded.doc_type,
			organization = excluded.organization,
			approval_date = excluded.approval_date,
			content_hash = excluded.content_hash,
			status = excluded.status,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`, doc.Key, doc.Path, doc.Filename, doc.Format, doc.Title, doc.Number, doc.DocType,
		doc.Organization, doc.ApprovalDate, doc.ContentHash, doc.Status, doc.Metadata)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// If UPSERT did an UPDATE, LastInsertId may not reflect the existing row.
	if id == 0 {
		row := s.db.QueryRowContext(ctx, "SELECT id FROM documents WHERE doc_key = ?", doc.Key)
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// GetDocumentByKey retrieves a document by its stable key.
func (s *Store) GetDocumentByKey(ctx context.Context, key string) (*Document, error) {
	return s.getDocument(ctx, "doc_key = ?", key)
}

// GetDocumentByPath retrieves a document by its file path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	return s.getDocument(ctx, "path = ?", path)
}

// GetDocument retrieves a document by internal ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return s.getDocument(ctx, "id = ?", id)
}

func (s *Store) getDocument(ctx context.Context, where string, arg any) (*Document, error) {
	doc := &Document{}
	var metadata sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, doc_key, path, filename, format, COALESCE(title, ''), COALESCE(number, ''),
			COALESCE(doc_type, ''), COALESCE(organization, ''), COALESCE(approval_date, ''),
			content_hash, status, metadata, created_at, updated_at
		FROM documents WHERE `+where,
		arg).Scan(&doc.ID, &doc.Key, &doc.Path, &doc.Filename, &doc.Format,
		&doc.Title, &doc.Number, &doc.DocType, &doc.Organization, &doc.ApprovalDate,
		&doc.ContentHash, &doc.Status, &metadata, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Metadata = metadata.String
	return doc, nil
}

// ListDocuments returns all documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_key, path, filename, format, COALESCE(title, ''), COALESCE(number, ''),
			COALESCE(doc_type, ''), COALESCE(organization, ''), COALESCE(approval_date, ''),
			content_hash, status, metadata, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var metadata sql.NullString
		if err := rows.Scan(&d.ID, &d.Key, &d.Path, &d.Filename, &d.Format,
			&d.Title, &d.Number, &d.DocType, &d.Organization, &d.ApprovalDate,
			&d.ContentHash, &d.Status, &metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Metadata = metadata.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus updates just the status field.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// DeleteDocument removes a document and all its chunks and embeddings.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT id FROM chunks WHERE document_id = ?
			)`, id); err != nil {
			return err
		}

		// Triggers clean up FTS.
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunks WHERE document_id = ?", id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
		return err
	})
}

// DeleteDocumentData removes all chunks and embeddings for a document
// but keeps the document record itself. Used before re-ingesting.
func (s *Store) DeleteDocumentData(ctx context.Context, docID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT id FROM chunks WHERE document_id = ?
			)`, docID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID)
		return err
	})
}

// ---------------------------------------------------------------------------
// Chunk operations
// ---------------------------------------------------------------------------

// InsertChunks inserts a batch of chunks and returns their internal
// IDs. PositionInDoc is assigned from slice order.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (document_id, chunk_key, content, chunk_type,
				section_number, section_title, section_level, part_number,
				position_in_doc, word_count, char_count, quality_score, metadata, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			hash := sha256.Sum256([]byte(c.Content))
			res, err := stmt.ExecContext(ctx,
				c.DocumentID, c.Key, c.Content, c.ChunkType,
				c.SectionNumber, c.SectionTitle, c.SectionLevel, c.PartNumber,
				i, c.WordCount, c.CharCount, c.QualityScore, c.Metadata,
				hex.EncodeToString(hash[:]))
			if err != nil {
				return err
			}
			ids[i], err = res.LastInsertId()
			if err != nil {
				return err
			}
		}
		return nil
	})

	return ids, err
}

// GetChunksByDocument returns all chunks for a document in document
// order.
func (s *Store) GetChunksByDocument(ctx context.Context, docID int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_key, content, chunk_type,
			COALESCE(section_number, ''), COALESCE(section_title, ''),
			COALESCE(section_level, 0), COALESCE(part_number, 0),
			position_in_doc, word_count, char_count, quality_score, metadata, content_hash
		FROM chunks WHERE document_id = ? ORDER BY position_in_doc
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var metadata sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Key, &c.Content, &c.ChunkType,
			&c.SectionNumber, &c.SectionTitle, &c.SectionLevel, &c.PartNumber,
			&c.PositionInDoc, &c.WordCount, &c.CharCount, &c.QualityScore,
			&metadata, &c.ContentHash); err != nil {
			return nil, err
		}
		c.Metadata = metadata.String
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

// InsertEmbedding stores a vector embedding for a chunk.
func (s *Store) InsertEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
		chunkID, serializeFloat32(embedding))
	return err
}

// VectorSearch performs a KNN search returning the top-k nearest chunks.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance,
			c.content, c.chunk_type, COALESCE(c.section_number, ''), COALESCE(c.section_title, ''),
			c.document_id, d.doc_key, d.filename
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var distance float64
		if err := rows.Scan(&r.ChunkID, &distance,
			&r.Content, &r.ChunkType, &r.SectionNumber, &r.SectionTitle,
			&r.DocumentID, &r.DocumentKey, &r.Filename); err != nil {
			return nil, err
		}
		// Convert distance to similarity score (1 - distance for cosine)
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch performs a full-text search using FTS5 BM25 ranking.
func (s *Store) FTSSearch(ctx context.Context, query string, limit int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rowid, f.rank,
			c.content, c.chunk_type, COALESCE(c.section_number, ''), COALESCE(c.section_title, ''),
			c.document_id, d.doc_key, d.filename
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var rank float64
		if err := rows.Scan(&r.ChunkID, &rank,
			&r.Content, &r.ChunkType, &r.SectionNumber, &r.SectionTitle,
			&r.DocumentID, &r.DocumentKey, &r.Filename); err != nil {
			return nil, err
		}
		// FTS5 rank is negative (lower = better), convert to positive score
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 encodes a float32 slice as the little-endian blob
// format sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
