package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// buildDSN appends verify-ca SSL parameters when a root certificate is
// configured; otherwise the URL is used as given.
func buildDSN(databaseURL, sslCertPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", sslCertPath, err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// Vector store

// AddDocuments upserts all chunks in a single transaction; on any error
// nothing is committed.
func (c *DatabaseClient) AddDocuments(ctx context.Context, docs []models.StorableDocument) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, fingerprint, chunk_index, text, chunk_type, token_count, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			chunk_type = EXCLUDED.chunk_type,
			token_count = EXCLUDED.token_count,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range docs {
		d := &docs[i]
		meta, err := encodeMetadata(d.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("chunk %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Fingerprint, d.ChunkIndex, d.Text, string(d.ChunkType), d.TokenCount,
			pgvector.NewVector(d.Embedding), meta,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE fingerprint = $1`, fingerprint)
	return err
}

// GetChunks returns a document's stored chunks in index order.
func (c *DatabaseClient) GetChunks(ctx context.Context, fingerprint string) ([]models.StorableDocument, error) {
	const q = `
		SELECT id, fingerprint, chunk_index, text, chunk_type, token_count, embedding, metadata
		FROM document_chunks
		WHERE fingerprint = $1
		ORDER BY chunk_index ASC
	`
	rows, err := c.db.QueryContext(ctx, q, fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StorableDocument
	for rows.Next() {
		var (
			d    models.StorableDocument
			emb  pgvector.Vector
			meta []byte
		)
		if err := rows.Scan(&d.ID, &d.Fingerprint, &d.ChunkIndex, &d.Text, &d.ChunkType, &d.TokenCount, &emb, &meta); err != nil {
			return nil, err
		}
		d.Embedding = emb.Slice()
		if err := json.Unmarshal(meta, &d.Metadata); err != nil {
			return nil, fmt.Errorf("chunk %s metadata: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Metadata store

func (c *DatabaseClient) SaveMetadata(ctx context.Context, meta *models.DocumentMetadata) error {
	if meta == nil {
		return errors.New("nil metadata")
	}
	const q = `
		INSERT INTO documents
			(fingerprint, file_name, byte_size, mime_type, extension, uploaded_at, user_id, pipeline_version, domain)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (fingerprint) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			byte_size = EXCLUDED.byte_size,
			mime_type = EXCLUDED.mime_type,
			extension = EXCLUDED.extension,
			uploaded_at = EXCLUDED.uploaded_at,
			user_id = EXCLUDED.user_id,
			pipeline_version = EXCLUDED.pipeline_version,
			domain = EXCLUDED.domain
	`
	_, err := c.db.ExecContext(ctx, q,
		meta.Fingerprint, meta.FileName, meta.ByteSize, meta.MimeType, meta.Extension,
		meta.UploadedAt, meta.UserID, meta.PipelineVersion, meta.Domain)
	return err
}

func (c *DatabaseClient) GetMetadata(ctx context.Context, fingerprint string) (*models.DocumentMetadata, error) {
	const q = `
		SELECT fingerprint, file_name, byte_size, mime_type, extension, uploaded_at, user_id, pipeline_version, domain
		FROM documents
		WHERE fingerprint = $1 AND uploaded_at IS NOT NULL
	`
	var m models.DocumentMetadata
	err := c.db.QueryRowContext(ctx, q, fingerprint).Scan(
		&m.Fingerprint, &m.FileName, &m.ByteSize, &m.MimeType, &m.Extension,
		&m.UploadedAt, &m.UserID, &m.PipelineVersion, &m.Domain,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetStatus creates the row when the document has no metadata yet.
func (c *DatabaseClient) SetStatus(ctx context.Context, fingerprint string, status models.Status, message string) error {
	const q = `
		INSERT INTO documents (fingerprint, status, status_message, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (fingerprint) DO UPDATE SET
			status = EXCLUDED.status,
			status_message = EXCLUDED.status_message,
			updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q, fingerprint, string(status), message)
	return err
}

func (c *DatabaseClient) GetStatus(ctx context.Context, fingerprint string) (*models.ProcessingStatus, error) {
	const q = `
		SELECT fingerprint, status, status_message, updated_at
		FROM documents
		WHERE fingerprint = $1
	`
	var s models.ProcessingStatus
	err := c.db.QueryRowContext(ctx, q, fingerprint).Scan(&s.Fingerprint, &s.Status, &s.Message, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) ListByUser(ctx context.Context, userID string) ([]models.DocumentMetadata, error) {
	const q = `
		SELECT fingerprint, file_name, byte_size, mime_type, extension, uploaded_at, user_id, pipeline_version, domain
		FROM documents
		WHERE user_id = $1 AND uploaded_at IS NOT NULL
		ORDER BY uploaded_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentMetadata
	for rows.Next() {
		var m models.DocumentMetadata
		if err := rows.Scan(
			&m.Fingerprint, &m.FileName, &m.ByteSize, &m.MimeType, &m.Extension,
			&m.UploadedAt, &m.UserID, &m.PipelineVersion, &m.Domain,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteMetadata(ctx context.Context, fingerprint string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}
