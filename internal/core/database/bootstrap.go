package db

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"text/template"
	"time"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

type bootstrapParams struct {
	EmbedDim int
}

// EnsureBootstrapped creates the schema once. The vector column width is
// fixed at creation; a later EMBED_DIM change is reported, not migrated.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, embedDim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'docingest_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}
	if !exists {
		return runBootstrap(ctxBoot, db, embedDim)
	}

	var dim int
	err = db.QueryRowContext(ctxBoot, `SELECT embed_dim FROM docingest_meta WHERE version = 1`).Scan(&dim)
	if err == sql.ErrNoRows {
		return runBootstrap(ctxBoot, db, embedDim)
	}
	if err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}
	if dim != embedDim {
		return fmt.Errorf("schema was created for %d-dimensional embeddings, EMBED_DIM is %d", dim, embedDim)
	}
	return nil
}

func renderBootstrap(embedDim int) (string, error) {
	if embedDim <= 0 {
		return "", fmt.Errorf("invalid embedding dimension %d", embedDim)
	}
	raw, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read initdb.sql: %w", err)
	}
	tmpl, err := template.New("initdb").Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("parse initdb.sql: %w", err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, bootstrapParams{EmbedDim: embedDim}); err != nil {
		return "", fmt.Errorf("render initdb.sql: %w", err)
	}
	return out.String(), nil
}

func runBootstrap(ctx context.Context, db *sql.DB, embedDim int) error {
	script, err := renderBootstrap(embedDim)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	log.Printf("Database: schema bootstrapped (embed_dim=%d)", embedDim)
	return nil
}
