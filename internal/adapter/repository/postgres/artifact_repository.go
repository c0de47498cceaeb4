package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/logvault/internal/domain"
)

const artifactsTableName = "backup_artifacts"

// ArtifactRepository implements domain.ArtifactCatalog on PostgreSQL.
type ArtifactRepository struct {
	db     *sql.DB
	logger *slog.Logger
	table  string
}

// NewArtifactRepository creates a new PostgreSQL artifact catalog.
func NewArtifactRepository(db *sql.DB, logger *slog.Logger) *ArtifactRepository {
	return &ArtifactRepository{
		db:     db,
		logger: logger.With("component", "postgres_artifact_repository"),
		table:  pq.QuoteIdentifier(artifactsTableName),
	}
}

// EnsureSchema creates the catalog table if it does not exist.
func (r *ArtifactRepository) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + r.table + ` (
		path        TEXT PRIMARY KEY,
		size_bytes  BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		encoding    TEXT NOT NULL,
		run_id      TEXT NOT NULL
	)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", artifactsTableName, err)
	}
	return nil
}

// SaveArtifact inserts the artifact. Re-saving the same path is a no-op, so a
// retried catalog write cannot duplicate rows.
func (r *ArtifactRepository) SaveArtifact(ctx context.Context, a domain.Artifact) error {
	query := `INSERT INTO ` + r.table + ` (path, size_bytes, created_at, encoding, run_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (path) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, a.Path, a.SizeBytes, a.CreatedAt, a.Encoding, a.RunID); err != nil {
		return fmt.Errorf("failed to insert artifact %s: %w", a.Path, err)
	}
	return nil
}

// ListArtifacts returns catalog rows, newest first.
func (r *ArtifactRepository) ListArtifacts(ctx context.Context, limit int) ([]domain.Artifact, error) {
	query := `SELECT path, size_bytes, created_at, encoding, run_id FROM ` + r.table + `
		ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.Path, &a.SizeBytes, &a.CreatedAt, &a.Encoding, &a.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
