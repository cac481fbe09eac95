package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"patwa/internal/models"
)

// SourceRepository is the data access layer for sources.
type SourceRepository struct {
	db *DB
}

// NewSourceRepository creates a SourceRepository.
func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, type, title, original_url, file_path, metadata, created_at, status`

func scanSource(row scanner) (*models.Source, error) {
	var s models.Source
	if err := row.Scan(&s.ID, &s.Type, &s.Title, &s.OriginalURL, &s.FilePath, &s.Metadata, &s.CreatedAt, &s.Status); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a source, filling in ID, creation time and status.
func (r *SourceRepository) Create(ctx context.Context, source *models.Source) error {
	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	source.CreatedAt = now()
	if source.Status == "" {
		source.Status = models.SourceStatusPending
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sources (`+sourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		source.ID, source.Type, source.Title, source.OriginalURL, source.FilePath, source.Metadata, source.CreatedAt, source.Status)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// GetByID returns ErrNotFound for unknown IDs.
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*models.Source, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	s, err := scanSource(row)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// UpdateStatus sets the status of a source.
func (r *SourceRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sources SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update source status: %w", err)
	}
	return affectedOne(res)
}

// UpdateFilePath records where the source media was stored.
func (r *SourceRepository) UpdateFilePath(ctx context.Context, id, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sources SET file_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return fmt.Errorf("failed to update source file path: %w", err)
	}
	return affectedOne(res)
}

// Delete removes a source together with its jobs and artifacts.
func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	return err
}

// List returns sources, newest first.
func (r *SourceRepository) List(ctx context.Context, limit, offset int) ([]models.Source, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limitOr(limit, 20), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

// ArtifactRepository is the data access layer for artifacts.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates an ArtifactRepository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

const artifactColumns = `id, source_id, type, content, format, file_path, metadata, created_at`

func scanArtifact(row scanner) (*models.ProcessingArtifact, error) {
	var a models.ProcessingArtifact
	if err := row.Scan(&a.ID, &a.SourceID, &a.Type, &a.Content, &a.Format, &a.FilePath, &a.Metadata, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an artifact.
func (r *ArtifactRepository) Create(ctx context.Context, artifact *models.ProcessingArtifact) error {
	if artifact.ID == "" {
		artifact.ID = uuid.New().String()
	}
	artifact.CreatedAt = now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_artifacts (`+artifactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.SourceID, artifact.Type, artifact.Content, artifact.Format, artifact.FilePath, artifact.Metadata, artifact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	return nil
}

// GetByID returns ErrNotFound for unknown IDs.
func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (*models.ProcessingArtifact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM processing_artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// GetBySourceID lists the artifacts of a source in creation order.
func (r *ArtifactRepository) GetBySourceID(ctx context.Context, sourceID string) ([]models.ProcessingArtifact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM processing_artifacts WHERE source_id = ? ORDER BY created_at, rowid`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []models.ProcessingArtifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *a)
	}
	return artifacts, rows.Err()
}

// Latest returns the newest artifact of a type for a source.
func (r *ArtifactRepository) Latest(ctx context.Context, sourceID, artifactType string) (*models.ProcessingArtifact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM processing_artifacts
		 WHERE source_id = ? AND type = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, sourceID, artifactType)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// DeleteBySourceID removes every artifact of a source, used before a
// retried job writes fresh ones.
func (r *ArtifactRepository) DeleteBySourceID(ctx context.Context, sourceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM processing_artifacts WHERE source_id = ?`, sourceID)
	return err
}
