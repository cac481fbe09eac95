package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"patwa/internal/models"
)

// TranslationRepository is the data access layer for translations.
type TranslationRepository struct {
	db *DB
}

// NewTranslationRepository creates a TranslationRepository.
func NewTranslationRepository(db *DB) *TranslationRepository {
	return &TranslationRepository{db: db}
}

const translationColumns = `id, source_id, dialect, translated, provider, initial, analysis, meaning_preserved, audio_key, created_at`

func scanTranslation(row scanner) (*models.Translation, error) {
	var t models.Translation
	var sourceID sql.NullString
	var preserved sql.NullBool
	err := row.Scan(&t.ID, &sourceID, &t.Dialect, &t.Translated, &t.Provider, &t.Initial, &t.Analysis,
		&preserved, &t.AudioKey, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.SourceID = sourceID.String
	if preserved.Valid {
		v := preserved.Bool
		t.MeaningPreserved = &v
	}
	return &t, nil
}

// Create inserts a translation.
func (r *TranslationRepository) Create(ctx context.Context, t *models.Translation) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = now()

	var preserved sql.NullBool
	if t.MeaningPreserved != nil {
		preserved = sql.NullBool{Bool: *t.MeaningPreserved, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO translations (`+translationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.SourceID), t.Dialect, t.Translated, t.Provider, t.Initial, t.Analysis,
		preserved, t.AudioKey, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create translation: %w", err)
	}
	return nil
}

// GetByID returns ErrNotFound for unknown IDs.
func (r *TranslationRepository) GetByID(ctx context.Context, id string) (*models.Translation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+translationColumns+` FROM translations WHERE id = ?`, id)
	t, err := scanTranslation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// GetBySourceID returns the newest translation of a source.
func (r *TranslationRepository) GetBySourceID(ctx context.Context, sourceID string) (*models.Translation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+translationColumns+` FROM translations WHERE source_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		sourceID)
	t, err := scanTranslation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListRecent lists translations, newest first.
func (r *TranslationRepository) ListRecent(ctx context.Context, limit, offset int) ([]models.Translation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+translationColumns+` FROM translations ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limitOr(limit, 20), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// SetAudioKey records where the synthesized audio was stored.
func (r *TranslationRepository) SetAudioKey(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE translations SET audio_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// DeleteBySourceID removes the translations of a source so a reprocessed
// source keeps only its latest result.
func (r *TranslationRepository) DeleteBySourceID(ctx context.Context, sourceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM translations WHERE source_id = ?`, sourceID)
	return err
}
