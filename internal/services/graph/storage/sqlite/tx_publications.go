package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

const publicationColumns = `id, owner, creator_id, content_uri, metadata_uri, title, description,
	category_primary, category_secondary, category_tertiary, like_count, dislike_count, created_at, updated_at`

type publicationScanner interface {
	Scan(dest ...any) error
}

func scanPublication(row publicationScanner) (storage.Publication, error) {
	var (
		publication storage.Publication
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(
		&publication.ID,
		&publication.Owner,
		&publication.CreatorID,
		&publication.ContentURI,
		&publication.MetadataURI,
		&publication.Title,
		&publication.Description,
		&publication.Categories.Primary,
		&publication.Categories.Secondary,
		&publication.Categories.Tertiary,
		&publication.LikeCount,
		&publication.DislikeCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Publication{}, storage.ErrNotFound
		}
		return storage.Publication{}, err
	}
	publication.CreatedAt = fromMillis(createdAt)
	publication.UpdatedAt = fromMillis(updatedAt)
	return publication, nil
}

// InsertPublication stores one content record with zeroed engagement counters
// and returns its new identifier.
func (t *Tx) InsertPublication(ctx context.Context, publication storage.Publication) (int64, error) {
	if err := t.ready(ctx); err != nil {
		return 0, err
	}
	if strings.TrimSpace(publication.Owner) == "" {
		return 0, fmt.Errorf("publication owner is required")
	}
	if publication.CreatorID == 0 {
		return 0, fmt.Errorf("publication creator id is required")
	}
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO publications (owner, creator_id, content_uri, metadata_uri, title, description,
		     category_primary, category_secondary, category_tertiary, like_count, dislike_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		publication.Owner,
		publication.CreatorID,
		publication.ContentURI,
		publication.MetadataURI,
		publication.Title,
		publication.Description,
		publication.Categories.Primary,
		publication.Categories.Secondary,
		publication.Categories.Tertiary,
		toMillis(publication.CreatedAt),
		toMillis(publication.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert publication: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert publication id: %w", err)
	}
	return id, nil
}

// GetPublication returns one content record by identifier.
func (t *Tx) GetPublication(ctx context.Context, id int64) (storage.Publication, error) {
	if err := t.ready(ctx); err != nil {
		return storage.Publication{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT `+publicationColumns+` FROM publications WHERE id = ?`,
		id,
	)
	publication, err := scanPublication(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Publication{}, storage.ErrNotFound
		}
		return storage.Publication{}, fmt.Errorf("get publication: %w", err)
	}
	return publication, nil
}

// UpdatePublicationFields rewrites the text fields and category triple of one
// content record. Counters are untouched.
func (t *Tx) UpdatePublicationFields(ctx context.Context, publication storage.Publication) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE publications
		 SET content_uri = ?, metadata_uri = ?, title = ?, description = ?,
		     category_primary = ?, category_secondary = ?, category_tertiary = ?, updated_at = ?
		 WHERE id = ?`,
		publication.ContentURI,
		publication.MetadataURI,
		publication.Title,
		publication.Description,
		publication.Categories.Primary,
		publication.Categories.Secondary,
		publication.Categories.Tertiary,
		toMillis(publication.UpdatedAt),
		publication.ID,
	)
	if err != nil {
		return fmt.Errorf("update publication: %w", err)
	}
	return requireRow(result, "update publication")
}

// AdjustEngagementCounts applies deltas to the denormalized like/dislike
// counters, flooring both at zero. Missing rows are tolerated so the identity
// burn cascade can repair counters of already-deleted publications.
func (t *Tx) AdjustEngagementCounts(ctx context.Context, id int64, likeDelta int64, dislikeDelta int64, updatedAt time.Time) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE publications
		 SET like_count = MAX(like_count + ?, 0),
		     dislike_count = MAX(dislike_count + ?, 0),
		     updated_at = ?
		 WHERE id = ?`,
		likeDelta,
		dislikeDelta,
		toMillis(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("adjust engagement counts: %w", err)
	}
	return nil
}

// DeletePublication removes one content record. Comments and likes that
// reference it are not cascaded; they become orphaned references.
func (t *Tx) DeletePublication(ctx context.Context, id int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM publications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	return requireRow(result, "delete publication")
}

// ListPublicationsByCreator returns every content record created by one identity.
func (t *Tx) ListPublicationsByCreator(ctx context.Context, creatorID int64) ([]storage.Publication, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT `+publicationColumns+` FROM publications WHERE creator_id = ? ORDER BY id ASC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	var publications []storage.Publication
	for rows.Next() {
		publication, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("list publications: %w", err)
		}
		publications = append(publications, publication)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	return publications, nil
}
