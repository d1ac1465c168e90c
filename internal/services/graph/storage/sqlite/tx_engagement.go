package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// InsertLike stores one like record for a (publication, profile) pair.
func (t *Tx) InsertLike(ctx context.Context, like storage.LikeRecord) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	if like.PublicationID == 0 || like.ProfileID == 0 {
		return fmt.Errorf("like record ids are required")
	}
	if like.TokenID == 0 {
		return fmt.Errorf("like token id is required")
	}
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO likes (publication_id, profile_id, token_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		like.PublicationID,
		like.ProfileID,
		like.TokenID,
		toMillis(like.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// GetLike returns one like record by (publication, profile) pair.
func (t *Tx) GetLike(ctx context.Context, publicationID int64, profileID int64) (storage.LikeRecord, error) {
	if err := t.ready(ctx); err != nil {
		return storage.LikeRecord{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT publication_id, profile_id, token_id, created_at
		 FROM likes
		 WHERE publication_id = ? AND profile_id = ?`,
		publicationID,
		profileID,
	)
	var (
		like      storage.LikeRecord
		createdAt int64
	)
	err := row.Scan(&like.PublicationID, &like.ProfileID, &like.TokenID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.LikeRecord{}, storage.ErrNotFound
		}
		return storage.LikeRecord{}, fmt.Errorf("get like: %w", err)
	}
	like.CreatedAt = fromMillis(createdAt)
	return like, nil
}

// DeleteLike removes one like record by (publication, profile) pair.
func (t *Tx) DeleteLike(ctx context.Context, publicationID int64, profileID int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM likes WHERE publication_id = ? AND profile_id = ?`,
		publicationID,
		profileID,
	)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return requireRow(result, "delete like")
}

// ListLikesByProfile returns every like record held by one profile. Used by
// the identity burn cascade.
func (t *Tx) ListLikesByProfile(ctx context.Context, profileID int64) ([]storage.LikeRecord, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT publication_id, profile_id, token_id, created_at
		 FROM likes
		 WHERE profile_id = ?
		 ORDER BY token_id ASC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	var likes []storage.LikeRecord
	for rows.Next() {
		var (
			like      storage.LikeRecord
			createdAt int64
		)
		if err := rows.Scan(&like.PublicationID, &like.ProfileID, &like.TokenID, &createdAt); err != nil {
			return nil, fmt.Errorf("list likes: %w", err)
		}
		like.CreatedAt = fromMillis(createdAt)
		likes = append(likes, like)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	return likes, nil
}

// SetDislike stores one dislike flag for a (publication, profile) pair.
func (t *Tx) SetDislike(ctx context.Context, dislike storage.Dislike) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	if dislike.PublicationID == 0 || dislike.ProfileID == 0 {
		return fmt.Errorf("dislike ids are required")
	}
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO dislikes (publication_id, profile_id, created_at)
		 VALUES (?, ?, ?)`,
		dislike.PublicationID,
		dislike.ProfileID,
		toMillis(dislike.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("set dislike: %w", err)
	}
	return nil
}

// HasDislike reports whether a dislike flag stands for the pair.
func (t *Tx) HasDislike(ctx context.Context, publicationID int64, profileID int64) (bool, error) {
	if err := t.ready(ctx); err != nil {
		return false, err
	}
	var found int
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT 1 FROM dislikes WHERE publication_id = ? AND profile_id = ?`,
		publicationID,
		profileID,
	)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check dislike: %w", err)
	}
	return true, nil
}

// ClearDislike removes one dislike flag by (publication, profile) pair.
func (t *Tx) ClearDislike(ctx context.Context, publicationID int64, profileID int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM dislikes WHERE publication_id = ? AND profile_id = ?`,
		publicationID,
		profileID,
	)
	if err != nil {
		return fmt.Errorf("clear dislike: %w", err)
	}
	return requireRow(result, "clear dislike")
}

// ListDislikesByProfile returns every dislike flag set by one profile. Used by
// the identity burn cascade.
func (t *Tx) ListDislikesByProfile(ctx context.Context, profileID int64) ([]storage.Dislike, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT publication_id, profile_id, created_at
		 FROM dislikes
		 WHERE profile_id = ?
		 ORDER BY publication_id ASC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dislikes: %w", err)
	}
	defer rows.Close()

	var dislikes []storage.Dislike
	for rows.Next() {
		var (
			dislike   storage.Dislike
			createdAt int64
		)
		if err := rows.Scan(&dislike.PublicationID, &dislike.ProfileID, &createdAt); err != nil {
			return nil, fmt.Errorf("list dislikes: %w", err)
		}
		dislike.CreatedAt = fromMillis(createdAt)
		dislikes = append(dislikes, dislike)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dislikes: %w", err)
	}
	return dislikes, nil
}
