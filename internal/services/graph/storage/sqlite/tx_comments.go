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

const commentColumns = `id, owner, creator_id, target_id, target_kind, content_uri, created_at, updated_at`

type commentScanner interface {
	Scan(dest ...any) error
}

func scanComment(row commentScanner) (storage.Comment, error) {
	var (
		comment    storage.Comment
		targetKind string
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(
		&comment.ID,
		&comment.Owner,
		&comment.CreatorID,
		&comment.TargetID,
		&targetKind,
		&comment.ContentURI,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Comment{}, storage.ErrNotFound
		}
		return storage.Comment{}, err
	}
	comment.TargetKind = storage.TargetKind(targetKind)
	comment.CreatedAt = fromMillis(createdAt)
	comment.UpdatedAt = fromMillis(updatedAt)
	return comment, nil
}

// InsertComment stores one comment record and returns its new identifier.
func (t *Tx) InsertComment(ctx context.Context, comment storage.Comment) (int64, error) {
	if err := t.ready(ctx); err != nil {
		return 0, err
	}
	if strings.TrimSpace(comment.Owner) == "" {
		return 0, fmt.Errorf("comment owner is required")
	}
	if !comment.TargetKind.Valid() {
		return 0, fmt.Errorf("comment target kind %q is invalid", comment.TargetKind)
	}
	result, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO comments (owner, creator_id, target_id, target_kind, content_uri, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.Owner,
		comment.CreatorID,
		comment.TargetID,
		string(comment.TargetKind),
		comment.ContentURI,
		toMillis(comment.CreatedAt),
		toMillis(comment.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert comment id: %w", err)
	}
	return id, nil
}

// GetComment returns one comment record by identifier.
func (t *Tx) GetComment(ctx context.Context, id int64) (storage.Comment, error) {
	if err := t.ready(ctx); err != nil {
		return storage.Comment{}, err
	}
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`,
		id,
	)
	comment, err := scanComment(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Comment{}, storage.ErrNotFound
		}
		return storage.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return comment, nil
}

// SetCommentContent rewrites the content reference of one comment record.
func (t *Tx) SetCommentContent(ctx context.Context, id int64, contentURI string, updatedAt time.Time) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE comments SET content_uri = ?, updated_at = ? WHERE id = ?`,
		contentURI,
		toMillis(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("set comment content: %w", err)
	}
	return requireRow(result, "set comment content")
}

// DeleteComment removes one comment record. Child comments are not cascaded.
func (t *Tx) DeleteComment(ctx context.Context, id int64) error {
	if err := t.ready(ctx); err != nil {
		return err
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireRow(result, "delete comment")
}

// ListCommentsByTarget returns every comment attached to one target record.
func (t *Tx) ListCommentsByTarget(ctx context.Context, kind storage.TargetKind, targetID int64) ([]storage.Comment, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT `+commentColumns+` FROM comments WHERE target_kind = ? AND target_id = ? ORDER BY id ASC`,
		string(kind),
		targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []storage.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
