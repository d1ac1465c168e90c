// Package comment implements comment create/update/delete against
// publications and other comments.
package comment

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/lumenfeed/lumenfeed/internal/platform/errors"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/event"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/field"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Threads executes comment operations inside one transaction.
type Threads struct {
	tx     storage.Tx
	events *event.Recorder
	clock  func() time.Time
}

// NewThreads creates a comment component bound to one transaction.
func NewThreads(tx storage.Tx, events *event.Recorder, clock func() time.Time) *Threads {
	if clock == nil {
		clock = time.Now
	}
	return &Threads{tx: tx, events: events, clock: clock}
}

// Create stores a new comment under a caller-owned creator identity. Target
// existence is not checked; a deleted target leaves an orphaned reference.
func (t *Threads) Create(ctx context.Context, caller string, creatorID int64, targetID int64, targetKind storage.TargetKind, contentURI string) (storage.Comment, error) {
	creator, err := t.tx.GetIdentity(ctx, creatorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Comment{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("identity %d not found", creatorID))
		}
		return storage.Comment{}, err
	}
	if creator.Owner != caller {
		return storage.Comment{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the creator identity")
	}
	if !targetKind.Valid() {
		return storage.Comment{}, apperrors.New(apperrors.CodeCommentTargetInvalid, fmt.Sprintf("target kind %q is invalid", targetKind))
	}
	if targetID <= 0 {
		return storage.Comment{}, apperrors.New(apperrors.CodeCommentTargetInvalid, "target id is required")
	}
	if err := field.URI("content uri", contentURI, true); err != nil {
		return storage.Comment{}, err
	}

	now := t.clock().UTC()
	id, err := t.tx.InsertComment(ctx, storage.Comment{
		Owner:      caller,
		CreatorID:  creatorID,
		TargetID:   targetID,
		TargetKind: targetKind,
		ContentURI: contentURI,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return storage.Comment{}, err
	}
	comment, err := t.tx.GetComment(ctx, id)
	if err != nil {
		return storage.Comment{}, err
	}
	if err := t.events.Record(ctx, event.TypeCommentCreated, event.CommentChanged{
		Comment: event.CommentSnapshot(comment),
	}); err != nil {
		return storage.Comment{}, err
	}
	return comment, nil
}

// Update rewrites the content reference of a caller-owned comment.
func (t *Threads) Update(ctx context.Context, caller string, commentID int64, contentURI string) (storage.Comment, error) {
	comment, err := t.requireOwned(ctx, caller, commentID)
	if err != nil {
		return storage.Comment{}, err
	}
	if comment.ContentURI == contentURI {
		return storage.Comment{}, apperrors.New(apperrors.CodeNothingChanged, "content reference is unchanged")
	}
	if err := field.URI("content uri", contentURI, true); err != nil {
		return storage.Comment{}, err
	}

	if err := t.tx.SetCommentContent(ctx, commentID, contentURI, t.clock().UTC()); err != nil {
		return storage.Comment{}, err
	}
	comment, err = t.tx.GetComment(ctx, commentID)
	if err != nil {
		return storage.Comment{}, err
	}
	if err := t.events.Record(ctx, event.TypeCommentUpdated, event.CommentChanged{
		Comment: event.CommentSnapshot(comment),
	}); err != nil {
		return storage.Comment{}, err
	}
	return comment, nil
}

// Delete removes a caller-owned comment. Child comments are not cascaded.
func (t *Threads) Delete(ctx context.Context, caller string, commentID int64) error {
	comment, err := t.requireOwned(ctx, caller, commentID)
	if err != nil {
		return err
	}
	if err := t.tx.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	return t.events.Record(ctx, event.TypeCommentDeleted, event.CommentChanged{
		Comment: event.CommentSnapshot(comment),
	})
}

func (t *Threads) requireOwned(ctx context.Context, caller string, commentID int64) (storage.Comment, error) {
	comment, err := t.tx.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Comment{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("comment %d not found", commentID))
		}
		return storage.Comment{}, err
	}
	if comment.Owner != caller {
		return storage.Comment{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the comment")
	}
	return comment, nil
}
