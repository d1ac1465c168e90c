// Package publication implements content record create/update/delete with
// category-tagging validation.
package publication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/lumenfeed/lumenfeed/internal/platform/errors"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/event"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/field"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Fields bundles the caller-editable values of a publication.
type Fields struct {
	ContentURI  string
	MetadataURI string
	Title       string
	Description string
	Categories  storage.Categories
}

// Catalog executes publication operations inside one transaction.
type Catalog struct {
	tx     storage.Tx
	events *event.Recorder
	clock  func() time.Time
}

// NewCatalog creates a catalog bound to one transaction.
func NewCatalog(tx storage.Tx, events *event.Recorder, clock func() time.Time) *Catalog {
	if clock == nil {
		clock = time.Now
	}
	return &Catalog{tx: tx, events: events, clock: clock}
}

// Create stores a new publication under a caller-owned creator identity with
// zeroed engagement counters.
func (c *Catalog) Create(ctx context.Context, caller string, creatorID int64, fields Fields) (storage.Publication, error) {
	creator, err := c.tx.GetIdentity(ctx, creatorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Publication{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("identity %d not found", creatorID))
		}
		return storage.Publication{}, err
	}
	if creator.Owner != caller {
		return storage.Publication{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the creator identity")
	}
	fields, err = validateFields(fields)
	if err != nil {
		return storage.Publication{}, err
	}

	now := c.clock().UTC()
	id, err := c.tx.InsertPublication(ctx, storage.Publication{
		Owner:       caller,
		CreatorID:   creatorID,
		ContentURI:  fields.ContentURI,
		MetadataURI: fields.MetadataURI,
		Title:       fields.Title,
		Description: fields.Description,
		Categories:  fields.Categories,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return storage.Publication{}, err
	}
	publication, err := c.tx.GetPublication(ctx, id)
	if err != nil {
		return storage.Publication{}, err
	}
	if err := c.events.Record(ctx, event.TypePublicationCreated, event.PublicationChanged{
		Publication: event.PublicationSnapshot(publication),
	}); err != nil {
		return storage.Publication{}, err
	}
	return publication, nil
}

// Update rewrites the fields of a publication whose creator identity the
// caller owns. Only a call that changes at least one field is accepted.
func (c *Catalog) Update(ctx context.Context, caller string, publicationID int64, fields Fields) (storage.Publication, error) {
	publication, err := c.requireAuthorized(ctx, caller, publicationID)
	if err != nil {
		return storage.Publication{}, err
	}
	if !differs(publication, fields) {
		return storage.Publication{}, apperrors.New(apperrors.CodeNothingChanged, "no publication field differs from stored values")
	}
	fields, err = validateFields(fields)
	if err != nil {
		return storage.Publication{}, err
	}

	publication.ContentURI = fields.ContentURI
	publication.MetadataURI = fields.MetadataURI
	publication.Title = fields.Title
	publication.Description = fields.Description
	publication.Categories = fields.Categories
	publication.UpdatedAt = c.clock().UTC()
	if err := c.tx.UpdatePublicationFields(ctx, publication); err != nil {
		return storage.Publication{}, err
	}
	publication, err = c.tx.GetPublication(ctx, publicationID)
	if err != nil {
		return storage.Publication{}, err
	}
	if err := c.events.Record(ctx, event.TypePublicationUpdated, event.PublicationChanged{
		Publication: event.PublicationSnapshot(publication),
	}); err != nil {
		return storage.Publication{}, err
	}
	return publication, nil
}

// Delete removes a publication whose creator identity the caller owns.
// Comments and likes referencing it are left as orphaned references.
func (c *Catalog) Delete(ctx context.Context, caller string, publicationID int64) error {
	publication, err := c.requireAuthorized(ctx, caller, publicationID)
	if err != nil {
		return err
	}
	if err := c.tx.DeletePublication(ctx, publicationID); err != nil {
		return err
	}
	return c.events.Record(ctx, event.TypePublicationDeleted, event.PublicationChanged{
		Publication: event.PublicationSnapshot(publication),
	})
}

func (c *Catalog) requireAuthorized(ctx context.Context, caller string, publicationID int64) (storage.Publication, error) {
	publication, err := c.tx.GetPublication(ctx, publicationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Publication{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("publication %d not found", publicationID))
		}
		return storage.Publication{}, err
	}
	if publication.Owner != caller {
		return storage.Publication{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the publication's creator identity")
	}
	return publication, nil
}

func differs(publication storage.Publication, fields Fields) bool {
	normalized := normalizeFields(fields)
	return publication.ContentURI != normalized.ContentURI ||
		publication.MetadataURI != normalized.MetadataURI ||
		publication.Title != normalized.Title ||
		publication.Description != normalized.Description ||
		publication.Categories != normalized.Categories
}

func normalizeFields(fields Fields) Fields {
	fields.ContentURI = strings.TrimSpace(fields.ContentURI)
	fields.MetadataURI = strings.TrimSpace(fields.MetadataURI)
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Description = strings.TrimSpace(fields.Description)
	fields.Categories.Primary = strings.TrimSpace(fields.Categories.Primary)
	fields.Categories.Secondary = strings.TrimSpace(fields.Categories.Secondary)
	fields.Categories.Tertiary = strings.TrimSpace(fields.Categories.Tertiary)
	return fields
}

func validateFields(fields Fields) (Fields, error) {
	fields = normalizeFields(fields)
	if err := field.URI("content uri", fields.ContentURI, true); err != nil {
		return Fields{}, err
	}
	if err := field.URI("metadata uri", fields.MetadataURI, false); err != nil {
		return Fields{}, err
	}
	if err := field.Text("title", fields.Title, field.MaxTitleLength); err != nil {
		return Fields{}, err
	}
	if err := field.Text("description", fields.Description, field.MaxDescriptionLength); err != nil {
		return Fields{}, err
	}
	if err := validateCategories(fields.Categories); err != nil {
		return Fields{}, err
	}
	return fields, nil
}

func validateCategories(categories storage.Categories) error {
	if categories.Primary == "" {
		return apperrors.New(apperrors.CodeCategoryInvalid, "primary category is required")
	}
	if categories.Secondary == "" && categories.Tertiary != "" {
		return apperrors.New(apperrors.CodeCategoryInvalid, "tertiary category requires a secondary category")
	}
	for _, value := range []string{categories.Primary, categories.Secondary, categories.Tertiary} {
		if err := field.Text("category", value, field.MaxCategoryLength); err != nil {
			return err
		}
	}
	return nil
}
