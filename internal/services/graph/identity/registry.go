// Package identity implements profile creation, handle uniqueness, and
// default-identity bookkeeping.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/lumenfeed/lumenfeed/internal/platform/errors"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/event"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/field"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/handle"
	"github.com/lumenfeed/lumenfeed/internal/services/graph/storage"
)

// Registry executes identity operations inside one transaction.
type Registry struct {
	tx     storage.Tx
	events *event.Recorder
	clock  func() time.Time
}

// NewRegistry creates a registry bound to one transaction.
func NewRegistry(tx storage.Tx, events *event.Recorder, clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{tx: tx, events: events, clock: clock}
}

// CreateResult carries the created identity and whether it became the
// owner's default.
type CreateResult struct {
	Identity      storage.Identity
	BecameDefault bool
}

// Create registers a new profile under the caller principal. The first
// identity of an owner becomes the default.
func (r *Registry) Create(ctx context.Context, caller string, rawHandle string, imageURI string) (CreateResult, error) {
	canonical, err := handle.Canonicalize(rawHandle)
	if err != nil {
		return CreateResult{}, apperrors.Wrap(apperrors.CodeHandleInvalid, fmt.Sprintf("handle %q is invalid", rawHandle), err)
	}
	if err := field.URI("image uri", imageURI, false); err != nil {
		return CreateResult{}, err
	}

	taken, err := r.tx.HandleExists(ctx, canonical)
	if err != nil {
		return CreateResult{}, err
	}
	if taken {
		return CreateResult{}, apperrors.New(apperrors.CodeHandleTaken, fmt.Sprintf("handle %q is already claimed", canonical))
	}

	becameDefault := false
	if _, err := r.tx.GetDefaultIdentity(ctx, caller); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return CreateResult{}, err
		}
		becameDefault = true
	}

	now := r.clock().UTC()
	id, err := r.tx.InsertIdentity(ctx, storage.Identity{
		Owner:     caller,
		Handle:    canonical,
		ImageURI:  imageURI,
		Default:   becameDefault,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return CreateResult{}, apperrors.New(apperrors.CodeHandleTaken, fmt.Sprintf("handle %q is already claimed", canonical))
		}
		return CreateResult{}, err
	}
	identity, err := r.tx.GetIdentity(ctx, id)
	if err != nil {
		return CreateResult{}, err
	}

	if err := r.events.Record(ctx, event.TypeIdentityCreated, event.IdentityCreated{
		Identity:      event.IdentitySnapshot(identity),
		BecameDefault: becameDefault,
	}); err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Identity: identity, BecameDefault: becameDefault}, nil
}

// UpdateImage rewrites the image reference of a caller-owned identity.
func (r *Registry) UpdateImage(ctx context.Context, caller string, identityID int64, imageURI string) (storage.Identity, error) {
	identity, err := r.requireOwned(ctx, caller, identityID)
	if err != nil {
		return storage.Identity{}, err
	}
	if identity.ImageURI == imageURI {
		return storage.Identity{}, apperrors.New(apperrors.CodeNothingChanged, "image reference is unchanged")
	}
	if err := field.URI("image uri", imageURI, false); err != nil {
		return storage.Identity{}, err
	}

	if err := r.tx.SetIdentityImage(ctx, identityID, imageURI, r.clock().UTC()); err != nil {
		return storage.Identity{}, err
	}
	identity, err = r.tx.GetIdentity(ctx, identityID)
	if err != nil {
		return storage.Identity{}, err
	}
	if err := r.events.Record(ctx, event.TypeIdentityImageUpdated, event.IdentityImageUpdated{
		Identity: event.IdentitySnapshot(identity),
	}); err != nil {
		return storage.Identity{}, err
	}
	return identity, nil
}

// SetDefault flags a caller-owned identity as the owner's default, clearing
// the previous default.
func (r *Registry) SetDefault(ctx context.Context, caller string, identityID int64) (storage.Identity, error) {
	identity, err := r.requireOwned(ctx, caller, identityID)
	if err != nil {
		return storage.Identity{}, err
	}
	if identity.Default {
		return storage.Identity{}, apperrors.New(apperrors.CodeAlreadyDefault, "identity is already the default")
	}

	now := r.clock().UTC()
	previousID := int64(0)
	if previous, err := r.tx.GetDefaultIdentity(ctx, caller); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, err
		}
	} else {
		previousID = previous.ID
		if err := r.tx.SetIdentityDefault(ctx, previous.ID, false, now); err != nil {
			return storage.Identity{}, err
		}
	}
	if err := r.tx.SetIdentityDefault(ctx, identityID, true, now); err != nil {
		return storage.Identity{}, err
	}
	identity, err = r.tx.GetIdentity(ctx, identityID)
	if err != nil {
		return storage.Identity{}, err
	}
	if err := r.events.Record(ctx, event.TypeIdentityDefaultChanged, event.IdentityDefaultChanged{
		Identity:           event.IdentitySnapshot(identity),
		PreviousIdentityID: previousID,
	}); err != nil {
		return storage.Identity{}, err
	}
	return identity, nil
}

// Burn removes a caller-owned, non-default identity and repairs every record
// that references it: follow edges are burned on both sides with counter
// repair, and the identity's like/dislike marks are cleared the same way.
func (r *Registry) Burn(ctx context.Context, caller string, identityID int64) error {
	identity, err := r.requireOwned(ctx, caller, identityID)
	if err != nil {
		return err
	}
	if identity.Default {
		return apperrors.New(apperrors.CodeBurnDefaultForbidden, "cannot burn the owner's default identity")
	}

	now := r.clock().UTC()

	edges, err := r.tx.ListFollowEdgesByIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		if err := r.tx.BurnToken(ctx, edge.TokenID); err != nil {
			return err
		}
		if err := r.tx.DeleteFollowEdge(ctx, edge.FollowerID, edge.FolloweeID); err != nil {
			return err
		}
		if err := r.tx.AdjustFollowCounts(ctx, edge.FollowerID, 0, -1, now); err != nil {
			return err
		}
		if err := r.tx.AdjustFollowCounts(ctx, edge.FolloweeID, -1, 0, now); err != nil {
			return err
		}
	}

	likes, err := r.tx.ListLikesByProfile(ctx, identityID)
	if err != nil {
		return err
	}
	for _, like := range likes {
		if err := r.tx.BurnToken(ctx, like.TokenID); err != nil {
			return err
		}
		if err := r.tx.DeleteLike(ctx, like.PublicationID, like.ProfileID); err != nil {
			return err
		}
		if err := r.tx.AdjustEngagementCounts(ctx, like.PublicationID, -1, 0, now); err != nil {
			return err
		}
	}

	dislikes, err := r.tx.ListDislikesByProfile(ctx, identityID)
	if err != nil {
		return err
	}
	for _, dislike := range dislikes {
		if err := r.tx.ClearDislike(ctx, dislike.PublicationID, dislike.ProfileID); err != nil {
			return err
		}
		if err := r.tx.AdjustEngagementCounts(ctx, dislike.PublicationID, 0, -1, now); err != nil {
			return err
		}
	}

	// Snapshot after cascade repairs so the event carries final counts.
	final, err := r.tx.GetIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	if err := r.tx.DeleteIdentity(ctx, identityID); err != nil {
		return err
	}
	return r.events.Record(ctx, event.TypeIdentityBurned, event.IdentityBurned{
		Identity:        event.IdentitySnapshot(final),
		EdgesRemoved:    len(edges),
		LikesRemoved:    len(likes),
		DislikesRemoved: len(dislikes),
	})
}

func (r *Registry) requireOwned(ctx context.Context, caller string, identityID int64) (storage.Identity, error) {
	identity, err := r.tx.GetIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("identity %d not found", identityID))
		}
		return storage.Identity{}, err
	}
	if identity.Owner != caller {
		return storage.Identity{}, apperrors.New(apperrors.CodeForbidden, "caller does not own the identity")
	}
	return identity, nil
}
